package importer

import "context"

// InsertBatchSize bounds how many records go into one insert call.
const InsertBatchSize = 1000

// TreeStore is the narrow storage contract the loader needs. The db package
// implements it over Postgres; tests inject an in-memory fake.
type TreeStore interface {
	DeleteAllTrees(ctx context.Context) error
	InsertTrees(ctx context.Context, records []Record) (int, error)
	InTransaction(ctx context.Context, fn func(TreeStore) error) error
}

// Load persists an already-deduplicated record list. With replaceAll the
// delete and every insert batch run inside one transaction, so a failed
// batch rolls the deletion back too. Without it each batch commits
// independently and a failure leaves earlier batches in place; the partial
// created count is returned alongside the error.
func Load(ctx context.Context, store TreeStore, records []Record, replaceAll bool) (int, error) {
	if !replaceAll {
		return insertBatches(ctx, store, records)
	}

	created := 0
	err := store.InTransaction(ctx, func(tx TreeStore) error {
		if err := tx.DeleteAllTrees(ctx); err != nil {
			return err
		}
		n, err := insertBatches(ctx, tx, records)
		created = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func insertBatches(ctx context.Context, store TreeStore, records []Record) (int, error) {
	created := 0
	for start := 0; start < len(records); start += InsertBatchSize {
		end := start + InsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		n, err := store.InsertTrees(ctx, records[start:end])
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

// ImportResult carries the per-import counters: created + skipped +
// duplicateSkipped always equals the number of source rows.
type ImportResult struct {
	Created          int          `json:"created"`
	Skipped          int          `json:"skipped"`
	DuplicateSkipped int          `json:"duplicateSkipped"`
	Invalids         []InvalidRow `json:"errors"`
}

// RunImport is the full spreadsheet path: normalize every raw row, drop
// intra-batch duplicates first-seen-wins, then load.
func RunImport(ctx context.Context, store TreeStore, rows []RawRow, replaceAll bool) (ImportResult, error) {
	records, invalids := NormalizeRows(rows)
	deduped, dropped := DedupeFirstSeen(records)
	created, err := Load(ctx, store, deduped, replaceAll)
	return ImportResult{
		Created:          created,
		Skipped:          len(invalids),
		DuplicateSkipped: dropped,
		Invalids:         invalids,
	}, err
}
