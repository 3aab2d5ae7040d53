package importer

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory TreeStore. InTransaction stages writes on a copy
// and only publishes them when fn succeeds, mirroring rollback semantics.
type fakeStore struct {
	rows        []Record
	insertCalls int
	failOnCall  int // 1-based insert call that fails; 0 = never
}

func (f *fakeStore) DeleteAllTrees(ctx context.Context) error {
	f.rows = nil
	return nil
}

func (f *fakeStore) InsertTrees(ctx context.Context, records []Record) (int, error) {
	f.insertCalls++
	if f.failOnCall != 0 && f.insertCalls == f.failOnCall {
		return 0, errors.New("insert batch failed")
	}
	f.rows = append(f.rows, records...)
	return len(records), nil
}

func (f *fakeStore) InTransaction(ctx context.Context, fn func(TreeStore) error) error {
	staged := &fakeStore{
		rows:        append([]Record(nil), f.rows...),
		insertCalls: f.insertCalls,
		failOnCall:  f.failOnCall,
	}
	err := fn(staged)
	f.insertCalls = staged.insertCalls
	if err != nil {
		return err
	}
	f.rows = staged.rows
	return nil
}

func makeRecords(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Species:      "Roble",
			StreetName:   "Av Siempreviva",
			StreetNumber: strconv.Itoa(i + 1),
		}
	}
	return records
}

func TestLoadBatching(t *testing.T) {
	store := &fakeStore{}
	records := makeRecords(2*InsertBatchSize + 5)

	created, err := Load(context.Background(), store, records, false)
	require.NoError(t, err)
	assert.Equal(t, len(records), created)
	assert.Equal(t, 3, store.insertCalls)
	assert.Len(t, store.rows, len(records))
}

func TestLoadReplaceAll(t *testing.T) {
	store := &fakeStore{rows: makeRecords(3)}

	created, err := Load(context.Background(), store, makeRecords(5), true)
	require.NoError(t, err)
	assert.Equal(t, 5, created)
	assert.Len(t, store.rows, 5, "existing rows are replaced")
}

func TestLoadReplaceAllRollsBackOnBatchFailure(t *testing.T) {
	store := &fakeStore{rows: makeRecords(3), failOnCall: 2}
	records := makeRecords(InsertBatchSize + 10) // two batches

	_, err := Load(context.Background(), store, records, true)
	require.Error(t, err)
	assert.Len(t, store.rows, 3, "delete and first batch must roll back together")
}

func TestLoadPartialSuccessWithoutReplaceAll(t *testing.T) {
	store := &fakeStore{failOnCall: 2}
	records := makeRecords(InsertBatchSize + 10)

	created, err := Load(context.Background(), store, records, false)
	require.Error(t, err)
	assert.Equal(t, InsertBatchSize, created)
	assert.Len(t, store.rows, InsertBatchSize, "committed batches stay committed")
}

func TestRunImportCountConservation(t *testing.T) {
	rows := []RawRow{
		{"Especie": "Roble", "Calle": "Av Siempreviva", "Altura": "742", "Vereda": "norte"},
		{"Especie": "roble", "Calle": "av siempreviva", "Altura": "742", "Vereda": "n"},
		{"Especie": "", "Calle": "Calle X", "Altura": "10"},
		{"Especie": "Tilo", "Calle": "Mitre", "Altura": "s/n"},
		{"Especie": "Tilo", "Calle": "Mitre", "Altura": "10"},
	}

	store := &fakeStore{}
	result, err := RunImport(context.Background(), store, rows, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.DuplicateSkipped)
	assert.Equal(t, len(rows), result.Created+result.Skipped+result.DuplicateSkipped)
	require.Len(t, result.Invalids, 2)
	assert.Equal(t, 4, result.Invalids[0].Row)
	assert.Equal(t, 5, result.Invalids[1].Row)
}
