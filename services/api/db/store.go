package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munidigital/arbolado-api/services/api/importer"
)

// Store wraps database access for the tree inventory.
//
// Expected schema:
//
//	CREATE TABLE arbolado.trees (
//	    id            bigserial PRIMARY KEY,
//	    species       text NOT NULL,
//	    street_name   text NOT NULL,
//	    street_number text NOT NULL,
//	    status        text,
//	    sidewalk      text,
//	    observations  text NOT NULL DEFAULT '',
//	    created_at    timestamptz NOT NULL DEFAULT now()
//	)
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

// querier covers the pgx surface shared by *pgxpool.Pool and pgx.Tx, so the
// same store methods run pooled or inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, q: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InTransaction runs fn against a transaction-backed store. Any error from fn
// rolls the whole transaction back.
func (s *Store) InTransaction(ctx context.Context, fn func(importer.TreeStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{pool: s.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const insertTreeSQL = `
    INSERT INTO arbolado.trees (species, street_name, street_number, status, sidewalk, observations, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, NOW())
`

// InsertTrees writes the records in one pgx batch. Status is persisted in the
// storage encoding, NULL when unset; sidewalk NULL when absent.
func (s *Store) InsertTrees(ctx context.Context, records []importer.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		var status *string
		if st := importer.StatusToStorage(rec.Status); st != "" {
			status = &st
		}
		batch.Queue(insertTreeSQL, rec.Species, rec.StreetName, rec.StreetNumber, status, rec.Sidewalk, rec.Observations)
	}

	res := s.q.SendBatch(ctx, batch)
	defer res.Close()

	created := 0
	for range records {
		if _, err := res.Exec(); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// DeleteAllTrees removes every stored tree row.
func (s *Store) DeleteAllTrees(ctx context.Context) error {
	_, err := s.q.Exec(ctx, `DELETE FROM arbolado.trees`)
	return err
}

// TreeRow is a persisted tree inventory record.
type TreeRow struct {
	ID           int64     `json:"id"`
	Species      string    `json:"species"`
	StreetName   string    `json:"street_name"`
	StreetNumber string    `json:"street_number"`
	Status       *string   `json:"status,omitempty"`
	Sidewalk     *string   `json:"sidewalk,omitempty"`
	Observations string    `json:"observations,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

const listTreesSQL = `
    SELECT id, species, street_name, street_number, status, sidewalk, observations, created_at
    FROM arbolado.trees
    ORDER BY created_at, id
`

// ListTrees returns all stored tree rows ordered by creation time.
func (s *Store) ListTrees(ctx context.Context) ([]TreeRow, error) {
	rows, err := s.q.Query(ctx, listTreesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trees := make([]TreeRow, 0)
	for rows.Next() {
		var t TreeRow
		if err := rows.Scan(
			&t.ID,
			&t.Species,
			&t.StreetName,
			&t.StreetNumber,
			&t.Status,
			&t.Sidewalk,
			&t.Observations,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	return trees, rows.Err()
}

// NewTree carries the raw fields of a direct (form-entered) creation.
type NewTree struct {
	Species      string `json:"species"`
	StreetName   string `json:"streetName"`
	StreetNumber string `json:"streetNumber"`
	Status       string `json:"status"`
	Sidewalk     string `json:"sidewalk"`
	Observations string `json:"observations"`
}

const createTreeSQL = insertTreeSQL + ` RETURNING id`

// CreateTree normalizes and inserts a single manually-entered tree. Unlike
// the import path, an unrecognized status defaults to Sano here.
func (s *Store) CreateTree(ctx context.Context, in NewTree) (int64, error) {
	status := importer.NormalizeStatusStorage(in.Status)
	var sidewalk *string
	if side := importer.NormalizeSidewalk(in.Sidewalk); side != "" {
		sidewalk = &side
	}

	var id int64
	err := s.q.QueryRow(ctx, createTreeSQL,
		importer.CleanText(in.Species),
		importer.CleanText(in.StreetName),
		importer.DigitsOnly(in.StreetNumber),
		status,
		sidewalk,
		importer.CleanText(in.Observations),
	).Scan(&id)
	return id, err
}

const sweepKeysSQL = `
    SELECT id, species, street_name, street_number, COALESCE(sidewalk, '')
    FROM arbolado.trees
    ORDER BY created_at ASC, id ASC
`

// SweepExactDuplicates scans all stored rows in creation order, keeps the
// first occurrence of each natural key and deletes every later one in a
// single bulk statement. Returns the number of rows deleted.
func (s *Store) SweepExactDuplicates(ctx context.Context) (int, error) {
	rows, err := s.q.Query(ctx, sweepKeysSQL)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	dupIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		var species, streetName, streetNumber, sidewalk string
		if err := rows.Scan(&id, &species, &streetName, &streetNumber, &sidewalk); err != nil {
			return 0, err
		}
		key := importer.NaturalKey(streetName, streetNumber, species, sidewalk)
		if _, ok := seen[key]; ok {
			dupIDs = append(dupIDs, id)
			continue
		}
		seen[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(dupIDs) == 0 {
		return 0, nil
	}

	if _, err := s.q.Exec(ctx, `DELETE FROM arbolado.trees WHERE id = ANY($1)`, dupIDs); err != nil {
		return 0, err
	}
	return len(dupIDs), nil
}
