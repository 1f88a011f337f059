package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Get retrieves a single record.
// Returns ErrNotFound (which wraps sql.ErrNoRows) if it does not exist.
func (s *Store) Get(ctx context.Context, kind, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, id, fields
		FROM records
		WHERE kind = ? AND id = ?
	`, kind, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s/%s: %w", kind, id, err)
	}
	return rec, nil
}

// Scan returns every record of a kind ordered by id COLLATE BINARY.
// Returns an empty slice (not nil) if the kind has no records.
func (s *Store) Scan(ctx context.Context, kind string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, fields
		FROM records
		WHERE kind = ?
		ORDER BY id COLLATE BINARY ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return records, nil
}

// Kinds lists the distinct record kinds in binary order.
func (s *Store) Kinds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT kind FROM records ORDER BY kind COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query kinds: %w", err)
	}
	defer rows.Close()

	kinds := []string{}
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		kinds = append(kinds, kind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kinds: %w", err)
	}
	return kinds, nil
}

// Count returns the number of records of a kind.
func (s *Store) Count(ctx context.Context, kind string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE kind = ?`, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec    Record
		fields string
	)
	if err := row.Scan(&rec.Kind, &rec.ID, &fields); err != nil {
		return Record{}, err
	}
	obj, err := unmarshalFields(fields)
	if err != nil {
		return Record{}, fmt.Errorf("%s/%s: %w", rec.Kind, rec.ID, err)
	}
	rec.Fields = obj
	return rec, nil
}
