package store

import (
	"context"
	"database/sql"
	"fmt"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Put inserts or replaces a record.
//
// Fields are serialized to canonical JSON per RFC 8785, so writing the
// same record twice stores byte-identical rows.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if err := putRecord(ctx, s.db, rec); err != nil {
		return fmt.Errorf("put %s: %w", rec, err)
	}
	return nil
}

// PutAll writes records in a single transaction. Either every record is
// stored or none is.
func (s *Store) PutAll(ctx context.Context, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put all: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, rec := range recs {
		if err := putRecord(ctx, tx, rec); err != nil {
			return fmt.Errorf("put %s: %w", rec, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put all: commit: %w", err)
	}
	return nil
}

func putRecord(ctx context.Context, db execer, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	fields, err := marshalFields(rec.Fields)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO records (kind, id, fields)
		VALUES (?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET fields = excluded.fields
	`, rec.Kind, rec.ID, fields)
	return err
}

// Delete removes a record and reports whether it existed.
func (s *Store) Delete(ctx context.Context, kind, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: rows affected: %w", kind, id, err)
	}
	return n > 0, nil
}
