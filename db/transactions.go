package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// StartTransaction starts a new database transaction.
func StartTransaction(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

func InsertReadingWithTx(ctx context.Context, tx *sql.Tx, r model.Reading) error {
	value, err := marshalJSON(r.Value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s value: %w", r.Serial, r.Field, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO readings (serial, field, value, fetched_at, valid_until) VALUES (?, ?, ?, ?, ?)`,
		r.Serial, r.Field, value, r.FetchedAt.UTC().Format(time.RFC3339Nano), r.ValidUntil.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert reading %s/%s: %w", r.Serial, r.Field, err)
	}
	return nil
}

// PruneReadings deletes readings fetched before cutoff and reports how many went.
func PruneReadings(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	tx, err := StartTransaction(ctx, db)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM readings WHERE fetched_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		RollbackTransaction(tx)
		return 0, fmt.Errorf("prune readings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, CommitTransaction(tx)
}
