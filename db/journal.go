package db

import (
	"context"
	"database/sql"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// Journal appends every fetched field value to the readings table. It is write-only from
// the client's point of view: nothing is ever loaded back into a device cache.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Record(ctx context.Context, r model.Reading) error {
	tx, err := StartTransaction(ctx, j.db)
	if err != nil {
		return err
	}
	if err := InsertReadingWithTx(ctx, tx, r); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}
