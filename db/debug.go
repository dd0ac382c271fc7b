package db

import (
	"context"
	"time"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

func RecentReadingsCLI(ctx context.Context, dbPath, serial string, limit int) ([]model.Reading, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return RecentReadings(ctx, db, serial, limit)
}

func PruneReadingsCLI(ctx context.Context, dbPath string, olderThan time.Duration) (int64, error) {
	db, err := Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return PruneReadings(ctx, db, time.Now().Add(-olderThan))
}
