package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// RecentReadings returns up to limit readings for serial, newest first.
func RecentReadings(ctx context.Context, db *sql.DB, serial string, limit int) ([]model.Reading, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT serial, field, value, fetched_at, valid_until FROM readings WHERE serial = ? ORDER BY fetched_at DESC, id DESC LIMIT ?`,
		serial, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []model.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read readings: %w", err)
	}
	return readings, nil
}

// LatestReading returns the newest reading of one field, or sql.ErrNoRows.
func LatestReading(ctx context.Context, db *sql.DB, serial, field string) (model.Reading, error) {
	row := db.QueryRowContext(ctx,
		`SELECT serial, field, value, fetched_at, valid_until FROM readings WHERE serial = ? AND field = ? ORDER BY fetched_at DESC, id DESC LIMIT 1`,
		serial, field)
	r, err := scanReading(row)
	if err != nil {
		return model.Reading{}, fmt.Errorf("failed to get latest %s for %s: %w", field, serial, err)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (model.Reading, error) {
	var r model.Reading
	var value, fetchedAt, validUntil string
	if err := s.Scan(&r.Serial, &r.Field, &value, &fetchedAt, &validUntil); err != nil {
		return r, fmt.Errorf("failed to scan reading: %w", err)
	}
	if err := json.Unmarshal([]byte(value), &r.Value); err != nil {
		return r, fmt.Errorf("failed to decode %s/%s value: %w", r.Serial, r.Field, err)
	}
	var err error
	if r.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt); err != nil {
		return r, fmt.Errorf("failed to parse fetched_at: %w", err)
	}
	if r.ValidUntil, err = time.Parse(time.RFC3339Nano, validUntil); err != nil {
		return r, fmt.Errorf("failed to parse valid_until: %w", err)
	}
	return r, nil
}
