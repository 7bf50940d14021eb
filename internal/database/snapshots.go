package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-service/internal/models"
)

const upsertSnapshot = `
	INSERT INTO performance_snapshots (holding_id, date, price_per_unit, total_value, currency, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	ON CONFLICT (holding_id, date) DO UPDATE SET
		price_per_unit = EXCLUDED.price_per_unit,
		total_value = EXCLUDED.total_value,
		currency = EXCLUDED.currency,
		updated_at = EXCLUDED.updated_at
	RETURNING id, created_at, updated_at
`

const snapshotColumns = `id, holding_id, date, price_per_unit, total_value, currency, created_at, updated_at`

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scanSnapshot(s scanner) (*models.PerformanceSnapshot, error) {
	var p models.PerformanceSnapshot
	err := s.Scan(&p.ID, &p.HoldingID, &p.Date, &p.PricePerUnit, &p.TotalValue, &p.Currency, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Date = dateOnly(p.Date)
	return &p, nil
}

// UpsertSnapshot inserts the snapshot for (holding, date) or updates it in place
func (db *DB) UpsertSnapshot(ctx context.Context, s *models.PerformanceSnapshot) error {
	s.Date = dateOnly(s.Date)
	err := db.conn.QueryRowContext(ctx, upsertSnapshot,
		s.HoldingID, s.Date, s.PricePerUnit, s.TotalValue, s.Currency, time.Now().UTC(),
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// UpsertSnapshots upserts several snapshots in one transaction
func (db *DB) UpsertSnapshots(ctx context.Context, snapshots []*models.PerformanceSnapshot) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSnapshot)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, s := range snapshots {
		s.Date = dateOnly(s.Date)
		err := stmt.QueryRowContext(ctx, s.HoldingID, s.Date, s.PricePerUnit, s.TotalValue, s.Currency, now).
			Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot for %s: %w", s.HoldingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the snapshot of a holding on a date
func (db *DB) GetSnapshot(ctx context.Context, holdingID string, date time.Time) (*models.PerformanceSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM performance_snapshots WHERE holding_id = $1 AND date = $2`

	s, err := scanSnapshot(db.conn.QueryRowContext(ctx, query, holdingID, dateOnly(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot not found for %s on %s: %w", holdingID, date.Format("2006-01-02"), models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return s, nil
}

// GetLatestSnapshotBefore returns the most recent snapshot strictly before
// date, or nil when the holding has no earlier history.
func (db *DB) GetLatestSnapshotBefore(ctx context.Context, holdingID string, date time.Time) (*models.PerformanceSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM performance_snapshots
		WHERE holding_id = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1
	`
	s, err := scanSnapshot(db.conn.QueryRowContext(ctx, query, holdingID, dateOnly(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous snapshot: %w", err)
	}
	return s, nil
}

// GetSnapshotHistory returns a holding's snapshots between from and to inclusive, oldest first
func (db *DB) GetSnapshotHistory(ctx context.Context, holdingID string, from, to time.Time) ([]*models.PerformanceSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM performance_snapshots
		WHERE holding_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, holdingID, dateOnly(from), dateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot history: %w", err)
	}
	defer rows.Close()

	var history []*models.PerformanceSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		history = append(history, s)
	}
	return history, rows.Err()
}
