package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-service/internal/models"
)

// SaveTickers upserts merged ticker records into the cache table
func (db *DB) SaveTickers(ctx context.Context, records []models.TickerRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ticker_cache (symbol, name, currency, price, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			currency = EXCLUDED.currency,
			price = COALESCE(EXCLUDED.price, ticker_cache.price),
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		updated := r.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		_, err := stmt.ExecContext(ctx, r.Symbol, r.Name, nullString(r.Currency), r.Price, string(r.Source), updated)
		if err != nil {
			return fmt.Errorf("failed to save ticker %s: %w", r.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetCachedTickers loads the ticker cache. Records come back with the cache
// source whatever source originally produced them.
func (db *DB) GetCachedTickers(ctx context.Context) ([]models.TickerRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT symbol, name, currency, price, updated_at
		FROM ticker_cache
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get cached tickers: %w", err)
	}
	defer rows.Close()

	var records []models.TickerRecord
	for rows.Next() {
		var r models.TickerRecord
		var cur sql.NullString
		if err := rows.Scan(&r.Symbol, &r.Name, &cur, &r.Price, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		r.Currency = cur.String
		r.Source = models.SourceCache
		records = append(records, r)
	}
	return records, rows.Err()
}
