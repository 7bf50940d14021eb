package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-service/internal/models"
)

const holdingColumns = `id, account_id, type, name, symbol, quantity, purchase_price, current_price, currency,
	name_manually_edited, price_manually_edited, currency_manually_edited, created_at, updated_at`

const insertHolding = `
	INSERT INTO holdings (` + holdingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

type scanner interface {
	Scan(dest ...any) error
}

func scanHolding(s scanner) (*models.Holding, error) {
	var h models.Holding
	var symbol sql.NullString
	err := s.Scan(
		&h.ID, &h.AccountID, &h.Type, &h.Name, &symbol, &h.Quantity, &h.PurchasePrice, &h.CurrentPrice,
		&h.Currency, &h.NameManuallyEdited, &h.PriceManuallyEdited, &h.CurrencyManuallyEdited,
		&h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.Symbol = symbol.String
	return &h, nil
}

func holdingArgs(h *models.Holding) []any {
	return []any{
		h.ID, h.AccountID, h.Type, h.Name, nullString(h.Symbol), h.Quantity, h.PurchasePrice, h.CurrentPrice,
		h.Currency, h.NameManuallyEdited, h.PriceManuallyEdited, h.CurrencyManuallyEdited,
		h.CreatedAt, h.UpdatedAt,
	}
}

func prepareHolding(h *models.Holding, now time.Time) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Type == "" {
		h.Type = models.HoldingTypeSecurity
	}
	h.CreatedAt = now
	h.UpdatedAt = now
}

// CreateHolding inserts a holding, assigning an id when it has none
func (db *DB) CreateHolding(ctx context.Context, h *models.Holding) error {
	prepareHolding(h, time.Now().UTC())
	if _, err := db.conn.ExecContext(ctx, insertHolding, holdingArgs(h)...); err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}
	return nil
}

// CreateHoldingsBatch inserts holdings in one transaction. Either all rows are
// written or none.
func (db *DB) CreateHoldingsBatch(ctx context.Context, holdings []*models.Holding) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertHolding)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, h := range holdings {
		prepareHolding(h, now)
		if _, err := stmt.ExecContext(ctx, holdingArgs(h)...); err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetHolding retrieves a holding by id
func (db *DB) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE id = $1`

	h, err := scanHolding(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("holding not found: %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// ListHoldings returns every holding of an account in creation order
func (db *DB) ListHoldings(ctx context.Context, accountID string) ([]*models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE account_id = $1 ORDER BY created_at, id`

	rows, err := db.conn.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// ListAccounts returns every account that owns at least one holding
func (db *DB) ListAccounts(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT account_id FROM holdings ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, id)
	}
	return accounts, rows.Err()
}

// UpdateHolding writes every mutable field of a holding
func (db *DB) UpdateHolding(ctx context.Context, h *models.Holding) error {
	query := `
		UPDATE holdings SET
			type = $2, name = $3, symbol = $4, quantity = $5, purchase_price = $6, current_price = $7,
			currency = $8, name_manually_edited = $9, price_manually_edited = $10,
			currency_manually_edited = $11, updated_at = $12
		WHERE id = $1
	`
	h.UpdatedAt = time.Now().UTC()
	result, err := db.conn.ExecContext(ctx, query,
		h.ID, h.Type, h.Name, nullString(h.Symbol), h.Quantity, h.PurchasePrice, h.CurrentPrice,
		h.Currency, h.NameManuallyEdited, h.PriceManuallyEdited, h.CurrencyManuallyEdited, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("holding not found: %s: %w", h.ID, models.ErrNotFound)
	}
	return nil
}

// EnrichHolding writes ticker data into the columns of a holding that were not
// edited by hand. The write only applies while the holding still has symbol, so
// a lookup that finishes after an edit never overwrites it.
func (db *DB) EnrichHolding(ctx context.Context, id, symbol string, rec models.TickerRecord) (*models.Holding, error) {
	query := `
		UPDATE holdings SET
			name = CASE WHEN name_manually_edited OR $3::text = '' THEN name ELSE $3::text END,
			currency = CASE WHEN currency_manually_edited OR $4::text = '' THEN currency ELSE $4::text END,
			current_price = CASE WHEN price_manually_edited OR $5::numeric IS NULL THEN current_price ELSE $5::numeric END,
			updated_at = $6
		WHERE id = $1 AND symbol = $2
		RETURNING ` + holdingColumns

	h, err := scanHolding(db.conn.QueryRowContext(ctx, query,
		id, symbol, rec.Name, rec.Currency, rec.Price, time.Now().UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("holding %s with symbol %s not found: %w", id, symbol, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enrich holding: %w", err)
	}
	return h, nil
}

// DeleteHolding removes a holding and, by cascade, its snapshots
func (db *DB) DeleteHolding(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM holdings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("holding not found: %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
