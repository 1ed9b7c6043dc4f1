package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gomirror/internal/domain"
)

// QuotaRepository implements the quota gate on the quota_ledgers table.
// Accounts without a ledger row are treated as having the default capacity
// and zero usage; a row is created on first write.
type QuotaRepository struct {
	db              *sqlx.DB
	defaultCapacity int64
}

// NewQuotaRepository creates a new quota repository.
func NewQuotaRepository(db *sqlx.DB, defaultCapacity int64) *QuotaRepository {
	return &QuotaRepository{db: db, defaultCapacity: defaultCapacity}
}

// GetLedger returns the account's quota ledger, synthesizing a zero-usage
// ledger at the default capacity when none is stored.
func (r *QuotaRepository) GetLedger(ctx context.Context, accountID string) (*domain.QuotaLedger, error) {
	var ledger domain.QuotaLedger
	query := `
		SELECT account_id, capacity_bytes, used_bytes, updated_at
		FROM quota_ledgers
		WHERE account_id = $1
	`

	err := r.db.GetContext(ctx, &ledger, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.QuotaLedger{
				AccountID:     accountID,
				CapacityBytes: r.defaultCapacity,
			}, nil
		}
		return nil, fmt.Errorf("failed to get quota ledger: %w", err)
	}

	return &ledger, nil
}

// WouldFit reports whether saving additionalBytes more would stay within the
// account's capacity.
func (r *QuotaRepository) WouldFit(ctx context.Context, accountID string, additionalBytes int64) (bool, error) {
	ledger, err := r.GetLedger(ctx, accountID)
	if err != nil {
		return false, err
	}

	return ledger.UsedBytes+additionalBytes <= ledger.CapacityBytes, nil
}

// RecordUsage adds deltaBytes to the account's used storage.
func (r *QuotaRepository) RecordUsage(ctx context.Context, accountID string, deltaBytes int64) error {
	query := `
		INSERT INTO quota_ledgers (account_id, capacity_bytes, used_bytes, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_id) DO UPDATE
		SET used_bytes = quota_ledgers.used_bytes + EXCLUDED.used_bytes, updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, accountID, r.defaultCapacity, deltaBytes)
	if err != nil {
		return fmt.Errorf("failed to record quota usage: %w", err)
	}

	return nil
}
