package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/orcamentos/internal/profitability"
)

// LiveConfig returns the current configuration, or a zero one when the
// singleton row has not been created yet.
func (s *Store) LiveConfig(ctx context.Context) (profitability.Config, error) {
	var cfg profitability.Config
	err := s.db.QueryRowContext(ctx, `
		SELECT monthly_fixed_cost, material_tax_percent, service_tax_percent
		FROM app_config
		WHERE id = 1
	`).Scan(&cfg.MonthlyFixedCost, &cfg.MaterialTaxPercent, &cfg.ServiceTaxPercent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profitability.Config{}, nil
		}
		return profitability.Config{}, fmt.Errorf("query app_config: %w", err)
	}
	return cfg, nil
}

// UpdateConfig replaces the live configuration and appends it to the
// configuration history as effective from effectiveAt.
func (s *Store) UpdateConfig(ctx context.Context, cfg profitability.Config, effectiveAt time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO app_config (id, monthly_fixed_cost, material_tax_percent, service_tax_percent, updated_at)
			VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				monthly_fixed_cost = excluded.monthly_fixed_cost,
				material_tax_percent = excluded.material_tax_percent,
				service_tax_percent = excluded.service_tax_percent,
				updated_at = CURRENT_TIMESTAMP
		`, cfg.MonthlyFixedCost, cfg.MaterialTaxPercent, cfg.ServiceTaxPercent); err != nil {
			return fmt.Errorf("upsert app_config: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO config_history (effective_at, monthly_fixed_cost, material_tax_percent, service_tax_percent)
			VALUES (?, ?, ?, ?)
		`, utc(effectiveAt), cfg.MonthlyFixedCost, cfg.MaterialTaxPercent, cfg.ServiceTaxPercent); err != nil {
			return fmt.Errorf("insert config_history: %w", err)
		}
		return nil
	})
}

// ConfigHistory returns every configuration record in insertion order.
func (s *Store) ConfigHistory(ctx context.Context) ([]profitability.ConfigRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT effective_at, monthly_fixed_cost, material_tax_percent, service_tax_percent
		FROM config_history
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query config_history: %w", err)
	}
	defer rows.Close()

	records := make([]profitability.ConfigRecord, 0)
	for rows.Next() {
		var rec profitability.ConfigRecord
		if err := rows.Scan(&rec.EffectiveAt, &rec.MonthlyFixedCost, &rec.MaterialTaxPercent, &rec.ServiceTaxPercent); err != nil {
			return nil, fmt.Errorf("scan config_history: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config_history: %w", err)
	}
	return records, nil
}
