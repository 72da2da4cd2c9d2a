package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/orcamentos/internal/profitability"
)

const (
	defaultItemDescription = "Extintor ABC 6kg"
	defaultMaterialTaxPct  = 0
	defaultServiceTaxPct   = 0
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	// Now stamps the initial history records.
	Now time.Time
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	steps := []func(context.Context, *sql.Tx, Config, *Stats) error{
		seedAdmin,
		ensureConfig,
		ensureDefaultItem,
	}
	for _, step := range steps {
		if err := step(ctx, tx, cfg, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, cfg.AdminEmail).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES (?, ?)`, cfg.AdminEmail, string(hash)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureConfig(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM app_config WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check app config existence: %w", err)
	}
	if !exists {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO app_config (id, monthly_fixed_cost, material_tax_percent, service_tax_percent)
			VALUES (1, 0, ?, ?)
		`, defaultMaterialTaxPct, defaultServiceTaxPct); err != nil {
			return fmt.Errorf("insert app config singleton: %w", err)
		}
		stats.Inserts++
	}

	// The first history record mirrors the live singleton so that reports
	// have a baseline even before anyone edits the configuration.
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM config_history)`).Scan(&exists); err != nil {
		return fmt.Errorf("check config history existence: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO config_history (effective_at, monthly_fixed_cost, material_tax_percent, service_tax_percent)
		SELECT ?, monthly_fixed_cost, material_tax_percent, service_tax_percent
		FROM app_config
		WHERE id = 1
	`, cfg.Now.UTC()); err != nil {
		return fmt.Errorf("insert baseline config history: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureDefaultItem(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) error {
	key := string(profitability.NewItemKey(defaultItemDescription))

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE item_key = ? LIMIT 1)`, key).Scan(&exists); err != nil {
		return fmt.Errorf("check default item existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO items (description, item_key, material_unit_cost, labor_unit_cost, sale_price, active)
		VALUES (?, ?, 0, 0, 0, TRUE)
	`, defaultItemDescription, key); err != nil {
		return fmt.Errorf("insert default item: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO item_cost_history (item_key, effective_at, material_unit_cost, labor_unit_cost)
		VALUES (?, ?, 0, 0)
	`, key, cfg.Now.UTC()); err != nil {
		return fmt.Errorf("insert default item cost history: %w", err)
	}
	stats.Inserts += 2
	return nil
}
