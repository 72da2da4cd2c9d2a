package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/orcamentos/internal/profitability"
)

// Item is a live catalog row.
type Item struct {
	ID               int64                 `json:"id"`
	Description      string                `json:"description"`
	Key              profitability.ItemKey `json:"key"`
	MaterialUnitCost decimal.Decimal       `json:"materialUnitCost"`
	LaborUnitCost    decimal.Decimal       `json:"laborUnitCost"`
	SalePrice        decimal.Decimal       `json:"salePrice"`
	Active           bool                  `json:"active"`
}

// ItemInput carries the editable fields of a catalog item.
type ItemInput struct {
	Description      string
	MaterialUnitCost decimal.Decimal
	LaborUnitCost    decimal.Decimal
	SalePrice        decimal.Decimal
}

// ListItems returns the catalog, newest first.
func (s *Store) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, item_key, material_unit_cost, labor_unit_cost, sale_price, active
		FROM items
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		var key string
		if err := rows.Scan(&it.ID, &it.Description, &key, &it.MaterialUnitCost, &it.LaborUnitCost, &it.SalePrice, &it.Active); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Key = profitability.ItemKey(key)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// LiveItems returns the catalog as engine fallback values.
func (s *Store) LiveItems(ctx context.Context) ([]profitability.LiveItem, error) {
	items, err := s.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	live := make([]profitability.LiveItem, 0, len(items))
	for _, it := range items {
		live = append(live, profitability.LiveItem{
			Key:              it.Key,
			Description:      it.Description,
			MaterialUnitCost: it.MaterialUnitCost,
			LaborUnitCost:    it.LaborUnitCost,
			SalePrice:        it.SalePrice,
		})
	}
	return live, nil
}

// UpsertItemCost creates or updates the catalog item matching the normalized
// description. A cost history record effective from effectiveAt is appended
// when the item is new or its material or labor cost changed.
func (s *Store) UpsertItemCost(ctx context.Context, in ItemInput, effectiveAt time.Time) (Item, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return Item{}, fmt.Errorf("item description is required")
	}
	key := profitability.NewItemKey(description)

	item := Item{
		Description:      description,
		Key:              key,
		MaterialUnitCost: in.MaterialUnitCost,
		LaborUnitCost:    in.LaborUnitCost,
		SalePrice:        in.SalePrice,
		Active:           true,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var prevMaterial, prevLabor decimal.Decimal
		err := tx.QueryRowContext(ctx, `
			SELECT id, material_unit_cost, labor_unit_cost
			FROM items
			WHERE item_key = ?
		`, string(key)).Scan(&item.ID, &prevMaterial, &prevLabor)

		changed := true
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `
				INSERT INTO items (description, item_key, material_unit_cost, labor_unit_cost, sale_price, active)
				VALUES (?, ?, ?, ?, ?, TRUE)
			`, description, string(key), in.MaterialUnitCost, in.LaborUnitCost, in.SalePrice)
			if err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
			if item.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("read item id: %w", err)
			}
		case err != nil:
			return fmt.Errorf("query item: %w", err)
		default:
			changed = !prevMaterial.Equal(in.MaterialUnitCost) || !prevLabor.Equal(in.LaborUnitCost)
			if _, err := tx.ExecContext(ctx, `
				UPDATE items
				SET
					description = ?,
					material_unit_cost = ?,
					labor_unit_cost = ?,
					sale_price = ?,
					active = TRUE,
					updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, description, in.MaterialUnitCost, in.LaborUnitCost, in.SalePrice, item.ID); err != nil {
				return fmt.Errorf("update item: %w", err)
			}
		}

		if !changed {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO item_cost_history (item_key, effective_at, material_unit_cost, labor_unit_cost)
			VALUES (?, ?, ?, ?)
		`, string(key), utc(effectiveAt), in.MaterialUnitCost, in.LaborUnitCost); err != nil {
			return fmt.Errorf("insert item_cost_history: %w", err)
		}
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// ItemCostHistory returns every item cost record in insertion order.
func (s *Store) ItemCostHistory(ctx context.Context) ([]profitability.ItemCostRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_key, effective_at, material_unit_cost, labor_unit_cost
		FROM item_cost_history
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query item_cost_history: %w", err)
	}
	defer rows.Close()

	records := make([]profitability.ItemCostRecord, 0)
	for rows.Next() {
		var rec profitability.ItemCostRecord
		var key string
		if err := rows.Scan(&key, &rec.EffectiveAt, &rec.MaterialUnitCost, &rec.LaborUnitCost); err != nil {
			return nil, fmt.Errorf("scan item_cost_history: %w", err)
		}
		rec.Key = profitability.ItemKey(key)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item_cost_history: %w", err)
	}
	return records, nil
}
