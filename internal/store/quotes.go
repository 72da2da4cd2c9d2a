package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/orcamentos/internal/profitability"
)

// QuoteFilter narrows ListQuotes. Zero fields are ignored.
type QuoteFilter struct {
	Query  string
	Status profitability.Status
	From   time.Time
	To     time.Time
}

// QuoteListItem is a row of the quote list view.
type QuoteListItem struct {
	ID         int64                `json:"id"`
	Number     string               `json:"number"`
	ClientName string               `json:"clientName"`
	IssuedAt   time.Time            `json:"issuedAt"`
	Status     profitability.Status `json:"status"`
	Total      decimal.Decimal      `json:"total"`
}

// ListQuotes returns quotes matching f, newest first, with their sale totals.
func (s *Store) ListQuotes(ctx context.Context, f QuoteFilter) ([]QuoteListItem, error) {
	b := sq.Select(
		"q.id",
		"q.number",
		"q.client_name",
		"q.issued_at",
		"q.status",
		"COALESCE(SUM(i.material_sale_total + i.labor_sale_total), 0)",
	).
		From("quotes q").
		LeftJoin("quote_items i ON i.quote_id = q.id").
		GroupBy("q.id").
		OrderBy("q.issued_at DESC", "q.id DESC")

	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + query + "%"
		b = b.Where(sq.Or{
			sq.Like{"q.number": like},
			sq.Like{"q.client_name": like},
			sq.Like{"COALESCE(q.notes, '')": like},
		})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"q.status": string(f.Status)})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"q.issued_at": utc(f.From)})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.LtOrEq{"q.issued_at": utc(f.To)})
	}

	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]QuoteListItem, 0)
	for rows.Next() {
		var item QuoteListItem
		var status string
		if err := rows.Scan(&item.ID, &item.Number, &item.ClientName, &item.IssuedAt, &status, &item.Total); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.Status = profitability.Status(status)
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}

// QuotesIn returns full quotes with the given status whose acceptance date,
// or issue date when never accepted, lies in [from, to]. An empty status
// matches every status.
func (s *Store) QuotesIn(ctx context.Context, from, to time.Time, status profitability.Status) ([]profitability.Quote, error) {
	b := sq.Select("id", "number", "client_name", "issued_at", "accepted_at", "status", "COALESCE(notes, '')").
		From("quotes").
		Where(sq.GtOrEq{"COALESCE(accepted_at, issued_at)": utc(from)}).
		Where(sq.LtOrEq{"COALESCE(accepted_at, issued_at)": utc(to)}).
		OrderBy("issued_at", "id")
	if status != "" {
		b = b.Where(sq.Eq{"status": string(status)})
	}

	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("query quotes in period: %w", err)
	}
	defer rows.Close()

	quotes := make([]profitability.Quote, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var q profitability.Quote
		var acceptedAt sql.NullTime
		var st string
		if err := rows.Scan(&q.ID, &q.Number, &q.ClientName, &q.IssuedAt, &acceptedAt, &st, &q.Notes); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		if acceptedAt.Valid {
			at := acceptedAt.Time
			q.AcceptedAt = &at
		}
		q.Status = profitability.Status(st)
		index[q.ID] = len(quotes)
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	if len(quotes) == 0 {
		return quotes, nil
	}

	if err := s.attachLineItems(ctx, quotes, index); err != nil {
		return nil, err
	}
	return quotes, nil
}

func (s *Store) attachLineItems(ctx context.Context, quotes []profitability.Quote, index map[int64]int) error {
	ids := make([]int64, 0, len(quotes))
	for _, q := range quotes {
		ids = append(ids, q.ID)
	}

	b := sq.Select("quote_id", "description", "quantity", "material_sale_total", "labor_sale_total").
		From("quote_items").
		Where(sq.Eq{"quote_id": ids}).
		OrderBy("id")

	rows, err := s.query(ctx, b)
	if err != nil {
		return fmt.Errorf("query quote items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var quoteID int64
		var li profitability.QuoteLineItem
		if err := rows.Scan(&quoteID, &li.Description, &li.Quantity, &li.MaterialSaleTotal, &li.LaborSaleTotal); err != nil {
			return fmt.Errorf("scan quote item: %w", err)
		}
		i := index[quoteID]
		quotes[i].LineItems = append(quotes[i].LineItems, li)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate quote items: %w", err)
	}
	return nil
}

// CreateQuote inserts q and its line items and returns the new id.
func (s *Store) CreateQuote(ctx context.Context, q profitability.Quote) (int64, error) {
	if q.Status == "" {
		q.Status = profitability.StatusOpen
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var acceptedAt any
		if q.AcceptedAt != nil {
			acceptedAt = utc(*q.AcceptedAt)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO quotes (number, client_name, issued_at, accepted_at, status, notes)
			VALUES (?, ?, ?, ?, ?, ?)
		`, q.Number, q.ClientName, utc(q.IssuedAt), acceptedAt, string(q.Status), q.Notes)
		if err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read quote id: %w", err)
		}

		for _, li := range q.LineItems {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO quote_items (quote_id, description, quantity, material_sale_total, labor_sale_total)
				VALUES (?, ?, ?, ?, ?)
			`, id, li.Description, li.Quantity, li.MaterialSaleTotal, li.LaborSaleTotal); err != nil {
				return fmt.Errorf("insert quote item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetQuoteStatus changes the status of a quote. Accepting records at as the
// acceptance date; any other status clears it.
func (s *Store) SetQuoteStatus(ctx context.Context, id int64, status profitability.Status, at time.Time) error {
	var acceptedAt any
	if status == profitability.StatusAccepted {
		acceptedAt = utc(at)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE quotes
		SET status = ?, accepted_at = ?
		WHERE id = ?
	`, string(status), acceptedAt, id)
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("quote %d: %w", id, ErrNotFound)
	}
	return nil
}
