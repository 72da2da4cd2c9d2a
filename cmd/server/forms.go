package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/orcamentos/internal/profitability"
)

const dateLayout = "2006-01-02"

type quoteRequest struct {
	Number     string            `json:"number"`
	ClientName string            `json:"clientName"`
	IssuedAt   string            `json:"issuedAt"`
	Status     string            `json:"status"`
	Notes      string            `json:"notes"`
	LineItems  []lineItemRequest `json:"lineItems"`
}

type lineItemRequest struct {
	Description       string      `json:"description"`
	Quantity          json.Number `json:"quantity"`
	MaterialSaleTotal json.Number `json:"materialSaleTotal"`
	LaborSaleTotal    json.Number `json:"laborSaleTotal"`
}

func parseQuoteRequest(req quoteRequest) (profitability.Quote, error) {
	q := profitability.Quote{
		Number:     strings.TrimSpace(req.Number),
		ClientName: strings.TrimSpace(req.ClientName),
		Notes:      strings.TrimSpace(req.Notes),
		Status:     profitability.Status(strings.TrimSpace(req.Status)),
	}

	if q.Number == "" {
		return q, fmt.Errorf("number es requerido")
	}
	if q.ClientName == "" {
		return q, fmt.Errorf("clientName es requerido")
	}
	if q.Status == "" {
		q.Status = profitability.StatusOpen
	}
	if !q.Status.Valid() {
		return q, fmt.Errorf("status debe ser open, accepted, rejected o expired")
	}

	var err error
	if q.IssuedAt, err = parseDate(req.IssuedAt, "issuedAt"); err != nil {
		return q, err
	}
	if q.Status == profitability.StatusAccepted {
		acceptedAt := q.IssuedAt
		q.AcceptedAt = &acceptedAt
	}

	for i, raw := range req.LineItems {
		li, err := parseLineItem(raw, i)
		if err != nil {
			return q, err
		}
		q.LineItems = append(q.LineItems, li)
	}
	return q, nil
}

func parseLineItem(raw lineItemRequest, index int) (profitability.QuoteLineItem, error) {
	prefix := fmt.Sprintf("lineItems[%d].", index)
	li := profitability.QuoteLineItem{Description: strings.TrimSpace(raw.Description)}
	if li.Description == "" {
		return li, fmt.Errorf("%sdescription es requerido", prefix)
	}

	var err error
	if li.Quantity, err = parsePositiveDecimal(raw.Quantity.String(), prefix+"quantity"); err != nil {
		return li, err
	}
	if li.MaterialSaleTotal, err = parseOptionalDecimal(raw.MaterialSaleTotal.String(), prefix+"materialSaleTotal"); err != nil {
		return li, err
	}
	if li.LaborSaleTotal, err = parseOptionalDecimal(raw.LaborSaleTotal.String(), prefix+"laborSaleTotal"); err != nil {
		return li, err
	}
	return li, nil
}

func parseConfigForm(r *http.Request) (profitability.Config, error) {
	var cfg profitability.Config

	var err error
	if cfg.MonthlyFixedCost, err = parseNonNegativeDecimal(r.FormValue("monthly_fixed_cost"), "monthly_fixed_cost"); err != nil {
		return cfg, err
	}
	if cfg.MaterialTaxPercent, err = parsePercent(r.FormValue("material_tax_percent"), "material_tax_percent"); err != nil {
		return cfg, err
	}
	if cfg.ServiceTaxPercent, err = parsePercent(r.FormValue("service_tax_percent"), "service_tax_percent"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseNonNegativeDecimal(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s debe ser numérico", field)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s debe ser mayor o igual a 0", field)
	}
	return value, nil
}

// parseOptionalDecimal treats an empty value as zero.
func parseOptionalDecimal(raw, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return parseNonNegativeDecimal(raw, field)
}

func parsePercent(raw, field string) (decimal.Decimal, error) {
	value, err := parseNonNegativeDecimal(raw, field)
	if err != nil {
		return decimal.Zero, err
	}
	if value.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("%s debe estar entre 0 y 100", field)
	}
	return value, nil
}

func parsePositiveDecimal(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s debe ser numérico", field)
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s debe ser mayor a 0", field)
	}
	return value, nil
}

// parseDate accepts a calendar day or an RFC 3339 timestamp. Days are read
// as UTC midnight.
func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s es requerido", field)
	}
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s debe tener el formato AAAA-MM-DD", field)
}

func parseOptionalDate(raw, field string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return parseDate(raw, field)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *server) serverError(w http.ResponseWriter, r *http.Request, err error, message string) {
	s.log.Error(message,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	writeError(w, http.StatusInternalServerError, message)
}
