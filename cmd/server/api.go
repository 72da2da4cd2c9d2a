package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/orcamentos/internal/profitability"
	"github.com/Simplici0/orcamentos/internal/report"
	"github.com/Simplici0/orcamentos/internal/store"
)

const maxBodyBytes = 1 << 20

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.QuoteFilter{
		Query:  strings.TrimSpace(query.Get("q")),
		Status: profitability.Status(query.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status debe ser open, accepted, rejected o expired")
		return
	}

	var err error
	if raw := query.Get("from"); raw != "" {
		if filter.From, err = parseDate(raw, "from"); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if raw := query.Get("to"); raw != "" {
		if filter.To, err = parseDate(raw, "to"); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.To = filter.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	quotes, err := s.store.ListQuotes(r.Context(), filter)
	if err != nil {
		s.serverError(w, r, err, "failed to load quotes")
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}

	q, err := parseQuoteRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreateQuote(r.Context(), q)
	if err != nil {
		s.serverError(w, r, err, "failed to create quote")
		return
	}
	q.ID = id
	writeJSON(w, http.StatusCreated, q)
}

func (s *server) handleQuoteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid quote id")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "formulario inválido")
		return
	}

	status := profitability.Status(strings.TrimSpace(r.FormValue("status")))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "status debe ser open, accepted, rejected o expired")
		return
	}
	at, err := parseOptionalDate(r.FormValue("at"), "at", s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.store.SetQuoteStatus(r.Context(), id, status, at)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "quote not found")
		return
	}
	if err != nil {
		s.serverError(w, r, err, "failed to update quote status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleItemsList(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItems(r.Context())
	if err != nil {
		s.serverError(w, r, err, "failed to load items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleItemUpsert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "formulario inválido")
		return
	}

	in := store.ItemInput{Description: strings.TrimSpace(r.FormValue("description"))}
	if in.Description == "" {
		writeError(w, http.StatusBadRequest, "description es requerido")
		return
	}

	var err error
	if in.MaterialUnitCost, err = parseNonNegativeDecimal(r.FormValue("material_unit_cost"), "material_unit_cost"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.LaborUnitCost, err = parseNonNegativeDecimal(r.FormValue("labor_unit_cost"), "labor_unit_cost"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.SalePrice, err = parseOptionalDecimal(r.FormValue("sale_price"), "sale_price"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	effectiveAt, err := parseOptionalDate(r.FormValue("effective_at"), "effective_at", s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.store.UpsertItemCost(r.Context(), in, effectiveAt)
	if err != nil {
		s.serverError(w, r, err, "failed to save item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.LiveConfig(r.Context())
	if err != nil {
		s.serverError(w, r, err, "failed to load config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "formulario inválido")
		return
	}

	cfg, err := parseConfigForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	effectiveAt, err := parseOptionalDate(r.FormValue("effective_at"), "effective_at", s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateConfig(r.Context(), cfg, effectiveAt); err != nil {
		s.serverError(w, r, err, "failed to save config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *server) handleProfitabilityReport(w http.ResponseWriter, r *http.Request) {
	period, err := s.parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.reports.Profitability(r.Context(), period)
	switch {
	case errors.Is(err, profitability.ErrInvalidPeriod), errors.Is(err, profitability.ErrMissingReferenceDate):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.serverError(w, r, err, "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// parsePeriod reads from and to as calendar days. With neither set the
// current month is used.
func (s *server) parsePeriod(r *http.Request) (report.Period, error) {
	rawFrom := r.URL.Query().Get("from")
	rawTo := r.URL.Query().Get("to")
	if rawFrom == "" && rawTo == "" {
		return report.CurrentMonth(s.now()), nil
	}

	from, err := parseDate(rawFrom, "from")
	if err != nil {
		return report.Period{}, err
	}
	to, err := parseDate(rawTo, "to")
	if err != nil {
		return report.Period{}, err
	}
	return report.Period{From: from, To: to}, nil
}
