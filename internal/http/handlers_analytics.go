package http

import (
	"net/http"
	"strings"

	"ledger/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var typ core.TransactionType
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		parsed, err := core.ParseTransactionType(v)
		if err != nil {
			writeError(w, r, core.Validation("list categories", err))
			return
		}
		typ = parsed
	}
	cats, err := s.svc.Categories.List(r.Context(), typ)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cats, func(c core.Category) categoryResponse {
		return categoryResponse{ID: c.ID, Name: c.Name, Type: c.Type}
	}))
}

func (s *Server) handleCategoryCounts(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts, err := s.svc.Analytics.CategoryCounts(r.Context(), userID(r), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(counts, func(c core.CategoryCount) categoryCountResponse {
		return categoryCountResponse{Category: c.Category, Type: c.Type, Count: c.Count}
	}))
}

// handleCategoryBreakdown renders totals as an object keyed by category
// name. encoding/json writes map keys sorted, which keeps the output
// deterministic.
func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.svc.Analytics.CategoryBreakdown(r.Context(), userID(r), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make(map[string]categoryTotalResponse, len(totals))
	for _, t := range totals {
		out[t.Category] = categoryTotalResponse{Type: t.Type, TotalAmount: t.Total}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.svc.Analytics.IncomeExpenseSummary(r.Context(), userID(r), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Income: sum.Income, Expense: sum.Expense, Balance: sum.Balance()})
}
