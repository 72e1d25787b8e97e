package http

import (
	"net/http"
	"strings"

	"ledger/internal/core"
	"ledger/internal/log"

	"github.com/shopspring/decimal"
)

type createBudgetRequest struct {
	Title       string           `json:"title"`
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
}

func (req createBudgetRequest) toNewBudget() (core.NewBudget, error) {
	const op = "create budget"
	if strings.TrimSpace(req.Title) == "" {
		return core.NewBudget{}, core.Validation(op, core.ErrEmptyTitle)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.NewBudget{}, core.Validation(op, err)
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.NewBudget{}, core.Validation(op, err)
	}
	return core.NewBudget{
		Title:       req.Title,
		Amount:      amount,
		Description: req.Description,
		Date:        date,
	}, nil
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	nb, err := req.toNewBudget()
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Create(r.Context(), userID(r), nb)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget created",
		log.FieldBudgetID, b.ID, log.FieldAmountCents, b.Amount.Cents)
	writeJSON(w, http.StatusCreated, toBudget(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseDateRange(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.svc.Budgets.List(r.Context(), userID(r), core.BudgetFilter{Title: q.Get("title"), Range: rng})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(budgets, toBudget))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudget(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{ID: id, Deleted: true})
}
