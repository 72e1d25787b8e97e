package http

import (
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"

	"github.com/shopspring/decimal"
)

type createTransactionRequest struct {
	Type        string           `json:"type"`
	Amount      *decimal.Decimal `json:"amount"`
	CategoryID  int64            `json:"category_id"`
	BudgetID    *int64           `json:"budget_id"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
}

func (req createTransactionRequest) toNewTransaction() (core.NewTransaction, error) {
	const op = "create transaction"
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.NewTransaction{}, core.Validation(op, err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.NewTransaction{}, core.Validation(op, err)
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.NewTransaction{}, core.Validation(op, err)
	}
	return core.NewTransaction{
		Type:        typ,
		Amount:      amount,
		CategoryID:  req.CategoryID,
		BudgetID:    req.BudgetID,
		Description: req.Description,
		Date:        date,
	}, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	nt, err := req.toNewTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Create(r.Context(), userID(r), nt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.FieldTransactionID, t.ID, log.FieldAmountCents, t.Amount.Cents)
	writeJSON(w, http.StatusCreated, toTransaction(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Transactions.List(r.Context(), userID(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(txs, toTransaction))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{ID: id, Deleted: true})
}
