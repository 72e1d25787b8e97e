package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type budgetResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Amount      core.Money `json:"amount"`
	Spent       core.Money `json:"spent"`
	Remaining   core.Money `json:"remaining"`
	OverBudget  bool       `json:"over_budget"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

type transactionResponse struct {
	ID          int64                `json:"id"`
	Type        core.TransactionType `json:"type"`
	Amount      core.Money           `json:"amount"`
	CategoryID  int64                `json:"category_id"`
	Category    string               `json:"category"`
	BudgetID    *int64               `json:"budget_id"`
	Description string               `json:"description"`
	Date        core.Date            `json:"date"`
	CreatedAt   time.Time            `json:"created_at"`
}

type categoryResponse struct {
	ID   int64                `json:"id"`
	Name string               `json:"name"`
	Type core.TransactionType `json:"type"`
}

type categoryTotalResponse struct {
	Type        core.TransactionType `json:"type"`
	TotalAmount core.Money           `json:"totalAmount"`
}

type categoryCountResponse struct {
	Category string               `json:"category"`
	Type     core.TransactionType `json:"type"`
	Count    int64                `json:"count"`
}

type summaryResponse struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Balance core.Money `json:"balance"`
}

type deletedResponse struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

func toUser(u core.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func toBudget(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:          b.ID,
		Title:       b.Title,
		Amount:      b.Amount,
		Spent:       b.Spent,
		Remaining:   b.Remaining(),
		OverBudget:  b.OverBudget(),
		Description: b.Description,
		Date:        b.Date,
	}
}

func toTransaction(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        t.Type,
		Amount:      t.Amount,
		CategoryID:  t.CategoryID,
		Category:    t.CategoryName,
		BudgetID:    t.BudgetID,
		Description: t.Description,
		Date:        t.Date,
		CreatedAt:   t.CreatedAt,
	}
}

// mapSlice converts a slice and never returns nil, so empty lists encode
// as [] rather than null.
func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with a message that never leaks storage details.
// Server-side failures are logged with the request's logger.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeMessage(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	kind := core.KindOf(err)
	status := statusFor(kind)

	var msg string
	switch kind {
	case core.KindValidation, core.KindNotFound, core.KindConflict:
		msg = core.Cause(err).Error()
	case core.KindAuth:
		msg = "unauthorized"
		if errors.Is(err, core.ErrInvalidCredentials) {
			msg = core.ErrInvalidCredentials.Error()
		}
	default:
		msg = "internal error"
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			"error_type", kind.String())
	}
	writeMessage(w, status, msg)
}
