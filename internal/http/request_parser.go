package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidBody   = errors.New("invalid request body")
	errBodyTooLarge  = errors.New("request body too large")
	errInvalidID     = errors.New("invalid id")
	errInvalidFilter = errors.New("budgetId must be a positive integer")
)

// decodeJSON reads one JSON object from the body into dst. Unknown fields
// and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return core.Validation("decode body", fmt.Errorf("invalid value for %s", typeErr.Field))
		}
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			return core.Validation("decode body", fmt.Errorf("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field ")))
		}
		return core.Validation("decode body", errInvalidBody)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return core.Validation("decode body", errInvalidBody)
	}
	return nil
}

// parseAmount turns the decoded amount into cents. A missing amount is
// reported the same way as a non-positive one.
func parseAmount(d *decimal.Decimal) (core.Money, error) {
	if d == nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.MoneyFromDecimal(*d)
}

// parseDateRange reads the optional startDate and endDate query parameters.
func parseDateRange(q url.Values) (core.DateRange, error) {
	var r core.DateRange
	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return r, core.Validation("parse startDate", err)
		}
		r.Start = d
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return r, core.Validation("parse endDate", err)
		}
		r.End = d
	}
	if err := r.Validate(); err != nil {
		return r, core.Validation("parse date range", err)
	}
	return r, nil
}

func parseTransactionFilter(q url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	r, err := parseDateRange(q)
	if err != nil {
		return f, err
	}
	f.Range = r

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			return f, core.Validation("parse type", err)
		}
		f.Type = typ
	}
	if v := strings.TrimSpace(q.Get("budgetId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, core.Validation("parse budgetId", errInvalidFilter)
		}
		f.BudgetID = &id
	}
	return f, nil
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validation("parse id", errInvalidID)
	}
	return id, nil
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
