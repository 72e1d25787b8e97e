package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title  string `json:"title"`
		Amount int    `json:"amount"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"title":"x","amount":3}`, ""},
		{"unknown field", `{"title":"x","extra":1}`, `unknown field "extra"`},
		{"wrong type", `{"amount":"three"}`, "invalid value for amount"},
		{"trailing data", `{"title":"x"}{"title":"y"}`, "invalid request body"},
		{"malformed", `{"title":`, "invalid request body"},
		{"empty", ``, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, payload{Title: "x", Amount: 3}, p)
				return
			}
			require.Error(t, err)
			assert.Equal(t, core.KindValidation, core.KindOf(err))
			assert.Equal(t, tt.wantErr, core.Cause(err).Error())
		})
	}
}

func TestParseAmount(t *testing.T) {
	_, err := parseAmount(nil)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	d := decimal.RequireFromString("12.34")
	m, err := parseAmount(&d)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), m.Cents)
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		want    core.DateRange
	}{
		{"empty", "", false, core.DateRange{}},
		{"start only", "startDate=2025-01-01", false, core.DateRange{Start: core.NewDate(2025, 1, 1)}},
		{"both", "startDate=2025-01-01&endDate=2025-01-31", false, core.DateRange{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 1, 31)}},
		{"same day", "startDate=2025-01-01&endDate=2025-01-01", false, core.DateRange{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 1, 1)}},
		{"bad start", "startDate=2025-13-01", true, core.DateRange{}},
		{"bad end", "endDate=tomorrow", true, core.DateRange{}},
		{"inverted", "startDate=2025-02-01&endDate=2025-01-01", true, core.DateRange{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := parseDateRange(q)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, core.KindValidation, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Start.Equal(tt.want.Start.Time))
			assert.True(t, got.End.Equal(tt.want.End.Time))
		})
	}
}

func TestParseTransactionFilter(t *testing.T) {
	q, _ := url.ParseQuery("type=expense&budgetId=7")
	f, err := parseTransactionFilter(q)
	require.NoError(t, err)
	assert.Equal(t, core.Expense, f.Type)
	require.NotNil(t, f.BudgetID)
	assert.Equal(t, int64(7), *f.BudgetID)

	for _, bad := range []string{"type=refund", "budgetId=0", "budgetId=-1", "budgetId=x"} {
		q, _ := url.ParseQuery(bad)
		_, err := parseTransactionFilter(q)
		assert.Error(t, err, bad)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := bearerToken(req)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
