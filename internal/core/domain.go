package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the wire and storage format of every ledger date.
const DateLayout = "2006-01-02"

const (
	MinPasswordLength    = 6
	MaxTitleLength       = 100
	MaxDescriptionLength = 200
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Email        string
		Name         string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID   int64
		Name string
		Type TransactionType
	}

	// Budget is an allocation envelope. Spent is the sum of the linked
	// expense transactions at read time; it is never stored.
	Budget struct {
		ID          int64
		UserID      int64
		Title       string
		Amount      Money
		Spent       Money
		Description string
		Date        Date
	}

	Transaction struct {
		ID           int64
		UserID       int64
		Type         TransactionType
		Amount       Money
		CategoryID   int64
		CategoryName string
		BudgetID     *int64
		Description  string
		Date         Date
		CreatedAt    time.Time
	}

	NewBudget struct {
		Title       string
		Amount      Money
		Description string
		Date        Date
	}

	NewTransaction struct {
		Type        TransactionType
		Amount      Money
		CategoryID  int64
		BudgetID    *int64
		Description string
		Date        Date
	}

	// DateRange is inclusive on both ends; a zero bound is open.
	DateRange struct {
		Start Date
		End   Date
	}

	BudgetFilter struct {
		Title string
		Range DateRange
	}

	TransactionFilter struct {
		Range    DateRange
		Type     TransactionType
		BudgetID *int64
	}
)

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidDate         = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidType         = errors.New("type must be income or expense")
	ErrEmptyTitle          = errors.New("title is required")
	ErrTitleTooLong        = fmt.Errorf("title too long (max %d characters)", MaxTitleLength)
	ErrDescriptionTooLong  = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrMissingCategory     = errors.New("category_id is required")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrCategoryMismatch    = errors.New("category type does not match transaction type")
	ErrIncomeWithBudget    = errors.New("income transactions cannot be linked to a budget")
	ErrInvalidEmail        = errors.New("a valid email is required")
	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidDateRange    = errors.New("startDate must not be after endDate")
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts the lower-case wire names only.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD string. Calendar-invalid days such as
// 2025-02-30 are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Remaining is the allocated amount minus linked expenses. It goes
// negative when the budget is overspent.
func (b Budget) Remaining() Money {
	return Money{Cents: b.Amount.Cents - b.Spent.Cents}
}

func (b Budget) OverBudget() bool {
	return b.Remaining().Cents < 0
}

func (nb NewBudget) Validate() error {
	title := strings.TrimSpace(nb.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if err := nb.Amount.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(nb.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nb.Date.Validate()
}

// Validate checks the fields that do not need the category catalog.
// Category existence and type agreement are checked by ValidateCategory.
func (nt NewTransaction) Validate() error {
	if !nt.Type.Valid() {
		return ErrInvalidType
	}
	if err := nt.Amount.Validate(); err != nil {
		return err
	}
	if nt.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if nt.Type == Income && nt.BudgetID != nil {
		return ErrIncomeWithBudget
	}
	if utf8.RuneCountInString(nt.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nt.Date.Validate()
}

func (nt NewTransaction) ValidateCategory(c Category) error {
	if c.ID != nt.CategoryID {
		return ErrUnknownCategory
	}
	if c.Type != nt.Type {
		return ErrCategoryMismatch
	}
	return nil
}

func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End.Time) {
		return ErrInvalidDateRange
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
