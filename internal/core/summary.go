package core

// CategoryTotal is the sum of one category's transactions in a range.
type CategoryTotal struct {
	Category string
	Type     TransactionType
	Total    Money
}

// CategoryCount is the number of transactions booked to one category.
type CategoryCount struct {
	Category string
	Type     TransactionType
	Count    int64
}

// Summary totals income and expense over a range.
type Summary struct {
	Income  Money
	Expense Money
}

func (s Summary) Balance() Money {
	return s.Income.Sub(s.Expense)
}
