package core

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Well-known category names. Income is the only inflow; every other key of a
// Record is treated as an expense.
const (
	CategoryIncome        = "Income"
	CategoryRent          = "Rent"
	CategoryGroceries     = "Groceries"
	CategoryCreditCard    = "Credit Card Payment"
	CategoryEntertainment = "Entertainment"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrEmptyCategory  = errors.New("empty category name")
)

// Record maps a category name to its monthly amount. It is built once per
// interaction and discarded after the advice is rendered.
type Record map[string]decimal.Decimal

// NewRecord builds a record from an income and a set of expense categories.
// An "Income" key inside expenses is ignored in favor of income.
func NewRecord(income decimal.Decimal, expenses map[string]decimal.Decimal) Record {
	r := make(Record, len(expenses)+1)
	for name, amount := range expenses {
		if name == CategoryIncome {
			continue
		}
		r[name] = amount
	}
	r[CategoryIncome] = income
	return r
}

// Get returns the amount for a category, defaulting to zero when missing.
func (r Record) Get(category string) decimal.Decimal {
	if v, ok := r[category]; ok {
		return v
	}
	return decimal.Zero
}

// Income returns the inflow of the record.
func (r Record) Income() decimal.Decimal {
	return r.Get(CategoryIncome)
}

// TotalExpenses sums every non-income value.
func (r Record) TotalExpenses() decimal.Decimal {
	total := decimal.Zero
	for name, v := range r {
		if name == CategoryIncome {
			continue
		}
		total = total.Add(v)
	}
	return total
}

// ExpenseCategories returns the expense category names in a stable order:
// the well-known categories first, then any others alphabetically.
func (r Record) ExpenseCategories() []string {
	known := []string{CategoryRent, CategoryGroceries, CategoryCreditCard, CategoryEntertainment}
	seen := make(map[string]bool, len(known))
	out := make([]string, 0, len(r))
	for _, name := range known {
		seen[name] = true
		if _, ok := r[name]; ok {
			out = append(out, name)
		}
	}
	var extra []string
	for name := range r {
		if name == CategoryIncome || seen[name] {
			continue
		}
		extra = append(extra, name)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Validate checks the input rules enforced at the HTTP and CLI edges.
// The evaluator itself never calls it.
func (r Record) Validate() error {
	for name, v := range r {
		if name == "" {
			return ErrEmptyCategory
		}
		if v.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return nil
}
