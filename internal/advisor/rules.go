// Package advisor implements the budget rule evaluator: a pure mapping from
// an expense record to a savings figure and an ordered list of tips.
package advisor

import (
	"github.com/shopspring/decimal"

	"budgetadvisor/internal/core"
)

// Kind identifies which rule produced a tip.
type Kind string

const (
	KindOverspend         Kind = "overspend"
	KindLowSavings        Kind = "low_savings"
	KindHighCreditCard    Kind = "high_credit_card"
	KindHighEntertainment Kind = "high_entertainment"
	KindBalanced          Kind = "balanced"
)

// Level is the presentation weight of a tip.
type Level string

const (
	LevelWarning    Level = "warning"
	LevelSuggestion Level = "suggestion"
	LevelPositive   Level = "positive"
)

const (
	MsgOverspend         = "⚠️ You're spending more than you earn."
	MsgLowSavings        = "💡 Try to save at least 10% of your income."
	MsgHighCreditCard    = "⚠️ Credit card spending is high."
	MsgHighEntertainment = "💡 Entertainment spending may be too high."
	MsgBalanced          = "✅ Great job! Your budget looks balanced."
)

// Thresholds as fractions of income.
var (
	minSavingsShare    = decimal.New(10, -2) // 0.10
	maxCreditCardShare = decimal.New(30, -2) // 0.30
	maxLeisureShare    = decimal.New(20, -2) // 0.20
)

// Tip is a single piece of advice.
type Tip struct {
	Kind    Kind   `json:"kind"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Result is the outcome of one evaluation.
type Result struct {
	Income        decimal.Decimal
	TotalExpenses decimal.Decimal
	Savings       decimal.Decimal
	Tips          []Tip
}

// Messages returns the tips as plain strings, in rule order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Tips))
	for i, t := range r.Tips {
		out[i] = t.Message
	}
	return out
}

// SavingsRate returns savings as a fraction of income, or zero when there is
// no income.
func (r Result) SavingsRate() decimal.Decimal {
	if r.Income.IsZero() {
		return decimal.Zero
	}
	return r.Savings.DivRound(r.Income, 4)
}

// Evaluate applies the budget rules to a record. It never fails and has no
// side effects; missing categories count as zero.
//
// Rules, in order:
//  1. negative savings warns about overspending, otherwise savings below 10%
//     of income suggests saving more (never both);
//  2. credit card payment above 30% of income warns;
//  3. entertainment above 20% of income suggests cutting back;
//  4. if nothing fired, the budget is reported as balanced.
func Evaluate(record core.Record) Result {
	income := record.Income()
	total := record.TotalExpenses()
	savings := income.Sub(total)

	var tips []Tip
	if savings.IsNegative() {
		tips = append(tips, Tip{Kind: KindOverspend, Level: LevelWarning, Message: MsgOverspend})
	} else if savings.LessThan(income.Mul(minSavingsShare)) {
		tips = append(tips, Tip{Kind: KindLowSavings, Level: LevelSuggestion, Message: MsgLowSavings})
	}

	if record.Get(core.CategoryCreditCard).GreaterThan(income.Mul(maxCreditCardShare)) {
		tips = append(tips, Tip{Kind: KindHighCreditCard, Level: LevelWarning, Message: MsgHighCreditCard})
	}

	if record.Get(core.CategoryEntertainment).GreaterThan(income.Mul(maxLeisureShare)) {
		tips = append(tips, Tip{Kind: KindHighEntertainment, Level: LevelSuggestion, Message: MsgHighEntertainment})
	}

	if len(tips) == 0 {
		tips = append(tips, Tip{Kind: KindBalanced, Level: LevelPositive, Message: MsgBalanced})
	}

	return Result{
		Income:        income,
		TotalExpenses: total,
		Savings:       savings,
		Tips:          tips,
	}
}
