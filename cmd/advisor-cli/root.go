package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"budgetadvisor/internal/core"
)

// budgetFlags are the record inputs shared by evaluate and ask.
type budgetFlags struct {
	income        string
	rent          string
	groceries     string
	creditCard    string
	entertainment string
	categories    []string
}

func (f *budgetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.income, "income", "", "Monthly income")
	cmd.Flags().StringVar(&f.rent, "rent", "", "Monthly rent")
	cmd.Flags().StringVar(&f.groceries, "groceries", "", "Monthly groceries")
	cmd.Flags().StringVar(&f.creditCard, "credit-card", "", "Monthly credit card payment")
	cmd.Flags().StringVar(&f.entertainment, "entertainment", "", "Monthly entertainment")
	cmd.Flags().StringArrayVar(&f.categories, "category", nil, "Extra expense as name=amount (repeatable)")
}

// set reports whether any budget input was given.
func (f *budgetFlags) set() bool {
	return f.income != "" || f.rent != "" || f.groceries != "" ||
		f.creditCard != "" || f.entertainment != "" || len(f.categories) > 0
}

// record parses the flags with the same rules as the web form: empty is
// zero, negative or non-numeric amounts are rejected.
func (f *budgetFlags) record() (core.Record, error) {
	income, err := parseFlagAmount("income", f.income)
	if err != nil {
		return nil, err
	}

	expenses := make(map[string]decimal.Decimal)
	for _, e := range []struct {
		flag, category, value string
	}{
		{"rent", core.CategoryRent, f.rent},
		{"groceries", core.CategoryGroceries, f.groceries},
		{"credit-card", core.CategoryCreditCard, f.creditCard},
		{"entertainment", core.CategoryEntertainment, f.entertainment},
	} {
		if e.value == "" {
			continue
		}
		d, err := parseFlagAmount(e.flag, e.value)
		if err != nil {
			return nil, err
		}
		expenses[e.category] = d
	}

	for _, kv := range f.categories {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok {
			return nil, fmt.Errorf("--category %q: expected name=amount", kv)
		}
		if name == "" {
			return nil, fmt.Errorf("--category %q: %w", kv, core.ErrEmptyCategory)
		}
		if name == core.CategoryIncome {
			return nil, fmt.Errorf("--category %q: use --income for income", kv)
		}
		d, err := parseFlagAmount("category "+name, value)
		if err != nil {
			return nil, err
		}
		expenses[name] = expenses[name].Add(d)
	}

	return core.NewRecord(income, expenses), nil
}

func parseFlagAmount(name, value string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s %q: %w", name, value, err)
	}
	return d, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "advisor-cli",
		Short:        "Budget advice from the command line",
		Long:         "Evaluate a monthly budget against the savings rules and optionally ask a financial question.",
		SilenceUsage: true,
	}
	root.AddCommand(newEvaluateCmd(), newAskCmd())
	return root
}
