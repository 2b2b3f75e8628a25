package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"budgetadvisor/internal/advisor"
	"budgetadvisor/internal/core"
)

func newEvaluateCmd() *cobra.Command {
	var (
		flags  budgetFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compute savings and budget advice",
		Example: "  advisor-cli evaluate --income 2500 --rent 1000 --groceries 300 --credit-card 400 --entertainment 400\n" +
			"  advisor-cli evaluate --income 1800 --category Travel=250",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record, err := flags.record()
			if err != nil {
				return err
			}
			result := advisor.Evaluate(record)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printResult(w io.Writer, r advisor.Result) {
	fmt.Fprintf(w, "Income:          %s\n", core.FormatAmount(r.Income))
	fmt.Fprintf(w, "Total expenses:  %s\n", core.FormatAmount(r.TotalExpenses))
	fmt.Fprintf(w, "Total savings:   %s (%s%% of income)\n",
		core.FormatAmount(r.Savings), r.SavingsRate().Shift(2).StringFixed(1))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Advice:")
	for _, msg := range r.Messages() {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
}

func writeJSON(w io.Writer, r advisor.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Income        string        `json:"income"`
		TotalExpenses string        `json:"total_expenses"`
		Savings       string        `json:"savings"`
		SavingsRate   string        `json:"savings_rate"`
		Advice        []advisor.Tip `json:"advice"`
	}{
		Income:        r.Income.StringFixed(2),
		TotalExpenses: r.TotalExpenses.StringFixed(2),
		Savings:       r.Savings.StringFixed(2),
		SavingsRate:   r.SavingsRate().StringFixed(4),
		Advice:        r.Tips,
	})
}
