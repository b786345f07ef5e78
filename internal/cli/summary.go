package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"expensetracker/internal/core"
	"expensetracker/internal/summary"
)

type summaryOptions struct {
	email string
	year  int
	month int
}

// NewSummaryCommand prints the balance of one account. With --year or
// --month it prints that month only.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &summaryOptions{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print totals for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			owner, err := a.ownerByEmail(ctx, opts.email)
			if err != nil {
				return WrapExitError(ExitFailure, "summary", err)
			}
			out := newFormatter(rootOpts, cmd)

			if cmd.Flags().Changed("year") || cmd.Flags().Changed("month") {
				m, err := a.transactions.Monthly(ctx, owner, opts.year, opts.month)
				if err != nil {
					return WrapExitError(ExitFailure, "monthly summary", err)
				}
				return out.Success(formatMonth(m), monthData(m))
			}

			s, err := a.transactions.Summary(ctx, owner)
			if err != nil {
				return WrapExitError(ExitFailure, "summary", err)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "income   %s\n", core.FormatAmount(s.TotalIncome))
			fmt.Fprintf(&b, "expense  %s\n", core.FormatAmount(s.TotalExpense))
			fmt.Fprintf(&b, "balance  %s\n", core.FormatAmount(s.TotalBalance))
			b.WriteString(formatMonth(s.Month))
			return out.Success(strings.TrimRight(b.String(), "\n"), map[string]any{
				"totalIncome":  s.TotalIncome.String(),
				"totalExpense": s.TotalExpense.String(),
				"totalBalance": s.TotalBalance.String(),
				"month":        monthData(s.Month),
			})
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "account e-mail")
	cmd.Flags().IntVar(&opts.year, "year", 0, "year of a monthly summary (default current)")
	cmd.Flags().IntVar(&opts.month, "month", 0, "month of a monthly summary, 1-12 (default current)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func formatMonth(m summary.MonthSummary) string {
	return fmt.Sprintf("%04d-%02d  income %s  expense %s  balance %s  ratio %s%%  (%d transactions)",
		m.Year, int(m.Month),
		core.FormatAmount(m.Income), core.FormatAmount(m.Expense), core.FormatAmount(m.Balance),
		m.ExpenseRatio.Round(2).String(), m.TransactionCount)
}

func monthData(m summary.MonthSummary) map[string]any {
	return map[string]any{
		"year":             m.Year,
		"month":            int(m.Month),
		"income":           m.Income.String(),
		"expense":          m.Expense.String(),
		"balance":          m.Balance.String(),
		"expenseRatio":     m.ExpenseRatio.Round(2).String(),
		"transactionCount": m.TransactionCount,
	}
}
