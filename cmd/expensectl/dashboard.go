package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spendly/internal/currency"
	"spendly/internal/models"
	"spendly/internal/views"
)

const recentCount = 5

func dashboardCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals, monthly spending and recent expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			now := time.Now()
			if year == 0 {
				year = now.Year()
			}

			return withApp(ctx, func(a *app) error {
				var rates currency.Rates
				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					_, err := a.signedIn(gctx)
					return err
				})
				g.Go(func() error {
					// never fails; a failed fetch comes back as a fallback rate
					rates = a.rates.Rates(gctx)
					return nil
				})
				if err := g.Wait(); err != nil {
					return err
				}

				snap := a.provider.Snapshot()
				out := cmd.OutOrStdout()
				printStats(out, views.DashboardStats(snap.Expenses, now), rates)
				printMonthly(out, views.MonthlySeries(snap.Expenses, year), year)
				printBreakdown(out, views.CategoryBreakdown(snap.Expenses, snap.Categories), rates)

				recent := views.Recent(snap.Expenses, recentCount)
				if len(recent) > 0 {
					fmt.Fprintln(out, "\n"+titleStyle.Render("Recent expenses"))
					printExpenses(out, recent)
				}
				if rates.Error != "" {
					fmt.Fprintln(out, "\n"+warningStyle.Render(rates.Error))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year for the monthly chart (default: this year)")

	return cmd
}

func bothCurrencies(usd float64, rates currency.Rates) string {
	return fmt.Sprintf("%s  %s", currency.FormatUSD(usd),
		mutedStyle.Render(currency.FormatINR(currency.ToINR(usd, rates.USDToINR))))
}

func printStats(out io.Writer, stats views.Stats, rates currency.Rates) {
	fmt.Fprintln(out, titleStyle.Render("Overview"))
	fmt.Fprintf(out, "  Total spent:  %s\n", bothCurrencies(stats.Total, rates))
	fmt.Fprintf(out, "  This month:   %s\n", bothCurrencies(stats.MonthlyTotal, rates))
	if stats.HighestCategory != nil {
		fmt.Fprintf(out, "  Top category: %s (%s)\n", stats.HighestCategory.Name, currency.FormatUSD(stats.HighestCategory.Total))
	} else {
		fmt.Fprintf(out, "  Top category: %s\n", mutedStyle.Render("none yet"))
	}
	fmt.Fprintf(out, "  Expenses:     %d\n", stats.ExpenseCount)
}

// chartWidth is the bar length of the largest month.
const chartWidth = 30

func printMonthly(out io.Writer, series []views.MonthTotal, year int) {
	fmt.Fprintln(out, "\n"+titleStyle.Render(fmt.Sprintf("Monthly spending %d", year)))

	highest := 0.0
	for _, m := range series {
		if m.Total > highest {
			highest = m.Total
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	for _, m := range series {
		bar := ""
		if highest > 0 {
			bar = strings.Repeat("█", int(m.Total/highest*chartWidth))
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", m.Label, currency.FormatUSD(m.Total), successStyle.Render(bar))
	}
}

func printBreakdown(out io.Writer, slices []views.CategorySlice, rates currency.Rates) {
	if len(slices) == 0 {
		return
	}
	fmt.Fprintln(out, "\n"+titleStyle.Render("By category"))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	for _, s := range slices {
		fmt.Fprintf(w, "  %s\t%s\n", s.Name, bothCurrencies(s.Total, rates))
	}
}

func compareCmd() *cobra.Command {
	var from1, to1, from2, to2, category string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare spending between two periods",
		Example: `  expensectl compare --from1 2026-08-01 --to1 2026-08-31 --from2 2026-09-01 --to2 2026-09-30
  expensectl compare --from1 2026-01-01 --to1 2026-06-30 --from2 2026-07-01 --to2 2026-12-31 --category Food`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p1, err := parsePeriod(from1, to1)
			if err != nil {
				return fmt.Errorf("period 1: %w", err)
			}
			p2, err := parsePeriod(from2, to2)
			if err != nil {
				return fmt.Errorf("period 2: %w", err)
			}

			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				snap := a.provider.Snapshot()
				cmp := views.Compare(snap.Expenses, snap.Categories, p1, p2, category)
				printComparison(cmd.OutOrStdout(), cmp)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from1, "from1", "", "first day of period 1 (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to1, "to1", "", "last day of period 1")
	cmd.Flags().StringVar(&from2, "from2", "", "first day of period 2")
	cmd.Flags().StringVar(&to2, "to2", "", "last day of period 2")
	cmd.Flags().StringVarP(&category, "category", "c", views.AllCategories, "only compare this category")
	for _, name := range []string{"from1", "to1", "from2", "to2"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func parsePeriod(from, to string) (views.Period, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return views.Period{}, fmt.Errorf("invalid start date %q", from)
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return views.Period{}, fmt.Errorf("invalid end date %q", to)
	}
	if end.Before(start) {
		return views.Period{}, fmt.Errorf("end date %s is before start date %s", to, from)
	}
	return views.Period{Start: start, End: end}, nil
}

func printComparison(out io.Writer, cmp views.Comparison) {
	fmt.Fprintln(out, titleStyle.Render("Comparison"))
	fmt.Fprintf(out, "  Period 1:   %s (%d expenses)\n", currency.FormatUSD(cmp.Period1.Total), len(cmp.Period1.Expenses))
	fmt.Fprintf(out, "  Period 2:   %s (%d expenses)\n", currency.FormatUSD(cmp.Period2.Total), len(cmp.Period2.Expenses))

	change := fmt.Sprintf("%s (%+.1f%%)", currency.FormatUSD(cmp.Difference), cmp.PercentChange)
	style := successStyle
	if cmp.Difference > 0 {
		style = warningStyle
	}
	fmt.Fprintf(out, "  Difference: %s\n", style.Render(change))

	if len(cmp.Breakdown) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "  %s\t%s\t%s\n",
		headerStyle.Render("Category"),
		headerStyle.Render("Period 1"),
		headerStyle.Render("Period 2"))
	for _, d := range cmp.Breakdown {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", d.Name, currency.FormatUSD(d.Period1), currency.FormatUSD(d.Period2))
	}
}
