package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spendly/internal/categories"
	"spendly/internal/currency"
	"spendly/internal/models"
	"spendly/internal/provider"
	"spendly/internal/views"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense", "exp"},
		Short:   "List and manage expenses",
	}

	cmd.AddCommand(listExpensesCmd())
	cmd.AddCommand(addExpenseCmd())
	cmd.AddCommand(updateExpenseCmd())
	cmd.AddCommand(deleteExpenseCmd())
	cmd.AddCommand(clearExpensesCmd())
	cmd.AddCommand(doneExpenseCmd())

	return cmd
}

func listExpensesCmd() *cobra.Command {
	var (
		query    string
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				snap := a.provider.Snapshot()
				result := views.Filter(snap.Expenses, views.FilterOptions{Query: query, Category: category})

				out := cmd.OutOrStdout()
				if len(result.Expenses) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("No expenses found. Use 'expensectl expenses add' to record one."))
					return nil
				}

				shown := result.Expenses
				if limit > 0 && len(shown) > limit {
					shown = shown[:limit]
				}
				printExpenses(out, shown)
				fmt.Fprintf(out, "\n%s %s (%d expenses)\n",
					headerStyle.Render("Total:"), currency.FormatUSD(result.Total), len(result.Expenses))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "only show expenses whose title or description contains this")
	cmd.Flags().StringVarP(&category, "category", "c", views.AllCategories, "only show this category")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many expenses")

	return cmd
}

func addExpenseCmd() *cobra.Command {
	var (
		in   models.ExpenseInput
		code string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cur, err := currency.ParseCode(code)
			if err != nil {
				return err
			}
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				in.Amount = toUSD(ctx, a, in.Amount, cur)
				warnUnknownCategory(cmd, in.Category, a.provider.Snapshot().Categories)

				added, err := a.provider.AddExpense(ctx, in)
				if err != nil {
					return expenseError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Added %q for %s (ID: %s)",
					added.Title, currency.FormatUSD(added.Amount), added.ID)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "what the money was spent on")
	cmd.Flags().Float64VarP(&in.Amount, "amount", "a", 0, "amount spent")
	cmd.Flags().StringVarP(&in.Category, "category", "c", "", "category name")
	cmd.Flags().StringVarP(&in.Date, "date", "d", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.Description, "description", "", "longer notes")
	cmd.Flags().StringVar(&code, "currency", string(currency.USD), "currency of --amount: USD or INR")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func updateExpenseCmd() *cobra.Command {
	var (
		title, category, date, description, code string
		amount                                   float64
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an expense",
		Long:  `Change fields of an expense. Only the flags you pass are sent.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cur, err := currency.ParseCode(code)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			var patch models.ExpensePatch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("category") {
				patch.Category = &category
			}
			if flags.Changed("date") {
				patch.Date = &date
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			changedAmount := flags.Changed("amount")
			if patch == (models.ExpensePatch{}) && !changedAmount {
				return fmt.Errorf("must specify at least one of --title, --amount, --category, --date or --description")
			}

			return withSession(ctx, func(a *app, _ *models.Identity) error {
				if changedAmount {
					usd := toUSD(ctx, a, amount, cur)
					patch.Amount = &usd
				}
				if patch.Category != nil {
					warnUnknownCategory(cmd, *patch.Category, a.provider.Snapshot().Categories)
				}
				if err := a.provider.UpdateExpense(ctx, args[0], patch); err != nil {
					return expenseError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Expense updated"))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "new amount")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringVarP(&date, "date", "d", "", "new date as YYYY-MM-DD")
	cmd.Flags().StringVar(&description, "description", "", "new notes")
	cmd.Flags().StringVar(&code, "currency", string(currency.USD), "currency of --amount: USD or INR")

	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				if err := a.provider.DeleteExpense(ctx, args[0]); err != nil {
					return expenseError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Expense deleted"))
				return nil
			})
		},
	}
}

func clearExpensesCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense on the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("this deletes all of your expenses; pass --yes to confirm")
			}
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				n, err := a.provider.DeleteAllExpenses(ctx)
				if errors.Is(err, provider.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No expenses to delete"))
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Deleted %d expenses", n)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting everything")

	return cmd
}

func doneExpenseCmd() *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an expense as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				if err := a.provider.MarkDone(ctx, args[0], !undo); err != nil {
					return expenseError(err)
				}
				msg := "✓ Expense marked as done"
				if undo {
					msg = "✓ Expense marked as not done"
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(msg))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "mark as not done instead")

	return cmd
}

func printExpenses(out io.Writer, expenses []models.Expense) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Date"),
		headerStyle.Render("Title"),
		headerStyle.Render("Category"),
		headerStyle.Render("Amount"),
		headerStyle.Render("Done"))
	for _, e := range expenses {
		done := ""
		if e.Done {
			done = "✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mutedStyle.Render(e.ID), e.Date, e.Title, e.Category, currency.FormatUSD(e.Amount), done)
	}
}

// toUSD converts an amount typed in code to dollars at the current rate.
func toUSD(ctx context.Context, a *app, amount float64, code currency.Code) float64 {
	if code == currency.USD {
		return amount
	}
	return currency.ToUSD(amount, code, a.rates.Rates(ctx).USDToINR)
}

func warnUnknownCategory(cmd *cobra.Command, name string, list []models.Category) {
	if suggestion, ok := categories.Suggest(name, list); ok {
		fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render(
			fmt.Sprintf("! %q is a new category. Did you mean %q?", name, suggestion)))
	}
}

func expenseError(err error) error {
	switch {
	case errors.Is(err, provider.ErrNotFound):
		return fmt.Errorf("no such expense; run 'expensectl expenses list' to see IDs")
	case errors.Is(err, provider.ErrValidation):
		return errors.New(strings.TrimPrefix(err.Error(), provider.ErrValidation.Error()+": "))
	}
	return err
}
