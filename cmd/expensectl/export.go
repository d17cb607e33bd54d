package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"spendly/internal/export"
	"spendly/internal/models"
	"spendly/internal/views"
)

func exportCmd() *cobra.Command {
	var output, query, category string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write expenses to a CSV file",
		Long: `Write expenses to a CSV file. The file is named after today's date unless
--output is given; use --output - to write to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				snap := a.provider.Snapshot()
				expenses := views.Filter(snap.Expenses, views.FilterOptions{Query: query, Category: category}).Expenses
				if len(expenses) == 0 {
					return export.ErrNoExpenses
				}

				if output == "-" {
					return export.WriteCSV(cmd.OutOrStdout(), expenses)
				}

				path := output
				if path == "" {
					path = export.FileName(time.Now())
				}
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				writeErr := export.WriteCSV(f, expenses)
				closeErr := f.Close()
				if err := errors.Join(writeErr, closeErr); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Exported %d expenses to %s", len(expenses), path)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default: expenses_<date>.csv, - for stdout)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "only export expenses matching this text")
	cmd.Flags().StringVarP(&category, "category", "c", views.AllCategories, "only export this category")

	return cmd
}
