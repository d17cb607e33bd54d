package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spendly/internal/categories"
	"spendly/internal/currency"
	"spendly/internal/models"
	"spendly/internal/provider"
	"spendly/internal/views"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage expense categories",
		Long: `List, add, update, and delete expense categories.

Categories used by your expenses are listed automatically. Categories you add or
edit are kept in the local preferences store.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with how much was spent in each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				snap := a.provider.Snapshot()
				out := cmd.OutOrStdout()
				if len(snap.Categories) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("No categories found. Use 'expensectl categories add' to create one."))
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				defer w.Flush()

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					headerStyle.Render("ID"),
					headerStyle.Render("Name"),
					headerStyle.Render("Color"),
					headerStyle.Render("Expenses"),
					headerStyle.Render("Spent"),
					headerStyle.Render("Source"))
				for _, c := range snap.Categories {
					usage := views.CategoryUsage(snap.Expenses, c.Name)
					source := "derived"
					if categories.IsCustom(c) {
						source = "custom"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
						mutedStyle.Render(c.ID), c.Name, c.Color, usage.Count, currency.FormatUSD(usage.Total), source)
				}
				return nil
			})
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var color, icon string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				created, err := a.provider.AddCategory(ctx, models.CategoryInput{Name: args[0], Color: color, Icon: icon})
				if err != nil {
					return categoryError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Created category %q (ID: %s)", created.Name, created.ID)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "display color (default: next palette color)")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name (default: tag)")

	return cmd
}

func updateCategoryCmd() *cobra.Command {
	var name, color, icon string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or recolor a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var upd models.CategoryUpdate
			if flags.Changed("name") {
				upd.Name = &name
			}
			if flags.Changed("color") {
				upd.Color = &color
			}
			if flags.Changed("icon") {
				upd.Icon = &icon
			}
			if upd == (models.CategoryUpdate{}) {
				return fmt.Errorf("must specify --name, --color or --icon to update")
			}

			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				updated, err := a.provider.UpdateCategory(ctx, args[0], upd)
				if err != nil {
					return categoryError(err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Updated category %q", updated.Name)))
				if updated.ID != args[0] {
					fmt.Fprintln(out, mutedStyle.Render("  Its ID is now "+updated.ID))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&color, "color", "", "new color")
	cmd.Flags().StringVar(&icon, "icon", "", "new icon")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a category",
		Long:    `Delete a category. Expenses that use it keep their category name.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				if err := a.provider.DeleteCategory(ctx, args[0]); err != nil {
					return categoryError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Category deleted"))
				return nil
			})
		},
	}
}

func categoryError(err error) error {
	switch {
	case errors.Is(err, provider.ErrNotFound):
		return fmt.Errorf("no such category; run 'expensectl categories list' to see IDs")
	case errors.Is(err, provider.ErrCategoryExists):
		return fmt.Errorf("a category with that name already exists")
	}
	return expenseError(err)
}
