package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendly/internal/currency"
)

func rateCmd() *cobra.Command {
	var amount float64

	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Show the USD to INR rate used for conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				rates := a.rates.Rates(ctx)
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "%s %s\n", headerStyle.Render("1 USD ="), currency.FormatINR(rates.USDToINR))
				source := "live"
				switch {
				case rates.FetchedAt.IsZero():
					source = "fallback"
				case rates.Cached:
					source = "cached"
				}
				if !rates.FetchedAt.IsZero() {
					source += ", fetched " + rates.FetchedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintln(out, mutedStyle.Render("  ("+source+")"))

				if cmd.Flags().Changed("amount") {
					fmt.Fprintf(out, "%s = %s\n", currency.FormatUSD(amount), currency.FormatINR(currency.ToINR(amount, rates.USDToINR)))
				}
				if rates.Error != "" {
					fmt.Fprintln(out, warningStyle.Render(rates.Error))
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "also convert this many dollars to rupees")

	return cmd
}
