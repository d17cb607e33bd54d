package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendly/internal/models"
)

func signupCmd() *cobra.Command {
	var fullname, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				id, err := a.auth.Signup(ctx, fullname, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Account created. Welcome, %s!", id.Name)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fullname, "name", "", "your full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 6 characters)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				id, err := a.auth.Login(ctx, email, password)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Welcome back %s", id.Name)))
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  %d expenses loaded", len(a.provider.Snapshot().Expenses))))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				// only the saved cookie matters here; it is discarded either way
				_, _ = a.auth.Restore(ctx)
				if err := a.auth.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Logged out"))
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				id, err := a.prefs.LoadIdentity(ctx)
				if err != nil {
					return err
				}
				if id == nil {
					return errNotSignedIn
				}
				printIdentity(cmd, *id)
				return nil
			})
		},
	}
}

func renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name>",
		Short: "Change the display name kept for this account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				id, err := a.auth.Rename(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Display name set to %q", id.Name)))
				return nil
			})
		},
	}
}

func passwordCmd() *cobra.Command {
	var current, next, confirm string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(a *app, _ *models.Identity) error {
				if err := a.auth.ChangePassword(ctx, current, next, confirm); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Password updated"))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "new password again")

	return cmd
}

func printIdentity(cmd *cobra.Command, id models.Identity) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(id.Name))
	fmt.Fprintf(out, "  Email: %s\n", id.Email)
	fmt.Fprintf(out, "  ID:    %s\n", mutedStyle.Render(id.ID))
}
