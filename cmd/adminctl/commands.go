package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanizio/storefront/internal/app"
	"github.com/yanizio/storefront/internal/settings"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "Storefront admin maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), userCmd(), exportCmd(), resetCmd())
	return root
}

// withApp boots the application for the duration of fn.
func withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := app.Bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func maintenance(a *app.App) (*settings.Controller, error) {
	s, ok := a.Catalog.Get("settings")
	if !ok {
		return nil, errors.New("catalog has no settings resource")
	}
	return settings.New(settings.Options{
		Schema:   s,
		Store:    a.Store,
		Tables:   a.Catalog.All(),
		Notifier: a.Notifier,
		Logger:   a.Log,
	})
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing resource and admin tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%d resource tables ready (%s)\n",
					len(a.Catalog.All()), a.Config.Database.Driver)
				return nil
			})
		},
	}
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage admin accounts"}

	var email, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("STOREFRONT_ADMIN_PASSWORD")
			}
			return withApp(cmd, func(a *app.App) error {
				u, err := a.Auth.CreateUser(cmd.Context(), email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&email, "email", "", "account email")
	add.Flags().StringVar(&password, "password", "", "password (or STOREFRONT_ADMIN_PASSWORD)")
	_ = add.MarkFlagRequired("email")

	user.AddCommand(add)
	return user
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of every table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				c, err := maintenance(a)
				if err != nil {
					return err
				}
				snap, err := c.ExportAll(cmd.Context())
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = snap.Filename()
				}
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := snap.WriteJSON(f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default storefront-backup-DATE.json)")
	return cmd
}

func resetCmd() *cobra.Command {
	var confirm string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every row of every resource table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				c, err := maintenance(a)
				if err != nil {
					return err
				}
				res, err := c.ResetAll(cmd.Context(), confirm)
				for table, n := range res.Deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d deleted\n", table, n)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", fmt.Sprintf("type %q to proceed", settings.ResetPhrase))
	return cmd
}
