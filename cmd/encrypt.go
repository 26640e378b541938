package cmd

import (
	"context"
	"fmt"

	"github.com/aqlanhadi/gestionale/utenti"
	"github.com/spf13/cobra"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Enable, disable or change database encryption",
}

var (
	encryptPassword string
	encryptNuova    string
)

var encryptStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the database is encrypted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return printJSON(map[string]any{
				"database":      a.db.Path(),
				"encrypted":     a.db.Encrypted(),
				"password_file": a.sicurezza.Abilitata(),
			})
		})
	},
}

var encryptEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Encrypt the database with --key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermImpostazioni, func(ctx context.Context, a *app, _ *utenti.Session) error {
			if err := a.sicurezza.Abilita(ctx, encryptPassword); err != nil {
				return err
			}
			fmt.Println("Database encrypted. Pass --db-password or set database.password to open it.")
			return nil
		})
	},
}

var encryptDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Decrypt the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermImpostazioni, func(ctx context.Context, a *app, _ *utenti.Session) error {
			return a.sicurezza.Disabilita(ctx, encryptPassword)
		})
	},
}

var encryptChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Re-encrypt the database from --key to --new-key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermImpostazioni, func(ctx context.Context, a *app, _ *utenti.Session) error {
			return a.sicurezza.CambiaPassword(ctx, encryptPassword, encryptNuova)
		})
	},
}

func init() {
	rootCmd.AddCommand(encryptCmd)
	encryptCmd.AddCommand(encryptStatusCmd, encryptEnableCmd, encryptDisableCmd, encryptChangeCmd)

	for _, c := range []*cobra.Command{encryptEnableCmd, encryptDisableCmd, encryptChangeCmd} {
		c.Flags().StringVar(&encryptPassword, "key", "", "Encryption password (required)")
		c.MarkFlagRequired("key")
	}
	encryptChangeCmd.Flags().StringVar(&encryptNuova, "new-key", "", "New encryption password (required)")
	encryptChangeCmd.MarkFlagRequired("new-key")
}
