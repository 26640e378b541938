package cmd

import (
	"context"
	"fmt"

	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/aqlanhadi/gestionale/utenti"
	"github.com/spf13/cobra"
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Issue, activate and check module licenses",
}

// withPermesso runs fn after checking that the acting session holds permesso.
func withPermesso(permesso string, fn func(ctx context.Context, a *app, sess *utenti.Session) error) error {
	return withApp(func(ctx context.Context, a *app) error {
		sess, err := a.sessione(ctx)
		if err != nil {
			return err
		}
		if !sess.Puo(permesso) {
			return fmt.Errorf("%w: %s", utenti.ErrPermessoNegato, permesso)
		}
		return fn(ctx, a, sess)
	})
}

var licenseStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the license status of every module on this workstation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return printJSON(a.licenze.Stato(ctx))
		})
	},
}

var licenseIntestatario string

var licenseIssueCmd = &cobra.Command{
	Use:   "issue <modulo>",
	Short: "Generate a new key for a module and record it in the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermLicenze, func(ctx context.Context, a *app, _ *utenti.Session) error {
			l, err := a.licenze.Emetti(ctx, args[0], licenseIntestatario)
			if err != nil {
				return err
			}
			return printJSON(l)
		})
	},
}

var licenseActivateCmd = &cobra.Command{
	Use:   "activate <modulo> <chiave>",
	Short: "Activate a module on this workstation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermLicenze, func(ctx context.Context, a *app, _ *utenti.Session) error {
			if err := a.licenze.Attiva(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Module %s activated (%s)\n", args[0], licenza.Maschera(args[1]))
			return nil
		})
	},
}

var licenseDeactivateCmd = &cobra.Command{
	Use:   "deactivate <modulo>",
	Short: "Remove the key of a module from this workstation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermLicenze, func(ctx context.Context, a *app, _ *utenti.Session) error {
			return a.licenze.Disattiva(args[0])
		})
	},
}

var licenseRevokeCmd = &cobra.Command{
	Use:   "revoke <chiave>",
	Short: "Revoke a key in the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermLicenze, func(ctx context.Context, a *app, _ *utenti.Session) error {
			return a.licenze.Revoca(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(licenseCmd)
	licenseCmd.AddCommand(licenseStatusCmd, licenseIssueCmd, licenseActivateCmd, licenseDeactivateCmd, licenseRevokeCmd)

	licenseIssueCmd.Flags().StringVar(&licenseIntestatario, "intestatario", "", "License holder")
}
