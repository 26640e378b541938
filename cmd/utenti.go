package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/aqlanhadi/gestionale/utenti"
	"github.com/spf13/cobra"
)

var utentiCmd = &cobra.Command{
	Use:   "utenti",
	Short: "Manage users, passwords and permissions",
	Long: `Manage users, passwords and permissions. Commands act as --user when
given, otherwise with the local system session.`,
}

func withSessione(fn func(ctx context.Context, a *app, sess *utenti.Session) error) error {
	return withApp(func(ctx context.Context, a *app) error {
		sess, err := a.sessione(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, a, sess)
	})
}

var (
	utenteNome     string
	utentePassword string
	utentePermessi []string
)

var utentiListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessione(func(ctx context.Context, a *app, sess *utenti.Session) error {
			elenco, err := a.utenti.Elenco(ctx, sess)
			if err != nil {
				return err
			}
			return printJSON(elenco)
		})
	},
}

var utentiAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessione(func(ctx context.Context, a *app, sess *utenti.Session) error {
			u, err := a.utenti.Crea(ctx, sess, args[0], utenteNome, utentePassword, utentePermessi)
			if err != nil {
				return err
			}
			return printJSON(u)
		})
	},
}

var utentiPasswdCmd = &cobra.Command{
	Use:   "passwd [username]",
	Short: "Change your password, or reset another user's",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessione(func(ctx context.Context, a *app, sess *utenti.Session) error {
			if len(args) == 1 {
				return a.utenti.ReimpostaPassword(ctx, sess, args[0], utentePassword)
			}
			if cliUser == "" {
				return fmt.Errorf("changing your own password requires --user")
			}
			return a.utenti.CambiaPassword(ctx, sess, cliPassword, utentePassword)
		})
	},
}

var utentiPermsCmd = &cobra.Command{
	Use:   "perms <username>",
	Short: "Replace the permissions of a user (" + strings.Join(utenti.TuttiPermessi, ", ") + ")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessione(func(ctx context.Context, a *app, sess *utenti.Session) error {
			return a.utenti.ImpostaPermessi(ctx, sess, args[0], utentePermessi)
		})
	},
}

var utentiDisableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Disable a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessione(func(ctx context.Context, a *app, sess *utenti.Session) error {
			return a.utenti.Disattiva(ctx, sess, args[0])
		})
	},
}

var auditLimit int

var utentiAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the most recent audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessione(func(ctx context.Context, a *app, sess *utenti.Session) error {
			entries, err := a.utenti.Audit(ctx, sess, auditLimit)
			if err != nil {
				return err
			}
			return printJSON(entries)
		})
	},
}

var utentiSeedCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the administrator, or reset its password and permissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if _, err := a.utenti.SeedAdmin(ctx); err != nil {
				return err
			}
			fmt.Printf("User %q ready with the default password\n", utenti.AdminUsername)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(utentiCmd)
	utentiCmd.AddCommand(utentiListCmd, utentiAddCmd, utentiPasswdCmd, utentiPermsCmd, utentiDisableCmd, utentiAuditCmd, utentiSeedCmd)

	utentiAddCmd.Flags().StringVar(&utenteNome, "nome", "", "Full name")
	for _, c := range []*cobra.Command{utentiAddCmd, utentiPasswdCmd} {
		c.Flags().StringVar(&utentePassword, "new-password", "", "Password to set (required)")
		c.MarkFlagRequired("new-password")
	}
	for _, c := range []*cobra.Command{utentiAddCmd, utentiPermsCmd} {
		c.Flags().StringSliceVar(&utentePermessi, "permessi", nil, "Comma-separated permissions")
	}
	utentiAuditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Number of entries (0 = all)")
}
