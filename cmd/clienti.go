package cmd

import (
	"context"

	"github.com/aqlanhadi/gestionale/anagrafica"
	"github.com/aqlanhadi/gestionale/utenti"
	"github.com/spf13/cobra"
)

var clientiCmd = &cobra.Command{
	Use:   "clienti",
	Short: "Client and professional registry",
}

var (
	clienteNome  string
	clienteCF    string
	clientePIVA  string
	clienteEmail string
	clienteProf  string
	profNome     string
	profCognome  string
	profRuolo    string
)

var clientiListCmd = &cobra.Command{
	Use:   "list [cerca]",
	Short: "List clients, optionally filtered by name or tax code",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cerca := ""
		if len(args) == 1 {
			cerca = args[0]
		}
		return withPermesso(utenti.PermAnagrafica, func(ctx context.Context, a *app, _ *utenti.Session) error {
			clienti, err := a.anagrafica.Clienti(ctx, cerca)
			if err != nil {
				return err
			}
			return printJSON(clienti)
		})
	},
}

var clientiAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a client",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermAnagrafica, func(ctx context.Context, a *app, _ *utenti.Session) error {
			c, err := a.anagrafica.SalvaCliente(ctx, anagrafica.Cliente{
				RagioneSociale:   clienteNome,
				CodiceFiscale:    clienteCF,
				PartitaIVA:       clientePIVA,
				Email:            clienteEmail,
				ProfessionistaID: clienteProf,
			})
			if err != nil {
				return err
			}
			return printJSON(c)
		})
	},
}

var clientiDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermAnagrafica, func(ctx context.Context, a *app, _ *utenti.Session) error {
			return a.anagrafica.EliminaCliente(ctx, args[0])
		})
	},
}

var professionistiCmd = &cobra.Command{
	Use:   "professionisti",
	Short: "List professionals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermAnagrafica, func(ctx context.Context, a *app, _ *utenti.Session) error {
			elenco, err := a.anagrafica.Professionisti(ctx)
			if err != nil {
				return err
			}
			return printJSON(elenco)
		})
	},
}

var professionistiAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a professional",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPermesso(utenti.PermAnagrafica, func(ctx context.Context, a *app, _ *utenti.Session) error {
			p, err := a.anagrafica.SalvaProfessionista(ctx, anagrafica.Professionista{
				Nome:          profNome,
				Cognome:       profCognome,
				CodiceFiscale: clienteCF,
				Email:         clienteEmail,
				Ruolo:         profRuolo,
			})
			if err != nil {
				return err
			}
			return printJSON(p)
		})
	},
}

func init() {
	rootCmd.AddCommand(clientiCmd)
	clientiCmd.AddCommand(clientiListCmd, clientiAddCmd, clientiDeleteCmd, professionistiCmd)
	professionistiCmd.AddCommand(professionistiAddCmd)

	clientiAddCmd.Flags().StringVar(&clienteNome, "ragione-sociale", "", "Company or person name (required)")
	clientiAddCmd.Flags().StringVar(&clientePIVA, "piva", "", "VAT number")
	clientiAddCmd.Flags().StringVar(&clienteProf, "professionista", "", "Id of the professional in charge")
	clientiAddCmd.MarkFlagRequired("ragione-sociale")

	professionistiAddCmd.Flags().StringVar(&profNome, "nome", "", "First name")
	professionistiAddCmd.Flags().StringVar(&profCognome, "cognome", "", "Surname (required)")
	professionistiAddCmd.Flags().StringVar(&profRuolo, "ruolo", "", "Role")
	professionistiAddCmd.MarkFlagRequired("cognome")

	for _, c := range []*cobra.Command{clientiAddCmd, professionistiAddCmd} {
		c.Flags().StringVar(&clienteCF, "cf", "", "Tax code")
		c.Flags().StringVar(&clienteEmail, "email", "", "Email")
	}
}
