package cmd

import (
	"context"
	"fmt"

	"github.com/aqlanhadi/gestionale/circolari"
	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/spf13/cobra"
)

var circolariCmd = &cobra.Command{
	Use:   "circolari",
	Short: "Archive and search circular letters",
}

var (
	circTitolo string
	circNumero int
	circData   string
	circAnno   int
)

var circolariAddCmd = &cobra.Command{
	Use:   "add <file.pdf>",
	Short: "Copy a PDF into the archive and index its text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := circolari.Circolare{Titolo: circTitolo, Numero: circNumero, Anno: circAnno}
		if circData != "" {
			d, err := parseGiorno("data", circData)
			if err != nil {
				return err
			}
			c.Data = d
		}
		return withModulo(licenza.ModuloCircolari, func(ctx context.Context, a *app) error {
			out, err := a.circolari.ArchiviaFile(ctx, c, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Archived %q as %s (%d pages)\n", out.Titolo, a.circolari.Percorso(*out), out.Pagine)
			return nil
		})
	},
}

var circolariSearchCmd = &cobra.Command{
	Use:   "search [testo]",
	Short: "Search titles and text, or list everything without arguments",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		testo := ""
		if len(args) == 1 {
			testo = args[0]
		}
		return withModulo(licenza.ModuloCircolari, func(ctx context.Context, a *app) error {
			trovate, err := a.circolari.Cerca(ctx, testo, circAnno)
			if err != nil {
				return err
			}
			// The full text is too long for a listing
			for i := range trovate {
				trovate[i].Testo = ""
			}
			return printJSON(trovate)
		})
	},
}

var circolariDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a circular and its PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloCircolari, func(ctx context.Context, a *app) error {
			return a.circolari.Elimina(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(circolariCmd)
	circolariCmd.AddCommand(circolariAddCmd, circolariSearchCmd, circolariDeleteCmd)

	circolariAddCmd.Flags().StringVar(&circTitolo, "titolo", "", "Title (default file name)")
	circolariAddCmd.Flags().IntVar(&circNumero, "numero", 0, "Circular number")
	circolariAddCmd.Flags().StringVar(&circData, "data", "", "Issue date (default today)")
	for _, c := range []*cobra.Command{circolariAddCmd, circolariSearchCmd} {
		c.Flags().IntVar(&circAnno, "anno", 0, "Year")
	}
}
