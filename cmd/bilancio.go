package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aqlanhadi/gestionale/bilancio"
	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/spf13/cobra"
)

var bilancioCmd = &cobra.Command{
	Use:   "bilancio",
	Short: "Client trial balances, templates, account mappings and statistics",
}

var (
	perCliente string
	perMese    int
	perAnno    int
)

func periodo() bilancio.Periodo {
	return bilancio.Periodo{ClienteID: perCliente, Mese: perMese, Anno: perAnno}
}

func periodoFlags(c *cobra.Command) {
	c.Flags().StringVar(&perCliente, "cliente", "", "Client id (required)")
	c.Flags().IntVar(&perMese, "mese", 0, "Month 1-12 (required)")
	c.Flags().IntVar(&perAnno, "anno", 0, "Year (required)")
	c.MarkFlagRequired("cliente")
	c.MarkFlagRequired("mese")
	c.MarkFlagRequired("anno")
}

func withBilancio(fn func(ctx context.Context, a *app) error) error {
	return withModulo(licenza.ModuloBilancio, fn)
}

var bilancioDescrizione string

var bilancioImportCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Load a trial-balance workbook into a period",
	Long: `Reads the first worksheet (code, description, amount) and replaces the
rows of the period that carry the same description.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		res, err := bilancio.ImportaExcel(f)
		if err != nil {
			return err
		}
		descrizione := coalesce(bilancioDescrizione, filepath.Base(args[0]))
		return withBilancio(func(ctx context.Context, a *app) error {
			n, err := a.bilanci.Importa(ctx, periodo(), descrizione, res.Righe)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d rows into %s (%d skipped)\n", n, periodo(), res.Saltate)
			for _, e := range res.Errori {
				fmt.Printf("  - %s\n", e)
			}
			return nil
		})
	},
}

var bilancioExportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Write the trial balance of a period to a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBilancio(func(ctx context.Context, a *app) error {
			righe, err := a.bilanci.Righe(ctx, periodo())
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := bilancio.EsportaExcel(f, righe); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Exported %d rows to %s\n", len(righe), args[0])
			return nil
		})
	},
}

var bilancioRigheCmd = &cobra.Command{
	Use:   "righe",
	Short: "Show the trial-balance rows of a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBilancio(func(ctx context.Context, a *app) error {
			righe, err := a.bilanci.Righe(ctx, periodo())
			if err != nil {
				return err
			}
			return printJSON(righe)
		})
	},
}

var bilancioDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the rows of a period with --descrizione",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBilancio(func(ctx context.Context, a *app) error {
			n, err := a.bilanci.Elimina(ctx, periodo(), bilancioDescrizione)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d rows\n", n)
			return nil
		})
	},
}

var (
	confrontaMese int
	confrontaAnno int
)

var bilancioStatisticaCmd = &cobra.Command{
	Use:   "statistica",
	Short: "Compute the statistics of a period, optionally against another month",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBilancio(func(ctx context.Context, a *app) error {
			stat, err := a.statistiche.Genera(ctx, periodo())
			if err != nil {
				return err
			}
			if confrontaMese == 0 && confrontaAnno == 0 {
				return printJSON(stat)
			}
			altro := periodo()
			if confrontaMese != 0 {
				altro.Mese = confrontaMese
			}
			if confrontaAnno != 0 {
				altro.Anno = confrontaAnno
			}
			statB, err := a.statistiche.Genera(ctx, altro)
			if err != nil {
				return fmt.Errorf("comparison period %s: %w", altro, err)
			}
			return printJSON(bilancio.Confronta(stat, statB))
		})
	},
}

var (
	templateDa   string
	templateFile string
)

var bilancioTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Show the statistics template of a period, load one with --file or copy one with --da",
	Long: `Without flags prints the template lines of the period.

--file loads the template from a .json array of lines or an .xlsx workbook
laid out as code, description, sign, formula, replacing the period's template.
--da copies the template of another month of the same client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if templateDa != "" && templateFile != "" {
			return fmt.Errorf("--file and --da are mutually exclusive")
		}
		var voci []bilancio.BilancioTemplate
		if templateFile != "" {
			f, err := os.Open(templateFile)
			if err != nil {
				return err
			}
			defer f.Close()
			if voci, err = bilancio.LeggiTemplate(f, templateFile); err != nil {
				return err
			}
		}
		return withBilancio(func(ctx context.Context, a *app) error {
			if templateFile != "" {
				if err := a.template.Salva(ctx, periodo(), voci); err != nil {
					return err
				}
				salvate, err := a.template.Elenco(ctx, periodo())
				if err != nil {
					return err
				}
				return printJSON(salvate)
			}
			if templateDa != "" {
				var da bilancio.Periodo
				if _, err := fmt.Sscanf(templateDa, "%d/%d", &da.Mese, &da.Anno); err != nil {
					return fmt.Errorf("--da must be MM/AAAA: %w", err)
				}
				da.ClienteID = perCliente
				n, err := a.template.Copia(ctx, da, periodo())
				if err != nil {
					return err
				}
				fmt.Printf("Copied %d template lines from %s\n", n, da)
				return nil
			}
			voci, err := a.template.Elenco(ctx, periodo())
			if err != nil {
				return err
			}
			return printJSON(voci)
		})
	},
}

var bilancioAssociaCmd = &cobra.Command{
	Use:   "associa <codice-mastrino> <descrizione-mastrino> <template-id>",
	Short: "Link an account to a template line, creating the mapping if needed",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBilancio(func(ctx context.Context, a *app) error {
			p := periodo()
			_, err := a.associazioni.Get(ctx, p)
			if errors.Is(err, bilancio.ErrAssociazioneNonTrovata) {
				_, err = a.associazioni.Crea(ctx, p)
			}
			if err != nil {
				return err
			}
			return a.associazioni.Associa(ctx, p, args[0], args[1], args[2])
		})
	},
}

var bilancioDissociaCmd = &cobra.Command{
	Use:   "dissocia <codice-mastrino> <descrizione-mastrino>",
	Short: "Remove the link of an account from its template line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBilancio(func(ctx context.Context, a *app) error {
			rimossa, err := a.associazioni.Rimuovi(ctx, periodo(), args[0], args[1])
			if err != nil {
				return err
			}
			if !rimossa {
				return fmt.Errorf("account %s %q is not linked in %s", args[0], args[1], periodo())
			}
			fmt.Printf("Unlinked %s %q in %s\n", args[0], args[1], periodo())
			return nil
		})
	},
}

var bilancioNonAssociatiCmd = &cobra.Command{
	Use:   "non-associati",
	Short: "List accounts of the period not yet linked to a template line",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBilancio(func(ctx context.Context, a *app) error {
			righe, err := a.associazioni.MastriniNonAssociati(ctx, periodo())
			if err != nil {
				return err
			}
			return printJSON(righe)
		})
	},
}

func init() {
	rootCmd.AddCommand(bilancioCmd)
	bilancioCmd.AddCommand(bilancioImportCmd, bilancioExportCmd, bilancioRigheCmd, bilancioDeleteCmd,
		bilancioStatisticaCmd, bilancioTemplateCmd, bilancioAssociaCmd, bilancioDissociaCmd, bilancioNonAssociatiCmd)

	for _, c := range bilancioCmd.Commands() {
		periodoFlags(c)
	}
	bilancioImportCmd.Flags().StringVar(&bilancioDescrizione, "descrizione", "", "Trial balance description (default file name)")
	bilancioDeleteCmd.Flags().StringVar(&bilancioDescrizione, "descrizione", "", "Trial balance description")
	bilancioStatisticaCmd.Flags().IntVar(&confrontaMese, "confronta-mese", 0, "Compare with this month")
	bilancioStatisticaCmd.Flags().IntVar(&confrontaAnno, "confronta-anno", 0, "Compare with this year")
	bilancioTemplateCmd.Flags().StringVar(&templateDa, "da", "", "Copy the template of month MM/AAAA of the same client")
	bilancioTemplateCmd.Flags().StringVarP(&templateFile, "file", "f", "", "Load the template from a .json or .xlsx file")
}
