package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aqlanhadi/gestionale/banca"
	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var bancheCmd = &cobra.Command{
	Use:   "banche",
	Short: "Bank cash flow: balances, credit lines, receivables and payables",
}

func parseImporto(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := common.ParseImporto(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func parseGiorno(name, value string) (time.Time, error) {
	if value == "" {
		return common.Giorno(time.Now()), nil
	}
	d, err := common.ParseData(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return common.Giorno(d), nil
}

var (
	bancaNome    string
	bancaIBAN    string
	bancaSaldo   string
	bancaFido    string
	bancaPlafond string
	bancaTasso   string
)

var bancheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List banks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			banche, err := a.banche.Elenco(ctx)
			if err != nil {
				return err
			}
			return printJSON(banche)
		})
	},
}

var bancheAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		b := banca.Banca{Nome: bancaNome, IBAN: bancaIBAN}
		var err error
		if b.Saldo, err = parseImporto("saldo", bancaSaldo); err != nil {
			return err
		}
		if b.FidoAccordato, err = parseImporto("fido", bancaFido); err != nil {
			return err
		}
		if b.PlafondAnticipi, err = parseImporto("plafond", bancaPlafond); err != nil {
			return err
		}
		if b.TassoAnticipo, err = parseImporto("tasso", bancaTasso); err != nil {
			return err
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			creata, err := a.banche.Crea(ctx, b)
			if err != nil {
				return err
			}
			return printJSON(creata)
		})
	},
}

var bancheRiepilogoCmd = &cobra.Command{
	Use:   "riepilogo",
	Short: "Totals across every bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			r, err := a.banche.Riepilogo(ctx)
			if err != nil {
				return err
			}
			return printJSON(r)
		})
	},
}

var bancheAlertCmd = &cobra.Command{
	Use:   "alert [bank-id]",
	Short: "Show alerts for one bank or all banks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			var (
				alerts []banca.Alert
				err    error
			)
			if len(args) == 1 {
				alerts, err = a.banche.Alert(ctx, args[0])
			} else {
				alerts, err = a.banche.AlertTutte(ctx)
			}
			if err != nil {
				return err
			}
			return printJSON(alerts)
		})
	},
}

var (
	previsioneData string
	previsioneA    string
)

var banchePrevisioneCmd = &cobra.Command{
	Use:   "previsione <bank-id>",
	Short: "Forecast balance at a date, or a daily projection with --a",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseGiorno("data", previsioneData)
		if err != nil {
			return err
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			if previsioneA != "" {
				fine, err := parseGiorno("a", previsioneA)
				if err != nil {
					return err
				}
				punti, err := a.banche.Proiezione(ctx, args[0], data, fine)
				if err != nil {
					return err
				}
				return printJSON(punti)
			}
			saldo, err := a.banche.SaldoPrevisto(ctx, args[0], data)
			if err != nil {
				return err
			}
			interessi, err := a.banche.InteressiMaturati(ctx, args[0])
			if err != nil {
				return err
			}
			disponibile, err := a.banche.FidoDisponibile(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"banca_id":           args[0],
				"data":               data.Format("2006-01-02"),
				"saldo_previsto":     saldo,
				"interessi_maturati": interessi,
				"fido_disponibile":   disponibile,
			})
		})
	},
}

var (
	pivotAnno int
	pivotTipo string
	pivotPer  string
)

var banchePivotCmd = &cobra.Command{
	Use:   "pivot",
	Short: "Monthly pivot of receivables or payables",
	RunE: func(cmd *cobra.Command, args []string) error {
		anno := pivotAnno
		if anno == 0 {
			anno = time.Now().Year()
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			p, err := a.banche.Pivot(ctx, pivotTipo, anno, banca.Raggruppamento(pivotPer))
			if err != nil {
				return err
			}
			return printJSON(p)
		})
	},
}

var bancheEstrattoCmd = &cobra.Command{
	Use:   "estratto <bank-id> <file.csv>",
	Short: "Load a bank statement CSV into the daily balances",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		e, err := banca.ParseEstratto(f, args[1])
		if err != nil {
			return err
		}
		if ok, msg := banca.ValidaSaldo(e); !ok {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			if err := a.banche.ApplicaEstratto(ctx, args[0], e); err != nil {
				return err
			}
			fmt.Printf("Loaded %d movements from %s\n", len(e.Movimenti), args[1])
			return nil
		})
	},
}

var (
	movDescrizione string
	movCategoria   string
	movControparte string
	movScadenza    string
	movImporto     string
)

var bancheIncassoCmd = &cobra.Command{
	Use:   "incasso <bank-id>",
	Short: "Add an expected receivable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scadenza, err := parseGiorno("scadenza", movScadenza)
		if err != nil {
			return err
		}
		importo, err := parseImporto("importo", movImporto)
		if err != nil {
			return err
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			inc, err := a.banche.AggiungiIncasso(ctx, args[0], banca.Incasso{
				Descrizione:  movDescrizione,
				Categoria:    movCategoria,
				Cliente:      movControparte,
				DataScadenza: scadenza,
				Importo:      importo,
			})
			if err != nil {
				return err
			}
			return printJSON(inc)
		})
	},
}

var banchePagamentoCmd = &cobra.Command{
	Use:   "pagamento <bank-id>",
	Short: "Add an expected payable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scadenza, err := parseGiorno("scadenza", movScadenza)
		if err != nil {
			return err
		}
		importo, err := parseImporto("importo", movImporto)
		if err != nil {
			return err
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			pag, err := a.banche.AggiungiPagamento(ctx, args[0], banca.Pagamento{
				Descrizione:  movDescrizione,
				Categoria:    movCategoria,
				Fornitore:    movControparte,
				DataScadenza: scadenza,
				Importo:      importo,
			})
			if err != nil {
				return err
			}
			return printJSON(pag)
		})
	},
}

var movData string

var bancheIncassatoCmd = &cobra.Command{
	Use:   "incassato <bank-id> <incasso-id>",
	Short: "Mark a receivable as collected",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseGiorno("data", movData)
		if err != nil {
			return err
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			return a.banche.SegnaIncassato(ctx, args[0], args[1], data)
		})
	},
}

var banchePagatoCmd = &cobra.Command{
	Use:   "pagato <bank-id> <pagamento-id>",
	Short: "Mark a payable as paid",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseGiorno("data", movData)
		if err != nil {
			return err
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			return a.banche.SegnaPagato(ctx, args[0], args[1], data)
		})
	},
}

var bancheAnticipoCmd = &cobra.Command{
	Use:   "anticipo <bank-id> <incasso-id>",
	Short: "Record an invoice advance against a receivable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseGiorno("data", movData)
		if err != nil {
			return err
		}
		importo, err := parseImporto("importo", movImporto)
		if err != nil {
			return err
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			return a.banche.RegistraAnticipo(ctx, args[0], args[1], importo, data)
		})
	},
}

var bancheSaldoCmd = &cobra.Command{
	Use:   "saldo <bank-id> <importo>",
	Short: "Record the balance of a day",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseGiorno("data", movData)
		if err != nil {
			return err
		}
		saldo, err := common.ParseImporto(args[1])
		if err != nil {
			return err
		}
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			return a.banche.RegistraSaldo(ctx, args[0], data, saldo)
		})
	},
}

var bancheDeleteCmd = &cobra.Command{
	Use:   "delete <bank-id>",
	Short: "Delete a bank and its movements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloBanche, func(ctx context.Context, a *app) error {
			return a.banche.Elimina(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(bancheCmd)
	bancheCmd.AddCommand(bancheListCmd, bancheAddCmd, bancheRiepilogoCmd, bancheAlertCmd,
		banchePrevisioneCmd, banchePivotCmd, bancheEstrattoCmd, bancheIncassoCmd, banchePagamentoCmd,
		bancheIncassatoCmd, banchePagatoCmd, bancheAnticipoCmd, bancheSaldoCmd, bancheDeleteCmd)

	bancheAddCmd.Flags().StringVar(&bancaNome, "nome", "", "Bank name (required)")
	bancheAddCmd.Flags().StringVar(&bancaIBAN, "iban", "", "IBAN")
	bancheAddCmd.Flags().StringVar(&bancaSaldo, "saldo", "", "Current balance")
	bancheAddCmd.Flags().StringVar(&bancaFido, "fido", "", "Granted credit line")
	bancheAddCmd.Flags().StringVar(&bancaPlafond, "plafond", "", "Invoice advance ceiling")
	bancheAddCmd.Flags().StringVar(&bancaTasso, "tasso", "", "Advance annual interest rate, percent")
	bancheAddCmd.MarkFlagRequired("nome")

	banchePrevisioneCmd.Flags().StringVar(&previsioneData, "data", "", "Forecast date (default today)")
	banchePrevisioneCmd.Flags().StringVar(&previsioneA, "a", "", "End date of a daily projection starting at --data")

	banchePivotCmd.Flags().IntVar(&pivotAnno, "anno", 0, "Year (default current year)")
	banchePivotCmd.Flags().StringVar(&pivotTipo, "tipo", banca.TipoIncassi, "incassi or pagamenti")
	banchePivotCmd.Flags().StringVar(&pivotPer, "per", string(banca.PerCategoria), "Row grouping: categoria or banca")

	for _, c := range []*cobra.Command{bancheIncassoCmd, banchePagamentoCmd} {
		c.Flags().StringVar(&movDescrizione, "descrizione", "", "Description")
		c.Flags().StringVar(&movCategoria, "categoria", "", "Category")
		c.Flags().StringVar(&movControparte, "controparte", "", "Customer or supplier")
		c.Flags().StringVar(&movScadenza, "scadenza", "", "Due date (default today)")
		c.Flags().StringVar(&movImporto, "importo", "", "Amount (required)")
		c.MarkFlagRequired("importo")
	}
	for _, c := range []*cobra.Command{bancheIncassatoCmd, banchePagatoCmd, bancheAnticipoCmd, bancheSaldoCmd} {
		c.Flags().StringVar(&movData, "data", "", "Date (default today)")
	}
	bancheAnticipoCmd.Flags().StringVar(&movImporto, "importo", "", "Advanced amount (required)")
	bancheAnticipoCmd.MarkFlagRequired("importo")
}
