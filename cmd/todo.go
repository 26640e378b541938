package cmd

import (
	"context"

	"github.com/aqlanhadi/gestionale/attivita"
	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/spf13/cobra"
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "The firm's TODO tasks",
}

var (
	todoDescrizione string
	todoCliente     string
	todoAssegnata   string
	todoScadenza    string
	todoPriorita    int
	todoTutte       bool
)

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open tasks (all tasks with --tutte)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloTodo, func(ctx context.Context, a *app) error {
			elenco, err := a.attivita.Elenco(ctx, attivita.Filtro{
				Assegnatario: todoAssegnata,
				ClienteID:    todoCliente,
				SoloAperte:   !todoTutte,
			})
			if err != nil {
				return err
			}
			return printJSON(elenco)
		})
	},
}

var todoOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List open tasks past their due date",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloTodo, func(ctx context.Context, a *app) error {
			scadute, err := a.attivita.Scadute(ctx, todoAssegnata)
			if err != nil {
				return err
			}
			return printJSON(scadute)
		})
	},
}

var todoAddCmd = &cobra.Command{
	Use:   "add <titolo>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := attivita.Attivita{
			Titolo:       args[0],
			Descrizione:  todoDescrizione,
			ClienteID:    todoCliente,
			Assegnatario: todoAssegnata,
			Priorita:     todoPriorita,
		}
		if todoScadenza != "" {
			d, err := parseGiorno("scadenza", todoScadenza)
			if err != nil {
				return err
			}
			t.Scadenza = &d
		}
		return withModulo(licenza.ModuloTodo, func(ctx context.Context, a *app) error {
			out, err := a.attivita.Crea(ctx, t)
			if err != nil {
				return err
			}
			return printJSON(out)
		})
	},
}

var todoAssignCmd = &cobra.Command{
	Use:   "assign <id> <username>",
	Short: "Assign a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloTodo, func(ctx context.Context, a *app) error {
			_, err := a.attivita.Assegna(ctx, args[0], args[1])
			return err
		})
	},
}

var todoDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Complete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloTodo, func(ctx context.Context, a *app) error {
			_, err := a.attivita.Completa(ctx, args[0])
			return err
		})
	},
}

var todoReopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Reopen a completed task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloTodo, func(ctx context.Context, a *app) error {
			_, err := a.attivita.Riapri(ctx, args[0])
			return err
		})
	},
}

var todoDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModulo(licenza.ModuloTodo, func(ctx context.Context, a *app) error {
			return a.attivita.Elimina(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(todoCmd)
	todoCmd.AddCommand(todoListCmd, todoOverdueCmd, todoAddCmd, todoAssignCmd, todoDoneCmd, todoReopenCmd, todoDeleteCmd)

	for _, c := range []*cobra.Command{todoListCmd, todoOverdueCmd, todoAddCmd} {
		c.Flags().StringVar(&todoAssegnata, "assegnatario", "", "Username")
	}
	for _, c := range []*cobra.Command{todoListCmd, todoAddCmd} {
		c.Flags().StringVar(&todoCliente, "cliente", "", "Client id")
	}
	todoListCmd.Flags().BoolVar(&todoTutte, "tutte", false, "Include completed tasks")
	todoAddCmd.Flags().StringVar(&todoDescrizione, "descrizione", "", "Details")
	todoAddCmd.Flags().StringVar(&todoScadenza, "scadenza", "", "Due date")
	todoAddCmd.Flags().IntVar(&todoPriorita, "priorita", 0, "1 low, 2 normal, 3 high")
}
