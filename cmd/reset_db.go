package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/aqlanhadi/gestionale/store"
	"github.com/aqlanhadi/gestionale/utenti"
	"github.com/spf13/cobra"
)

var resetDBCmd = &cobra.Command{
	Use:   "reset-db <path>",
	Short: "Empty a database and recreate the admin user",
	Long: `Drops every collection of the database at <path> and seeds the
administrator with the default password. Exits 1 on any error.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := resetDB(context.Background(), args[0], appCfg.Database.Password); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Database %s reset, user %q recreated\n", args[0], utenti.AdminUsername)
	},
}

func resetDB(ctx context.Context, path, password string) error {
	db, err := store.Open(ctx, path, password)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.DropAll(ctx); err != nil {
		return err
	}
	if _, err := utenti.NewService(db, nil).SeedAdmin(ctx); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(resetDBCmd)
}
