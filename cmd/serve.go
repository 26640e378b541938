package cmd

import (
	"context"

	"github.com/aqlanhadi/gestionale/api"
	"github.com/spf13/cobra"
)

var (
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long:  `Starts the HTTP API server exposing bank cash flow and trial-balance statistics as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(context.Background())
		if err != nil {
			return err
		}
		defer a.Close()

		// Create API server with configuration
		cfg := api.DefaultConfig()
		cfg.Port = ":" + coalesce(servePort, appCfg.Server.Port)

		server := api.New(cfg, api.Services{
			Banche:      a.banche,
			Bilanci:     a.bilanci,
			Template:    a.template,
			Statistiche: a.statistiche,
			Utenti:      a.utenti,
		})
		return server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to run the API server on (default server.port)")
}

// coalesce returns the first non-empty string
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
