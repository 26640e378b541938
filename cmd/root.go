package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aqlanhadi/gestionale/config"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	verbose    bool
	dbPassword string
	appCfg     *config.Config
	rootCmd    = &cobra.Command{
		Use:   "gestionale",
		Short: "Back-office tools for an accounting firm",
		Long: `gestionale manages bank cash flow, client trial balances, licenses,
users and the circular letter archive of an accounting firm.`,
		SilenceUsage: true,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default is ./.gestionale.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "db-password", "", "database encryption password (or set GESTIONALE_DATABASE_PASSWORD)")
	rootCmd.PersistentFlags().String("db", "", "database file path (overrides database.path)")
	viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	if err := config.Init(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	appCfg = cfg
}

func initLogging() {
	logCfg := appCfg.LoggerConfig()
	if verbose {
		logCfg.Level = "debug"
	}
	if err := logger.Setup(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid logging configuration: %v\n", err)
		os.Exit(1)
	}
}

// printJSON writes v to stdout as indented JSON
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
