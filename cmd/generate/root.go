package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ccdc-products-go/internal/app"
	"ccdc-products-go/internal/config"

	"github.com/spf13/cobra"
)

// rootCmd базовая команда без подкоманд
var rootCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate CCDC change and cover products for one chip.",
	Long: `generate computes CCDC products for a chip outside of the HTTP server.

Database, segment source and storage are configured with the same environment
variables as the server (DB_DRIVER, SOURCE, STORAGE_BACKEND, PRODUCT_CONFIG, ...).`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute добавляет подкоманды и запускает корневую команду
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("loglevel", "l", "", "Set log level. Available: debug, info, warn, error (default: LOG_LEVEL)")
}

// buildApp собирает зависимости из окружения с учетом флагов
func buildApp(cmd *cobra.Command) (*app.App, error) {
	cfg := config.LoadConfig()
	if level, _ := cmd.Flags().GetString("loglevel"); level != "" {
		cfg.Logging.Level = level
	}

	logger := app.NewLogger(cfg.Logging.Level)
	logger.SetOutput(os.Stderr)
	return app.Build(context.Background(), cfg, logger)
}

// printJSON печатает значение в stdout с отступами
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
