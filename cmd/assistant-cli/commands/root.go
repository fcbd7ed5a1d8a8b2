// Package commands implements the assistant command-line client.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirillkom/graphrag-assistant/internal/bootstrap"
	"github.com/kirillkom/graphrag-assistant/internal/config"
	"github.com/kirillkom/graphrag-assistant/internal/observability/logging"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "assistant-cli",
	Short:         "Query the product knowledge assistant from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func loadApp(cmd *cobra.Command) (*bootstrap.App, error) {
	_ = godotenv.Load(envFile)
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "assistant-cli", cfg.LogLevel)

	app, err := bootstrap.New(cmd.Context(), cfg, bootstrap.RoleTool, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return app, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
