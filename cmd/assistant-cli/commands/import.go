package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirillkom/graphrag-assistant/internal/config"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/storage/localfs"
)

var importStoresCmd = &cobra.Command{
	Use:   "import-stores <dataset.json|dataset.xlsx>",
	Short: "Replace the postgres store dataset with the contents of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := localfs.NewStoreFile(args[0])
		if err != nil {
			return err
		}
		stores, err := file.ListStores(cmd.Context())
		if err != nil {
			return err
		}

		_ = godotenv.Load(envFile)
		cfg := config.Load()
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()

		repo := postgres.NewStoreRepository(db)
		if err := repo.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if err := repo.ReplaceAll(cmd.Context(), stores); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d stores\n", len(stores))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importStoresCmd)
}
