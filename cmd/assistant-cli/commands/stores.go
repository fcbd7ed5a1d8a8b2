package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

var (
	storesProduct string
	storesLat     float64
	storesLng     float64
	storesRadius  float64
)

var storesCmd = &cobra.Command{
	Use:   "stores [query]",
	Short: "List stores near a point that carry a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		if storesProduct == "" && query == "" {
			return fmt.Errorf("either --product or a query naming a product is required")
		}

		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.StoresUC.Locate(cmd.Context(), domain.StoreQuery{
			Query:    query,
			Product:  storesProduct,
			Lat:      storesLat,
			Lng:      storesLng,
			RadiusKm: storesRadius,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var countCmd = &cobra.Command{
	Use:   "count <query>",
	Short: "Count products in total or in the categories named by the query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		query := strings.Join(args, " ")
		countIntent := domain.CountIntentTotal
		if classified := app.Classifier.Classify(cmd.Context(), query); classified.Count == domain.CountIntentCategory {
			countIntent = domain.CountIntentCategory
		}
		result, err := app.CountUC.Resolve(cmd.Context(), query, countIntent)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	storesCmd.Flags().StringVar(&storesProduct, "product", "", "product name")
	storesCmd.Flags().Float64Var(&storesLat, "lat", 0, "latitude of the search centre")
	storesCmd.Flags().Float64Var(&storesLng, "lng", 0, "longitude of the search centre")
	storesCmd.Flags().Float64Var(&storesRadius, "radius", 0, "search radius in km (default 20)")
	_ = storesCmd.MarkFlagRequired("lat")
	_ = storesCmd.MarkFlagRequired("lng")

	rootCmd.AddCommand(storesCmd, countCmd)
}
