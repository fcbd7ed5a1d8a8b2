package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

var (
	searchTop   int
	searchCount string

	answerLat    float64
	answerLng    float64
	answerRadius float64
)

var classifyCmd = &cobra.Command{
	Use:   "classify <query>",
	Short: "Print the main and count intent of a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		return printJSON(cmd.OutOrStdout(), app.Classifier.Classify(cmd.Context(), strings.Join(args, " ")))
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run hybrid retrieval and print ranked matches or a count",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hint, err := parseCountHint(searchCount)
		if err != nil {
			return err
		}

		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.SearchUC.Search(cmd.Context(), strings.Join(args, " "), searchTop, hint)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <question>",
	Short: "Answer a question from retrieved context, counts or nearby stores",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var location *domain.StoreQuery
		latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
		switch {
		case latSet && lngSet:
			location = &domain.StoreQuery{Lat: answerLat, Lng: answerLng, RadiusKm: answerRadius}
		case latSet || lngSet:
			return fmt.Errorf("--lat and --lng must be given together")
		}

		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		answer, err := app.AnswerUC.Answer(cmd.Context(), strings.Join(args, " "), location)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), answer)
	},
}

func parseCountHint(raw string) (domain.CountIntent, error) {
	if raw == "" {
		return "", nil
	}
	hint, ok := domain.ParseCountIntent(raw)
	if !ok {
		return "", fmt.Errorf("invalid --count %q: want total, category or search", raw)
	}
	return hint, nil
}

func init() {
	searchCmd.Flags().IntVar(&searchTop, "top", 5, "number of matches to return")
	searchCmd.Flags().StringVar(&searchCount, "count", "", "count intent hint: total, category or search")

	answerCmd.Flags().Float64Var(&answerLat, "lat", 0, "user latitude for store questions")
	answerCmd.Flags().Float64Var(&answerLng, "lng", 0, "user longitude for store questions")
	answerCmd.Flags().Float64Var(&answerRadius, "radius", 0, "store search radius in km (default 20)")

	rootCmd.AddCommand(classifyCmd, searchCmd, answerCmd)
}
