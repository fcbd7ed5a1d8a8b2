package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const maxQueryLength = 2000

type SearchUseCase struct {
	classifier ports.IntentClassifier
	counts     ports.CountService
	pipeline   *RetrievalPipeline
}

func NewSearchUseCase(classifier ports.IntentClassifier, counts ports.CountService, pipeline *RetrievalPipeline) *SearchUseCase {
	return &SearchUseCase{
		classifier: classifier,
		counts:     counts,
		pipeline:   pipeline,
	}
}

// Search answers count questions structurally and ranks chunks for everything
// else. A total or category hint skips classification.
func (uc *SearchUseCase) Search(ctx context.Context, query string, topK int, hint domain.CountIntent) (*domain.SearchResult, error) {
	query, err := validateQuery(query)
	if err != nil {
		return nil, err
	}

	intent := resolveIntent(ctx, uc.classifier, query, hint)
	if intent.IsCount() {
		count, err := uc.counts.Resolve(ctx, query, intent.Count)
		if err != nil {
			return nil, fmt.Errorf("resolve count: %w", err)
		}
		return &domain.SearchResult{Intent: intent, Count: count, Matches: []domain.Match{}}, nil
	}

	matches, failures, err := uc.pipeline.Run(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return &domain.SearchResult{Intent: intent, Matches: matches, EnrichmentFailures: failures}, nil
}

func resolveIntent(ctx context.Context, classifier ports.IntentClassifier, query string, hint domain.CountIntent) domain.Intent {
	if hint == domain.CountIntentTotal || hint == domain.CountIntentCategory {
		return domain.Intent{Main: domain.MainIntentInfo, Count: hint}
	}
	if classifier == nil {
		return domain.DefaultIntent()
	}
	return classifier.Classify(ctx, query)
}

func validateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("query is required"))
	}
	if len(query) > maxQueryLength {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate query", fmt.Errorf("query exceeds %d bytes", maxQueryLength))
	}
	return query, nil
}
