package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const (
	defaultContextSize   = 3
	defaultCandidatePool = 5
)

type AnswerUseCase struct {
	classifier  ports.IntentClassifier
	counts      ports.CountService
	stores      ports.StoreService
	pipeline    *RetrievalPipeline
	generator   ports.Generator
	lexicon     *lexicon.Lexicon
	contextSize int
	poolSize    int
	timeout     time.Duration
}

type AnswerOption func(*AnswerUseCase)

func WithContextSize(n int) AnswerOption {
	return func(uc *AnswerUseCase) {
		if n > 0 {
			uc.contextSize = n
		}
	}
}

// WithCandidatePool sets how many vector hits are reranked before the context
// is cut to the context size. It never drops below the context size.
func WithCandidatePool(n int) AnswerOption {
	return func(uc *AnswerUseCase) {
		if n > 0 {
			uc.poolSize = n
		}
	}
}

func WithGenerationTimeout(timeout time.Duration) AnswerOption {
	return func(uc *AnswerUseCase) {
		uc.timeout = timeout
	}
}

func NewAnswerUseCase(
	classifier ports.IntentClassifier,
	counts ports.CountService,
	stores ports.StoreService,
	pipeline *RetrievalPipeline,
	generator ports.Generator,
	lx *lexicon.Lexicon,
	opts ...AnswerOption,
) *AnswerUseCase {
	if lx == nil {
		lx = lexicon.Default()
	}
	uc := &AnswerUseCase{
		classifier:  classifier,
		counts:      counts,
		stores:      stores,
		pipeline:    pipeline,
		generator:   generator,
		lexicon:     lx,
		contextSize: defaultContextSize,
		poolSize:    defaultCandidatePool,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Answer routes the query by intent. location may be nil; when set, its
// Lat/Lng (and optional RadiusKm) are used for store questions.
func (uc *AnswerUseCase) Answer(ctx context.Context, query string, location *domain.StoreQuery) (*domain.Answer, error) {
	query, err := validateQuery(query)
	if err != nil {
		return nil, err
	}

	intent := resolveIntent(ctx, uc.classifier, query, "")

	if intent.IsCount() {
		count, err := uc.counts.Resolve(ctx, query, intent.Count)
		if err != nil {
			return nil, fmt.Errorf("resolve count: %w", err)
		}
		return &domain.Answer{Text: count.Message, Sources: []domain.Source{}, Intent: intent, Count: count}, nil
	}

	if intent.Main == domain.MainIntentStore {
		if answer, ok, err := uc.answerStores(ctx, query, intent, location); ok || err != nil {
			return answer, err
		}
	}

	return uc.answerFromContext(ctx, query, intent)
}

// answerStores reports ok=false when the query names no known product, so
// the caller falls back to retrieval.
func (uc *AnswerUseCase) answerStores(ctx context.Context, query string, intent domain.Intent, location *domain.StoreQuery) (*domain.Answer, bool, error) {
	if uc.stores == nil {
		return nil, false, nil
	}
	product, found := uc.lexicon.MatchProduct(query)
	if !found {
		return nil, false, nil
	}
	if location == nil {
		return &domain.Answer{Text: askForLocation, Sources: []domain.Source{}, Intent: intent}, true, nil
	}

	result, err := uc.stores.Locate(ctx, domain.StoreQuery{
		Product:  product,
		Lat:      location.Lat,
		Lng:      location.Lng,
		RadiusKm: location.RadiusKm,
	})
	if err != nil {
		return nil, true, fmt.Errorf("locate stores: %w", err)
	}

	radius := location.RadiusKm
	if radius <= 0 {
		radius = defaultRadiusKm
	}
	return &domain.Answer{
		Text:    storeAnswerText(product, radius, result.Stores),
		Sources: []domain.Source{},
		Intent:  intent,
		Stores:  result.Stores,
	}, true, nil
}

func (uc *AnswerUseCase) answerFromContext(ctx context.Context, query string, intent domain.Intent) (*domain.Answer, error) {
	matches, _, err := uc.pipeline.Run(ctx, query, max(uc.poolSize, uc.contextSize))
	if err != nil {
		return nil, err
	}
	if len(matches) > uc.contextSize {
		matches = matches[:uc.contextSize]
	}
	if len(matches) == 0 {
		return &domain.Answer{Text: noRelevantInformation, Sources: []domain.Source{}, Intent: intent}, nil
	}

	genCtx, cancel := withOptionalTimeout(ctx, uc.timeout)
	defer cancel()
	text, err := uc.generator.Generate(genCtx, answerSystemPrompt, buildAnswerPrompt(query, matches))
	if err != nil {
		return nil, wrapKind(domain.ErrGenerationUnavailable, "generate answer", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrGenerationUnavailable, "generate answer", errors.New("generation service returned no content"))
	}

	return &domain.Answer{
		Text:    text,
		Sources: sourcesFromMatches(matches),
		Intent:  intent,
	}, nil
}

// sourcesFromMatches keeps the first match per (sourceUrl, chunkIndex).
func sourcesFromMatches(matches []domain.Match) []domain.Source {
	type key struct {
		url   string
		index int
	}
	seen := make(map[key]struct{}, len(matches))
	out := make([]domain.Source, 0, len(matches))
	for _, m := range matches {
		k := key{url: m.SourceURL, index: m.ChunkIndex}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, domain.Source{
			SourceURL:  m.SourceURL,
			ChunkIndex: m.ChunkIndex,
			Entities:   m.Entities,
			Score:      m.Score,
		})
	}
	return out
}
