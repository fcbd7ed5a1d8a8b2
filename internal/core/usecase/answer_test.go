package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
)

type answerFixture struct {
	classifier *classifierFake
	index      *indexFake
	graph      *graphFake
	generator  *generatorFake
	catalog    *catalogFake
	uc         *AnswerUseCase
}

func newAnswerFixture(intent domain.Intent) *answerFixture {
	lx := lexicon.Default()
	graph := &graphFake{counts: domain.CategoryCounts{TotalProducts: 450}}
	f := &answerFixture{
		classifier: &classifierFake{intent: intent},
		index:      &indexFake{},
		graph:      graph,
		generator:  &generatorFake{text: "  Boost is a nutritional drink.  "},
		catalog:    &catalogFake{stores: testStores()},
	}
	pipeline := NewRetrievalPipeline(lx,
		NewRetriever(&embedderFake{vector: []float32{1}}, f.index, 0, 0),
		NewEnricher(graph, 0, 4, nil),
		NewReranker(lx),
	)
	f.uc = NewAnswerUseCase(
		f.classifier,
		NewCountResolver(graph, lx, 0),
		NewStoreLocator(f.catalog, lx, 0),
		pipeline,
		f.generator,
		lx,
	)
	return f
}

func TestAnswerNoMatchesReturnsCannedText(t *testing.T) {
	f := newAnswerFixture(domain.DefaultIntent())

	ans, err := f.uc.Answer(context.Background(), "What is the airspeed of a swallow?", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if ans.Text != noRelevantInformation {
		t.Fatalf("expected canned answer, got %q", ans.Text)
	}
	if f.generator.calls != 0 {
		t.Fatalf("expected no generation call")
	}
}

func TestAnswerBuildsContextFromTopMatches(t *testing.T) {
	f := newAnswerFixture(domain.DefaultIntent())
	f.index.candidates = []domain.CandidateChunk{
		{ID: "a", Content: "first chunk", SourceURL: "https://example.com/a", ChunkIndex: 0, Score: 0.9},
		{ID: "b", Content: "second chunk", SourceURL: "https://example.com/a", ChunkIndex: 0, Score: 0.8},
		{ID: "c", Content: "third chunk", SourceURL: "https://example.com/c", ChunkIndex: 2, Score: 0.7},
		{ID: "d", Content: "fourth chunk", SourceURL: "https://example.com/d", ChunkIndex: 1, Score: 0.6},
	}

	ans, err := f.uc.Answer(context.Background(), "Is Boost good for kids?", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if ans.Text != "Boost is a nutritional drink." {
		t.Fatalf("expected trimmed generated text, got %q", ans.Text)
	}
	if f.index.topK != defaultCandidatePool {
		t.Fatalf("expected %d candidates retrieved, got %d", defaultCandidatePool, f.index.topK)
	}
	if f.generator.system != answerSystemPrompt {
		t.Fatalf("unexpected system prompt %q", f.generator.system)
	}
	for _, want := range []string{"Chunk 1:\nfirst chunk", "Chunk 2:\nsecond chunk", "Chunk 3:\nthird chunk", "Question:\nIs Boost good for kids?"} {
		if !strings.Contains(f.generator.prompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, f.generator.prompt)
		}
	}
	if strings.Contains(f.generator.prompt, "fourth chunk") {
		t.Fatalf("expected only top 3 chunks in context")
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("expected duplicate (url, chunkIndex) sources collapsed to 2, got %d", len(ans.Sources))
	}
	if ans.Sources[0].Score != 0.9 {
		t.Fatalf("expected first source to keep best score, got %v", ans.Sources[0].Score)
	}
}

func TestAnswerRerankLiftsEntityMatchIntoContext(t *testing.T) {
	f := newAnswerFixture(domain.DefaultIntent())
	f.index.candidates = []domain.CandidateChunk{
		{ID: "a", Content: "first chunk", SourceURL: "https://example.com/a", Score: 0.9},
		{ID: "b", Content: "second chunk", SourceURL: "https://example.com/b", Score: 0.85},
		{ID: "c", Content: "third chunk", SourceURL: "https://example.com/c", Score: 0.8},
		{ID: "d", Content: "boost chunk", SourceURL: "https://example.com/d", Score: 0.7},
		{ID: "e", Content: "fifth chunk", SourceURL: "https://example.com/e", Score: 0.6},
	}
	f.graph.bags = map[string]domain.EntityBag{
		"d": {domain.EntityProduct: {"Boost"}},
	}

	ans, err := f.uc.Answer(context.Background(), "Is Boost good for kids?", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(f.generator.prompt, "Chunk 1:\nboost chunk") {
		t.Fatalf("expected entity match ranked first in context, got:\n%s", f.generator.prompt)
	}
	if strings.Contains(f.generator.prompt, "third chunk") || strings.Contains(f.generator.prompt, "fifth chunk") {
		t.Fatalf("expected context cut to 3 chunks, got:\n%s", f.generator.prompt)
	}
	if len(ans.Sources) != 3 || ans.Sources[0].SourceURL != "https://example.com/d" {
		t.Fatalf("unexpected sources %+v", ans.Sources)
	}
}

func TestAnswerCandidatePoolNeverBelowContextSize(t *testing.T) {
	f := newAnswerFixture(domain.DefaultIntent())
	f.index.candidates = []domain.CandidateChunk{{ID: "a", Content: "first chunk", SourceURL: "https://example.com/a", Score: 0.9}}
	f.uc = NewAnswerUseCase(f.classifier, nil, nil, f.uc.pipeline, f.generator, nil,
		WithContextSize(4),
		WithCandidatePool(2),
	)

	if _, err := f.uc.Answer(context.Background(), "Is Boost good for kids?", nil); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if f.index.topK != 4 {
		t.Fatalf("expected pool raised to context size 4, got %d", f.index.topK)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	f := newAnswerFixture(domain.DefaultIntent())
	f.index.candidates = []domain.CandidateChunk{{ID: "a", Content: "x", Score: 1}}
	f.generator.err = errors.New("ollama 500")

	_, err := f.uc.Answer(context.Background(), "Is Boost good for kids?", nil)
	if !domain.IsKind(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestAnswerEmptyGenerationIsUnavailable(t *testing.T) {
	f := newAnswerFixture(domain.DefaultIntent())
	f.index.candidates = []domain.CandidateChunk{{ID: "a", Content: "x", Score: 1}}
	f.generator.text = "   "

	_, err := f.uc.Answer(context.Background(), "Is Boost good for kids?", nil)
	if !domain.IsKind(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestAnswerCountIntentUsesCountMessage(t *testing.T) {
	f := newAnswerFixture(domain.Intent{Main: domain.MainIntentInfo, Count: domain.CountIntentTotal})

	ans, err := f.uc.Answer(context.Background(), "How many Nestlé products are listed?", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(ans.Text, "450") || ans.Count == nil || ans.Count.Count != 450 {
		t.Fatalf("expected count answer with 450, got %+v", ans)
	}
	if f.index.topK != 0 {
		t.Fatalf("expected no retrieval on count path")
	}
}

func TestAnswerStoreIntentWithLocation(t *testing.T) {
	f := newAnswerFixture(domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch})

	ans, err := f.uc.Answer(context.Background(), "Where can I buy KitKat near me?", &domain.StoreQuery{Lat: 43.6532, Lng: -79.3832, RadiusKm: 30})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if ans.Intent.Main != domain.MainIntentStore {
		t.Fatalf("expected store intent, got %+v", ans.Intent)
	}
	if len(ans.Stores) != 2 {
		t.Fatalf("expected 2 stores within radius, got %d", len(ans.Stores))
	}
	if ans.Stores[0].DistanceKm > ans.Stores[1].DistanceKm {
		t.Fatalf("expected ascending distance, got %v then %v", ans.Stores[0].DistanceKm, ans.Stores[1].DistanceKm)
	}
	if !strings.Contains(ans.Text, ans.Stores[0].Name) {
		t.Fatalf("expected answer text to list nearest store, got %q", ans.Text)
	}
	if f.generator.calls != 0 || f.index.topK != 0 {
		t.Fatalf("expected no retrieval or generation on store path")
	}
}

func TestAnswerStoreIntentWithoutLocationAsksForIt(t *testing.T) {
	f := newAnswerFixture(domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch})

	ans, err := f.uc.Answer(context.Background(), "Where can I buy KitKat?", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if ans.Text != askForLocation {
		t.Fatalf("expected location prompt, got %q", ans.Text)
	}
}

func TestAnswerStoreIntentWithoutProductFallsBackToRetrieval(t *testing.T) {
	f := newAnswerFixture(domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch})

	ans, err := f.uc.Answer(context.Background(), "find a store near me", &domain.StoreQuery{Lat: 43.6, Lng: -79.4})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if ans.Text != noRelevantInformation {
		t.Fatalf("expected retrieval fallback, got %q", ans.Text)
	}
	if f.index.topK != defaultCandidatePool {
		t.Fatalf("expected retrieval call")
	}
}
