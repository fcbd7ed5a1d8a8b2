package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

type embedderFake struct {
	vector []float32
	err    error
	texts  []string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type indexFake struct {
	candidates []domain.CandidateChunk
	err        error
	topK       int
	upserted   []domain.ChunkInput
	upsertErr  error
}

func (f *indexFake) Search(_ context.Context, _ []float32, topK int) ([]domain.CandidateChunk, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.candidates) {
		return f.candidates[:topK], nil
	}
	return f.candidates, nil
}

func (f *indexFake) Upsert(_ context.Context, chunks []domain.ChunkInput, _ [][]float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	return nil
}

type graphFake struct {
	mu         sync.Mutex
	bags       map[string]domain.EntityBag
	bagErrs    map[string]error
	lookups    int
	counts     domain.CategoryCounts
	countsErr  error
	countCalls int
	merged     map[string]domain.ExtractedEntities
	mergeErr   error
}

func (f *graphFake) EntitiesFor(_ context.Context, chunkID string) (domain.EntityBag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if err := f.bagErrs[chunkID]; err != nil {
		return nil, err
	}
	return f.bags[chunkID], nil
}

func (f *graphFake) AggregateCounts(context.Context) (domain.CategoryCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countsErr != nil {
		return domain.CategoryCounts{}, f.countsErr
	}
	return f.counts, nil
}

func (f *graphFake) MergeChunkEntities(_ context.Context, chunkID string, entities domain.ExtractedEntities) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mergeErr != nil {
		return f.mergeErr
	}
	if f.merged == nil {
		f.merged = make(map[string]domain.ExtractedEntities)
	}
	f.merged[chunkID] = entities
	return nil
}

type classifierFake struct {
	intent domain.Intent
	calls  int
}

func (f *classifierFake) Classify(context.Context, string) domain.Intent {
	f.calls++
	return f.intent
}

type generatorFake struct {
	text   string
	err    error
	system string
	prompt string
	calls  int
}

func (f *generatorFake) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.system = system
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type catalogFake struct {
	stores []domain.Store
	err    error
}

func (f *catalogFake) ListStores(context.Context) ([]domain.Store, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stores, nil
}

type entityExtractorFake struct {
	entities domain.ExtractedEntities
	err      error
}

func (f *entityExtractorFake) ExtractEntities(context.Context, string) (domain.ExtractedEntities, error) {
	if f.err != nil {
		return domain.ExtractedEntities{}, f.err
	}
	return f.entities, nil
}

type queueFake struct {
	published []domain.ChunkInput
	err       error
}

func (f *queueFake) PublishChunk(_ context.Context, chunk domain.ChunkInput) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, chunk)
	return nil
}

func (f *queueFake) SubscribeChunks(context.Context, func(context.Context, domain.ChunkInput) error) error {
	return nil
}

// passthroughChunker emits one chunk per non-empty paragraph.
type passthroughChunker struct{}

func (passthroughChunker) Pack(paragraphs []string) []string {
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

type blankLineExtractor struct{}

func (blankLineExtractor) Paragraphs(text string) []string {
	return strings.Split(text, "\n\n")
}
