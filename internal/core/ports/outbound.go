package ports

import (
	"context"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores chunk vectors and performs nearest-neighbour search.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, topK int) ([]domain.CandidateChunk, error)
	Upsert(ctx context.Context, chunks []domain.ChunkInput, vectors [][]float32) error
}

// EntityGraph reads and writes the product knowledge graph.
type EntityGraph interface {
	EntitiesFor(ctx context.Context, chunkID string) (domain.EntityBag, error)
	AggregateCounts(ctx context.Context) (domain.CategoryCounts, error)
	MergeChunkEntities(ctx context.Context, chunkID string, entities domain.ExtractedEntities) error
}

// IntentLabeler is the model-based intent fallback.
type IntentLabeler interface {
	Label(ctx context.Context, query string) domain.SemanticLabel
}

// Generator produces text from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// EntityExtractor pulls product entities out of chunk text.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) (domain.ExtractedEntities, error)
}

// StoreCatalog lists the store dataset.
type StoreCatalog interface {
	ListStores(ctx context.Context) ([]domain.Store, error)
}

// Chunker packs page paragraphs into bounded chunks.
type Chunker interface {
	Pack(paragraphs []string) []string
}

// ParagraphExtractor splits raw page text into paragraphs.
type ParagraphExtractor interface {
	Paragraphs(text string) []string
}

// MessageQueue publishes/consumes chunk ingestion events.
type MessageQueue interface {
	PublishChunk(ctx context.Context, chunk domain.ChunkInput) error
	SubscribeChunks(ctx context.Context, handler func(context.Context, domain.ChunkInput) error) error
}
