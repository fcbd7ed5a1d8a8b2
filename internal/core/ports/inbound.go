package ports

import (
	"context"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

// IntentClassifier labels a query with its main and count intents.
type IntentClassifier interface {
	Classify(ctx context.Context, query string) domain.Intent
}

// SearchService runs the hybrid retrieval pipeline and returns ranked matches.
type SearchService interface {
	Search(ctx context.Context, query string, topK int, hint domain.CountIntent) (*domain.SearchResult, error)
}

// AnswerService answers a natural-language question end to end.
type AnswerService interface {
	Answer(ctx context.Context, query string, location *domain.StoreQuery) (*domain.Answer, error)
}

// StoreService finds stores that carry a product near a point.
type StoreService interface {
	Locate(ctx context.Context, q domain.StoreQuery) (*domain.StoreResult, error)
}

// CountService answers aggregate product count questions.
type CountService interface {
	Resolve(ctx context.Context, query string, countIntent domain.CountIntent) (*domain.CountResult, error)
}

// PageIngestor chunks scraped pages and queues them for processing.
type PageIngestor interface {
	IngestPages(ctx context.Context, pages []domain.Page) (*domain.IngestReport, error)
}

// ChunkProcessor indexes one chunk and links its entities in the graph.
type ChunkProcessor interface {
	ProcessChunk(ctx context.Context, chunk domain.ChunkInput) error
}
