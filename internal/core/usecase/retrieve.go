package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const (
	defaultTopK = 5
	maxTopK     = 50
)

// Retriever embeds a query and fetches the nearest chunks from the index.
type Retriever struct {
	embedder      ports.Embedder
	index         ports.VectorIndex
	embedTimeout  time.Duration
	searchTimeout time.Duration
}

func NewRetriever(embedder ports.Embedder, index ports.VectorIndex, embedTimeout, searchTimeout time.Duration) *Retriever {
	return &Retriever{
		embedder:      embedder,
		index:         index,
		embedTimeout:  embedTimeout,
		searchTimeout: searchTimeout,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.CandidateChunk, error) {
	topK = clampTopK(topK)

	embedCtx, cancel := withOptionalTimeout(ctx, r.embedTimeout)
	vector, err := r.embedder.EmbedQuery(embedCtx, query)
	cancel()
	if err != nil {
		return nil, wrapKind(domain.ErrEmbeddingUnavailable, "embed query", err)
	}
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed query", errors.New("embedding service returned no vector"))
	}

	searchCtx, cancel := withOptionalTimeout(ctx, r.searchTimeout)
	defer cancel()
	candidates, err := r.index.Search(searchCtx, vector, topK)
	if err != nil {
		return nil, wrapKind(domain.ErrVectorSearchUnavailable, "search vector index", err)
	}
	return candidates, nil
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return defaultTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// wrapKind tags err with kind unless it already carries it.
func wrapKind(kind error, op string, err error) error {
	if domain.IsKind(err, kind) {
		return err
	}
	return domain.WrapError(kind, op, err)
}
