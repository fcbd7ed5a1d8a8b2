// Package memory is an in-process vector index using brute-force cosine similarity.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

type entry struct {
	chunk  domain.ChunkInput
	vector []float32
	norm   float64
}

type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]entry
}

func New() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Upsert replaces entries by chunk id. The first vector fixes the dimension.
func (i *Index) Upsert(_ context.Context, chunks []domain.ChunkInput, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "memory upsert", fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors)))
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for idx, vec := range vectors {
		if len(vec) == 0 {
			return domain.WrapError(domain.ErrInvalidInput, "memory upsert", fmt.Errorf("empty vector for chunk %s", chunks[idx].ID))
		}
		if i.dimension == 0 {
			i.dimension = len(vec)
		}
		if len(vec) != i.dimension {
			return domain.WrapError(domain.ErrInvalidInput, "memory upsert", fmt.Errorf("vector dimension %d, index has %d", len(vec), i.dimension))
		}
	}
	for idx, chunk := range chunks {
		vec := append([]float32(nil), vectors[idx]...)
		i.entries[chunk.ID] = entry{chunk: chunk, vector: vec, norm: norm(vec)}
	}
	return nil
}

func (i *Index) Search(ctx context.Context, queryVector []float32, topK int) ([]domain.CandidateChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrVectorSearchUnavailable, "memory search", err)
	}
	if topK <= 0 {
		return []domain.CandidateChunk{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.dimension != 0 && len(queryVector) != i.dimension {
		return nil, domain.WrapError(domain.ErrInvalidInput, "memory search", fmt.Errorf("query dimension %d, index has %d", len(queryVector), i.dimension))
	}

	queryNorm := norm(queryVector)
	out := make([]domain.CandidateChunk, 0, len(i.entries))
	for _, e := range i.entries {
		out = append(out, domain.CandidateChunk{
			ID:         e.chunk.ID,
			Content:    e.chunk.Content,
			SourceURL:  e.chunk.SourceURL,
			ChunkIndex: e.chunk.ChunkIndex,
			Score:      cosine(queryVector, e.vector, queryNorm, e.norm),
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ID < out[b].ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
