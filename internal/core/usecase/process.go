package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

type ProcessChunkUseCase struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	extractor ports.EntityExtractor
	graph     ports.EntityGraph
	logger    *slog.Logger
	onLinked  func(chunk domain.ChunkInput, entities domain.ExtractedEntities)
}

type ProcessOption func(*ProcessChunkUseCase)

// WithLinkedHook is called after a chunk's entities are merged into the graph.
func WithLinkedHook(fn func(chunk domain.ChunkInput, entities domain.ExtractedEntities)) ProcessOption {
	return func(uc *ProcessChunkUseCase) {
		uc.onLinked = fn
	}
}

func NewProcessChunkUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	extractor ports.EntityExtractor,
	graph ports.EntityGraph,
	logger *slog.Logger,
	opts ...ProcessOption,
) *ProcessChunkUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	uc := &ProcessChunkUseCase{
		embedder:  embedder,
		index:     index,
		extractor: extractor,
		graph:     graph,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ProcessChunkUseCase) ProcessChunk(ctx context.Context, chunk domain.ChunkInput) error {
	if err := validateChunk(chunk); err != nil {
		return err
	}

	vectors, err := uc.embed(ctx, chunk.Content)
	if err != nil {
		return err
	}

	if err := uc.index.Upsert(ctx, []domain.ChunkInput{chunk}, vectors); err != nil {
		return fmt.Errorf("upsert chunk in vector index: %w", err)
	}

	return uc.linkEntities(ctx, chunk)
}

func validateChunk(chunk domain.ChunkInput) error {
	switch {
	case strings.TrimSpace(chunk.ID) == "":
		return domain.WrapError(domain.ErrInvalidInput, "process chunk", errors.New("chunk id is required"))
	case strings.TrimSpace(chunk.Content) == "":
		return domain.WrapError(domain.ErrInvalidInput, "process chunk", errors.New("chunk content is empty"))
	}
	return nil
}

func (uc *ProcessChunkUseCase) embed(ctx context.Context, content string) ([][]float32, error) {
	vectors, err := uc.embedder.Embed(ctx, []string{content})
	if err != nil {
		return nil, wrapKind(domain.ErrEmbeddingUnavailable, "embed chunk", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, domain.WrapError(
			domain.ErrEmbeddingUnavailable,
			"embed chunk",
			fmt.Errorf("expected one vector, got %d", len(vectors)),
		)
	}
	return vectors, nil
}

// linkEntities treats extraction failures as "no entities": the chunk is
// already searchable by vector.
func (uc *ProcessChunkUseCase) linkEntities(ctx context.Context, chunk domain.ChunkInput) error {
	if uc.extractor == nil || uc.graph == nil {
		return nil
	}

	entities, err := uc.extractor.ExtractEntities(ctx, chunk.Content)
	if err != nil {
		uc.logger.Warn("entity_extraction_failed", "chunk_id", chunk.ID, "source_url", chunk.SourceURL, "error", err)
		return nil
	}
	if entities.Empty() {
		return nil
	}

	if err := uc.graph.MergeChunkEntities(ctx, chunk.ID, entities); err != nil {
		return fmt.Errorf("merge chunk entities: %w", err)
	}
	if uc.onLinked != nil {
		uc.onLinked(chunk, entities)
	}
	return nil
}
