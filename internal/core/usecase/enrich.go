package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const defaultEnrichConcurrency = 8

// Enricher looks up graph entities for candidate chunks. Lookups never fail
// the request: a chunk whose lookup fails gets an empty bag.
type Enricher struct {
	graph       ports.EntityGraph
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

func NewEnricher(graph ports.EntityGraph, timeout time.Duration, concurrency int, logger *slog.Logger) *Enricher {
	if concurrency <= 0 {
		concurrency = defaultEnrichConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{graph: graph, timeout: timeout, concurrency: concurrency, logger: logger}
}

func (e *Enricher) Enrich(ctx context.Context, chunkID string) domain.EntityBag {
	bag, _ := e.lookup(ctx, chunkID)
	return bag
}

// EnrichAll fans out one lookup per candidate and joins before returning.
// bags[i] belongs to candidates[i].
func (e *Enricher) EnrichAll(ctx context.Context, candidates []domain.CandidateChunk) ([]domain.EntityBag, int) {
	bags := make([]domain.EntityBag, len(candidates))
	var failures atomic.Int32

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, candidate := range candidates {
		g.Go(func() error {
			bag, ok := e.lookup(ctx, candidate.ID)
			if !ok {
				failures.Add(1)
			}
			bags[i] = bag
			return nil
		})
	}
	_ = g.Wait()

	return bags, int(failures.Load())
}

func (e *Enricher) lookup(ctx context.Context, chunkID string) (domain.EntityBag, bool) {
	if e.graph == nil || chunkID == "" {
		return domain.EntityBag{}, true
	}

	callCtx, cancel := withOptionalTimeout(ctx, e.timeout)
	defer cancel()

	bag, err := e.graph.EntitiesFor(callCtx, chunkID)
	if err != nil {
		e.logger.Warn("enrich_chunk_failed", "chunk_id", chunkID, "error", err)
		return domain.EntityBag{}, false
	}
	if bag == nil {
		bag = domain.EntityBag{}
	}
	return bag, true
}
