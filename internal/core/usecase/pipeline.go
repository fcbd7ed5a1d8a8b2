package usecase

import (
	"context"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
)

// RetrievalPipeline runs retrieve, enrich and rerank for one query.
type RetrievalPipeline struct {
	lexicon   *lexicon.Lexicon
	retriever *Retriever
	enricher  *Enricher
	reranker  *Reranker
}

func NewRetrievalPipeline(lx *lexicon.Lexicon, retriever *Retriever, enricher *Enricher, reranker *Reranker) *RetrievalPipeline {
	if lx == nil {
		lx = lexicon.Default()
	}
	return &RetrievalPipeline{
		lexicon:   lx,
		retriever: retriever,
		enricher:  enricher,
		reranker:  reranker,
	}
}

// Run returns ranked matches and the number of chunks whose enrichment failed.
func (p *RetrievalPipeline) Run(ctx context.Context, query string, topK int) ([]domain.Match, int, error) {
	keywords := p.lexicon.Normalize(query)

	candidates, err := p.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, 0, err
	}
	if len(candidates) == 0 {
		return []domain.Match{}, 0, nil
	}

	bags, failures := p.enricher.EnrichAll(ctx, candidates)
	return p.reranker.Rank(candidates, bags, keywords), failures, nil
}
