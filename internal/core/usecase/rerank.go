package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
)

// Reranker blends vector similarity with keyword overlap on graph entities.
type Reranker struct {
	lexicon *lexicon.Lexicon
}

func NewReranker(lx *lexicon.Lexicon) *Reranker {
	if lx == nil {
		lx = lexicon.Default()
	}
	return &Reranker{lexicon: lx}
}

// EntityScore adds 2*w for every exact entity/keyword hit and w for every
// entity that contains a keyword. Several keywords may score the same entity.
func (r *Reranker) EntityScore(bag domain.EntityBag, keywords []string) float64 {
	if len(bag) == 0 || len(keywords) == 0 {
		return 0
	}

	score := 0.0
	for entityType, names := range bag {
		weight := r.lexicon.TypeWeight(entityType)
		for _, name := range names {
			entity := lexicon.Fold(name)
			if entity == "" {
				continue
			}
			for _, kw := range keywords {
				switch {
				case kw == "":
				case entity == kw:
					score += 2 * weight
				case strings.Contains(entity, kw):
					score += weight
				}
			}
		}
	}
	return score
}

// Combine is non-decreasing in both arguments because the weight is >= 0.
func (r *Reranker) Combine(baseScore, entityScore float64) float64 {
	return baseScore + entityScore*r.lexicon.RerankWeight()
}

// Rank scores every candidate and orders them by final score. bags[i] belongs
// to candidates[i]; a missing bag counts as empty.
func (r *Reranker) Rank(candidates []domain.CandidateChunk, bags []domain.EntityBag, keywords []string) []domain.Match {
	matches := make([]domain.Match, len(candidates))
	for i, candidate := range candidates {
		bag := domain.EntityBag{}
		if i < len(bags) && bags[i] != nil {
			bag = bags[i]
		}
		entityScore := r.EntityScore(bag, keywords)
		matches[i] = domain.Match{
			CandidateChunk: candidate,
			EntityScore:    entityScore,
			FinalScore:     r.Combine(candidate.Score, entityScore),
			Entities:       bag,
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].FinalScore != matches[j].FinalScore {
			return matches[i].FinalScore > matches[j].FinalScore
		}
		return matches[i].Score > matches[j].Score
	})
	return matches
}
