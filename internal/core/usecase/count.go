package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const maxListedCategories = 3

// CountResolver answers aggregate product count questions from the graph.
type CountResolver struct {
	graph   ports.EntityGraph
	lexicon *lexicon.Lexicon
	timeout time.Duration
}

func NewCountResolver(graph ports.EntityGraph, lx *lexicon.Lexicon, timeout time.Duration) *CountResolver {
	if lx == nil {
		lx = lexicon.Default()
	}
	return &CountResolver{graph: graph, lexicon: lx, timeout: timeout}
}

func (uc *CountResolver) Resolve(ctx context.Context, query string, countIntent domain.CountIntent) (*domain.CountResult, error) {
	if countIntent != domain.CountIntentTotal && countIntent != domain.CountIntentCategory {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve count", fmt.Errorf("unsupported count intent %q", countIntent))
	}

	counts, err := uc.fetchCounts(ctx)
	if err != nil {
		return nil, err
	}

	if countIntent == domain.CountIntentTotal {
		return totalCountResult(counts.TotalProducts, false), nil
	}

	matched := matchCategories(uc.lexicon, uc.lexicon.CategoryKeywords(query), counts.Categories)
	if len(matched) == 0 {
		return totalCountResult(counts.TotalProducts, true), nil
	}

	// Products that sit in several matched categories are counted once per
	// category.
	sum := 0
	for _, name := range matched {
		sum += counts.Categories[name]
	}

	return &domain.CountResult{
		Intent:     domain.CountIntentCategory,
		Count:      sum,
		Message:    categoryCountMessage(sum, matched),
		Categories: matched,
	}, nil
}

func (uc *CountResolver) fetchCounts(ctx context.Context) (domain.CategoryCounts, error) {
	callCtx := ctx
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	counts, err := uc.graph.AggregateCounts(callCtx)
	if err != nil {
		if domain.IsKind(err, domain.ErrGraphUnavailable) {
			return domain.CategoryCounts{}, err
		}
		return domain.CategoryCounts{}, domain.WrapError(domain.ErrGraphUnavailable, "aggregate counts", err)
	}
	return counts, nil
}

func totalCountResult(total int, fallback bool) *domain.CountResult {
	msg := fmt.Sprintf("There are %d products listed in total.", total)
	if fallback {
		msg = fmt.Sprintf("Sorry, I couldn't find a matching product category. There are %d products listed in total.", total)
	}
	return &domain.CountResult{
		Intent:   domain.CountIntentTotal,
		Count:    total,
		Message:  msg,
		Fallback: fallback,
	}
}

func categoryCountMessage(count int, categories []string) string {
	labels := categories
	suffix := ""
	if len(labels) > maxListedCategories {
		labels = labels[:maxListedCategories]
		suffix = " and more"
	}
	return fmt.Sprintf("There are %d products in %s%s.", count, strings.Join(labels, ", "), suffix)
}

// matchCategories returns the sorted category names hit by any keyword.
func matchCategories(lx *lexicon.Lexicon, keywords []string, categories map[string]int) []string {
	if len(keywords) == 0 || len(categories) == 0 {
		return nil
	}

	hits := make(map[string]struct{})
	for name := range categories {
		folded := lexicon.Fold(name)
		for _, kw := range keywords {
			if categoryMatches(lx, folded, kw) {
				hits[name] = struct{}{}
				break
			}
		}
	}

	out := make([]string, 0, len(hits))
	for name := range hits {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func categoryMatches(lx *lexicon.Lexicon, category, keyword string) bool {
	if category == keyword {
		return true
	}
	for _, syn := range lx.Synonyms(keyword) {
		if category == syn {
			return true
		}
	}
	// Whole-word prefix or suffix: "coffee" hits "coffee drinks" and
	// "instant coffee" but not "coffeemate".
	return strings.HasPrefix(category, keyword+" ") || strings.HasSuffix(category, " "+keyword)
}
