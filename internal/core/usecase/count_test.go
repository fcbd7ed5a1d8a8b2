package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
)

func testCounts() domain.CategoryCounts {
	return domain.CategoryCounts{
		TotalProducts: 450,
		Categories: map[string]int{
			"coffee":          40,
			"instant coffee":  12,
			"coffee drinks":   8,
			"coffeemate":      5,
			"chocolate bars":  30,
			"hot chocolate":   7,
			"frozen desserts": 20,
			"cocoa powder":    3,
			"baby food":       15,
			"pet food":        25,
		},
	}
}

func TestCountResolverTotal(t *testing.T) {
	graph := &graphFake{counts: testCounts()}
	uc := NewCountResolver(graph, lexicon.Default(), 0)

	res, err := uc.Resolve(context.Background(), "How many Nestlé products are listed?", domain.CountIntentTotal)
	require.NoError(t, err)

	assert.Equal(t, 450, res.Count)
	assert.Contains(t, res.Message, "450")
	assert.Equal(t, domain.CountIntentTotal, res.Intent)
	assert.False(t, res.Fallback)
}

func TestCountResolverCategory(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCount  int
		wantLabels []string
		andMore    bool
	}{
		{
			name:       "whole-word prefix and suffix matches are summed",
			query:      "How many coffee products are there?",
			wantCount:  40 + 12 + 8,
			wantLabels: []string{"coffee", "coffee drinks", "instant coffee"},
		},
		{
			name:       "synonym expansion reaches exact category names",
			query:      "how many cocoa items",
			wantCount:  3,
			wantLabels: []string{"cocoa powder"},
		},
		{
			name:      "more than three labels are abbreviated",
			query:     "how many chocolate and coffee products",
			wantCount: 40 + 12 + 8 + 30 + 7,
			andMore:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewCountResolver(&graphFake{counts: testCounts()}, lexicon.Default(), 0)

			res, err := uc.Resolve(context.Background(), tt.query, domain.CountIntentCategory)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCount, res.Count)
			assert.Equal(t, domain.CountIntentCategory, res.Intent)
			if tt.wantLabels != nil {
				assert.Equal(t, tt.wantLabels, res.Categories)
			}
			assert.Equal(t, tt.andMore, strings.Contains(res.Message, "and more"))
			assert.NotContains(t, res.Categories, "coffeemate")
		})
	}
}

func TestCountResolverFallbackIsIdempotent(t *testing.T) {
	graph := &graphFake{counts: testCounts()}
	uc := NewCountResolver(graph, lexicon.Default(), 0)

	first, err := uc.Resolve(context.Background(), "how many products in the gardening category", domain.CountIntentCategory)
	require.NoError(t, err)
	assert.True(t, first.Fallback)
	assert.Equal(t, 450, first.Count)
	assert.Contains(t, first.Message, "Sorry")

	for i := 0; i < 5; i++ {
		again, err := uc.Resolve(context.Background(), "how many products in the gardening category", domain.CountIntentCategory)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 6, graph.countCalls)
}

func TestCountResolverGraphError(t *testing.T) {
	uc := NewCountResolver(&graphFake{countsErr: errors.New("bolt connection refused")}, lexicon.Default(), 0)

	_, err := uc.Resolve(context.Background(), "how many products", domain.CountIntentTotal)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrGraphUnavailable))
}

func TestCountResolverRejectsSearchIntent(t *testing.T) {
	graph := &graphFake{counts: testCounts()}
	uc := NewCountResolver(graph, lexicon.Default(), 0)

	_, err := uc.Resolve(context.Background(), "how many products", domain.CountIntentSearch)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
	assert.Equal(t, 0, graph.countCalls)
}
