package intent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

type fakeLabeler struct {
	label domain.SemanticLabel
	calls int
	delay time.Duration
}

func (f *fakeLabeler) Label(ctx context.Context, _ string) domain.SemanticLabel {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.LabelFallback("timeout")
		}
	}
	return f.label
}

func TestMatchRules(t *testing.T) {
	tests := []struct {
		query     string
		wantStore bool
		wantCount domain.CountIntent
	}{
		{"Where can I buy KitKat near me?", true, ""},
		{"find a store that sells Aero", true, ""},
		{"places to get smarties", true, ""},
		{"How many Nestlé products are listed?", false, domain.CountIntentTotal},
		{"total number of products available", false, domain.CountIntentTotal},
		{"What is the total number of items", false, domain.CountIntentTotal},
		{"How many products are in the coffee category?", false, domain.CountIntentCategory},
		{"how many items under frozen desserts", false, domain.CountIntentCategory},
		{"Is Boost good for kids?", false, ""},
		{"ingredients of aero bubbly", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hits := MatchRules(tt.query)
			assert.Equal(t, tt.wantStore, hits.Store, "store rule")
			assert.Equal(t, tt.wantCount, hits.Count, "count rule")
		})
	}
}

func TestDecideTable(t *testing.T) {
	info := domain.LabelOK(domain.Intent{Main: domain.MainIntentInfo, Count: domain.CountIntentSearch})
	storeLabel := domain.LabelOK(domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch})
	categoryLabel := domain.LabelOK(domain.Intent{Main: domain.MainIntentInfo, Count: domain.CountIntentCategory})

	tests := []struct {
		name  string
		hits  RuleHits
		label domain.SemanticLabel
		want  domain.Intent
	}{
		{
			name:  "store rule overrides info label",
			hits:  RuleHits{Store: true},
			label: info,
			want:  domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch},
		},
		{
			name:  "total rule overrides any label",
			hits:  RuleHits{Count: domain.CountIntentTotal},
			label: storeLabel,
			want:  domain.Intent{Main: domain.MainIntentInfo, Count: domain.CountIntentTotal},
		},
		{
			name:  "count rule beats store rule",
			hits:  RuleHits{Store: true, Count: domain.CountIntentCategory},
			label: info,
			want:  domain.Intent{Main: domain.MainIntentInfo, Count: domain.CountIntentCategory},
		},
		{
			name:  "store rule clears semantic count",
			hits:  RuleHits{Store: true},
			label: categoryLabel,
			want:  domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch},
		},
		{
			name:  "no rule uses semantic label",
			hits:  RuleHits{},
			label: storeLabel,
			want:  domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch},
		},
		{
			name:  "no rule and fallback label uses default",
			hits:  RuleHits{},
			label: domain.LabelFallback("malformed"),
			want:  domain.DefaultIntent(),
		},
		{
			name:  "unknown label values are sanitized",
			hits:  RuleHits{},
			label: domain.LabelOK(domain.Intent{Main: "shopping", Count: "lots"}),
			want:  domain.DefaultIntent(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.hits, tt.label))
		})
	}
}

func TestClassifierAlwaysCallsSemanticLabeler(t *testing.T) {
	labeler := &fakeLabeler{label: domain.LabelOK(domain.Intent{Main: domain.MainIntentInfo, Count: domain.CountIntentSearch})}
	c := NewClassifier(labeler)

	got := c.Classify(context.Background(), "Where can I buy KitKat near me?")

	assert.Equal(t, domain.MainIntentStore, got.Main)
	assert.Equal(t, 1, labeler.calls)
}

func TestClassifierTotalRuleWinsOverSemanticLabel(t *testing.T) {
	labeler := &fakeLabeler{label: domain.LabelOK(domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch})}
	c := NewClassifier(labeler)

	got := c.Classify(context.Background(), "How many Nestlé products are listed?")

	assert.Equal(t, domain.CountIntentTotal, got.Count)
}

func TestClassifierFallsBackOnSemanticTimeout(t *testing.T) {
	labeler := &fakeLabeler{
		label: domain.LabelOK(domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch}),
		delay: time.Second,
	}
	c := NewClassifier(labeler, WithSemanticTimeout(10*time.Millisecond))

	got := c.Classify(context.Background(), "Is Boost good for kids?")

	assert.Equal(t, domain.DefaultIntent(), got)
}

func TestClassifierWithoutLabeler(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, domain.DefaultIntent(), c.Classify(context.Background(), "Is Boost good for kids?"))
	assert.Equal(t, domain.MainIntentStore, c.Classify(context.Background(), "find a store near me").Main)
}
