package intent

import "github.com/kirillkom/graphrag-assistant/internal/core/domain"

type decisionRow struct {
	name    string
	applies func(RuleHits) bool
	resolve func(RuleHits, domain.SemanticLabel) domain.Intent
}

// decisionTable is evaluated top to bottom; the first applicable row wins.
// Count patterns beat store patterns, and any rule hit beats the semantic label.
var decisionTable = []decisionRow{
	{
		name:    "count_rule",
		applies: func(h RuleHits) bool { return h.Count != "" },
		resolve: func(h RuleHits, _ domain.SemanticLabel) domain.Intent {
			return domain.Intent{Main: domain.MainIntentInfo, Count: h.Count}
		},
	},
	{
		name:    "store_rule",
		applies: func(h RuleHits) bool { return h.Store },
		resolve: func(_ RuleHits, _ domain.SemanticLabel) domain.Intent {
			return domain.Intent{Main: domain.MainIntentStore, Count: domain.CountIntentSearch}
		},
	},
	{
		name:    "semantic_label",
		applies: func(RuleHits) bool { return true },
		resolve: func(_ RuleHits, label domain.SemanticLabel) domain.Intent {
			if label.IsFallback() {
				return domain.DefaultIntent()
			}
			return sanitize(label.Intent)
		},
	},
}

// Decide resolves rule hits and a semantic label into the final intent.
func Decide(hits RuleHits, label domain.SemanticLabel) domain.Intent {
	intent, _ := decide(hits, label)
	return intent
}

func decide(hits RuleHits, label domain.SemanticLabel) (domain.Intent, string) {
	for _, row := range decisionTable {
		if row.applies(hits) {
			return row.resolve(hits, label), row.name
		}
	}
	return domain.DefaultIntent(), "default"
}

func sanitize(in domain.Intent) domain.Intent {
	out := domain.DefaultIntent()
	if main, ok := domain.ParseMainIntent(string(in.Main)); ok {
		out.Main = main
	}
	if count, ok := domain.ParseCountIntent(string(in.Count)); ok {
		out.Count = count
	}
	return out
}
