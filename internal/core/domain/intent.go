package domain

import "strings"

type MainIntent string

const (
	MainIntentStore MainIntent = "store"
	MainIntentInfo  MainIntent = "info"
)

type CountIntent string

const (
	CountIntentTotal    CountIntent = "total"
	CountIntentCategory CountIntent = "category"
	CountIntentSearch   CountIntent = "search"
)

// Intent is computed once per query.
type Intent struct {
	Main  MainIntent  `json:"mainIntent"`
	Count CountIntent `json:"countIntent"`
}

func DefaultIntent() Intent {
	return Intent{Main: MainIntentInfo, Count: CountIntentSearch}
}

// IsCount reports whether the query must be answered by the count resolver.
func (i Intent) IsCount() bool {
	return i.Count == CountIntentTotal || i.Count == CountIntentCategory
}

func ParseMainIntent(raw string) (MainIntent, bool) {
	switch MainIntent(strings.ToLower(strings.TrimSpace(raw))) {
	case MainIntentStore:
		return MainIntentStore, true
	case MainIntentInfo:
		return MainIntentInfo, true
	default:
		return "", false
	}
}

func ParseCountIntent(raw string) (CountIntent, bool) {
	switch CountIntent(strings.ToLower(strings.TrimSpace(raw))) {
	case CountIntentTotal:
		return CountIntentTotal, true
	case CountIntentCategory:
		return CountIntentCategory, true
	case CountIntentSearch:
		return CountIntentSearch, true
	default:
		return "", false
	}
}

// SemanticLabel is the outcome of the model-based intent call: either a
// decoded intent or a fallback carrying the reason the default was used.
type SemanticLabel struct {
	Intent         Intent
	FallbackReason string
}

func LabelOK(intent Intent) SemanticLabel {
	return SemanticLabel{Intent: intent}
}

func LabelFallback(reason string) SemanticLabel {
	if reason == "" {
		reason = "unspecified"
	}
	return SemanticLabel{Intent: DefaultIntent(), FallbackReason: reason}
}

func (l SemanticLabel) IsFallback() bool {
	return l.FallbackReason != ""
}
