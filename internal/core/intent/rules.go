package intent

import (
	"regexp"
	"strings"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

var storePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bwhere (can|could|do|should) (i|we|you) (buy|get|find|purchase)\b`),
	regexp.MustCompile(`\bwhere to (buy|get|find|purchase)\b`),
	regexp.MustCompile(`\bfind (a|the|nearest|closest)? ?(store|shop|retailer|supermarket)s?\b`),
	regexp.MustCompile(`\b(places|stores|shops) (to|that) (get|buy|sell|carry)\b`),
	regexp.MustCompile(`\bwhich (stores?|shops?|retailers?) (sell|carry|stock|have)\b`),
	regexp.MustCompile(`\b(near|nearest|close to|around) me\b`),
	regexp.MustCompile(`\b(nearby|nearest) (store|shop|retailer)s?\b`),
	regexp.MustCompile(`\bbuy .* (near|nearby|in my area|locally)\b`),
}

var totalExact = map[string]struct{}{
	"total number of products available":  {},
	"how many nestle products are listed": {},
}

var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bhow many (nestl[eé]?)? ?(products|items)? (are )?(available|listed)?\b`),
	regexp.MustCompile(`\btotal number of (products|items)\b`),
	regexp.MustCompile(`\bwhat is the total (number|amount) of (products|items)\b`),
	regexp.MustCompile(`\b(how many|number of|count of|list of|total)\b.*\b(nestl[eé]?|products?|items?)\b`),
}

var (
	totalExclusion = regexp.MustCompile(`\b(category|categories|under|related to|type)\b`)
	countVerb      = regexp.MustCompile(`\b(how many|total|number of|count of|list of|available)\b`)
	countNoun      = regexp.MustCompile(`\b(nestl[eé]?|product|products|item|items|category|categories)\b`)
)

// RuleHits records which hand-built patterns fired for a query. Count is
// empty when no count pattern matched.
type RuleHits struct {
	Store bool
	Count domain.CountIntent
}

// MatchRules runs the regex library over a query.
func MatchRules(query string) RuleHits {
	text := canonical(query)
	return RuleHits{
		Store: matchesAny(storePatterns, text),
		Count: countRule(text),
	}
}

func countRule(text string) domain.CountIntent {
	if text == "" {
		return ""
	}
	if _, ok := totalExact[text]; ok {
		return domain.CountIntentTotal
	}
	if matchesAny(totalPatterns, text) && !totalExclusion.MatchString(text) {
		return domain.CountIntentTotal
	}
	if countVerb.MatchString(text) && countNoun.MatchString(text) {
		return domain.CountIntentCategory
	}
	return ""
}

// canonical lowercases, folds diacritics, drops trailing punctuation and
// collapses whitespace.
func canonical(query string) string {
	text := whitespaceRun.ReplaceAllString(lexicon.Fold(query), " ")
	return strings.TrimRight(strings.TrimSpace(text), "?!. ")
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
