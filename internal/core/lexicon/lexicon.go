// Package lexicon holds the static vocabulary used to turn free-text queries
// into keyword sets: stopwords, synonyms, entity type weights and the product
// name list.
package lexicon

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

var nonWordRun = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Lexicon is immutable after construction and safe for concurrent reads.
type Lexicon struct {
	stopwords         map[string]struct{}
	categoryStopwords map[string]struct{}
	synonyms          map[string][]string
	typeWeights       map[string]float64
	defaultTypeWeight float64
	rerankWeight      float64
	productKeywords   []string
}

// Overrides is the shape of the YAML tuning file. Absent keys keep defaults.
type Overrides struct {
	Stopwords         []string            `yaml:"stopwords"`
	CategoryStopwords []string            `yaml:"categoryStopwords"`
	Synonyms          map[string][]string `yaml:"synonyms"`
	TypeWeights       map[string]float64  `yaml:"typeWeights"`
	DefaultTypeWeight *float64            `yaml:"defaultTypeWeight"`
	RerankWeight      *float64            `yaml:"rerankWeight"`
	ProductKeywords   []string            `yaml:"productKeywords"`
}

func Default() *Lexicon {
	lx, _ := New(Overrides{})
	return lx
}

func New(o Overrides) (*Lexicon, error) {
	lx := &Lexicon{
		stopwords:         toSet(pick(o.Stopwords, defaultStopwords)),
		categoryStopwords: toSet(pick(o.CategoryStopwords, defaultCategoryStopwords)),
		synonyms:          make(map[string][]string),
		typeWeights:       make(map[string]float64),
		defaultTypeWeight: defaultTypeWeight,
		rerankWeight:      defaultRerankWeight,
	}

	synonyms := defaultSynonyms
	if len(o.Synonyms) > 0 {
		synonyms = o.Synonyms
	}
	for key, values := range synonyms {
		folded := make([]string, 0, len(values))
		for _, v := range values {
			if v = Fold(v); v != "" {
				folded = append(folded, v)
			}
		}
		lx.synonyms[Fold(key)] = folded
	}

	weights := defaultTypeWeights
	if len(o.TypeWeights) > 0 {
		weights = o.TypeWeights
	}
	for entityType, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("type weight for %q must be >= 0", entityType)
		}
		lx.typeWeights[strings.ToLower(entityType)] = w
	}
	if o.DefaultTypeWeight != nil {
		if *o.DefaultTypeWeight < 0 {
			return nil, fmt.Errorf("default type weight must be >= 0")
		}
		lx.defaultTypeWeight = *o.DefaultTypeWeight
	}
	if o.RerankWeight != nil {
		// A negative weight would let entity overlap lower the final score.
		if *o.RerankWeight < 0 {
			return nil, fmt.Errorf("rerank weight must be >= 0")
		}
		lx.rerankWeight = *o.RerankWeight
	}

	for _, kw := range pick(o.ProductKeywords, defaultProductKeywords) {
		if kw = Fold(kw); kw != "" {
			lx.productKeywords = append(lx.productKeywords, kw)
		}
	}
	// Longest first so "coffee crisp" wins over a shorter overlapping name.
	sort.SliceStable(lx.productKeywords, func(i, j int) bool {
		return len(lx.productKeywords[i]) > len(lx.productKeywords[j])
	})
	return lx, nil
}

// Load reads a YAML tuning file. An empty path yields the defaults.
func Load(path string) (*Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decode lexicon file: %w", err)
	}
	return New(o)
}

// Normalize turns a raw query into a sorted, de-duplicated keyword set.
func (lx *Lexicon) Normalize(query string) []string {
	return lx.keywords(query, nil)
}

// CategoryKeywords is Normalize with the category stopwords removed as well.
func (lx *Lexicon) CategoryKeywords(query string) []string {
	return lx.keywords(query, lx.categoryStopwords)
}

func (lx *Lexicon) keywords(query string, extraStop map[string]struct{}) []string {
	set := make(map[string]struct{})
	for _, token := range Tokenize(query) {
		if utf8.RuneCountInString(token) < minTokenLength {
			continue
		}
		if _, stop := lx.stopwords[token]; stop {
			continue
		}
		if _, stop := extraStop[token]; stop {
			continue
		}
		set[token] = struct{}{}
		for _, syn := range lx.synonyms[token] {
			set[syn] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for kw := range set {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// Synonyms returns the expansion of a single folded token.
func (lx *Lexicon) Synonyms(token string) []string {
	return lx.synonyms[Fold(token)]
}

func (lx *Lexicon) TypeWeight(entityType string) float64 {
	if w, ok := lx.typeWeights[strings.ToLower(entityType)]; ok {
		return w
	}
	return lx.defaultTypeWeight
}

func (lx *Lexicon) RerankWeight() float64 {
	return lx.rerankWeight
}

// MatchProduct returns the first product keyword contained in text.
func (lx *Lexicon) MatchProduct(text string) (string, bool) {
	folded := Fold(text)
	for _, kw := range lx.productKeywords {
		if strings.Contains(folded, kw) {
			return kw, true
		}
	}
	return "", false
}

// Tokenize lowercases, folds diacritics and splits on non-word runs.
func Tokenize(text string) []string {
	parts := nonWordRun.Split(Fold(text), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Fold lowercases s and strips combining marks, so "Nestlé" becomes "nestle".
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if isASCII(s) {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func pick(override, fallback []string) []string {
	if len(override) > 0 {
		return override
	}
	return fallback
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[Fold(w)] = struct{}{}
	}
	return set
}
