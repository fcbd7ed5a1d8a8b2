package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	lx := Default()

	tests := []struct {
		name     string
		query    string
		contains []string
		excludes []string
	}{
		{
			name:     "drops short tokens and stopwords",
			query:    "Is Boost good for kids?",
			contains: []string{"boost", "good", "kids"},
			excludes: []string{"is", "for"},
		},
		{
			name:     "expands synonyms",
			query:    "boost",
			contains: []string{"boost", "boost® kids essentials vanilla"},
		},
		{
			name:     "folds diacritics",
			query:    "Nestlé chocolate",
			contains: []string{"nestle", "nestle brands", "chocolate"},
			excludes: []string{"nestlé"},
		},
		{
			name:     "splits on punctuation runs",
			query:    "cocoa---butter,,,recipes",
			contains: []string{"cocoa", "butter", "recipes", "cocoa powder"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lx.Normalize(tt.query)
			for _, kw := range tt.contains {
				assert.Contains(t, got, kw)
			}
			for _, kw := range tt.excludes {
				assert.NotContains(t, got, kw)
			}
		})
	}
}

func TestNormalizeEmptyQueries(t *testing.T) {
	lx := Default()
	for _, q := range []string{"", "   ", "is it a the", "?!", "to be or not to be"} {
		assert.Empty(t, lx.Normalize(q), "query %q", q)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	lx := Default()
	queries := []string{
		"Where can I buy KitKat near me?",
		"How many Nestlé products are listed?",
		"hot chocolate with vanilla and cocoa",
		"",
	}
	for _, q := range queries {
		first := lx.Normalize(q)
		for i := 0; i < 20; i++ {
			require.Equal(t, first, lx.Normalize(q), "query %q", q)
		}
	}
}

func TestCategoryKeywordsStripCategoryStopwords(t *testing.T) {
	lx := Default()
	got := lx.CategoryKeywords("How many products in the coffee category?")
	assert.Equal(t, []string{"coffee"}, got)
}

func TestTypeWeight(t *testing.T) {
	lx := Default()
	assert.Equal(t, 3.0, lx.TypeWeight("product"))
	assert.Equal(t, 2.0, lx.TypeWeight("Category"))
	assert.Equal(t, 1.0, lx.TypeWeight("brand"))
	assert.Equal(t, 0.1, lx.RerankWeight())
}

func TestMatchProductPrefersLongestKeyword(t *testing.T) {
	lx := Default()

	got, ok := lx.MatchProduct("Where can I find Coffee Crisp bars?")
	require.True(t, ok)
	assert.Equal(t, "coffee crisp", got)

	_, ok = lx.MatchProduct("where is the nearest grocery")
	assert.False(t, ok)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	content := `
rerankWeight: 0.25
typeWeights:
  product: 5
synonyms:
  choc: ["chocolate"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	lx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, lx.RerankWeight())
	assert.Equal(t, 5.0, lx.TypeWeight("product"))
	assert.Equal(t, 1.0, lx.TypeWeight("category"))
	assert.Equal(t, []string{"choc", "chocolate"}, lx.Normalize("choc"))
	assert.NotContains(t, lx.Normalize("the boost"), "the")
}

func TestLoadRejectsNegativeWeight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rerankWeight: -1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	lx, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Normalize("aero"), lx.Normalize("aero"))
}
