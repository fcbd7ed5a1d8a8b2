package lexicon

// Built-in tables. They are copied into every Lexicon on construction and
// never mutated afterwards.

var defaultStopwords = []string{
	"the", "and", "for", "with", "this", "that", "are", "was", "were", "but",
	"about", "from", "into", "when", "what", "which", "while", "where", "how",
	"have", "has", "had", "been", "will", "would", "should", "can", "could",
	"a", "an", "of", "in", "on", "to", "as", "is", "it", "by", "or", "at",
	"be", "not", "no", "so", "if", "do", "does", "did",
}

// Category stopwords are stripped in addition to the general ones before
// matching count queries against category names.
var defaultCategoryStopwords = []string{
	"product", "products", "item", "items", "category", "categories", "food",
	"support", "tools", "prepared", "other", "total", "many", "under", "over",
	"less", "more", "around", "with",
}

var defaultSynonyms = map[string][]string{
	"boost": {
		"boost®", "boost® kids", "boost® kids essentials",
		"boost® kids essentials chocolate", "boost® kids essentials vanilla",
	},
	"aero": {
		"aero", "aero brownies", "aero bubbly hot chocolate",
		"aero chocolate - feel the bubbles melt", "aero duo",
	},
	"nutritional": {
		"nutritional benefits of milk", "nutritional beverages", "nutritional drinks",
		"nutritional enrichment", "nutritional information (1 serving = 35 calories or less)",
	},
	"cocoa": {
		"cocoa", "cocoa butter", "cocoa farming", "cocoa farming support", "cocoa powder",
	},
	"sustainable": {
		"sustainable agriculture", "sustainable cocoa farming practices",
		"sustainable coffee farming", "sustainable cuisine", "sustainable cultivation",
	},
	"global": {"global", "global connectivity", "global recipes"},
	"food": {
		"food banks canada partnership", "food communications", "food factory",
		"food network canada", "food preservation",
	},
	"nestle": {
		"nestlé", "nestlé aero novelty bunny 94g", "nestlé aero truffle brownie 105 g bar",
		"nestlé baby & me", "nestlé brands",
	},
	"hot": {
		"hot and iced chocolate", "hot chocolate", "hot chocolate recipe", "hot chocolate recipes",
	},
	"vanilla": {
		"vanilla", "vanilla bean", "vanilla bean ice cream", "vanilla beans",
		"vanilla caramel half dipped frozen dessert bars",
	},
}

var defaultTypeWeights = map[string]float64{
	"product":    3,
	"category":   2,
	"ingredient": 1,
	"topic":      1,
}

var defaultProductKeywords = []string{
	"kitkat", "smarties", "coffee crisp", "aero", "nescafe", "boost",
	"haagen-dazs", "turtles", "nesquik", "delissio", "purina", "gerber",
}

const (
	defaultTypeWeight   = 1.0
	defaultRerankWeight = 0.1
	minTokenLength      = 3
)
