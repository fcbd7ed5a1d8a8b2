package domain

// Entity types linked to chunks in the graph store.
const (
	EntityProduct    = "product"
	EntityCategory   = "category"
	EntityIngredient = "ingredient"
	EntityTopic      = "topic"
)

// CandidateChunk is a content unit returned by the vector index.
// Score is engine dependent and has no fixed range.
type CandidateChunk struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	SourceURL  string  `json:"sourceUrl"`
	ChunkIndex int     `json:"chunkIndex"`
	Score      float64 `json:"score"`
}

// EntityBag maps an entity type to display names linked to one chunk.
type EntityBag map[string][]string

func (b EntityBag) Len() int {
	n := 0
	for _, names := range b {
		n += len(names)
	}
	return n
}

type Match struct {
	CandidateChunk
	EntityScore float64   `json:"entityScore"`
	FinalScore  float64   `json:"finalScore"`
	Entities    EntityBag `json:"entities"`
}

type Source struct {
	SourceURL  string    `json:"sourceUrl"`
	ChunkIndex int       `json:"chunkIndex"`
	Entities   EntityBag `json:"entities"`
	Score      float64   `json:"score"`
}

type SearchResult struct {
	Intent             Intent       `json:"intent"`
	Count              *CountResult `json:"count,omitempty"`
	Matches            []Match      `json:"matches"`
	EnrichmentFailures int          `json:"-"`
}

type Answer struct {
	Text    string       `json:"answer"`
	Sources []Source     `json:"sources"`
	Intent  Intent       `json:"intent"`
	Count   *CountResult `json:"count,omitempty"`
	Stores  []StoreMatch `json:"stores,omitempty"`
}
