package domain

import "time"

// Page is pre-scraped page text handed over by the crawler.
type Page struct {
	SourceURL  string    `json:"sourceUrl"`
	Paragraphs []string  `json:"paragraphs,omitempty"`
	Text       string    `json:"text,omitempty"`
	ScrapedAt  time.Time `json:"scrapedAt"`
}

type ChunkInput struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	SourceURL  string    `json:"sourceUrl"`
	ChunkIndex int       `json:"chunkIndex"`
	ScrapedAt  time.Time `json:"scrapedAt"`
	QueuedAt   time.Time `json:"queuedAt"`
}

type IngestReport struct {
	Pages    int      `json:"pages"`
	Chunks   int      `json:"chunks"`
	ChunkIDs []string `json:"chunkIds"`
}

type ExtractedEntities struct {
	Products    []string `json:"products"`
	Categories  []string `json:"categories"`
	Ingredients []string `json:"ingredients"`
	Topics      []string `json:"topics"`
}

func (e ExtractedEntities) Empty() bool {
	return len(e.Products) == 0 && len(e.Categories) == 0 && len(e.Ingredients) == 0 && len(e.Topics) == 0
}

// CountByType keys counts by the entity type names used in entity bags.
func (e ExtractedEntities) CountByType() map[string]int {
	return map[string]int{
		EntityProduct:    len(e.Products),
		EntityCategory:   len(e.Categories),
		EntityIngredient: len(e.Ingredients),
		EntityTopic:      len(e.Topics),
	}
}
