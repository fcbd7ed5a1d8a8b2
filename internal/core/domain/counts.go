package domain

// CategoryCounts is the aggregate view of the product graph. Category keys are
// lowercase.
type CategoryCounts struct {
	TotalProducts int            `json:"totalProducts"`
	Categories    map[string]int `json:"categories"`
}

type CountResult struct {
	Intent     CountIntent `json:"countIntent"`
	Count      int         `json:"count"`
	Message    string      `json:"message"`
	Categories []string    `json:"categories,omitempty"`
	Fallback   bool        `json:"fallback,omitempty"`
}
