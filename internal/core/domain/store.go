package domain

type Product struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Store struct {
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	City     string    `json:"city"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Products []Product `json:"products,omitempty"`
}

type StoreQuery struct {
	Query    string
	Product  string
	Lat      float64
	Lng      float64
	RadiusKm float64
}

type StoreMatch struct {
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	DistanceKm float64   `json:"distance"`
	Products   []Product `json:"products"`
}

type StoreResult struct {
	Stores         []StoreMatch `json:"stores"`
	MatchedProduct string       `json:"matchedProduct,omitempty"`
}
