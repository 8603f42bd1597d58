package model

import "time"

// Review is a single customer review as returned by the places provider.
// Immutable once fetched; only Text and Rating feed the analyzer.
type Review struct {
	Text       string `json:"text"`
	Rating     int    `json:"rating"`
	Time       string `json:"time,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
}

// Restaurant is the normalized place record cached under restaurant:<id>.
type Restaurant struct {
	PlaceID     string    `json:"placeId"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Rating      float64   `json:"rating"`
	Reviews     []Review  `json:"reviews"`
	LastFetched time.Time `json:"lastFetched"`
}

// Dish is one ranked recommendation produced by the analyzer.
// Rank starts at 1 for the most recommended dish.
type Dish struct {
	Name        string `json:"name"`
	Rank        int    `json:"rank"`
	Description string `json:"description"`
	Quote       string `json:"quote"`
	Mentions    int    `json:"mentions,omitempty"`
}

// Analysis is the dish list cached under analysis:<id>.
type Analysis struct {
	Dishes       []Dish    `json:"dishes"`
	LastAnalyzed time.Time `json:"lastAnalyzed"`
}

// RecentEntry is one element of the bounded recent:restaurants list,
// most-recent-first, deduplicated by place ID.
type RecentEntry struct {
	PlaceID   string    `json:"placeId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}
