package model

// Track represents a playable unit in the catalog, a search result or the queue.
// Tracks are values: copies are freely shared between lists.
type Track struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Cover      string  `json:"cover"`    // Cover image reference
	Duration   float64 `json:"duration"` // Declared duration in seconds
	Src        string  `json:"src"`      // Playable source reference
	IsLossless bool    `json:"isLossless,omitempty"`
}

// Album 表示一张专辑
type Album struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Cover       string  `json:"cover"`
	Year        int     `json:"year,omitempty"`
	Description string  `json:"description,omitempty"`
	Tracks      []Track `json:"tracks"`
}
