package models

// Bookmark is a raw bookmark record as read from the bookmark source file.
type Bookmark struct {
	Site     string   `json:"site"`
	Category []string `json:"category"`
	Tag      []string `json:"tag"`
}

// EnrichedBookmark is a Bookmark augmented with fetched page text and an
// optional embedding vector.
type EnrichedBookmark struct {
	Bookmark
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// HasEmbedding reports whether the record carries a vector.
func (e EnrichedBookmark) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// SearchResult is an EnrichedBookmark scored against a query.
type SearchResult struct {
	EnrichedBookmark
	Similarity float64 `json:"similarity"`
}

// Normalized returns a copy of the bookmark whose slices are never nil, so
// they serialize as [] instead of null.
func (b Bookmark) Normalized() Bookmark {
	out := Bookmark{Site: b.Site}
	out.Category = append(make([]string, 0, len(b.Category)), b.Category...)
	out.Tag = append(make([]string, 0, len(b.Tag)), b.Tag...)
	return out
}
