package models

// Enclosure is a media attachment announced by a feed item
type Enclosure struct {
	Type string `json:"type"`
	Href string `json:"href"`
}

// FeedEntry represents a single syndicated item as read from a feed.
// Entries are never persisted; the ingestion run turns them into CandidateRecords.
type FeedEntry struct {
	Title      string      `json:"title"`
	Link       string      `json:"link"`
	Summary    string      `json:"summary"`
	Enclosures []Enclosure `json:"enclosures,omitempty"`
	Thumbnail  string      `json:"thumbnail,omitempty"`
}
