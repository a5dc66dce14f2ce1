package paper

import "time"

// RawEntry is one remote entry as parsed, before validation.
// Err carries an entry-level parse failure; such entries are never stored.
type RawEntry struct {
	ExternalID  string
	Title       string
	Abstract    string
	URL         string
	PublishedAt *time.Time
	Authors     []string
	Categories  []string
	Source      string
	Err         error
}

// FetchRequest selects entries from a remote source. Exactly one of Query,
// Category or IDs is expected to be set.
type FetchRequest struct {
	Query      string
	Category   string
	IDs        []string
	MaxResults int
}
