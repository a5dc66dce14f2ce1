// Package paper holds the content record aggregate and the value types that
// travel with it between the ingestion, query and feed layers.
package paper

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// SourceArxiv is the source tag of records ingested from arXiv.
const SourceArxiv = "arxiv"

// Metadata is the free-form descriptive part of a paper.
type Metadata struct {
	Authors       []string `json:"authors,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	PaperID       string   `json:"paper_id,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
}

// HasAuthors reports whether author data has been recorded.
func (m Metadata) HasAuthors() bool { return len(m.Authors) > 0 }

// Paper is one stored content record.
type Paper struct {
	ID          int64
	ExternalID  string
	Title       string
	Abstract    string
	Source      string
	URL         string
	PublishedAt *time.Time
	Metadata    Metadata
	Embedding   []float32
}

// New builds a not-yet-stored paper. ExternalID and Title are trimmed and
// must be non-empty.
func New(externalID, title, abstract, source, url string, publishedAt *time.Time, md Metadata) (Paper, error) {
	externalID = strings.TrimSpace(externalID)
	title = strings.TrimSpace(title)
	if externalID == "" {
		return Paper{}, fmt.Errorf("external id is required: %w", domain.ErrInvalidRequest)
	}
	if title == "" {
		return Paper{}, fmt.Errorf("title is required: %w", domain.ErrInvalidRequest)
	}
	return Paper{
		ExternalID:  externalID,
		Title:       title,
		Abstract:    strings.TrimSpace(abstract),
		Source:      source,
		URL:         url,
		PublishedAt: publishedAt,
		Metadata:    md,
	}, nil
}

// HasEmbedding reports whether the paper carries a vector.
func (p Paper) HasEmbedding() bool { return len(p.Embedding) > 0 }

// ArxivID returns the last path segment of an arXiv identifier URL,
// e.g. "2101.00001v1" for "http://arxiv.org/abs/2101.00001v1".
func ArxivID(externalID string) string {
	s := strings.TrimRight(strings.TrimSpace(externalID), "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// CheckDim validates a vector against the store dimensionality.
// A zero dim disables the check.
func CheckDim(vec []float32, dim int) error {
	if dim > 0 && len(vec) != dim {
		return fmt.Errorf("got %d, want %d: %w", len(vec), dim, domain.ErrVectorDimMismatch)
	}
	return nil
}
