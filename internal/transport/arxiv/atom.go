package arxiv

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type atomEntry struct {
	ID         *string    `xml:"id"`
	Title      *string    `xml:"title"`
	Summary    *string    `xml:"summary"`
	Published  string     `xml:"published"`
	Authors    []string   `xml:"author>name"`
	Links      []atomLink `xml:"link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

// parseFeed decodes entries one at a time so a broken document still yields
// the entries before the break.
func parseFeed(r io.Reader) ([]paper.RawEntry, error) {
	dec := xml.NewDecoder(r)
	var entries []paper.RawEntry
	sawFeed := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if !sawFeed {
				return entries, fmt.Errorf("no atom feed in response: %w", domain.ErrParse)
			}
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("decode feed: %w: %w", domain.ErrParse, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "feed":
			sawFeed = true
		case "entry":
			var e atomEntry
			if err := dec.DecodeElement(&e, &se); err != nil {
				return entries, fmt.Errorf("decode entry %d: %w: %w", len(entries), domain.ErrParse, err)
			}
			if isAPIError(e) {
				return entries, fmt.Errorf("arxiv api error: %s: %w", text(e.Summary), domain.ErrTransport)
			}
			entries = append(entries, toRaw(e))
		}
	}
}

// isAPIError detects the single-entry feed arXiv returns for bad queries.
func isAPIError(e atomEntry) bool {
	return e.ID != nil && strings.Contains(*e.ID, "/api/errors")
}

func toRaw(e atomEntry) paper.RawEntry {
	raw := paper.RawEntry{
		ExternalID: text(e.ID),
		Title:      strings.Join(strings.Fields(text(e.Title)), " "),
		Abstract:   text(e.Summary),
		Authors:    e.Authors,
		Source:     paper.SourceArxiv,
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			raw.Categories = append(raw.Categories, c.Term)
		}
	}
	raw.URL = alternateLink(e.Links)
	if raw.URL == "" {
		raw.URL = raw.ExternalID
	}

	switch {
	case e.ID == nil:
		raw.Err = fmt.Errorf("entry without <id>: %w", domain.ErrParse)
	case e.Title == nil:
		raw.Err = fmt.Errorf("entry %s without <title>: %w", raw.ExternalID, domain.ErrParse)
	case e.Summary == nil:
		raw.Err = fmt.Errorf("entry %s without <summary>: %w", raw.ExternalID, domain.ErrParse)
	}
	if raw.Err != nil {
		return raw
	}

	if p := strings.TrimSpace(e.Published); p != "" {
		t, err := time.Parse(time.RFC3339, p)
		if err != nil {
			raw.Err = fmt.Errorf("entry %s published %q: %w", raw.ExternalID, p, domain.ErrParse)
			return raw
		}
		t = t.UTC()
		raw.PublishedAt = &t
	}
	return raw
}

func alternateLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "alternate" && l.Href != "" {
			return l.Href
		}
	}
	return ""
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
