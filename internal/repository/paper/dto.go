package paper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/paperdex/internal/db"
	dompaper "github.com/kailas-cloud/paperdex/internal/domain/paper"
)

const (
	fieldExternalID = "external_id"
	fieldTitle      = "title"
	fieldAbstract   = "abstract"
	fieldSource     = "source"
	fieldURL        = "url"
	fieldPublished  = "published_at"
	fieldMetadata   = "metadata"
	fieldEmbedding  = "embedding"
)

// buildHashFields flattens a paper into HSET fields. Absent published date
// and embedding are omitted.
func buildHashFields(p dompaper.Paper) (map[string]string, error) {
	md, err := encodeMetadata(p.Metadata)
	if err != nil {
		return nil, err
	}
	m := map[string]string{
		fieldExternalID: p.ExternalID,
		fieldTitle:      p.Title,
		fieldAbstract:   p.Abstract,
		fieldSource:     p.Source,
		fieldURL:        p.URL,
		fieldMetadata:   md,
	}
	if p.PublishedAt != nil {
		m[fieldPublished] = p.PublishedAt.UTC().Format(time.RFC3339Nano)
	}
	if p.HasEmbedding() {
		m[fieldEmbedding] = string(db.EncodeVector(p.Embedding))
	}
	return m, nil
}

// parseHashFields converts a stored hash back into a paper.
func parseHashFields(id int64, m map[string]string) (dompaper.Paper, error) {
	p := dompaper.Paper{
		ID:         id,
		ExternalID: m[fieldExternalID],
		Title:      m[fieldTitle],
		Abstract:   m[fieldAbstract],
		Source:     m[fieldSource],
		URL:        m[fieldURL],
	}
	if v := m[fieldPublished]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return dompaper.Paper{}, fmt.Errorf("paper %d: published_at: %w", id, err)
		}
		p.PublishedAt = &t
	}
	if v := m[fieldMetadata]; v != "" {
		if err := json.Unmarshal([]byte(v), &p.Metadata); err != nil {
			return dompaper.Paper{}, fmt.Errorf("paper %d: metadata: %w", id, err)
		}
	}
	if v := m[fieldEmbedding]; v != "" {
		vec, err := db.DecodeVector([]byte(v))
		if err != nil {
			return dompaper.Paper{}, fmt.Errorf("paper %d: embedding: %w", id, err)
		}
		p.Embedding = vec
	}
	return p, nil
}

func encodeMetadata(md dompaper.Metadata) (string, error) {
	raw, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(raw), nil
}
