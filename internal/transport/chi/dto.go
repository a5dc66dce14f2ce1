package chi

import (
	"math"
	"time"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	"github.com/kailas-cloud/paperdex/internal/domain/similarity"
)

// ErrorCode is a machine-readable error kind in ErrorResponse.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodePaperNotFound        ErrorCode = "paper_not_found"
	ErrorCodeUpstreamError        ErrorCode = "upstream_error"
	ErrorCodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// PaperItem is one paper on the wire.
type PaperItem struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Abstract      string         `json:"abstract"`
	Source        string         `json:"source"`
	URL           string         `json:"url"`
	PublishedDate *string        `json:"publishedDate"`
	Metadata      paper.Metadata `json:"metadata"`
}

// PageResponse is one page of papers.
type PageResponse struct {
	Items   []PaperItem `json:"items"`
	Total   int         `json:"total"`
	HasMore bool        `json:"hasMore"`
}

// SimilarItem is a paper with its similarity to the query. Similarity is
// null when the vectors could not be compared.
type SimilarItem struct {
	PaperItem
	Similarity *float64 `json:"similarity"`
}

// SimilarResponse lists similar papers, most similar first.
type SimilarResponse struct {
	Items []SimilarItem `json:"items"`
}

// SimilarRequest is the body of POST /api/similar.
type SimilarRequest struct {
	Text  string `json:"text"`
	Limit *int   `json:"limit,omitempty"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SearchParams are the query parameters of GET /api/search.
type SearchParams struct {
	Query    *string
	Page     *int
	PageSize *int
}

// ContentParams are the query parameters of GET /api/content.
type ContentParams struct {
	Page     *int
	PageSize *int
}

func paperToItem(p paper.Paper) PaperItem {
	item := PaperItem{
		ID:       p.ID,
		Title:    p.Title,
		Abstract: p.Abstract,
		Source:   p.Source,
		URL:      p.URL,
		Metadata: p.Metadata,
	}
	if p.PublishedAt != nil {
		d := p.PublishedAt.UTC().Format(time.RFC3339)
		item.PublishedDate = &d
	}
	return item
}

func pageToResponse(pg paper.Page) PageResponse {
	items := make([]PaperItem, len(pg.Items))
	for i, p := range pg.Items {
		items[i] = paperToItem(p)
	}
	return PageResponse{Items: items, Total: pg.Total, HasMore: pg.HasMore}
}

func matchesToResponse(ms []similarity.Match) SimilarResponse {
	items := make([]SimilarItem, len(ms))
	for i, m := range ms {
		items[i] = SimilarItem{PaperItem: paperToItem(m.Paper)}
		if !math.IsInf(m.Similarity, 0) && !math.IsNaN(m.Similarity) {
			sim := m.Similarity
			items[i].Similarity = &sim
		}
	}
	return SimilarResponse{Items: items}
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
