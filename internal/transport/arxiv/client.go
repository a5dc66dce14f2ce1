// Package arxiv fetches paper entries from the arXiv Atom query API.
package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	"github.com/kailas-cloud/paperdex/internal/metrics"
)

const (
	// DefaultBaseURL is the public arXiv query endpoint.
	DefaultBaseURL = "http://export.arxiv.org/api/query"

	defaultMaxResults = 10
	metricsSource     = "arxiv"
)

// Config holds the arXiv client settings.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Logger            *zap.Logger
}

// Client is a rate-limited arXiv API client.
type Client struct {
	http      *http.Client
	baseURL   string
	limiter   *rate.Limiter
	userAgent string
	logger    *zap.Logger
}

// NewClient creates an arXiv client. Zero settings fall back to one request
// every three seconds, as the arXiv API terms ask.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Every(3 * time.Second)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}
}

// Fetch runs one query against the API. Entries parsed before a document
// level failure are returned together with an error wrapping domain.ErrParse.
// Network failures and non-2xx responses wrap domain.ErrTransport.
func (c *Client) Fetch(ctx context.Context, req paper.FetchRequest) ([]paper.RawEntry, error) {
	q, err := buildQuery(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entries, err := c.fetch(ctx, q)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RemoteFetchTotal.WithLabelValues(metricsSource, status).Inc()
	metrics.RemoteFetchDuration.WithLabelValues(metricsSource).Observe(time.Since(start).Seconds())
	return entries, err
}

func (c *Client) fetch(ctx context.Context, q url.Values) ([]paper.RawEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w: %w", domain.ErrTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w: %w", domain.ErrTransport, err)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("arxiv status %d: %w", resp.StatusCode, domain.ErrTransport)
	}

	entries, err := parseFeed(resp.Body)
	c.logger.Debug("arXiv fetch",
		zap.String("query", q.Get("search_query")),
		zap.Int("entries", len(entries)),
		zap.Error(err),
	)
	return entries, err
}

func buildQuery(req paper.FetchRequest) (url.Values, error) {
	n := req.MaxResults
	if n <= 0 {
		n = defaultMaxResults
	}
	q := url.Values{}
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(n))

	switch {
	case len(req.IDs) > 0:
		q.Set("id_list", strings.Join(req.IDs, ","))
		q.Set("max_results", strconv.Itoa(len(req.IDs)))
	case strings.TrimSpace(req.Category) != "":
		q.Set("search_query", "cat:"+strings.TrimSpace(req.Category))
		q.Set("sortBy", "submittedDate")
		q.Set("sortOrder", "descending")
	case strings.TrimSpace(req.Query) != "":
		q.Set("search_query", "all:"+strings.TrimSpace(req.Query))
		q.Set("sortBy", "lastUpdatedDate")
		q.Set("sortOrder", "descending")
	default:
		return nil, fmt.Errorf("empty fetch request: %w", domain.ErrInvalidRequest)
	}
	return q, nil
}
