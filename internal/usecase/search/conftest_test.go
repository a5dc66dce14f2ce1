package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// --- Mocks ---

// mockSource serves a fixed set of entries and counts fetches.
type mockSource struct {
	entries []paper.RawEntry
	err     error
	calls   atomic.Int32
	release chan struct{}

	mu   sync.Mutex
	reqs []paper.FetchRequest
}

func (m *mockSource) Fetch(ctx context.Context, req paper.FetchRequest) ([]paper.RawEntry, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.entries, m.err
}

// countingStore counts local queries.
type countingStore struct {
	Store
	queries atomic.Int32
}

func (c *countingStore) QueryBySubstring(ctx context.Context, terms []string) ([]paper.Paper, error) {
	c.queries.Add(1)
	return c.Store.QueryBySubstring(ctx, terms)
}

type errStore struct{ err error }

func (e errStore) QueryBySubstring(context.Context, []string) ([]paper.Paper, error) {
	return nil, e.err
}

// --- Helpers ---

func rawEntry(n int, title, abstract string) paper.RawEntry {
	published := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return paper.RawEntry{
		ExternalID:  fmt.Sprintf("http://arxiv.org/abs/2301.%05d", n),
		Title:       title,
		Abstract:    abstract,
		PublishedAt: &published,
		Source:      paper.SourceArxiv,
	}
}
