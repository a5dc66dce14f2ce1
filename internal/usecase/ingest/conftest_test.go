package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// --- Mocks ---

type mockSource struct {
	entries []paper.RawEntry
	err     error
	reqs    []paper.FetchRequest
}

func (m *mockSource) Fetch(_ context.Context, req paper.FetchRequest) ([]paper.RawEntry, error) {
	m.reqs = append(m.reqs, req)
	return m.entries, m.err
}

type mockEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) EmbedPaper(context.Context, string, string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]float32(nil), m.vec...), nil
}

type failingStore struct {
	Store
	insertErr error
}

func (f *failingStore) InsertIfAbsent(ctx context.Context, p paper.Paper) (paper.Paper, bool, error) {
	if f.insertErr != nil {
		return paper.Paper{}, false, f.insertErr
	}
	return f.Store.InsertIfAbsent(ctx, p)
}

// --- Helpers ---

func entry(n int) paper.RawEntry {
	published := time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
	return paper.RawEntry{
		ExternalID:  fmt.Sprintf("http://arxiv.org/abs/2401.%05dv1", n),
		Title:       fmt.Sprintf("Paper %d", n),
		Abstract:    "abstract",
		URL:         fmt.Sprintf("http://arxiv.org/abs/2401.%05dv1", n),
		PublishedAt: &published,
		Authors:     []string{"Ada Lovelace"},
		Categories:  []string{"cs.LG"},
		Source:      paper.SourceArxiv,
	}
}

func entries(from, to int) []paper.RawEntry {
	var out []paper.RawEntry
	for i := from; i <= to; i++ {
		out = append(out, entry(i))
	}
	return out
}

var errProvider = errors.Join(domain.ErrEmbeddingUnavailable, domain.ErrEmbeddingProviderError)
