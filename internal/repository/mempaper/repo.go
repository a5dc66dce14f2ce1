// Package mempaper is an in-process record store. Uniqueness of external ids
// is enforced under a single mutex; state is lost on restart.
package mempaper

import (
	"context"
	"strings"
	"sync"

	"github.com/kailas-cloud/paperdex/internal/domain"
	dompaper "github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// Repo is the in-memory record store.
type Repo struct {
	mu     sync.RWMutex
	dim    int
	nextID int64
	byID   map[int64]dompaper.Paper
	byExt  map[string]int64
	order  []int64
}

// New creates an empty store. dim is the required embedding dimensionality;
// zero disables the check.
func New(dim int) *Repo {
	return &Repo{
		dim:   dim,
		byID:  make(map[int64]dompaper.Paper),
		byExt: make(map[string]int64),
	}
}

// Ping always succeeds.
func (r *Repo) Ping(context.Context) error { return nil }

// FindByExternalID returns the record stored for an external id.
func (r *Repo) FindByExternalID(_ context.Context, externalID string) (dompaper.Paper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExt[externalID]
	if !ok {
		return dompaper.Paper{}, domain.ErrPaperNotFound
	}
	return clone(r.byID[id]), nil
}

// InsertIfAbsent stores p unless its external id already exists.
func (r *Repo) InsertIfAbsent(_ context.Context, p dompaper.Paper) (dompaper.Paper, bool, error) {
	if p.HasEmbedding() {
		if err := dompaper.CheckDim(p.Embedding, r.dim); err != nil {
			return dompaper.Paper{}, false, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byExt[p.ExternalID]; ok {
		return clone(r.byID[id]), false, nil
	}
	r.nextID++
	p.ID = r.nextID
	p = clone(p)
	r.byID[p.ID] = p
	r.byExt[p.ExternalID] = p.ID
	r.order = append(r.order, p.ID)
	return clone(p), true, nil
}

// Get returns a record by surrogate id.
func (r *Repo) Get(_ context.Context, id int64) (dompaper.Paper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return dompaper.Paper{}, domain.ErrPaperNotFound
	}
	return clone(p), nil
}

// QueryBySubstring returns records whose title or abstract contains any term.
func (r *Repo) QueryBySubstring(_ context.Context, terms []string) ([]dompaper.Paper, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	return r.filter(func(p dompaper.Paper) bool {
		title := strings.ToLower(p.Title)
		abstract := strings.ToLower(p.Abstract)
		for _, t := range terms {
			if strings.Contains(title, t) || strings.Contains(abstract, t) {
				return true
			}
		}
		return false
	}), nil
}

// QueryOrderedByDate returns one window of non-excluded records, newest first.
func (r *Repo) QueryOrderedByDate(
	_ context.Context, exclude *dompaper.IDSet, offset, limit int,
) ([]dompaper.Paper, int, error) {
	kept := r.filter(func(p dompaper.Paper) bool { return !exclude.Contains(p.ID) })
	dompaper.SortByRecency(kept)

	total := len(kept)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return kept[offset:end], total, nil
}

// ListEmbedded returns all records that carry an embedding.
func (r *Repo) ListEmbedded(context.Context) ([]dompaper.Paper, error) {
	return r.filter(dompaper.Paper.HasEmbedding), nil
}

// ListMissingEmbedding returns up to limit records without an embedding after afterID.
func (r *Repo) ListMissingEmbedding(_ context.Context, afterID int64, limit int) ([]dompaper.Paper, error) {
	return r.after(afterID, limit, func(p dompaper.Paper) bool { return !p.HasEmbedding() }), nil
}

// ListMissingMetadata returns up to limit records without authors after afterID.
func (r *Repo) ListMissingMetadata(_ context.Context, afterID int64, limit int) ([]dompaper.Paper, error) {
	return r.after(afterID, limit, func(p dompaper.Paper) bool { return !p.Metadata.HasAuthors() }), nil
}

// AttachEmbedding stores the embedding of an existing record.
func (r *Repo) AttachEmbedding(_ context.Context, id int64, vec []float32) error {
	if err := dompaper.CheckDim(vec, r.dim); err != nil {
		return err
	}
	return r.update(id, func(p *dompaper.Paper) {
		p.Embedding = append([]float32(nil), vec...)
	})
}

// UpdateMetadata replaces the metadata of an existing record.
func (r *Repo) UpdateMetadata(_ context.Context, id int64, md dompaper.Metadata) error {
	return r.update(id, func(p *dompaper.Paper) { p.Metadata = md })
}

// Count returns the number of stored records.
func (r *Repo) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}

func (r *Repo) update(id int64, fn func(*dompaper.Paper)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrPaperNotFound
	}
	fn(&p)
	r.byID[id] = p
	return nil
}

func (r *Repo) filter(keep func(dompaper.Paper) bool) []dompaper.Paper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]dompaper.Paper, 0)
	for _, id := range r.order {
		if p := r.byID[id]; keep(p) {
			out = append(out, clone(p))
		}
	}
	return out
}

func (r *Repo) after(afterID int64, limit int, keep func(dompaper.Paper) bool) []dompaper.Paper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]dompaper.Paper, 0)
	for _, id := range r.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		if p := r.byID[id]; id > afterID && keep(p) {
			out = append(out, clone(p))
		}
	}
	return out
}

func clone(p dompaper.Paper) dompaper.Paper {
	if p.Embedding != nil {
		p.Embedding = append([]float32(nil), p.Embedding...)
	}
	p.Metadata.Authors = append([]string(nil), p.Metadata.Authors...)
	p.Metadata.Categories = append([]string(nil), p.Metadata.Categories...)
	return p
}
