// Package paper stores content records in Redis or Valkey.
//
// Layout under the configured key prefix:
//
//	seq              INCR counter issuing surrogate ids
//	paper:<id>       hash with the record fields
//	ext:<externalID> string claim mapping the external id to its surrogate id
//	papers           sorted set of claimed ids, scored by id
package paper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/paperdex/internal/db"
	"github.com/kailas-cloud/paperdex/internal/domain"
	dompaper "github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// store is the consumer interface for papers (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// Repo is the Redis-backed record store.
type Repo struct {
	store  store
	prefix string
	dim    int
}

// New creates a paper repository. dim is the embedding dimensionality every
// stored vector must have; zero disables the check.
func New(s store, keyPrefix string, dim int) *Repo {
	return &Repo{store: s, prefix: keyPrefix, dim: dim}
}

// FindByExternalID returns the record claimed for an external id. It also
// re-adds the id to the index, which repairs a claim whose insert failed
// between SET NX and ZADD.
func (r *Repo) FindByExternalID(ctx context.Context, externalID string) (dompaper.Paper, error) {
	raw, err := r.store.Get(ctx, r.extKey(externalID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dompaper.Paper{}, domain.ErrPaperNotFound
		}
		return dompaper.Paper{}, fmt.Errorf("get claim %s: %w", externalID, err)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return dompaper.Paper{}, fmt.Errorf("parse claim %s: %w", externalID, err)
	}
	p, err := r.Get(ctx, id)
	if err != nil {
		return dompaper.Paper{}, err
	}
	if err := r.index(ctx, id); err != nil {
		return dompaper.Paper{}, err
	}
	return p, nil
}

// InsertIfAbsent stores p unless its external id is already claimed.
// The hash is written under a fresh id first and the external id is claimed
// with SET NX afterwards; a losing writer deletes its hash and returns the
// winner's record with created=false. Only claimed ids enter the index.
func (r *Repo) InsertIfAbsent(ctx context.Context, p dompaper.Paper) (dompaper.Paper, bool, error) {
	if p.HasEmbedding() {
		if err := dompaper.CheckDim(p.Embedding, r.dim); err != nil {
			return dompaper.Paper{}, false, err
		}
	}

	id, err := r.store.Incr(ctx, r.key("seq"))
	if err != nil {
		return dompaper.Paper{}, false, fmt.Errorf("allocate id: %w", err)
	}
	p.ID = id

	fields, err := buildHashFields(p)
	if err != nil {
		return dompaper.Paper{}, false, err
	}
	key := r.paperKey(id)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return dompaper.Paper{}, false, fmt.Errorf("hset %s: %w", key, err)
	}

	claimed, err := r.store.SetNX(ctx, r.extKey(p.ExternalID), []byte(strconv.FormatInt(id, 10)))
	if err != nil {
		r.dropOrphan(ctx, key)
		return dompaper.Paper{}, false, fmt.Errorf("claim %s: %w", p.ExternalID, err)
	}
	if !claimed {
		r.dropOrphan(ctx, key)
		existing, err := r.FindByExternalID(ctx, p.ExternalID)
		if err != nil {
			return dompaper.Paper{}, false, fmt.Errorf("load winner %s: %w", p.ExternalID, err)
		}
		return existing, false, nil
	}

	if err := r.index(ctx, id); err != nil {
		return dompaper.Paper{}, false, err
	}
	return p, true, nil
}

// Get returns a record by surrogate id.
func (r *Repo) Get(ctx context.Context, id int64) (dompaper.Paper, error) {
	key := r.paperKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return dompaper.Paper{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return dompaper.Paper{}, domain.ErrPaperNotFound
	}
	return parseHashFields(id, m)
}

// QueryBySubstring returns every record whose title or abstract contains at
// least one of the lowercase terms. Order is unspecified.
func (r *Repo) QueryBySubstring(ctx context.Context, terms []string) ([]dompaper.Paper, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dompaper.Paper, 0)
	for _, p := range all {
		if matchesAny(p, terms) {
			out = append(out, p)
		}
	}
	return out, nil
}

// QueryOrderedByDate returns one window of non-excluded records, newest
// first, with the post-exclusion total.
func (r *Repo) QueryOrderedByDate(
	ctx context.Context, exclude *dompaper.IDSet, offset, limit int,
) ([]dompaper.Paper, int, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	kept := all[:0]
	for _, p := range all {
		if !exclude.Contains(p.ID) {
			kept = append(kept, p)
		}
	}
	dompaper.SortByRecency(kept)
	return window(kept, offset, limit), len(kept), nil
}

// ListEmbedded returns all records that carry an embedding.
func (r *Repo) ListEmbedded(ctx context.Context) ([]dompaper.Paper, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.HasEmbedding() {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListMissingEmbedding returns up to limit records without an embedding and
// with id > afterID, ascending by id.
func (r *Repo) ListMissingEmbedding(ctx context.Context, afterID int64, limit int) ([]dompaper.Paper, error) {
	return r.listAfter(ctx, afterID, limit, func(p dompaper.Paper) bool { return !p.HasEmbedding() })
}

// ListMissingMetadata returns up to limit records without author metadata and
// with id > afterID, ascending by id.
func (r *Repo) ListMissingMetadata(ctx context.Context, afterID int64, limit int) ([]dompaper.Paper, error) {
	return r.listAfter(ctx, afterID, limit, func(p dompaper.Paper) bool { return !p.Metadata.HasAuthors() })
}

// AttachEmbedding stores the embedding of an existing record.
func (r *Repo) AttachEmbedding(ctx context.Context, id int64, vec []float32) error {
	if err := dompaper.CheckDim(vec, r.dim); err != nil {
		return err
	}
	return r.updateFields(ctx, id, map[string]string{fieldEmbedding: string(db.EncodeVector(vec))})
}

// UpdateMetadata replaces the metadata of an existing record.
func (r *Repo) UpdateMetadata(ctx context.Context, id int64, md dompaper.Metadata) error {
	raw, err := encodeMetadata(md)
	if err != nil {
		return err
	}
	return r.updateFields(ctx, id, map[string]string{fieldMetadata: raw})
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.ZCard(ctx, r.key("papers"))
	if err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return int(n), nil
}

func (r *Repo) updateFields(ctx context.Context, id int64, fields map[string]string) error {
	key := r.paperKey(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrPaperNotFound
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

func (r *Repo) listAfter(
	ctx context.Context, afterID int64, limit int, keep func(dompaper.Paper) bool,
) ([]dompaper.Paper, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dompaper.Paper, 0, limit)
	for _, p := range all {
		if limit > 0 && len(out) >= limit {
			break
		}
		if p.ID > afterID && keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// loadAll reads every indexed record in ascending id order.
func (r *Repo) loadAll(ctx context.Context) ([]dompaper.Paper, error) {
	members, err := r.store.ZRange(ctx, r.key("papers"), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", m, err)
		}
		ids = append(ids, id)
		keys = append(keys, r.paperKey(id))
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load papers: %w", err)
	}

	out := make([]dompaper.Paper, 0, len(hashes))
	for i, m := range hashes {
		if len(m) == 0 {
			continue
		}
		p, err := parseHashFields(ids[i], m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// dropOrphan removes an unclaimed hash. Failure leaves an unindexed key that
// no reader can reach.
func (r *Repo) dropOrphan(ctx context.Context, key string) {
	_ = r.store.Del(context.WithoutCancel(ctx), key)
}

// index adds id to the id index. ZADD of an existing member with the same
// score is a no-op.
func (r *Repo) index(ctx context.Context, id int64) error {
	if err := r.store.ZAdd(ctx, r.key("papers"), float64(id), strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("index %d: %w", id, err)
	}
	return nil
}

func (r *Repo) key(name string) string { return r.prefix + name }

func (r *Repo) paperKey(id int64) string {
	return r.prefix + "paper:" + strconv.FormatInt(id, 10)
}

func (r *Repo) extKey(externalID string) string {
	return r.prefix + "ext:" + externalID
}

func matchesAny(p dompaper.Paper, terms []string) bool {
	title := strings.ToLower(p.Title)
	abstract := strings.ToLower(p.Abstract)
	for _, t := range terms {
		if strings.Contains(title, t) || strings.Contains(abstract, t) {
			return true
		}
	}
	return false
}

func window(ps []dompaper.Paper, offset, limit int) []dompaper.Paper {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ps) {
		return []dompaper.Paper{}
	}
	end := len(ps)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return ps[offset:end]
}
