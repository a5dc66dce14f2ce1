package paper

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/paperdex/internal/db"
)

// fakeStore is an in-memory implementation of the consumer interface with
// per-command atomicity, matching what the Redis server guarantees.
type fakeStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	kv     map[string][]byte
	zsets  map[string]map[string]float64
	seq    map[string]int64

	hsetErr  error
	setNXErr error
	zaddErr  error
	zrangeFn func(key string) ([]string, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes: make(map[string]map[string]string),
		kv:     make(map[string][]byte),
		zsets:  make(map[string]map[string]float64),
		seq:    make(map[string]int64),
	}
}

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hsetErr != nil {
		return f.hsetErr
	}
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = f.HGetAll(ctx, k)
	}
	return out, nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hashes, key)
	delete(f.kv, key)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, h := f.hashes[key]
	_, k := f.kv[key]
	return h || k, nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setNXErr != nil {
		return false, f.setNXErr
	}
	if _, ok := f.kv[key]; ok {
		return false, nil
	}
	f.kv[key] = value
	return true, nil
}

func (f *fakeStore) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq[key]++
	return f.seq[key], nil
}

func (f *fakeStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.zaddErr != nil {
		return f.zaddErr
	}
	z, ok := f.zsets[key]
	if !ok {
		z = make(map[string]float64)
		f.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (f *fakeStore) ZRange(_ context.Context, key string, _, _ int64) ([]string, error) {
	if f.zrangeFn != nil {
		return f.zrangeFn(key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	z := f.zsets[key]
	out := make([]string, 0, len(z))
	for m := range z {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return z[out[i]] < z[out[j]] })
	return out, nil
}

func (f *fakeStore) ZCard(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.zsets[key])), nil
}

func (f *fakeStore) paperHashes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.hashes {
		if strings.Contains(k, "paper:") {
			n++
		}
	}
	return n
}

func newTestRepo(t *testing.T) (*Repo, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	return New(fs, "paperdex:", 2), fs
}
