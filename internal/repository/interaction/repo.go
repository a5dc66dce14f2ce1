// Package interaction reads per-user interaction sets maintained by the
// account service under <prefix>user:<id>:interactions.
package interaction

import (
	"context"
	"fmt"
	"strconv"

	dompaper "github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// store is the consumer interface for interactions (ISP).
type store interface {
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo resolves exclusion sets from Redis sets.
type Repo struct {
	store  store
	prefix string
}

// New creates an interaction reader.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

// InteractedContentIDs returns the ids of papers userID has liked or saved.
// Non-numeric members are ignored.
func (r *Repo) InteractedContentIDs(ctx context.Context, userID string) (*dompaper.IDSet, error) {
	key := r.prefix + "user:" + userID + ":interactions"
	members, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	set := dompaper.NewIDSet()
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		set.Add(id)
	}
	return set, nil
}
