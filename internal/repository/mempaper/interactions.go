package mempaper

import (
	"context"
	"sync"

	dompaper "github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// Interactions records which papers each user has interacted with.
type Interactions struct {
	mu   sync.RWMutex
	byID map[string][]int64
}

// NewInteractions creates an empty interaction log.
func NewInteractions() *Interactions {
	return &Interactions{byID: make(map[string][]int64)}
}

// Add records interactions of userID with paper ids.
func (i *Interactions) Add(userID string, ids ...int64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.byID[userID] = append(i.byID[userID], ids...)
}

// InteractedContentIDs returns a fresh set of the user's interacted ids.
func (i *Interactions) InteractedContentIDs(_ context.Context, userID string) (*dompaper.IDSet, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return dompaper.NewIDSet(i.byID[userID]...), nil
}
