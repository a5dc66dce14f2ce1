package paper

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// IDSet is a set of paper IDs backed by a compressed bitmap.
// The zero value and a nil *IDSet are both empty.
type IDSet struct {
	bm *roaring64.Bitmap
}

// NewIDSet creates a set holding ids. Negative ids are ignored.
func NewIDSet(ids ...int64) *IDSet {
	s := &IDSet{bm: roaring64.New()}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. Negative ids are ignored.
func (s *IDSet) Add(id int64) {
	if id < 0 {
		return
	}
	if s.bm == nil {
		s.bm = roaring64.New()
	}
	s.bm.Add(uint64(id))
}

// Contains reports whether id is in the set.
func (s *IDSet) Contains(id int64) bool {
	if s == nil || s.bm == nil || id < 0 {
		return false
	}
	return s.bm.Contains(uint64(id))
}

// Len returns the number of ids.
func (s *IDSet) Len() int {
	if s == nil || s.bm == nil {
		return 0
	}
	return int(s.bm.GetCardinality())
}

// IDs returns the ids in ascending order.
func (s *IDSet) IDs() []int64 {
	if s == nil || s.bm == nil {
		return nil
	}
	out := make([]int64, 0, s.bm.GetCardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, int64(it.Next()))
	}
	return out
}
