package paper

import "sort"

// NewerFirst orders two papers by publication date descending, papers
// without a date last, then by ID ascending.
func NewerFirst(a, b Paper) bool {
	switch {
	case a.PublishedAt == nil && b.PublishedAt != nil:
		return false
	case a.PublishedAt != nil && b.PublishedAt == nil:
		return true
	case a.PublishedAt != nil && b.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt):
		return a.PublishedAt.After(*b.PublishedAt)
	}
	return a.ID < b.ID
}

// SortByRecency sorts papers in place using NewerFirst.
func SortByRecency(ps []Paper) {
	sort.SliceStable(ps, func(i, j int) bool { return NewerFirst(ps[i], ps[j]) })
}
