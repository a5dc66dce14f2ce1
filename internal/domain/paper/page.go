package paper

import "math"

// Page is one window of an ordered result list.
type Page struct {
	Items   []Paper
	Total   int
	HasMore bool
}

// Window is a normalized 1-based page request.
type Window struct {
	Page     int
	PageSize int
}

// NewWindow clamps page to >= 1 and pageSize to (0, maxSize], substituting
// defaultSize for non-positive sizes. Page is also capped so that
// Page*PageSize fits in an int.
func NewWindow(page, pageSize, defaultSize, maxSize int) Window {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if maxSize > 0 && pageSize > maxSize {
		pageSize = maxSize
	}
	if pageSize > 0 && page > math.MaxInt/pageSize {
		page = math.MaxInt / pageSize
	}
	return Window{Page: page, PageSize: pageSize}
}

// Offset returns the number of items preceding the window.
func (w Window) Offset() int { return (w.Page - 1) * w.PageSize }

// HasMore reports whether items remain after the window.
func (w Window) HasMore(total int) bool { return w.Offset()+w.PageSize < total }

// Slice cuts the window out of an already ordered list.
func (w Window) Slice(all []Paper) Page {
	total := len(all)
	start := w.Offset()
	if start > total {
		start = total
	}
	end := start + w.PageSize
	if end > total {
		end = total
	}
	return Page{Items: all[start:end], Total: total, HasMore: w.HasMore(total)}
}
