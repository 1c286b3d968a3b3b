// Package pagination normalizes offset/limit and page/size requests and
// computes the continuation values returned to clients.
package pagination

import "math"

// Bounds are the default and maximum page sizes for one listing.
type Bounds struct {
	Default int
	Max     int
}

// Cursor is an offset/limit window.
type Cursor struct {
	Offset int
	Limit  int
}

// NewCursor clamps offset to >= 0 and limit to 1..b.Max, substituting
// b.Default for non-positive limits.
func NewCursor(offset, limit int, b Bounds) Cursor {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = b.Default
	}
	if limit > b.Max {
		limit = b.Max
	}
	return Cursor{Offset: offset, Limit: limit}
}

// Next reports whether rows remain after a page of n items out of total,
// and the offset to request next.
func (c Cursor) Next(n int, total int64) (hasMore bool, nextOffset int) {
	if n > math.MaxInt-c.Offset {
		return false, math.MaxInt
	}
	nextOffset = c.Offset + n
	return int64(nextOffset) < total, nextOffset
}

// Page is a 1-based page/size window.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps page to >= 1 and size the same way NewCursor clamps limits.
// Page numbers are capped so Offset stays within int; a capped page lies
// past any real table and comes back empty.
func NewPage(page, size int, b Bounds) Page {
	if page < 1 {
		page = 1
	}
	c := NewCursor(0, size, b)
	if maxPage := math.MaxInt / c.Limit; page > maxPage {
		page = maxPage
	}
	return Page{Number: page, Size: c.Limit}
}

// Offset is the row offset of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Count is the number of pages needed for total rows.
func (p Page) Count(total int64) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}
