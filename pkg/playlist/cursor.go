// ABOUTME: Shared cursor over a frozen playlist snapshot
// ABOUTME: Readers that share a cursor advance one atomic index
package playlist

import (
	"slices"
	"sync/atomic"
)

// Cursor walks a snapshot. Clones share the same index, so each Next
// across all clones yields a distinct item.
type Cursor struct {
	snapshot []Item
	index    *atomic.Int64
}

// NewCursor starts a cursor before the first item of snapshot
func NewCursor(snapshot []Item) *Cursor {
	return &Cursor{snapshot: snapshot, index: new(atomic.Int64)}
}

// Clone returns a cursor sharing this cursor's snapshot and index. It is
// for consumers outside the daemon, such as several output workers that
// pull from one position, each item going to exactly one of them.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{snapshot: c.snapshot, index: c.index}
}

// Next advances and returns the item it moved onto
func (c *Cursor) Next() (Item, bool) {
	i := c.index.Add(1) - 1
	if i >= int64(len(c.snapshot)) {
		return Item{}, false
	}
	return c.snapshot[i], true
}

// Current returns the item most recently yielded by Next
func (c *Cursor) Current() (Item, bool) {
	i := c.index.Load() - 1
	if i < 0 || i >= int64(len(c.snapshot)) {
		return Item{}, false
	}
	return c.snapshot[i], true
}

// Index returns the snapshot index of Current, or -1 when there is none
func (c *Cursor) Index() int {
	i := c.index.Load() - 1
	if i < 0 || i >= int64(len(c.snapshot)) {
		return -1
	}
	return int(i)
}

// Seek makes the item with the given sequence number current
func (c *Cursor) Seek(seq uint64) bool {
	for i, item := range c.snapshot {
		if item.seq == seq {
			c.index.Store(int64(i) + 1)
			return true
		}
	}
	return false
}

// Len returns the size of the snapshot
func (c *Cursor) Len() int {
	return len(c.snapshot)
}

// Upcoming returns up to n items that Next would yield, in order
func (c *Cursor) Upcoming(n int) []Item {
	i := min(c.index.Load(), int64(len(c.snapshot)))
	rest := c.snapshot[i:]
	if n >= 0 && len(rest) > n {
		rest = rest[:n]
	}
	return slices.Clone(rest)
}
