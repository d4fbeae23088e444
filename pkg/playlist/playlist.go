// ABOUTME: Play queue ordered by position using a binary min-heap
// ABOUTME: Snapshots materialize the full order without touching the heap
// Package playlist implements the ordered play queue and its cursors.
package playlist

import (
	"container/heap"
	"slices"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

// Item is one queued track. Items with equal positions keep insertion order.
type Item struct {
	Position uint32
	Track    protocol.TrackRef

	seq uint64
}

// Seq is the insertion sequence number assigned by Insert
func (i Item) Seq() uint64 { return i.seq }

func (i Item) less(o Item) bool {
	if i.Position != o.Position {
		return i.Position < o.Position
	}
	return i.seq < o.seq
}

// Playlist is a min-heap of items. It is not safe for concurrent use;
// a single owner mutates it and hands out snapshots.
type Playlist struct {
	items itemHeap
	next  uint64
}

// New returns an empty playlist
func New() *Playlist {
	p := &Playlist{}
	heap.Init(&p.items)
	return p
}

// Insert adds an item and returns it with its sequence number set
func (p *Playlist) Insert(item Item) Item {
	p.next++
	item.seq = p.next
	heap.Push(&p.items, item)
	return item
}

// Len returns the number of queued items
func (p *Playlist) Len() int {
	return p.items.Len()
}

// Snapshot returns every item in order. The heap is left as is.
func (p *Playlist) Snapshot() []Item {
	out := slices.Clone(p.items)
	slices.SortFunc(out, func(a, b Item) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Entries converts a snapshot to its wire form
func Entries(snapshot []Item) []protocol.PlaylistEntry {
	out := make([]protocol.PlaylistEntry, len(snapshot))
	for i, item := range snapshot {
		out[i] = protocol.PlaylistEntry{Position: item.Position, Track: item.Track}
	}
	return out
}

// itemHeap implements heap.Interface
type itemHeap []Item

func (h itemHeap) Len() int           { return len(h) }
func (h itemHeap) Less(i, j int) bool { return h[i].less(h[j]) }
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) {
	*h = append(*h, x.(Item))
}

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
