// Package planheap implements the open set (C2): a min-heap supporting
// O(log n) push/pop/adjust, O(1) contains, O(log n) erase, and O(n)
// make_heap after a bulk key recomputation, plus the companion inconsistent
// set used during a single search iteration (spec.md §4.2).
//
// It is grounded on gonum.org/v1/gonum/graph/path's internal D*-Lite
// priority queue (key comparison, in-place adjust) generalized from a
// concrete node type to the Item interface so lattice.Entry can be pushed
// directly without an adapter allocation per entry.
package planheap

import "container/heap"

// Item is anything the open set can order and track. Implementations carry
// their own heap index so Contains/Adjust/Erase run in O(1)/O(log n)
// instead of a linear scan.
type Item interface {
	// Less reports whether this item sorts before other.
	Less(other Item) bool
	HeapIndex() int
	SetHeapIndex(i int)
}

type innerHeap []Item

func (h innerHeap) Len() int            { return len(h) }
func (h innerHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h innerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].SetHeapIndex(i)
	h[j].SetHeapIndex(j)
}

func (h *innerHeap) Push(x interface{}) {
	it := x.(Item)
	it.SetHeapIndex(len(*h))
	*h = append(*h, it)
}

func (h *innerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.SetHeapIndex(-1)
	*h = old[:n-1]
	return it
}

// OpenSet is the priority queue of entries awaiting expansion.
type OpenSet struct {
	h innerHeap
}

// NewOpenSet returns an empty open set.
func NewOpenSet() *OpenSet {
	return &OpenSet{h: make(innerHeap, 0)}
}

// Len returns the number of items currently in the open set.
func (s *OpenSet) Len() int { return s.h.Len() }

// Push inserts it. If it is already present, Push calls Adjust instead, so
// the item is re-sifted under its current key.
func (s *OpenSet) Push(it Item) {
	if s.Contains(it) {
		s.Adjust(it)
		return
	}
	heap.Push(&s.h, it)
}

// Pop removes and returns the minimum item, or nil if empty.
func (s *OpenSet) Pop() Item {
	if s.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&s.h).(Item)
}

// Peek returns the minimum item without removing it, or nil if empty.
func (s *OpenSet) Peek() Item {
	if s.h.Len() == 0 {
		return nil
	}
	return s.h[0]
}

// Contains reports whether it is currently tracked by the heap, in O(1).
func (s *OpenSet) Contains(it Item) bool {
	i := it.HeapIndex()
	return i >= 0 && i < len(s.h) && s.h[i] == it
}

// Adjust re-establishes heap order for it after its key changed in place.
// it must already be in the set.
func (s *OpenSet) Adjust(it Item) {
	i := it.HeapIndex()
	if i < 0 || i >= len(s.h) || s.h[i] != it {
		return
	}
	heap.Fix(&s.h, i)
}

// Erase removes it from the set if present.
func (s *OpenSet) Erase(it Item) {
	if !s.Contains(it) {
		return
	}
	heap.Remove(&s.h, it.HeapIndex())
}

// MakeHeap re-heapifies from scratch, used after a bulk key recomputation
// (spec.md §4.2 "O(n) make_heap() after bulk key recomputation").
func (s *OpenSet) MakeHeap() {
	heap.Init(&s.h)
}

// Items returns the heap's current items in heap (not sorted) order, for
// bulk operations like "move all inconsistent entries back into open".
func (s *OpenSet) Items() []Item {
	out := make([]Item, len(s.h))
	copy(out, s.h)
	return out
}

// InconsistentSet holds entries that became inconsistent while closed
// during the current search iteration (spec.md §4.2).
type InconsistentSet struct {
	members map[Item]struct{}
}

// NewInconsistentSet returns an empty inconsistent set.
func NewInconsistentSet() *InconsistentSet {
	return &InconsistentSet{members: make(map[Item]struct{})}
}

// Add inserts it.
func (s *InconsistentSet) Add(it Item) { s.members[it] = struct{}{} }

// Remove deletes it if present.
func (s *InconsistentSet) Remove(it Item) { delete(s.members, it) }

// Contains reports membership.
func (s *InconsistentSet) Contains(it Item) bool {
	_, ok := s.members[it]
	return ok
}

// Items returns every member, in unspecified order.
func (s *InconsistentSet) Items() []Item {
	out := make([]Item, 0, len(s.members))
	for it := range s.members {
		out = append(out, it)
	}
	return out
}

// Clear empties the set.
func (s *InconsistentSet) Clear() { s.members = make(map[Item]struct{}) }

// Len returns the number of members.
func (s *InconsistentSet) Len() int { return len(s.members) }
