package lattice

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/planheap"
)

// keyEpsilon is the tolerance accumulated key-arithmetic float error is
// compared against, the same shape as other_examples/gonum-gonum's D*
// reference (its main loop treats |rhs-g| <= 1e-6 as consistent rather than
// requiring bit-exact equality).
const keyEpsilon = 1e-9

// Key orders entries in the open set: (min(g,rhs) + eps*h, min(g,rhs)),
// compared lexicographically (spec.md §4.2).
type Key struct {
	K1, K2 float64
}

// Less reports whether k sorts before other.
func (k Key) Less(other Key) bool {
	if !floats.EqualWithinAbs(k.K1, other.K1, keyEpsilon) {
		return k.K1 < other.K1
	}
	return k.K2 < other.K2
}

// Entry is one lattice state's search bookkeeping. It implements
// planheap.Item so the open set can manage it directly.
type Entry struct {
	Cell geometry.Cell

	G, RHS float64

	// BestNext is the successor entry chosen by update_state's argmin; nil
	// at the goal or when rhs is infinite.
	BestNext *Entry
	// ViaPrimitive is the primitive id used to reach BestNext, needed to
	// expand the reconstructed path into a polyline.
	ViaPrimitive int

	VisitedIteration int
	ClosedIteration  int

	key       Key
	heapIndex int
}

// Inf is the sentinel for an unreached state's g or rhs.
const Inf = math.MaxFloat64

// NewEntry returns a fresh entry for cell with g = rhs = infinity.
func NewEntry(cell geometry.Cell) *Entry {
	return &Entry{Cell: cell, G: Inf, RHS: Inf, heapIndex: -1}
}

// Consistent reports g == rhs, within keyEpsilon.
func (e *Entry) Consistent() bool { return floats.EqualWithinAbs(e.G, e.RHS, keyEpsilon) }

// Overconsistent reports g > rhs.
func (e *Entry) Overconsistent() bool { return e.G > e.RHS }

// Underconsistent reports g < rhs.
func (e *Entry) Underconsistent() bool { return e.G < e.RHS }

// Less implements planheap.Item, ordering by key.
func (e *Entry) Less(other planheap.Item) bool {
	return e.key.Less(other.(*Entry).key)
}

// Key returns e's current key.
func (e *Entry) Key() Key { return e.key }

var _ planheap.Item = (*Entry)(nil)

// SetKey implements planheap.Item.
func (e *Entry) SetKey(k Key) { e.key = k }

// HeapIndex implements planheap.Item.
func (e *Entry) HeapIndex() int { return e.heapIndex }

// SetHeapIndex implements planheap.Item.
func (e *Entry) SetHeapIndex(i int) { e.heapIndex = i }

// ComputeKey recomputes e's key from the current g/rhs and heuristic h,
// per spec.md §4.2: (min(g,rhs) + eps*h, min(g,rhs)).
func (e *Entry) ComputeKey(h, eps float64) Key {
	m := math.Min(e.G, e.RHS)
	k := Key{K1: m, K2: m}
	if m < Inf {
		k.K1 = m + eps*h
	}
	e.key = k
	return k
}
