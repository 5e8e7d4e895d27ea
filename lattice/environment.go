package lattice

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/fetchcore/navcore/costmap"
	"github.com/fetchcore/navcore/geometry"
)

// Transition is one successor or predecessor edge get_succs/get_preds
// return: the neighbor entry, the edge's cost, and the primitive used to
// traverse it.
type Transition struct {
	Neighbor  *Entry
	Cost      float64
	Primitive Primitive
}

// Environment is the state lattice (C1): the primitive table, the entry
// cache, and the heuristic grid, all addressed through a costmap.Grid the
// caller owns.
type Environment struct {
	Grid         costmap.Grid
	Thresholds   costmap.Thresholds
	Resolution   float64
	NumThetaBins int
	Primitives   *Table

	entries map[geometry.Cell]*Entry

	start, goal *Entry

	heuristic    map[[2]int]float64
	heuristicSet bool
}

// NewEnvironment builds an Environment over grid using prims as the motion
// primitive table.
func NewEnvironment(grid costmap.Grid, thresh costmap.Thresholds, resolution float64, numThetaBins int, prims *Table) *Environment {
	return &Environment{
		Grid:         grid,
		Thresholds:   thresh,
		Resolution:   resolution,
		NumThetaBins: numThetaBins,
		Primitives:   prims,
		entries:      make(map[geometry.Cell]*Entry),
	}
}

// EntryAt returns the cached entry for cell, creating it on first access.
func (e *Environment) EntryAt(cell geometry.Cell) *Entry {
	if existing, ok := e.entries[cell]; ok {
		return existing
	}
	entry := NewEntry(cell)
	e.entries[cell] = entry
	return entry
}

// SetStart discretizes pose and returns its entry, per spec.md §4.1.
func (e *Environment) SetStart(pose geometry.Pose) *Entry {
	e.start = e.EntryAt(geometry.Discretize(pose, e.Resolution, e.NumThetaBins))
	return e.start
}

// SetGoal discretizes pose, returns its entry, and invalidates the cached
// heuristic grid since it is computed backward from the goal.
func (e *Environment) SetGoal(pose geometry.Pose) *Entry {
	cell := geometry.Discretize(pose, e.Resolution, e.NumThetaBins)
	if e.goal == nil || e.goal.Cell.X != cell.X || e.goal.Cell.Y != cell.Y {
		e.heuristicSet = false
	}
	e.goal = e.EntryAt(cell)
	return e.goal
}

// Start returns the current start entry, or nil if SetStart was never called.
func (e *Environment) Start() *Entry { return e.start }

// Goal returns the current goal entry, or nil if SetGoal was never called.
func (e *Environment) Goal() *Entry { return e.goal }

// footprintCost returns the maximum cell cost along the primitive's
// interpolated polyline starting at origin, with ok=false if any sample lies
// outside the grid or at or above the inscribed-inflated threshold
// (spec.md §4.1's two-tier check: fast circle-center pass, full check
// reserved for safety.Checker).
func (e *Environment) footprintCost(origin geometry.Pose, prim Primitive) (float64, bool) {
	maxCost := 0.0
	for _, wp := range prim.Waypoints {
		worldX := origin.X + wp.Pose.X
		worldY := origin.Y + wp.Pose.Y
		cx, cy := costmap.WorldToCell(e.Grid, worldX, worldY)
		if !e.Grid.InBounds(cx, cy) {
			return 0, false
		}
		cost := e.Grid.CostAt(cx, cy)
		if cost >= e.Thresholds.InscribedInflated {
			return 0, false
		}
		if float64(cost) > maxCost {
			maxCost = float64(cost)
		}
	}
	return maxCost, true
}

// GetSuccs returns every valid successor of entry: every primitive whose
// ThetaStart matches entry.Cell.Theta, rejecting any whose interpolated
// polyline leaves the grid or reaches the inscribed-inflated threshold
// (spec.md §4.1).
func (e *Environment) GetSuccs(entry *Entry) []Transition {
	origin := geometry.Continuize(entry.Cell, e.Resolution, e.NumThetaBins)
	var out []Transition
	for _, prim := range e.Primitives.PrimitivesFrom(entry.Cell.Theta) {
		maxCost, ok := e.footprintCost(origin, prim)
		if !ok {
			continue
		}
		neighborCell := geometry.Cell{
			X:     entry.Cell.X + prim.DX,
			Y:     entry.Cell.Y + prim.DY,
			Theta: prim.ThetaEnd,
		}
		cost := prim.BaseCost * math.Max(1, maxCost)
		out = append(out, Transition{
			Neighbor:  e.EntryAt(neighborCell),
			Cost:      cost,
			Primitive: prim,
		})
	}
	return out
}

// GetPreds is get_succs' symmetric inverse via primitive reversal
// (spec.md §4.1).
func (e *Environment) GetPreds(entry *Entry) []Transition {
	var out []Transition
	for theta := 0; theta < e.NumThetaBins; theta++ {
		for _, prim := range e.Primitives.PrimitivesFrom(theta) {
			if prim.ThetaEnd != entry.Cell.Theta {
				continue
			}
			predCell := geometry.Cell{
				X:     entry.Cell.X - prim.DX,
				Y:     entry.Cell.Y - prim.DY,
				Theta: prim.ThetaStart,
			}
			predOrigin := geometry.Continuize(predCell, e.Resolution, e.NumThetaBins)
			maxCost, ok := e.footprintCost(predOrigin, prim)
			if !ok {
				continue
			}
			cost := prim.BaseCost * math.Max(1, maxCost)
			out = append(out, Transition{
				Neighbor:  e.EntryAt(predCell),
				Cost:      cost,
				Primitive: prim.Reverse(),
			})
		}
	}
	return out
}

// GetAffectedPredCells returns the (dx, dy) offsets whose predecessor set
// can be invalidated by a change to a single cell, derived from the
// maximum primitive span. Used by CostsChanged for incremental repair
// (spec.md §4.1).
func (e *Environment) GetAffectedPredCells() []geometry.Cell {
	maxSpan := 0
	for theta := 0; theta < e.NumThetaBins; theta++ {
		for _, prim := range e.Primitives.PrimitivesFrom(theta) {
			if abs(prim.DX) > maxSpan {
				maxSpan = abs(prim.DX)
			}
			if abs(prim.DY) > maxSpan {
				maxSpan = abs(prim.DY)
			}
		}
	}
	if maxSpan == 0 {
		maxSpan = 1
	}
	var offsets []geometry.Cell
	for dx := -maxSpan; dx <= maxSpan; dx++ {
		for dy := -maxSpan; dy <= maxSpan; dy++ {
			offsets = append(offsets, geometry.Cell{X: dx, Y: dy})
		}
	}
	return offsets
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// cellNodeID addresses a grid cell as a gonum graph node id, independent
// of heading since the heuristic grid ignores it.
func cellNodeID(sizeX, x, y int) int64 {
	return int64(y*sizeX + x)
}

// EnsureHeuristicUpdated (re)computes the 2D Dijkstra backward from the
// goal cell over the inflated costmap if the cached grid is stale
// (spec.md §4.1). h(x,y) from this grid is admissible: it ignores heading
// and uses a per-cell cost that never exceeds the primitive cost model's
// per-cell contribution. The search itself runs over a gonum weighted
// undirected graph built from the free cells of the grid.
func (e *Environment) EnsureHeuristicUpdated() error {
	if e.heuristicSet {
		return nil
	}
	if e.goal == nil {
		return errors.New("lattice: cannot compute heuristic without a goal")
	}

	sizeX := e.Grid.SizeX()
	sizeY := e.Grid.SizeY()
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	neighbors := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

	for y := 0; y < sizeY; y++ {
		for x := 0; x < sizeX; x++ {
			cost := e.Grid.CostAt(x, y)
			if cost >= e.Thresholds.Lethal {
				continue
			}
			id := cellNodeID(sizeX, x, y)
			if g.Node(id) == nil {
				g.AddNode(simple.Node(id))
			}
			for _, n := range neighbors {
				nx, ny := x+n[0], y+n[1]
				if !e.Grid.InBounds(nx, ny) {
					continue
				}
				ncost := e.Grid.CostAt(nx, ny)
				if ncost >= e.Thresholds.Lethal {
					continue
				}
				nid := cellNodeID(sizeX, nx, ny)
				if g.Node(nid) == nil {
					g.AddNode(simple.Node(nid))
				}
				step := e.Resolution
				if n[0] != 0 && n[1] != 0 {
					step *= math.Sqrt2
				}
				weight := step + float64(ncost)*0.001
				g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(id), T: simple.Node(nid), W: weight})
			}
		}
	}

	goalID := cellNodeID(sizeX, e.goal.Cell.X, e.goal.Cell.Y)
	var from graph.Node = simple.Node(goalID)
	if g.Node(goalID) == nil {
		g.AddNode(simple.Node(goalID))
	}
	shortest := path.DijkstraFrom(from, g)

	dist := make(map[[2]int]float64)
	for y := 0; y < sizeY; y++ {
		for x := 0; x < sizeX; x++ {
			id := cellNodeID(sizeX, x, y)
			if g.Node(id) == nil {
				continue
			}
			w := shortest.WeightTo(id)
			if math.IsInf(w, 1) {
				continue
			}
			dist[[2]int{x, y}] = w
		}
	}

	e.heuristic = dist
	e.heuristicSet = true
	return nil
}

// Heuristic returns h(x,y): the admissible lower bound on cost-to-goal for
// cell, ignoring heading. Call EnsureHeuristicUpdated first; returns +Inf
// for an unreached cell.
func (e *Environment) Heuristic(cell geometry.Cell) float64 {
	if !e.heuristicSet {
		return Inf
	}
	if d, ok := e.heuristic[[2]int{cell.X, cell.Y}]; ok {
		return d
	}
	return Inf
}

// InvalidateHeuristic forces the next EnsureHeuristicUpdated call to
// recompute, used when the costmap changes enough to affect the backward
// Dijkstra (as opposed to a localized CostsChanged repair in search).
func (e *Environment) InvalidateHeuristic() { e.heuristicSet = false }
