// Package costmap declares the Grid interface navcore expects from the
// external costmap-maintenance layer (spec.md §1 "out of scope: the costmap
// maintenance layer"), plus StaticGrid, an in-memory Grid, and the cost
// thresholds and world-to-cell helpers the planner and safety checker share.
package costmap

import (
	"time"

	"github.com/fetchcore/navcore/geometry"
)

// Cost is a single cell's traversal cost. FREE is cheapest; LETHAL means the
// robot's footprint would physically collide there.
type Cost uint8

const (
	FREE     Cost = 0
	LETHAL   Cost = 254
	UNKNOWN  Cost = 255
	noInfo   Cost = UNKNOWN
	inscribe Cost = 253 // INSCRIBED: the robot's footprint is guaranteed to touch this cell.
)

// Inscribed is the threshold at which the robot's body is guaranteed to
// touch the cell regardless of orientation.
const Inscribed = inscribe

// Thresholds bundles the two cost thresholds C1.get_succs needs: the cheap
// circle-center check uses InscribedInflated, the full-footprint check uses
// PossiblyCircumscribed (spec.md §4.1).
type Thresholds struct {
	PossiblyCircumscribed Cost
	InscribedInflated     Cost
	Lethal                Cost
}

// Grid is the read interface navcore needs from the costmap maintenance
// layer: a resolution, a bounded window, and per-cell cost lookups. The
// layer providing Grid owns inflation and obstacle bookkeeping; navcore
// never mutates it directly (the footprint-clearing recovery action asks
// the layer to clear a region, it does not poke cells itself).
type Grid interface {
	Resolution() float64
	SizeX() int
	SizeY() int
	// OriginX/OriginY are the world coordinates of cell (0,0)'s corner.
	OriginX() float64
	OriginY() float64
	CostAt(cellX, cellY int) Cost
	// InBounds reports whether (cellX, cellY) is within [0,SizeX)x[0,SizeY).
	InBounds(cellX, cellY int) bool
	// ClearFootprint asks the maintenance layer to clear any dynamic
	// obstacle within the robot's footprint, used by the
	// LOCAL_PLANNER_RECOVERY_R recovery tier (spec.md §4.8).
	ClearFootprint(center geometry.Pose) error
	// UpdatedAt reports when the grid last changed, so a consumer holding
	// it across multiple ticks can detect a stalled maintenance layer
	// (spec.md §4.8 step 2, "reject if costmap is stale").
	UpdatedAt() time.Time
}

// WorldToCell converts a world position to the grid's cell coordinates
// given its resolution and origin.
func WorldToCell(g Grid, x, y float64) (int, int) {
	cx := int((x - g.OriginX()) / g.Resolution())
	cy := int((y - g.OriginY()) / g.Resolution())
	return cx, cy
}

// CellToWorld converts a grid cell's center to world coordinates.
func CellToWorld(g Grid, cx, cy int) (float64, float64) {
	res := g.Resolution()
	x := g.OriginX() + (float64(cx)+0.5)*res
	y := g.OriginY() + (float64(cy)+0.5)*res
	return x, y
}

// CostAtPose is a convenience wrapper translating a world pose into a cell
// lookup, returning UNKNOWN if the pose falls outside the grid.
func CostAtPose(g Grid, p geometry.Pose) Cost {
	cx, cy := WorldToCell(g, p.X, p.Y)
	if !g.InBounds(cx, cy) {
		return UNKNOWN
	}
	return g.CostAt(cx, cy)
}
