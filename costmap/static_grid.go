package costmap

import (
	"time"

	"github.com/fetchcore/navcore/geometry"
)

// StaticGrid is an in-memory Grid, used by tests and by any deployment that
// wants to hand navcore a plain array instead of implementing Grid against
// a live costmap service.
type StaticGrid struct {
	resolution       float64
	sizeX, sizeY     int
	originX, originY float64
	cells            []Cost
	updatedAt        time.Time
}

// NewStaticGrid allocates a sizeX x sizeY grid, all FREE, at the given
// resolution and origin.
func NewStaticGrid(resolution float64, sizeX, sizeY int, originX, originY float64) *StaticGrid {
	return &StaticGrid{
		resolution: resolution,
		sizeX:      sizeX,
		sizeY:      sizeY,
		originX:    originX,
		originY:    originY,
		cells:      make([]Cost, sizeX*sizeY),
		updatedAt:  time.Now(),
	}
}

// UpdatedAt implements Grid.
func (g *StaticGrid) UpdatedAt() time.Time { return g.updatedAt }

func (g *StaticGrid) Resolution() float64 { return g.resolution }
func (g *StaticGrid) SizeX() int          { return g.sizeX }
func (g *StaticGrid) SizeY() int          { return g.sizeY }
func (g *StaticGrid) OriginX() float64    { return g.originX }
func (g *StaticGrid) OriginY() float64    { return g.originY }

func (g *StaticGrid) InBounds(cx, cy int) bool {
	return cx >= 0 && cx < g.sizeX && cy >= 0 && cy < g.sizeY
}

func (g *StaticGrid) CostAt(cx, cy int) Cost {
	if !g.InBounds(cx, cy) {
		return UNKNOWN
	}
	return g.cells[cy*g.sizeX+cx]
}

// SetCost stamps a single cell, returning false if out of bounds.
func (g *StaticGrid) SetCost(cx, cy int, cost Cost) bool {
	if !g.InBounds(cx, cy) {
		return false
	}
	g.cells[cy*g.sizeX+cx] = cost
	g.updatedAt = time.Now()
	return true
}

// StampRect sets every cell in [x0,x1]x[y0,y1] (inclusive) to cost,
// returning the list of cells actually changed, used to drive
// lattice.Environment.CostsChanged incremental repair.
func (g *StaticGrid) StampRect(x0, y0, x1, y1 int, cost Cost) []geometry.Cell {
	var changed []geometry.Cell
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if g.InBounds(x, y) && g.cells[y*g.sizeX+x] != cost {
				g.cells[y*g.sizeX+x] = cost
				changed = append(changed, geometry.Cell{X: x, Y: y})
			}
		}
	}
	if len(changed) > 0 {
		g.updatedAt = time.Now()
	}
	return changed
}

// ClearFootprint implements Grid by zeroing a 3x3 neighborhood around the
// pose's cell; a real maintenance layer would instead clear the dynamic
// obstacle layer there without touching the static map.
func (g *StaticGrid) ClearFootprint(center geometry.Pose) error {
	cx, cy := WorldToCell(g, center.X, center.Y)
	g.StampRect(cx-1, cy-1, cx+1, cy+1, FREE)
	return nil
}
