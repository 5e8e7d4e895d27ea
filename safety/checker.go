// Package safety implements the footprint safety checker (C5): given a
// pose and a footprint (polygon or circle list), return the maximum cell
// cost intersected, in either full-polygon or fast circle-center mode,
// against a static or live costmap view.
//
// The two-tier accurate/fast check mirrors the pattern in
// viamrobotics-rdk's motionplan collision checking (a cheap bounding
// check before a full geometric one), generalized here from arm-link
// collision pairs to footprint-vs-grid sampling.
package safety

import (
	"math"

	"github.com/fetchcore/navcore/costmap"
	"github.com/fetchcore/navcore/geometry"
)

// Unsafe is the sentinel MaxCostCircles and MaxCostPolygon return when the
// footprint intersects an inscribed or lethal cell (spec.md §4.5 "returns < 0").
const Unsafe = -1.0

// Circle is one circle-center sample of the (possibly multi-circle)
// footprint approximation.
type Circle struct {
	// OffsetX/OffsetY are in the robot's body frame.
	OffsetX, OffsetY float64
	Radius           float64
}

// Mode selects which costmap view a Checker query samples.
type Mode int

const (
	// Live samples the combined static+dynamic costmap.
	Live Mode = iota
	// Static samples a map-only overlay, ignoring dynamic obstacles.
	Static
)

// Checker evaluates footprint safety against a costmap.Grid pair: one for
// the live combined view, one for the static map-only overlay. Both may
// point at the same Grid if the caller does not maintain a separate
// static overlay.
type Checker struct {
	LiveGrid   costmap.Grid
	StaticGrid costmap.Grid
	Thresholds costmap.Thresholds
	Circles    []Circle
	// Polygon is the padded footprint polygon in the body frame, used by
	// the accurate rasterization check.
	Polygon []geometry.Pose
}

func (c *Checker) gridFor(mode Mode) costmap.Grid {
	if mode == Static {
		return c.StaticGrid
	}
	return c.LiveGrid
}

func worldPoint(pose geometry.Pose, localX, localY float64) (float64, float64) {
	cos, sin := math.Cos(pose.Theta), math.Sin(pose.Theta)
	return pose.X + localX*cos - localY*sin, pose.Y + localX*sin + localY*cos
}

// MaxCostCircles is the fast circle-center check: for each circle, sample
// the grid cell under its center only. It under-approximates collision
// risk near the footprint's edges; MaxCostPolygon is the full check
// (spec.md §4.5). lattice.Environment's successor filter does not call
// either; it samples the primitive's polyline itself.
func (c *Checker) MaxCostCircles(pose geometry.Pose, mode Mode) float64 {
	grid := c.gridFor(mode)
	max := 0.0
	for _, circle := range c.Circles {
		wx, wy := worldPoint(pose, circle.OffsetX, circle.OffsetY)
		cost := costmap.CostAtPose(grid, geometry.Pose{X: wx, Y: wy})
		if cost >= c.Thresholds.InscribedInflated {
			return Unsafe
		}
		if float64(cost) > max {
			max = float64(cost)
		}
	}
	return max
}

// MaxCostPolygon is the accurate check: it rasterizes every cell the
// padded footprint polygon covers and returns the maximum cost found.
func (c *Checker) MaxCostPolygon(pose geometry.Pose, mode Mode) float64 {
	grid := c.gridFor(mode)
	if len(c.Polygon) == 0 {
		return c.MaxCostCircles(pose, mode)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	worldPts := make([]geometry.Pose, len(c.Polygon))
	for i, v := range c.Polygon {
		wx, wy := worldPoint(pose, v.X, v.Y)
		worldPts[i] = geometry.Pose{X: wx, Y: wy}
		minX, maxX = math.Min(minX, wx), math.Max(maxX, wx)
		minY, maxY = math.Min(minY, wy), math.Max(maxY, wy)
	}

	res := grid.Resolution()
	maxCost := 0.0
	for x := minX; x <= maxX; x += res {
		for y := minY; y <= maxY; y += res {
			if !pointInPolygon(x, y, worldPts) {
				continue
			}
			cost := costmap.CostAtPose(grid, geometry.Pose{X: x, Y: y})
			if cost >= c.Thresholds.PossiblyCircumscribed {
				return Unsafe
			}
			if float64(cost) > maxCost {
				maxCost = float64(cost)
			}
		}
	}
	return maxCost
}

func pointInPolygon(x, y float64, poly []geometry.Pose) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// RecoveryResult is what RecoveryCircleCost returns: the yaw that clears
// the footprint and the pose it corresponds to, or Found=false if no
// rotation within the search range clears it.
type RecoveryResult struct {
	Found bool
	Yaw   float64
	Pose  geometry.Pose
}

// RecoveryCircleCost searches rotations around pose and returns the first
// collision-free yaw found, scanning outward in alternating directions
// from the current heading (spec.md §4.5).
func (c *Checker) RecoveryCircleCost(pose geometry.Pose, mode Mode, maxSweep float64, step float64) RecoveryResult {
	if c.MaxCostCircles(pose, mode) >= 0 {
		return RecoveryResult{Found: true, Yaw: pose.Theta, Pose: pose}
	}
	for delta := step; delta <= maxSweep; delta += step {
		for _, sign := range []float64{1, -1} {
			candidate := geometry.NewPose(pose.X, pose.Y, pose.Theta+sign*delta)
			if c.MaxCostCircles(candidate, mode) >= 0 {
				return RecoveryResult{Found: true, Yaw: candidate.Theta, Pose: candidate}
			}
		}
	}
	return RecoveryResult{Found: false}
}
