// Package geometry provides the Pose type and the lattice
// discretization/continuization contract (spec.md §3, §8 round-trip
// property) shared by every other navcore package. It is grounded on the
// golang/geo r3.Vector usage seen throughout
// viamrobotics-rdk/motionplan/tpspace's trajectory-node tests.
package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// Pose is a 2D robot pose: a position in meters and a heading in radians,
// normalized to (-pi, pi].
type Pose struct {
	X, Y  float64
	Theta float64
}

// NewPose normalizes theta into (-pi, pi] before returning.
func NewPose(x, y, theta float64) Pose {
	return Pose{X: x, Y: y, Theta: WrapAngle(theta)}
}

// Point returns the pose's planar position as an r3.Vector with Z=0, the
// representation used when composing with primitive polylines.
func (p Pose) Point() r3.Vector { return r3.Vector{X: p.X, Y: p.Y, Z: 0} }

// WrapAngle normalizes any angle into (-pi, pi].
func WrapAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta > math.Pi {
		theta -= 2 * math.Pi
	} else if theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}

// AngleDiff returns the signed shortest angular distance from a to b, in
// (-pi, pi].
func AngleDiff(a, b float64) float64 {
	return WrapAngle(b - a)
}

// Distance returns the Euclidean distance between two poses' positions.
func Distance(a, b Pose) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Hypot(dx, dy)
}

// Cell is a discretized lattice coordinate: integer x/y cells plus a
// heading bin in [0, numThetaBins).
type Cell struct {
	X, Y  int
	Theta int
}

// Discretize converts a continuous pose to a lattice Cell at the given
// resolution (meters/cell) and heading bin count, per spec.md §3.
func Discretize(p Pose, resolution float64, numThetaBins int) Cell {
	x := int(math.Floor(p.X/resolution + 0.5))
	y := int(math.Floor(p.Y/resolution + 0.5))
	binWidth := 2 * math.Pi / float64(numThetaBins)
	// Shift by half a bin so bin 0 is centered on theta=0, matching the
	// inverse in Continuize exactly (round-trip property, spec.md §8).
	theta := int(math.Floor(WrapAngle(p.Theta)/binWidth+0.5)) % numThetaBins
	if theta < 0 {
		theta += numThetaBins
	}
	return Cell{X: x, Y: y, Theta: theta}
}

// Continuize converts a lattice Cell back to a world Pose at its cell
// center, the inverse of Discretize.
func Continuize(c Cell, resolution float64, numThetaBins int) Pose {
	binWidth := 2 * math.Pi / float64(numThetaBins)
	return NewPose(float64(c.X)*resolution, float64(c.Y)*resolution, float64(c.Theta)*binWidth)
}

// DefaultNumThetaBins is the spec's default angular discretization (N_θ).
const DefaultNumThetaBins = 16
