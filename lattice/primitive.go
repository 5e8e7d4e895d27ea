// Package lattice implements the state lattice environment (C1): discrete
// (x, y, theta) cells connected by pre-computed motion primitives, cost
// queries against a costmap, and the backward Dijkstra heuristic grid.
//
// It is grounded on the trajectory-node shape used by
// viamrobotics-rdk/motionplan/tpspace (TrajNode{Pose, Time, LinVelMMPS,
// AngVelRPS}, NewDiffDrivePTG, ComputePTG), generalized from a single
// continuous parameterized trajectory generator to the spec's pre-computed,
// per-heading-bin primitive table.
package lattice

import "github.com/fetchcore/navcore/geometry"

// PrimKind distinguishes the three motion classes the supervisor and
// footprint checker reason about differently (turn-in-place never needs a
// full-polygon sweep check, for instance).
type PrimKind int

const (
	Forward PrimKind = iota
	ForwardTurn
	TurnInPlace
)

// Waypoint is one interpolated sample along a primitive's intermediate
// polyline. Pose.X/Pose.Y are offsets from the origin cell's continuized
// position in world-aligned axes (the same axes as DX/DY); Pose.Theta is the
// absolute heading at that sample.
type Waypoint struct {
	Pose geometry.Pose
	// LinVelMMPS and AngVelRPS are the nominal commanded velocities a
	// controller following this primitive would use at this sample.
	LinVelMMPS float64
	AngVelRPS  float64
}

// Primitive is a pre-computed short trajectory beginning at heading bin
// ThetaStart and ending at the cell offset (DX, DY, ThetaEnd). BaseCost is
// the nominal cost multiplier used before accounting for costmap cells the
// primitive passes through (spec.md §3).
type Primitive struct {
	ID         int
	Kind       PrimKind
	ThetaStart int
	DX, DY     int
	ThetaEnd   int
	BaseCost   float64
	Waypoints  []Waypoint
}

// Reverse returns the primitive that undoes this one, used by
// Environment.GetPreds (spec.md §4.1 "symmetric via primitive reversal").
func (p Primitive) Reverse() Primitive {
	rev := Primitive{
		ID:         p.ID,
		Kind:       p.Kind,
		ThetaStart: p.ThetaEnd,
		DX:         -p.DX,
		DY:         -p.DY,
		ThetaEnd:   p.ThetaStart,
		BaseCost:   p.BaseCost,
		Waypoints:  make([]Waypoint, len(p.Waypoints)),
	}
	n := len(p.Waypoints)
	for i, wp := range p.Waypoints {
		j := n - 1 - i
		rev.Waypoints[j] = Waypoint{
			Pose: geometry.NewPose(
				p.Waypoints[n-1].Pose.X-wp.Pose.X,
				p.Waypoints[n-1].Pose.Y-wp.Pose.Y,
				wp.Pose.Theta+3.141592653589793,
			),
			LinVelMMPS: -wp.LinVelMMPS,
			AngVelRPS:  -wp.AngVelRPS,
		}
	}
	return rev
}

// Table holds every primitive grouped by starting heading bin, the shape
// Environment.GetSuccs iterates per spec.md §4.1 ("applies every primitive
// whose theta_start matches entry.theta").
type Table struct {
	NumThetaBins int
	byStartTheta map[int][]Primitive
}

// NewTable groups prims by ThetaStart.
func NewTable(numThetaBins int, prims []Primitive) *Table {
	t := &Table{NumThetaBins: numThetaBins, byStartTheta: make(map[int][]Primitive)}
	for _, p := range prims {
		t.byStartTheta[p.ThetaStart] = append(t.byStartTheta[p.ThetaStart], p)
	}
	return t
}

// PrimitivesFrom returns every primitive starting at the given heading bin.
func (t *Table) PrimitivesFrom(thetaBin int) []Primitive {
	return t.byStartTheta[thetaBin]
}

// DefaultDiffDriveTable builds a small, symmetric primitive set for a
// differential-drive base: one straight forward move along each heading
// bin (there are no backward moves), a diagonal forward-turn to each of the two neighboring
// heading bins, and an in-place turn to every other heading bin. It mirrors
// the primitive-per-heading-bin structure tpspace's PTG grid produces,
// without requiring a runtime trajectory-generator dependency.
func DefaultDiffDriveTable(numThetaBins int, cellRes float64) *Table {
	var prims []Primitive
	id := 0
	binWidth := 2 * 3.141592653589793 / float64(numThetaBins)
	dirs := []struct{ dx, dy int }{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	stepsPerBin := numThetaBins / 8
	if stepsPerBin < 1 {
		stepsPerBin = 1
	}
	for theta := 0; theta < numThetaBins; theta++ {
		dirIdx := (theta / stepsPerBin) % len(dirs)
		d := dirs[dirIdx]
		heading := float64(theta) * binWidth
		end := geometry.NewPose(float64(d.dx)*cellRes, float64(d.dy)*cellRes, heading)
		prims = append(prims, Primitive{
			ID:         id,
			Kind:       Forward,
			ThetaStart: theta,
			DX:         d.dx,
			DY:         d.dy,
			ThetaEnd:   theta,
			BaseCost:   geometry.Distance(geometry.Pose{}, end) / cellRes,
			Waypoints:  straightLine(end, 5),
		})
		id++

		left := (theta + 1) % numThetaBins
		right := (theta - 1 + numThetaBins) % numThetaBins
		for _, target := range []int{left, right} {
			prims = append(prims, Primitive{
				ID:         id,
				Kind:       ForwardTurn,
				ThetaStart: theta,
				DX:         d.dx,
				DY:         d.dy,
				ThetaEnd:   target,
				BaseCost:   1.5 * geometry.Distance(geometry.Pose{}, end) / cellRes,
				Waypoints:  straightLine(end, 5),
			})
			id++
		}

		for target := 0; target < numThetaBins; target++ {
			if target == theta {
				continue
			}
			prims = append(prims, Primitive{
				ID:         id,
				Kind:       TurnInPlace,
				ThetaStart: theta,
				DX:         0,
				DY:         0,
				ThetaEnd:   target,
				BaseCost:   1.0,
				Waypoints:  []Waypoint{{Pose: geometry.NewPose(0, 0, float64(target)*binWidth)}},
			})
			id++
		}
	}
	return NewTable(numThetaBins, prims)
}

func straightLine(end geometry.Pose, n int) []Waypoint {
	wps := make([]Waypoint, n+1)
	for i := 0; i <= n; i++ {
		frac := float64(i) / float64(n)
		wps[i] = Waypoint{Pose: geometry.NewPose(end.X*frac, end.Y*frac, end.Theta)}
	}
	return wps
}
