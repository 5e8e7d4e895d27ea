// Package localctrl implements the local trajectory controller (C6):
// compute_velocity(pose, velocity, path) -> twist, with a rollout and a
// lookahead backend sharing one candidate-scoring loop, plus the
// goal-reach and corner-rotation state machine.
//
// The scored-candidate-grid structure is grounded on the teacher's
// single-axis position servo loop, generalized to a 2D (v, omega) search;
// the deceleration phase drives a control.TrapezoidVelocityProfile
// directly rather than a configured control.Loop.
package localctrl

import (
	"math"

	"github.com/fetchcore/navcore/geometry"
)

// Twist is a commanded planar velocity.
type Twist struct {
	Vx, Vy, Omega float64
}

// Mode is the controller's current phase, driven by goal-reach and corner
// logic (spec.md §4.6).
type Mode int

const (
	ModeTracking Mode = iota
	ModeCornerRotate
	ModeStopping
	ModeGoalRotate
	ModeReached
)

// Params bounds the candidate search and goal-reach behavior. Field names
// match the spec's parameter surface directly.
type Params struct {
	MaxVelX, MinVelX       float64
	MaxVelTheta, MinVelTheta float64
	MinInPlaceRotationalVel float64
	AccLimX, AccLimY, AccLimTheta float64
	XYGoalTolerance, YawGoalTolerance float64
	SimTime, SimGranularity float64
	VThetaSamples           int
	PDistScale, GDistScale, OccDistScale float64
	// CmdVelRatio scales every candidate twist, set externally (0.5-1.0)
	// under reduced front safety (spec.md §4.6).
	CmdVelRatio float64
}

// DefaultParams returns a conservative nominal tuning.
func DefaultParams() Params {
	return Params{
		MaxVelX: 0.5, MinVelX: 0.0,
		MaxVelTheta: 1.0, MinVelTheta: -1.0,
		MinInPlaceRotationalVel: 0.2,
		AccLimX:                 0.5,
		AccLimY:                 0.5,
		AccLimTheta:             1.5,
		XYGoalTolerance:         0.1,
		YawGoalTolerance:        0.1,
		SimTime:                 1.5,
		SimGranularity:          0.05,
		VThetaSamples:           11,
		PDistScale:              0.6,
		GDistScale:              0.8,
		OccDistScale:            0.2,
		CmdVelRatio:             1.0,
	}
}

// ValidityPredicate reports whether simulating twist forward from pose for
// dt seconds stays clear of the costmap. Supplied by the caller so
// localctrl need not depend on safety directly in its candidate loop,
// mirroring the spec's "reject any that intersects the costmap" as an
// injected check rather than a hard dependency.
type ValidityPredicate func(pose geometry.Pose, twist Twist) bool

func simulate(pose geometry.Pose, twist Twist, dt float64) geometry.Pose {
	theta := pose.Theta + twist.Omega*dt
	x := pose.X + (twist.Vx*math.Cos(pose.Theta)-twist.Vy*math.Sin(pose.Theta))*dt
	y := pose.Y + (twist.Vx*math.Sin(pose.Theta)+twist.Vy*math.Cos(pose.Theta))*dt
	return geometry.NewPose(x, y, theta)
}
