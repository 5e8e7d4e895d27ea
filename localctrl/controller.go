package localctrl

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/fetchcore/navcore/control"
	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/logging"
	"github.com/fetchcore/navcore/navpath"
)

// Backend selects which candidate-generation strategy compute_velocity
// uses; both share the same scoring loop (spec.md §4.6).
type Backend int

const (
	// Rollout samples the full (v, omega) grid every tick.
	Rollout Backend = iota
	// Lookahead restricts the search to velocities reachable from the
	// previous command within the acceleration limits, cheaper per tick.
	Lookahead
)

// ErrNoValidTwist is returned when every candidate on the grid is invalid.
var ErrNoValidTwist = errors.New("localctrl: no valid twist found")

// ClearanceCostFunc returns a continuous obstacle-proximity cost for a
// simulated pose, 0 meaning maximally clear. It is distinct from
// ValidityPredicate's binary cut: occdist scores how close a still-valid
// trajectory skirts obstacles, not whether it collides (spec.md §4.6).
type ClearanceCostFunc func(pose geometry.Pose) float64

// Controller is the local trajectory controller (C6).
type Controller struct {
	Backend Backend
	Params  Params
	Valid   ValidityPredicate
	// ClearanceCost, if set, scores occdist in evaluate. Left nil, occdist
	// is always 0 (the candidate grid still rejects colliding trajectories
	// via Valid).
	ClearanceCost ClearanceCostFunc
	logger        logging.Logger

	mode       Mode
	latchedYaw float64

	stopProfileX *control.TrapezoidVelocityProfile
}

// stopDockingWindow is how close (meters) the remaining distance-to-goal
// must fall before the stopping profile reports fully landed, deliberately
// tighter than xy_goal_tolerance so the profile actually brakes instead of
// snapping to rest on its first tick.
const stopDockingWindow = 0.01

// New constructs a Controller. The stopping phase's forward-velocity
// braking is driven by a control.TrapezoidVelocityProfile block treating
// distance-to-goal as the position error, landing exactly on zero velocity
// without overshoot instead of a time-based decay.
func New(backend Backend, params Params, valid ValidityPredicate, logger logging.Logger) (*Controller, error) {
	stopProfileX, err := control.NewTrapezoidVelocityProfile(control.BlockConfig{
		Name: "stop_x",
		Attribute: control.AttributeMap{
			"max_vel":    params.MaxVelX,
			"max_acc":    params.AccLimX,
			"pos_window": stopDockingWindow,
		},
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Controller{
		Backend:      backend,
		Params:       params,
		Valid:        valid,
		logger:       logger,
		mode:         ModeTracking,
		stopProfileX: stopProfileX,
	}, nil
}

// candidate is one (v, omega) sample under evaluation.
type candidate struct {
	twist Twist
	score float64
	valid bool
}

// ComputeVelocity implements compute_velocity(pose, velocity, path) ->
// twist (spec.md §4.6). path must already be pruned to the robot's
// vicinity by the caller.
func (c *Controller) ComputeVelocity(pose geometry.Pose, velocity Twist, path *navpath.Path) (Twist, error) {
	if len(path.Points) == 0 {
		return Twist{}, errors.New("localctrl: empty path")
	}

	nearest := nearestPoint(pose, path)
	if nearest.Corner {
		return c.handleCorner(pose, nearest)
	}

	goal := path.Points[len(path.Points)-1]
	distToGoal := geometry.Distance(pose, goal.Pose)
	if distToGoal <= c.Params.XYGoalTolerance && len(path.Points) <= 100 {
		return c.handleGoalReach(pose, velocity, goal)
	}

	c.mode = ModeTracking
	twist, ok := c.bestCandidate(pose, velocity, path)
	if !ok {
		return Twist{}, ErrNoValidTwist
	}
	return c.scale(twist), nil
}

func (c *Controller) scale(t Twist) Twist {
	return Twist{Vx: t.Vx * c.Params.CmdVelRatio, Vy: t.Vy * c.Params.CmdVelRatio, Omega: t.Omega * c.Params.CmdVelRatio}
}

func nearestPoint(pose geometry.Pose, path *navpath.Path) navpath.Point {
	best := path.Points[0]
	bestDist := geometry.Distance(pose, best.Pose)
	for _, pt := range path.Points {
		d := geometry.Distance(pose, pt.Pose)
		if d < bestDist {
			bestDist = d
			best = pt
		}
	}
	return best
}

// handleCorner rotates in place to theta_out before allowing translational
// motion, resetting direction memory if the target yaw changes mid
// rotation (spec.md §4.6).
func (c *Controller) handleCorner(pose geometry.Pose, corner navpath.Point) (Twist, error) {
	if c.mode != ModeCornerRotate || c.latchedYaw != corner.ThetaOut {
		c.mode = ModeCornerRotate
		c.latchedYaw = corner.ThetaOut
	}
	dtheta := geometry.AngleDiff(pose.Theta, corner.ThetaOut)
	if math.Abs(dtheta) <= c.Params.YawGoalTolerance {
		c.mode = ModeTracking
		return Twist{}, nil
	}
	omega := c.rotateToward(dtheta)
	return Twist{Omega: omega}, nil
}

// rotateToward returns the in-place rotational speed for a heading error
// of dtheta: sqrt(2*acc_lim_theta*|dtheta|) clamped to
// [min_in_place_rotational_vel, max_vel_theta], with the sign of dtheta.
// There is no proportional gain term; the square-root braking profile alone
// sets the speed below max_vel_theta.
func (c *Controller) rotateToward(dtheta float64) float64 {
	sign := 1.0
	if dtheta < 0 {
		sign = -1.0
	}
	brake := math.Sqrt(2 * c.Params.AccLimTheta * math.Abs(dtheta))
	speed := math.Min(brake, c.Params.MaxVelTheta)
	if speed < c.Params.MinInPlaceRotationalVel {
		speed = c.Params.MinInPlaceRotationalVel
	}
	return sign * speed
}

// handleGoalReach implements the xy-tolerance latch -> stop -> rotate to
// goal yaw -> reached sequence (spec.md §4.6).
func (c *Controller) handleGoalReach(pose geometry.Pose, velocity Twist, goal navpath.Point) (Twist, error) {
	if c.mode != ModeStopping && c.mode != ModeGoalRotate && c.mode != ModeReached {
		c.mode = ModeStopping
	}

	if c.mode == ModeStopping {
		stopped := c.stopWithAccLimits(pose, goal, &velocity)
		if !stopped {
			return velocity, nil
		}
		c.mode = ModeGoalRotate
	}

	dtheta := geometry.AngleDiff(pose.Theta, goal.Pose.Theta)
	if math.Abs(dtheta) <= c.Params.YawGoalTolerance {
		c.mode = ModeReached
		return Twist{}, nil
	}
	omega := c.rotateToward(dtheta)
	return Twist{Omega: omega}, nil
}

// stopWithAccLimits brakes Vx to zero without overshoot via stopProfileX,
// fed the live distance-to-goal as its position error, and decays Omega
// toward zero at acc_lim_theta, returning true once both axes are stopped
// (spec.md §4.6).
func (c *Controller) stopWithAccLimits(pose geometry.Pose, goal navpath.Point, velocity *Twist) bool {
	const dt = 20 * time.Millisecond

	// The profile drives endpoint up toward setPoint; feed it the negated
	// remaining distance so a positive command means "move forward".
	setPoint := control.NewSignal("goal_dist", 1)
	endpoint := control.NewSignal("remaining_dist", 1)
	endpoint.SetSignalValueAt(0, -geometry.Distance(pose, goal.Pose))
	out, _ := c.stopProfileX.Next(context.Background(), []*control.Signal{&setPoint, &endpoint}, dt)
	velocity.Vx = out[0].GetSignalValueAt(0)

	maxDeltaOmega := c.Params.AccLimTheta * dt.Seconds()
	if math.Abs(velocity.Omega) <= maxDeltaOmega {
		velocity.Omega = 0
	} else if velocity.Omega > 0 {
		velocity.Omega -= maxDeltaOmega
	} else {
		velocity.Omega += maxDeltaOmega
	}
	return velocity.Vx == 0 && velocity.Omega == 0
}

// bestCandidate runs the shared rollout/lookahead candidate grid: simulate
// forward sim_time at sim_granularity, reject invalid trajectories, score
// the rest by pdist/gdist/occdist (spec.md §4.6).
func (c *Controller) bestCandidate(pose geometry.Pose, velocity Twist, path *navpath.Path) (Twist, bool) {
	p := c.Params
	vSamples := 5
	vMin, vMax := p.MinVelX, p.MaxVelX
	if c.Backend == Lookahead {
		// Restrict to what's reachable within one acceleration step from
		// the current velocity, a cheaper search than the full rollout
		// grid (spec.md §4.6).
		step := p.AccLimX * p.SimGranularity
		vMin = math.Max(vMin, velocity.Vx-step)
		vMax = math.Min(vMax, velocity.Vx+step)
	}

	var best *candidate
	for vi := 0; vi < vSamples; vi++ {
		v := vMin + (vMax-vMin)*float64(vi)/float64(vSamples-1)
		for oi := 0; oi < p.VThetaSamples; oi++ {
			omega := p.MinVelTheta + (p.MaxVelTheta-p.MinVelTheta)*float64(oi)/float64(p.VThetaSamples-1)
			t := Twist{Vx: v, Omega: omega}
			cand := c.evaluate(pose, t, path)
			if !cand.valid {
				continue
			}
			if best == nil || cand.score < best.score {
				best = &cand
			}
		}
	}
	if best == nil {
		return Twist{}, false
	}
	return best.twist, true
}

func (c *Controller) evaluate(pose geometry.Pose, t Twist, path *navpath.Path) candidate {
	steps := int(c.Params.SimTime / c.Params.SimGranularity)
	if steps < 1 {
		steps = 1
	}
	simPose := pose
	for i := 0; i < steps; i++ {
		simPose = simulate(simPose, t, c.Params.SimGranularity)
		if c.Valid != nil && !c.Valid(simPose, t) {
			return candidate{twist: t, valid: false}
		}
	}

	pdist := distanceFromPath(simPose, path)
	goal := path.Points[len(path.Points)-1]
	gdist := geometry.Distance(simPose, goal.Pose)

	// occdist is the continuous clearance term: Valid already rejects
	// actual collisions, this scores how close a still-valid trajectory
	// skirts obstacles along the way.
	occdist := 0.0
	if c.ClearanceCost != nil {
		occdist = c.ClearanceCost(simPose)
		if occdist < 0 {
			occdist = 0
		}
	}

	score := c.Params.PDistScale*pdist + c.Params.GDistScale*gdist + c.Params.OccDistScale*occdist
	return candidate{twist: t, score: score, valid: true}
}

func distanceFromPath(pose geometry.Pose, path *navpath.Path) float64 {
	best := math.Inf(1)
	for _, pt := range path.Points {
		d := geometry.Distance(pose, pt.Pose)
		if d < best {
			best = d
		}
	}
	return best
}
