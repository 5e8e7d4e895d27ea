package supervisor

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/localctrl"
	"github.com/fetchcore/navcore/logging"
	"github.com/fetchcore/navcore/navpath"
	"github.com/fetchcore/navcore/navstatus"
	"github.com/fetchcore/navcore/planner"
	"github.com/fetchcore/navcore/safety"
)

// RotateService is the externally owned in-place rotation hardware
// service used by LOCATION_RECOVERY_R (spec.md §1 non-goal,
// "rotation/protector hardware services").
type RotateService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Check reports whether the rotation has produced a valid
	// localization fix yet.
	Check(ctx context.Context) (bool, error)
}

// Deps bundles every collaborator the supervisor reads from or publishes
// to, standing in for the external services spec.md §1 places out of
// scope (TF, velocity publisher, protector bus, rotate hardware).
type Deps struct {
	CurrentPose        func() geometry.Pose
	CurrentVelocity    func() localctrl.Twist
	LocalizationValid  func() bool
	// ProtectorBus returns the current protector bitmask; bit 0 is the
	// front protector (spec.md §4.8 step 9).
	ProtectorBus func() uint32
	PublishTwist func(localctrl.Twist)
	Rotate       RotateService

	Controller *localctrl.Controller
	Checker    *safety.Checker
	Worker     *planner.Worker

	Clock  clock.Clock
	Logger logging.Logger
}

// Supervisor is the navigation supervisor (C8).
type Supervisor struct {
	deps   Deps
	params Params

	state           State
	path            *navpath.Path
	planningState   PlanningSubstate
	recoveryTrigger RecoveryTrigger

	firstTickAfterInstall bool
	lastPose              geometry.Pose
	lastOscillationReset  time.Time
	planningStarted       time.Time
	controllerFailures    int
	controllerFirstFail   time.Time
	cmdVelRatio           float64
	frontSlowTicks        int
	stopClearCount        int

	// frontPath is the "switch path" staging slot (spec.md §5): a
	// candidate path computed off the critical path that tickControlling
	// may swap in if it turns out shorter, safe, and heading-consistent.
	frontPath []navpath.Point

	locationRecoveryDeadline time.Time
	backwardRecoveryTried    bool
	localPlannerTimeouts     int
	localPlannerErrors       int
	globalPlannerTimeouts    int
	globalRecoveryAttempts   int
}

// New constructs a Supervisor in APlanning, ready for a first goal.
func New(deps Deps, params Params, tuning navpath.Tuning) *Supervisor {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	return &Supervisor{
		deps:        deps,
		params:      params,
		state:       APlanning,
		path:        navpath.NewPath(tuning),
		cmdVelRatio: 1.0,
	}
}

// State returns the supervisor's current top-level state.
func (s *Supervisor) State() State { return s.state }

// SetGoal installs a new goal, resets per-goal bookkeeping, and wakes the
// planner worker (spec.md §4.8 "A_PLANNING ... new goal").
func (s *Supervisor) SetGoal(goal geometry.Pose) {
	s.state = APlanning
	s.planningState = PInsertingNone
	s.planningStarted = s.deps.Clock.Now()
	s.resetRecoveryCounters()
	s.deps.Worker.SetGoal(goal)
}

// SetFrontPath stashes a candidate path in the "switch path" staging slot
// (spec.md §5) for tickControlling to consider swapping in. A nil or empty
// points clears any previously stashed candidate.
func (s *Supervisor) SetFrontPath(points []navpath.Point) {
	s.frontPath = append([]navpath.Point(nil), points...)
}

func (s *Supervisor) resetRecoveryCounters() {
	s.backwardRecoveryTried = false
	s.localPlannerTimeouts = 0
	s.localPlannerErrors = 0
	s.globalPlannerTimeouts = 0
	s.globalRecoveryAttempts = 0
}

// Tick runs one fixed-rate iteration of the state machine, returning the
// status code to report this tick (spec.md §4.8).
func (s *Supervisor) Tick(ctx context.Context) navstatus.Code {
	switch s.state {
	case APlanning:
		return s.tickPlanning()
	case FixControlling:
		return s.tickControlling()
	case FixClearing:
		return s.tickClearing(ctx)
	default:
		return navstatus.GoalReached
	}
}

// tickPlanning polls for new_global_plan, installing the result once
// ready, or escalates to FixClearing after planner_patience.
func (s *Supervisor) tickPlanning() navstatus.Code {
	select {
	case <-s.deps.Worker.NewPlanSignal():
		result := s.deps.Worker.TakeResult()
		if result == nil {
			break
		}
		if result.Err != nil {
			if s.deps.Clock.Now().Sub(s.planningStarted) > s.params.PlannerPatience {
				s.state = FixClearing
				s.recoveryTrigger = GlobalPlannerRecoveryR
			}
			return navstatus.GoalPlanning
		}
		s.installPath(result.Path)
		s.state = FixControlling
		return navstatus.GoalHeading
	default:
	}
	if s.deps.Clock.Now().Sub(s.planningStarted) > s.params.PlannerPatience {
		s.state = FixClearing
		s.recoveryTrigger = GlobalPlannerRecoveryR
	}
	return navstatus.GoalPlanning
}

// installPath splices the worker's result into the installed path per
// s.planningState: a fresh global plan replaces it wholesale, while the
// other sub-states graft the result onto what's already installed (spec.md
// §4.8's "planning sub-states tell the worker how to splice the next
// result into the installed path").
func (s *Supervisor) installPath(points []navpath.Point) {
	switch s.planningState {
	case PInsertingBegin:
		s.path.InsertBeginPath(points)
	case PInsertingEnd:
		s.path.InsertEndPath(points)
	case PInsertingMiddle:
		if len(s.path.Points) == 0 {
			s.path.SetFixPath(points)
		} else {
			start := s.deps.CurrentPose()
			goal := s.path.Points[len(s.path.Points)-1].Pose
			if err := s.path.InsertMiddlePath(points, start, goal); err != nil {
				s.path.SetFixPath(points)
			}
		}
	case PInsertingSBPL:
		s.path.SetShortSBPLPath(points)
	default:
		s.path.SetFixPath(points)
	}
	s.planningState = PInsertingNone
	s.firstTickAfterInstall = true
	s.controllerFailures = 0
	s.frontSlowTicks = 0
	s.cmdVelRatio = 1.0
}

// tickControlling runs the per-tick safety pipeline (spec.md §4.8).
func (s *Supervisor) tickControlling() navstatus.Code {
	pose := s.deps.CurrentPose()
	if geometry.Distance(pose, s.lastPose) >= s.params.OscillationDistance {
		s.lastOscillationReset = s.deps.Clock.Now()
	}
	s.lastPose = pose

	if s.deps.Checker.LiveGrid != nil && s.params.CostmapStaleTimeout > 0 {
		if s.deps.Clock.Now().Sub(s.deps.Checker.LiveGrid.UpdatedAt()) > s.params.CostmapStaleTimeout {
			s.state = FixClearing
			s.recoveryTrigger = LocalPlannerRecoveryR
			return navstatus.PathNotSafe
		}
	}

	if s.deps.LocalizationValid != nil && !s.deps.LocalizationValid() {
		s.state = FixClearing
		s.recoveryTrigger = LocationRecoveryR
		return navstatus.LocationInvalid
	}

	if s.goalReached(pose) {
		s.state = Done
		return navstatus.GoalReached
	}

	if len(s.frontPath) > 0 {
		if s.frontPathIsBetter(pose) {
			s.path.SetFixPath(s.frontPath)
			s.firstTickAfterInstall = true
		}
		s.frontPath = nil
	}

	if !s.firstTickAfterInstall {
		if err := s.path.Prune(pose, s.params.MaxOffroadDis, s.params.MaxOffroadYaw, false); err != nil {
			s.state = FixClearing
			s.recoveryTrigger = LocalPlannerRecoveryR
			return navstatus.PathNotSafe
		}
	}
	s.firstTickAfterInstall = false

	if s.lastOscillationReset.IsZero() {
		s.lastOscillationReset = s.deps.Clock.Now()
	}
	if s.deps.Clock.Now().Sub(s.lastOscillationReset) > s.params.OscillationTimeout {
		s.state = FixClearing
		s.recoveryTrigger = FixOscillationR
		return navstatus.PathNotSafe
	}

	if s.deps.ProtectorBus != nil && s.deps.ProtectorBus()&0x1 != 0 {
		s.state = FixClearing
		s.recoveryTrigger = BackwardRecoveryR
		return navstatus.PathNotSafe
	}

	clear := s.frontClearDistance(pose)
	switch {
	case clear < 0.35:
		s.cmdVelRatio = 0
		return navstatus.GoalUnreached
	case clear <= 0.6:
		s.stopClearCount++
		if s.stopClearCount >= 2 {
			s.state = FixClearing
			s.recoveryTrigger = LocalPlannerRecoveryR
			return navstatus.PathNotSafe
		}
		s.cmdVelRatio = 0
		return navstatus.GoalHeading
	case clear <= 1.0:
		s.cmdVelRatio = 0.5
		s.stopClearCount = 0
	case clear <= 1.7:
		s.cmdVelRatio = 0.7
		s.stopClearCount = 0
		s.frontSlowTicks++
		if s.frontSlowTicks >= 10 && clear < 1.5 {
			s.planningState = PInsertingMiddle
			s.state = APlanning
			s.deps.Worker.Wake()
			return navstatus.GoalPlanning
		}
	default:
		s.cmdVelRatio = 1.0
		s.stopClearCount = 0
		s.frontSlowTicks = 0
	}

	s.deps.Controller.Params.CmdVelRatio = s.cmdVelRatio
	twist, err := s.deps.Controller.ComputeVelocity(pose, s.deps.CurrentVelocity(), s.path)
	if err != nil {
		if s.controllerFailures == 0 {
			s.controllerFirstFail = s.deps.Clock.Now()
		}
		s.controllerFailures++
		if s.controllerFailures > 3 && s.deps.Clock.Now().Sub(s.controllerFirstFail) > s.params.ControllerPatience {
			s.state = FixClearing
			s.recoveryTrigger = LocalPlannerRecoveryR
			return navstatus.PathNotSafe
		}
		s.deps.PublishTwist(localctrl.Twist{})
		return navstatus.GoalHeading
	}
	s.controllerFailures = 0

	s.deps.PublishTwist(twist)
	return navstatus.GoalHeading
}

// pointsLength sums Euclidean segment lengths over a raw point slice, the
// frontPath equivalent of (*navpath.Path).Length.
func pointsLength(points []navpath.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += geometry.Distance(points[i-1].Pose, points[i].Pose)
	}
	return total
}

// frontPathIsBetter reports whether s.frontPath should replace s.path:
// shorter than the installed path, safe along its whole length, and its
// first leg doesn't demand an immediate reversal of heading (spec.md §4.8
// step 6, §5's "switch path" staging slot).
func (s *Supervisor) frontPathIsBetter(pose geometry.Pose) bool {
	if len(s.frontPath) < 2 {
		return false
	}
	if pointsLength(s.frontPath) >= s.path.Length() {
		return false
	}
	heading := math.Atan2(s.frontPath[1].Pose.Y-s.frontPath[0].Pose.Y, s.frontPath[1].Pose.X-s.frontPath[0].Pose.X)
	if absAngle(geometry.AngleDiff(pose.Theta, heading)) > math.Pi/2 {
		return false
	}
	for _, pt := range s.frontPath {
		if s.deps.Checker.MaxCostCircles(pt.Pose, safety.Live) < 0 {
			return false
		}
	}
	return true
}

func (s *Supervisor) goalReached(pose geometry.Pose) bool {
	if len(s.path.Points) == 0 {
		return false
	}
	goal := s.path.Points[len(s.path.Points)-1]
	return geometry.Distance(pose, goal.Pose) <= s.params.XYGoalTolerance &&
		absAngle(geometry.AngleDiff(pose.Theta, goal.Pose.Theta)) <= s.params.YawGoalTolerance
}

func absAngle(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}

// frontClearDistance samples a straight ray along the robot's current
// heading in 0.1m steps up to front_safe_check_dis, returning the distance
// to the first unsafe sample, or FrontSafeCheckDis if the whole window is
// clear (spec.md §4.8 step 10). It does not follow the installed path.
func (s *Supervisor) frontClearDistance(pose geometry.Pose) float64 {
	const step = 0.1
	for d := step; d <= s.params.FrontSafeCheckDis; d += step {
		sample := geometry.NewPose(
			pose.X+d*math.Cos(pose.Theta),
			pose.Y+d*math.Sin(pose.Theta),
			pose.Theta,
		)
		if s.deps.Checker.MaxCostCircles(sample, safety.Live) < 0 {
			return d
		}
	}
	return s.params.FrontSafeCheckDis
}
