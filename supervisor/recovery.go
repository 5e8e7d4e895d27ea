package supervisor

import (
	"context"
	"math"
	"time"

	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/localctrl"
	"github.com/fetchcore/navcore/navstatus"
	"github.com/fetchcore/navcore/safety"
)

// tickClearing dispatches on recoveryTrigger, the FIX_CLEARING side of the
// recovery hierarchy (spec.md §4.8).
func (s *Supervisor) tickClearing(ctx context.Context) navstatus.Code {
	switch s.recoveryTrigger {
	case LocationRecoveryR:
		return s.locationRecovery(ctx)
	case BackwardRecoveryR:
		return s.backwardRecovery()
	case LocalPlannerRecoveryR:
		return s.localPlannerRecovery()
	case GlobalPlannerRecoveryR:
		return s.globalPlannerRecovery()
	case FixOscillationR:
		s.localPlannerTimeouts++
		s.recoveryTrigger = LocalPlannerRecoveryR
		return navstatus.PathNotSafe
	case FixGetNewGoalR:
		return s.fixGetNewGoal()
	default:
		s.state = Done
		return navstatus.GoalUnreachable
	}
}

// locationRecovery rotates in place via the hardware rotate service up to
// localization_duration; on success transitions to FIX_GETNEWGOAL_R
// (spec.md §4.8).
func (s *Supervisor) locationRecovery(ctx context.Context) navstatus.Code {
	if s.locationRecoveryDeadline.IsZero() {
		s.locationRecoveryDeadline = s.deps.Clock.Now().Add(s.params.LocalizationDuration)
		if s.deps.Rotate != nil {
			if err := s.deps.Rotate.Start(ctx); err != nil {
				s.state = Done
				return navstatus.GoalUnreachable
			}
		}
	}

	if s.deps.LocalizationValid != nil && s.deps.LocalizationValid() {
		s.locationRecoveryDeadline = time.Time{}
		if s.deps.Rotate != nil {
			_ = s.deps.Rotate.Stop(ctx)
		}
		s.recoveryTrigger = FixGetNewGoalR
		return navstatus.LocationInvalid
	}

	if s.deps.Clock.Now().After(s.locationRecoveryDeadline) {
		if s.deps.Rotate != nil {
			_ = s.deps.Rotate.Stop(ctx)
		}
		s.locationRecoveryDeadline = time.Time{}
		s.state = Done
		return navstatus.GoalUnreachable
	}
	return navstatus.LocationInvalid
}

// backwardRecovery backs up backward_check_dis if safe, else escalates to
// LOCAL_PLANNER_RECOVERY_R (spec.md §4.8).
func (s *Supervisor) backwardRecovery() navstatus.Code {
	if s.backwardRecoveryTried {
		s.recoveryTrigger = LocalPlannerRecoveryR
		return navstatus.PathNotSafe
	}
	s.backwardRecoveryTried = true

	pose := s.deps.CurrentPose()
	behind := geometry.NewPose(
		pose.X-s.params.BackwardCheckDis*math.Cos(pose.Theta),
		pose.Y-s.params.BackwardCheckDis*math.Sin(pose.Theta),
		pose.Theta,
	)
	if s.deps.Checker.MaxCostCircles(behind, safety.Live) < 0 {
		s.recoveryTrigger = LocalPlannerRecoveryR
		return navstatus.PathNotSafe
	}
	s.deps.PublishTwist(localctrl.Twist{Vx: -0.1})
	s.state = FixControlling
	s.firstTickAfterInstall = true
	return navstatus.GoalHeading
}

// localPlannerRecovery implements the timeout/error-count ladder: after 10
// timeouts the goal is unreachable; from the 5th timeout, or once
// localPlannerErrors reaches 7, it clears the footprint and retries
// controlling; otherwise it escalates to GLOBAL_PLANNER_RECOVERY_R
// (spec.md §4.8). localPlannerErrors is reset per goal but never
// incremented in this package, so only the timeout count drives the ladder.
func (s *Supervisor) localPlannerRecovery() navstatus.Code {
	s.localPlannerTimeouts++
	if s.localPlannerTimeouts > 10 {
		s.state = Done
		return navstatus.GoalUnreachable
	}
	if s.localPlannerTimeouts >= 5 || s.localPlannerErrors >= 7 {
		pose := s.deps.CurrentPose()
		if s.deps.Checker.StaticGrid != nil {
			_ = s.deps.Checker.StaticGrid.ClearFootprint(pose)
		}
		s.state = FixControlling
		s.firstTickAfterInstall = true
		return navstatus.PathNotSafe
	}
	s.recoveryTrigger = GlobalPlannerRecoveryR
	return navstatus.PathNotSafe
}

// globalPlannerRecovery counts an attempt and a timeout and bails to
// unreachable past 12 timeouts or 8 attempts. If the current footprint is
// unsafe it asks RecoveryCircleCost for a clear yaw and, when one exists,
// publishes a single fixed-rate rotation (Omega 0.3); when none exists the
// goal is unreachable. It does not back up or translate. A safe footprint
// escalates to FIX_GETNEWGOAL_R (spec.md §4.8).
func (s *Supervisor) globalPlannerRecovery() navstatus.Code {
	s.globalRecoveryAttempts++
	s.globalPlannerTimeouts++
	if s.globalPlannerTimeouts > 12 || s.globalRecoveryAttempts > 8 {
		s.state = Done
		return navstatus.GoalUnreachable
	}

	pose := s.deps.CurrentPose()
	if s.deps.Checker.MaxCostCircles(pose, safety.Live) < 0 {
		result := s.deps.Checker.RecoveryCircleCost(pose, safety.Live, 3.14159, 0.2)
		if !result.Found {
			s.state = Done
			return navstatus.GoalUnreachable
		}
		s.deps.PublishTwist(localctrl.Twist{Omega: 0.3})
		return navstatus.PathNotSafe
	}

	s.recoveryTrigger = FixGetNewGoalR
	return navstatus.PathNotSafe
}

// fixGetNewGoal computes a new intermediate or global goal via safety-aware
// selection (spec.md §4.9) and re-enters A_PLANNING.
func (s *Supervisor) fixGetNewGoal() navstatus.Code {
	pose := s.deps.CurrentPose()
	goalPoint, ok := s.GetAStarGoal(pose, 0, 0, 0)
	if !ok {
		return navstatus.PathNotSafe
	}
	s.state = APlanning
	s.planningStarted = s.deps.Clock.Now()
	s.deps.Worker.SetGoal(goalPoint.Pose)
	return navstatus.GoalPlanning
}
