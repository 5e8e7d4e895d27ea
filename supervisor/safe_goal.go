package supervisor

import (
	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/navpath"
	"github.com/fetchcore/navcore/safety"
)

// GetAStarGoal scans the installed path from beginIndex forward over at
// most four rounds with decreasing goal_safe_dis_a, accepting the first
// point whose footprint is safe, whose forward/backward clearance within
// (goal_safe_dis_a, goal_safe_dis_b) is unobstructed, and whose distance
// from curPose exceeds goal_safe_dis_a. Falls back to the global goal if
// it alone is footprint-safe (spec.md §4.9).
func (s *Supervisor) GetAStarGoal(curPose geometry.Pose, extendX, extendY float64, beginIndex int) (navpath.Point, bool) {
	disA := s.params.GoalSafeDisA
	for round := 0; round < 4; round++ {
		for i := beginIndex; i < len(s.path.Points); i++ {
			pt := s.path.Points[i]
			if geometry.Distance(curPose, pt.Pose) <= disA {
				continue
			}
			if s.deps.Checker.MaxCostCircles(pt.Pose, safety.Live) < 0 {
				continue
			}
			if !s.clearanceWindow(i, disA, s.params.GoalSafeDisB) {
				continue
			}
			return pt, true
		}
		disA *= 0.5
	}

	if len(s.path.Points) > 0 {
		goal := s.path.Points[len(s.path.Points)-1]
		if s.deps.Checker.MaxCostCircles(goal.Pose, safety.Live) >= 0 {
			return goal, true
		}
	}
	return navpath.Point{}, false
}

// clearanceWindow checks that every path point within (disA, disB) of
// index i, measured along the path, is footprint-safe.
func (s *Supervisor) clearanceWindow(i int, disA, disB float64) bool {
	forward := 0.0
	for j := i; j+1 < len(s.path.Points); j++ {
		forward += geometry.Distance(s.path.Points[j].Pose, s.path.Points[j+1].Pose)
		if forward > disB {
			break
		}
		if forward >= disA && s.deps.Checker.MaxCostCircles(s.path.Points[j+1].Pose, safety.Live) < 0 {
			return false
		}
	}
	backward := 0.0
	for j := i; j-1 >= 0; j-- {
		backward += geometry.Distance(s.path.Points[j-1].Pose, s.path.Points[j].Pose)
		if backward > disB {
			break
		}
		if backward >= disA && s.deps.Checker.MaxCostCircles(s.path.Points[j-1].Pose, safety.Live) < 0 {
			return false
		}
	}
	return true
}
