package supervisor

import "time"

// Params bundles the supervisor's timing and tolerance tuning, named after
// the spec's parameter surface (spec.md §6).
type Params struct {
	ControllerFrequency float64
	PlannerPatience     time.Duration
	ControllerPatience  time.Duration
	OscillationTimeout  time.Duration
	OscillationDistance float64

	MaxOffroadDis float64
	MaxOffroadYaw float64

	// CostmapStaleTimeout bounds how old the live costmap's last update may
	// be before the supervisor refuses to trust it (spec.md §4.8 step 2).
	CostmapStaleTimeout time.Duration

	FrontSafeCheckDis     float64
	GoalSafeCheckDuration time.Duration
	StopDuration          time.Duration

	BackwardCheckDis     float64
	LocalizationDuration time.Duration

	GoalSafeDisA, GoalSafeDisB float64

	XYGoalTolerance, YawGoalTolerance float64
}

// DefaultParams returns a conservative nominal tuning.
func DefaultParams() Params {
	return Params{
		ControllerFrequency:   10,
		PlannerPatience:       5 * time.Second,
		ControllerPatience:    3 * time.Second,
		OscillationTimeout:    10 * time.Second,
		OscillationDistance:   0.2,
		MaxOffroadDis:         0.5,
		MaxOffroadYaw:         0.5,
		CostmapStaleTimeout:   2 * time.Second,
		FrontSafeCheckDis:     2.0,
		GoalSafeCheckDuration: 2 * time.Second,
		StopDuration:          1 * time.Second,
		BackwardCheckDis:      0.3,
		LocalizationDuration:  3 * time.Second,
		GoalSafeDisA:          0.5,
		GoalSafeDisB:          1.0,
		XYGoalTolerance:       0.1,
		YawGoalTolerance:      0.1,
	}
}
