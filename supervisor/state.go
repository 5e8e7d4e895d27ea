// Package supervisor implements the navigation supervisor (C8): a
// single-threaded state machine clocked at controller_frequency that
// drives the planner worker, runs the per-tick safety pipeline, and
// dispatches the recovery hierarchy on failure.
package supervisor

// State is one of the supervisor's top-level states (spec.md §4.8).
type State int

const (
	APlanning State = iota
	FixControlling
	FixClearing
	Done
)

func (s State) String() string {
	switch s {
	case APlanning:
		return "A_PLANNING"
	case FixControlling:
		return "FIX_CONTROLLING"
	case FixClearing:
		return "FIX_CLEARING"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// RecoveryTrigger selects which recovery tier FixClearing dispatches to.
type RecoveryTrigger int

const (
	LocationRecoveryR RecoveryTrigger = iota
	BackwardRecoveryR
	LocalPlannerRecoveryR
	GlobalPlannerRecoveryR
	FixGetNewGoalR
	FixOscillationR
)

// PlanningSubstate tells the worker how to splice its next result into the
// installed path (spec.md §4.8).
type PlanningSubstate int

const (
	PInsertingNone PlanningSubstate = iota
	PInsertingBegin
	PInsertingEnd
	PInsertingMiddle
	PInsertingSBPL
)
