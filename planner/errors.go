package planner

import "github.com/pkg/errors"

// errGoalUnreachable is raised after more than 4 consecutive planning
// failures while no initial plan for the current goal exists
// (spec.md §4.7).
var errGoalUnreachable = errors.New("planner: goal unreachable after repeated failures")

// ErrGoalUnreachable is the exported sentinel callers can compare against
// with errors.Is.
var ErrGoalUnreachable = errGoalUnreachable
