// Package planner implements the planner worker (C7): a dedicated
// goroutine that owns no state except its condition variable and the
// shared planner input, selects a global planner variant by distance, and
// hands a completed path to the supervisor through a queue-of-one.
//
// The condition-variable-driven wake/sleep loop and the single
// mutex-guarded shared state are grounded on
// azul3d-legacy-dstarlite's SynchronizedDStarLite worker, generalized
// from its single replan-on-wake step to the spec's full
// IDLE/PLANNING/SLEEPING lifecycle and distance-based variant selection.
package planner

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/logging"
	"github.com/fetchcore/navcore/navpath"
)

// State is the worker's current lifecycle phase (spec.md §4.7).
type State int

const (
	Idle State = iota
	Planning
	Sleeping
)

// Variant is the global planner chosen by distance from start to goal
// (spec.md §4.7).
type Variant int

const (
	VariantStraightTwoPoint Variant = iota
	VariantBezier
	VariantLatticeSearch
	VariantCoarseAStar
)

// SelectVariant picks the planner variant by the spec's distance bands.
// lastWasBezier is true when the previous attempt used Bezier (Run sets it
// after every attempt, whatever the outcome); it makes this call skip
// Bezier, so within the Bezier band Bezier and the next variant alternate
// across wakes.
func SelectVariant(distance, sbplMaxDistance float64, lastWasBezier bool) Variant {
	switch {
	case distance <= 0.25:
		return VariantStraightTwoPoint
	case distance <= 2.0 && !lastWasBezier:
		return VariantBezier
	case distance <= sbplMaxDistance:
		return VariantLatticeSearch
	default:
		return VariantCoarseAStar
	}
}

// PlanFunc runs one global planner variant from start to goal, returning
// path points or an error. The worker is variant-agnostic; cmd/navd wires
// concrete implementations (search.Searcher for VariantLatticeSearch, a 2D
// A* grid search for VariantCoarseAStar, and so on) in.
type PlanFunc func(ctx context.Context, variant Variant, start, goal geometry.Pose) ([]navpath.Point, error)

// Result is what the worker hands the supervisor through the queue-of-one.
type Result struct {
	Variant Variant
	Path    []navpath.Point
	Err     error
}

// maxConsecutiveFailures is the spec's "more than 4 consecutive failures"
// threshold before I_GOAL_UNREACHABLE is raised while no initial plan
// exists (spec.md §4.7).
const maxConsecutiveFailures = 4

// Worker is the planner worker (C7).
type Worker struct {
	mu   sync.Mutex
	cond *sync.Cond

	goal     geometry.Pose
	goalSet  bool
	runFlag  bool
	hasWoken bool

	state State

	plan     PlanFunc
	currentPose func() geometry.Pose
	sbplMaxDistance float64
	plannerFrequency float64

	clock  clock.Clock
	logger logging.Logger

	resultMu sync.Mutex
	result   *Result
	newPlanSignal chan struct{}

	consecutiveFailures int
	hasInitialPlan      bool
	lastWasBezier       bool
}

// Config bundles Worker's dependencies.
type Config struct {
	Plan             PlanFunc
	CurrentPose      func() geometry.Pose
	SBPLMaxDistance  float64
	PlannerFrequency float64
	Clock            clock.Clock
	Logger           logging.Logger
}

// New constructs a Worker in the IDLE state with run_flag true.
func New(cfg Config) *Worker {
	w := &Worker{
		plan:             cfg.Plan,
		currentPose:      cfg.CurrentPose,
		sbplMaxDistance:  cfg.SBPLMaxDistance,
		plannerFrequency: cfg.PlannerFrequency,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
		runFlag:          true,
		newPlanSignal:    make(chan struct{}, 1),
	}
	if w.clock == nil {
		w.clock = clock.New()
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// SetGoal installs a new goal and wakes the worker.
func (w *Worker) SetGoal(goal geometry.Pose) {
	w.mu.Lock()
	w.goal = goal
	w.goalSet = true
	w.hasWoken = true
	w.consecutiveFailures = 0
	w.hasInitialPlan = false
	w.lastWasBezier = false
	w.mu.Unlock()
	w.cond.Signal()
}

// Wake signals the worker without changing the goal, used by the
// supervisor to request a replan against the same goal.
func (w *Worker) Wake() {
	w.mu.Lock()
	w.hasWoken = true
	w.mu.Unlock()
	w.cond.Signal()
}

// Stop clears run_flag and wakes the worker so it can exit Run.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.runFlag = false
	w.mu.Unlock()
	w.cond.Signal()
}

// State returns the worker's current lifecycle phase.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// NewPlanSignal is closed-over channel signaling "new_global_plan"
// (spec.md §4.7); the supervisor selects on it.
func (w *Worker) NewPlanSignal() <-chan struct{} { return w.newPlanSignal }

// TakeResult drains the queue-of-one result slot, returning nil if empty.
func (w *Worker) TakeResult() *Result {
	w.resultMu.Lock()
	defer w.resultMu.Unlock()
	r := w.result
	w.result = nil
	return r
}

func (w *Worker) publish(r Result) {
	w.resultMu.Lock()
	w.result = &r
	w.resultMu.Unlock()
	select {
	case w.newPlanSignal <- struct{}{}:
	default:
	}
}

// Run is the worker's main loop: block in IDLE on the condition variable,
// plan on wake, sleep at plannerFrequency, repeat until Stop (spec.md
// §4.7). It returns when run_flag is cleared or ctx is done.
func (w *Worker) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, w.Stop)
	defer stop()
	for {
		w.mu.Lock()
		w.state = Idle
		for !w.hasWoken && w.runFlag {
			w.cond.Wait()
		}
		woke := w.hasWoken
		w.hasWoken = false
		runFlag := w.runFlag
		goal := w.goal
		goalSet := w.goalSet
		w.mu.Unlock()

		if !runFlag {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !woke || !goalSet {
			continue
		}

		w.mu.Lock()
		w.state = Planning
		w.mu.Unlock()

		start := w.currentPose()
		distance := geometry.Distance(start, goal)
		variant := SelectVariant(distance, w.sbplMaxDistance, w.lastWasBezier)
		w.lastWasBezier = variant == VariantBezier

		points, err := w.plan(ctx, variant, start, goal)
		if err != nil {
			w.consecutiveFailures++
			if w.logger != nil {
				w.logger.Warnw("planner: variant failed", "variant", variant, "error", err)
			}
			if !w.hasInitialPlan && w.consecutiveFailures > maxConsecutiveFailures {
				w.mu.Lock()
				w.runFlag = false
				w.mu.Unlock()
				w.publish(Result{Variant: variant, Err: errGoalUnreachable})
				return
			}
		} else {
			w.consecutiveFailures = 0
			w.hasInitialPlan = true
			w.publish(Result{Variant: variant, Path: points})
		}

		w.mu.Lock()
		w.state = Sleeping
		w.mu.Unlock()
		if w.plannerFrequency > 0 {
			w.clock.Sleep(time.Duration(float64(time.Second) / w.plannerFrequency))
		}
	}
}
