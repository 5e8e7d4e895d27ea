// Package search implements the anytime repairing search (C3): an
// AD*/ARA*-like planner over a lattice.Environment that supports warm
// restart and incremental repair when costmap cells change.
//
// The g/rhs/key bookkeeping and the update_state predecessor-propagation
// loop are grounded on gonum.org/v1/gonum/graph/path's D*-Lite
// implementation (IncrementalShortestPathTree, the overconsistent/
// underconsistent split in its computeShortestPath), generalized from a
// single-pass shortest path to the ARA*-style outer epsilon-decay loop
// spec.md §4.3 describes.
package search

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/lattice"
	"github.com/fetchcore/navcore/logging"
	"github.com/fetchcore/navcore/planheap"
)

// ErrNoPath is returned when the open set empties with the start still at
// rhs = infinity: no path exists under the current costmap.
var ErrNoPath = errors.New("search: no path to goal")

// Config bounds the search's behavior.
type Config struct {
	InitialEpsilon float64
	// ForceScratchLimit is the number of affected, already-visited
	// predecessor entries in one CostsChanged call above which a full
	// reinitialization is forced rather than an incremental repair
	// (spec.md §4.3).
	ForceScratchLimit int
	// BroaderStartAndGoal seeds a 7x7x3 halo around the goal on
	// reinitialization, per spec.md §4.3, so a slightly displaced start can
	// still match an old solution during warm restart.
	BroaderStartAndGoal bool
}

// DefaultConfig returns the spec's nominal tuning.
func DefaultConfig() Config {
	return Config{InitialEpsilon: 2.5, ForceScratchLimit: 64, BroaderStartAndGoal: true}
}

// PlanResult is a completed (possibly suboptimal-but-bounded) plan.
type PlanResult struct {
	// Generation increments every time Plan reinitializes the search: on a
	// goal change, and after CostsChanged forced a full reinitialization.
	// A consumer can compare it to tell a plan from a fresh search from one
	// that continued the previous search (grounds: raybjork's
	// move_request.go plan-generation counter).
	Generation uint64
	Path       []geometry.Pose
	Cost       float64
	Epsilon    float64
	PlanID     uuid.UUID
}

// Searcher runs the anytime repairing search over an Environment.
type Searcher struct {
	env    *lattice.Environment
	cfg    Config
	logger logging.Logger

	open   *planheap.OpenSet
	incons *planheap.InconsistentSet

	epsilon              float64
	iteration            int
	environmentIteration int
	generation           uint64

	lastGoal *geometry.Cell
}

// New returns a Searcher over env.
func New(env *lattice.Environment, cfg Config, logger logging.Logger) *Searcher {
	return &Searcher{
		env:     env,
		cfg:     cfg,
		logger:  logger,
		open:    planheap.NewOpenSet(),
		incons:  planheap.NewInconsistentSet(),
		epsilon: cfg.InitialEpsilon,
	}
}

func (s *Searcher) heuristicToStart(e *lattice.Entry) float64 {
	return s.env.Heuristic(e.Cell)
}

// reinitialize clears the open and inconsistent sets, seeds the goal (and
// its halo, if configured) with rhs = 0, and bumps environmentIteration
// (spec.md §4.3 step 1).
func (s *Searcher) reinitialize() {
	s.open = planheap.NewOpenSet()
	s.incons = planheap.NewInconsistentSet()
	s.environmentIteration++
	s.iteration = 0
	s.epsilon = s.cfg.InitialEpsilon

	goal := s.env.Goal()
	goal.G = lattice.Inf
	goal.RHS = 0
	goal.VisitedIteration = s.environmentIteration
	key := goal.ComputeKey(s.heuristicToStart(goal), s.epsilon)
	goal.SetKey(key)
	s.open.Push(goal)

	if s.cfg.BroaderStartAndGoal {
		for dx := -3; dx <= 3; dx++ {
			for dy := -3; dy <= 3; dy++ {
				for dt := -1; dt <= 1; dt++ {
					if dx == 0 && dy == 0 && dt == 0 {
						continue
					}
					theta := ((goal.Cell.Theta+dt)%s.env.NumThetaBins + s.env.NumThetaBins) % s.env.NumThetaBins
					cell := geometry.Cell{X: goal.Cell.X + dx, Y: goal.Cell.Y + dy, Theta: theta}
					halo := s.env.EntryAt(cell)
					halo.G = lattice.Inf
					halo.RHS = 0
					halo.VisitedIteration = s.environmentIteration
					k := halo.ComputeKey(s.heuristicToStart(halo), s.epsilon)
					halo.SetKey(k)
					s.open.Push(halo)
				}
			}
		}
	}
}

// needsReinitialize reports whether the goal changed since the last Plan
// call.
func (s *Searcher) needsReinitialize() bool {
	goal := s.env.Goal()
	if s.lastGoal == nil || *s.lastGoal != goal.Cell {
		return true
	}
	return false
}

// updateState recomputes pred's rhs from its successors and repairs open
// set membership (spec.md §4.3 step 4).
func (s *Searcher) updateState(pred *lattice.Entry) {
	goal := s.env.Goal()
	if pred != goal {
		best := lattice.Inf
		var bestNext *lattice.Entry
		bestPrim := -1
		for _, t := range s.env.GetSuccs(pred) {
			if t.Neighbor.VisitedIteration != s.environmentIteration {
				t.Neighbor.G = lattice.Inf
				t.Neighbor.RHS = lattice.Inf
				t.Neighbor.VisitedIteration = s.environmentIteration
			}
			cand := t.Cost + t.Neighbor.G
			if cand < best {
				best = cand
				bestNext = t.Neighbor
				bestPrim = t.Primitive.ID
			}
		}
		pred.RHS = best
		pred.BestNext = bestNext
		pred.ViaPrimitive = bestPrim
	}

	s.open.Erase(pred)
	if pred.G != pred.RHS {
		if pred.ClosedIteration == s.iteration {
			s.incons.Add(pred)
		} else {
			key := pred.ComputeKey(s.heuristicToStart(pred), s.epsilon)
			pred.SetKey(key)
			s.open.Push(pred)
		}
	}
}

// computeOrImprovePath pops entries until the start is consistent and its
// key is no worse than the open set's minimum, or the deadline passes
// (spec.md §4.3 step 3).
func (s *Searcher) computeOrImprovePath(deadline time.Time) bool {
	start := s.env.Start()
	for {
		top := s.open.Peek()
		startKey := start.ComputeKey(s.heuristicToStart(start), s.epsilon)
		if top == nil {
			return start.RHS != lattice.Inf
		}
		topEntry := top.(*lattice.Entry)
		if !topEntry.Key().Less(startKey) && start.Consistent() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}

		s.open.Pop()
		entry := topEntry

		if entry.Overconsistent() {
			entry.G = entry.RHS
			entry.ClosedIteration = s.iteration
			for _, t := range s.env.GetPreds(entry) {
				if t.Neighbor.VisitedIteration != s.environmentIteration {
					t.Neighbor.G = lattice.Inf
					t.Neighbor.RHS = lattice.Inf
					t.Neighbor.VisitedIteration = s.environmentIteration
				}
				s.updateState(t.Neighbor)
			}
		} else {
			entry.G = lattice.Inf
			s.updateState(entry)
			for _, t := range s.env.GetPreds(entry) {
				if t.Neighbor.VisitedIteration != s.environmentIteration {
					t.Neighbor.G = lattice.Inf
					t.Neighbor.RHS = lattice.Inf
					t.Neighbor.VisitedIteration = s.environmentIteration
				}
				s.updateState(t.Neighbor)
			}
		}
	}
}

// Plan runs the full ARA*-style outer loop: reinitializing on goal change,
// decaying epsilon toward 1 across iterations within the time budget, and
// returning the best path found (spec.md §4.3).
func (s *Searcher) Plan(timeBudget time.Duration) (*PlanResult, error) {
	deadline := time.Now().Add(timeBudget)

	if s.needsReinitialize() {
		s.reinitialize()
		goalCell := s.env.Goal().Cell
		s.lastGoal = &goalCell
		s.generation++
	}

	start := s.env.Start()
	if start.VisitedIteration != s.environmentIteration {
		start.G = lattice.Inf
		start.RHS = lattice.Inf
		start.VisitedIteration = s.environmentIteration
	}

	if err := s.env.EnsureHeuristicUpdated(); err != nil {
		return nil, errors.Wrap(err, "search: heuristic update failed")
	}

	foundOnce := false
	for {
		if s.epsilon > 1 {
			s.epsilon = max(1, s.epsilon-0.5)
			s.iteration++

			for _, it := range s.incons.Items() {
				s.open.Push(it)
			}
			s.incons.Clear()
			for _, it := range s.open.Items() {
				e := it.(*lattice.Entry)
				k := e.ComputeKey(s.heuristicToStart(e), s.epsilon)
				e.SetKey(k)
			}
			s.open.MakeHeap()
		}

		ok := s.computeOrImprovePath(deadline)
		if ok && start.RHS != lattice.Inf {
			foundOnce = true
		}
		if s.epsilon <= 1 || !time.Now().Before(deadline) {
			break
		}
	}

	if !foundOnce || start.RHS == lattice.Inf {
		return nil, ErrNoPath
	}

	path, cost := s.reconstructPath(start)
	return &PlanResult{
		Generation: s.generation,
		Path:       path,
		Cost:       cost,
		Epsilon:    s.epsilon,
		PlanID:     uuid.New(),
	}, nil
}

// reconstructPath follows best_next from start to the goal, expanding each
// transition's primitive into its interpolated polyline (spec.md §4.3
// step 5).
func (s *Searcher) reconstructPath(start *lattice.Entry) ([]geometry.Pose, float64) {
	var path []geometry.Pose
	cur := start
	path = append(path, geometry.Continuize(cur.Cell, s.env.Resolution, s.env.NumThetaBins))
	totalCost := 0.0
	visited := map[geometry.Cell]bool{cur.Cell: true}
	for cur.BestNext != nil {
		origin := geometry.Continuize(cur.Cell, s.env.Resolution, s.env.NumThetaBins)
		prim := findPrimitive(s.env, cur.Cell.Theta, cur.ViaPrimitive)
		if prim != nil {
			for _, wp := range prim.Waypoints[1:] {
				worldX := origin.X + wp.Pose.X
				worldY := origin.Y + wp.Pose.Y
				path = append(path, geometry.NewPose(worldX, worldY, wp.Pose.Theta))
			}
		}
		totalCost += cur.RHS - cur.BestNext.G
		next := cur.BestNext
		if visited[next.Cell] {
			break
		}
		visited[next.Cell] = true
		cur = next
	}
	return path, totalCost
}

func findPrimitive(env *lattice.Environment, fromTheta, primID int) *lattice.Primitive {
	for _, p := range env.Primitives.PrimitivesFrom(fromTheta) {
		if p.ID == primID {
			prim := p
			return &prim
		}
	}
	return nil
}

// CostsChanged visits every predecessor of every changed cell and
// recomputes its rhs, resetting epsilon so the next Plan call repairs
// broadly. If the number of affected predecessors crosses
// ForceScratchLimit or 10% of the grid, it marks the searcher for a full
// reinitialization on the next Plan call instead (spec.md §4.3).
func (s *Searcher) CostsChanged(cells []geometry.Cell) {
	if len(cells) == 0 {
		return
	}
	offsets := s.env.GetAffectedPredCells()
	gridCells := s.env.Grid.SizeX() * s.env.Grid.SizeY()
	affected := 0

	for _, c := range cells {
		for _, off := range offsets {
			predCell := geometry.Cell{X: c.X + off.X, Y: c.Y + off.Y}
			for theta := 0; theta < s.env.NumThetaBins; theta++ {
				pc := predCell
				pc.Theta = theta
				pred := s.env.EntryAt(pc)
				if pred.VisitedIteration != s.environmentIteration {
					continue
				}
				affected++
				s.updateState(pred)
			}
		}
	}

	s.epsilon = s.cfg.InitialEpsilon

	if affected > s.cfg.ForceScratchLimit || float64(affected) > 0.1*float64(gridCells) {
		s.lastGoal = nil
		if s.logger != nil {
			s.logger.Infow("search: cost change exceeds repair threshold, forcing reinitialize",
				"affected", affected)
		}
	}
}
