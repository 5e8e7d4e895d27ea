package main

import (
	"context"
	"math"

	"github.com/fetchcore/navcore/costmap"
	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/lattice"
	"github.com/fetchcore/navcore/logging"
	"github.com/fetchcore/navcore/navpath"
	"github.com/fetchcore/navcore/planner"
	"github.com/fetchcore/navcore/search"
)

// straightTwoPoint is the cheapest global planner variant: a direct line
// from start to goal, used under the spec's shortest distance band
// (spec.md §4.7).
func straightTwoPoint(start, goal geometry.Pose) []navpath.Point {
	return []navpath.Point{{Pose: start}, {Pose: goal}}
}

// quadraticBezier samples a quadratic Bezier curve through start and goal
// with a control point offset perpendicular to the chord, giving the mid
// distance band a smoother-than-straight-line path without the cost of a
// full lattice search (spec.md §4.7).
func quadraticBezier(start, goal geometry.Pose, samples int) []navpath.Point {
	dx := goal.X - start.X
	dy := goal.Y - start.Y
	length := math.Hypot(dx, dy)
	var ctrl geometry.Pose
	if length < 1e-6 {
		ctrl = start
	} else {
		midX, midY := (start.X+goal.X)/2, (start.Y+goal.Y)/2
		nx, ny := -dy/length, dx/length
		offset := length * 0.15
		ctrl = geometry.NewPose(midX+nx*offset, midY+ny*offset, 0)
	}

	points := make([]navpath.Point, 0, samples+1)
	for i := 0; i <= samples; i++ {
		t := float64(i) / float64(samples)
		u := 1 - t
		x := u*u*start.X + 2*u*t*ctrl.X + t*t*goal.X
		y := u*u*start.Y + 2*u*t*ctrl.Y + t*t*goal.Y
		points = append(points, navpath.Point{Pose: geometry.NewPose(x, y, 0)})
	}
	points[len(points)-1].Pose = goal
	return points
}

// latticePlanner closes over a lattice.Environment and search.Searcher
// pair for VariantLatticeSearch, the spec's full AD*-style search
// (spec.md §4.1-§4.2).
type latticePlanner struct {
	env      *lattice.Environment
	searcher *search.Searcher
	budget   float64 // seconds
}

func (lp *latticePlanner) plan(ctx context.Context, start, goal geometry.Pose) ([]navpath.Point, error) {
	lp.env.SetStart(start)
	lp.env.SetGoal(goal)
	result, err := lp.searcher.Plan(secondsToDuration(lp.budget))
	if err != nil {
		return nil, err
	}
	points := make([]navpath.Point, 0, len(result.Path))
	for _, pose := range result.Path {
		points = append(points, navpath.Point{Pose: pose})
	}
	return points, nil
}

// coarseAStarPlanner builds its own low-resolution lattice.Environment on
// top of the same grid for goals beyond sbpl_max_distance, trading
// precision for a bounded planning time (spec.md §4.7 "coarse A*" band).
type coarseAStarPlanner struct {
	grid       costmap.Grid
	thresholds costmap.Thresholds
	resolution float64
	numTheta   int
	budget     float64
	logger     logging.Logger
}

func (cp *coarseAStarPlanner) plan(ctx context.Context, start, goal geometry.Pose) ([]navpath.Point, error) {
	table := lattice.DefaultDiffDriveTable(cp.numTheta, cp.resolution)
	env := lattice.NewEnvironment(cp.grid, cp.thresholds, cp.resolution, cp.numTheta, table)
	searcher := search.New(env, search.DefaultConfig(), cp.logger)
	env.SetStart(start)
	env.SetGoal(goal)
	result, err := searcher.Plan(secondsToDuration(cp.budget))
	if err != nil {
		return nil, err
	}
	points := make([]navpath.Point, 0, len(result.Path))
	for _, pose := range result.Path {
		points = append(points, navpath.Point{Pose: pose})
	}
	return points, nil
}

// buildPlanFunc dispatches on the variant the planner.Worker selected,
// wiring each global planner implementation into the single PlanFunc the
// worker calls (spec.md §4.7).
func buildPlanFunc(lp *latticePlanner, cp *coarseAStarPlanner) planner.PlanFunc {
	return func(ctx context.Context, variant planner.Variant, start, goal geometry.Pose) ([]navpath.Point, error) {
		switch variant {
		case planner.VariantStraightTwoPoint:
			return straightTwoPoint(start, goal), nil
		case planner.VariantBezier:
			return quadraticBezier(start, goal, 20), nil
		case planner.VariantLatticeSearch:
			return lp.plan(ctx, start, goal)
		default:
			return cp.plan(ctx, start, goal)
		}
	}
}
