package lattice

import (
	"testing"

	"go.viam.com/test"

	"github.com/fetchcore/navcore/costmap"
	"github.com/fetchcore/navcore/geometry"
)

func testEnv() *Environment {
	grid := costmap.NewStaticGrid(0.1, 50, 50, 0, 0)
	thresh := costmap.Thresholds{PossiblyCircumscribed: 200, InscribedInflated: 253, Lethal: 254}
	table := DefaultDiffDriveTable(16, 0.1)
	return NewEnvironment(grid, thresh, 0.1, 16, table)
}

func TestSetStartSetGoalReturnsStableEntries(t *testing.T) {
	env := testEnv()
	s1 := env.SetStart(geometry.NewPose(0, 0, 0))
	s2 := env.SetStart(geometry.NewPose(0.001, 0.001, 0))
	test.That(t, s1, test.ShouldEqual, s2)

	g := env.SetGoal(geometry.NewPose(1, 1, 0))
	test.That(t, g, test.ShouldNotBeNil)
	test.That(t, env.Goal(), test.ShouldEqual, g)
}

func TestGetSuccsRespectsLethalCells(t *testing.T) {
	env := testEnv()
	start := env.SetStart(geometry.NewPose(0, 0, 0))
	succs := env.GetSuccs(start)
	test.That(t, len(succs) > 0, test.ShouldBeTrue)

	grid := env.Grid.(*costmap.StaticGrid)
	grid.StampRect(0, 0, 49, 49, costmap.LETHAL)
	blocked := env.GetSuccs(start)
	test.That(t, len(blocked), test.ShouldEqual, 0)
}

func TestGetPredsIsSymmetricToGetSuccs(t *testing.T) {
	env := testEnv()
	start := env.SetStart(geometry.NewPose(0, 0, 0))
	succs := env.GetSuccs(start)
	test.That(t, len(succs) > 0, test.ShouldBeTrue)

	target := succs[0].Neighbor
	preds := env.GetPreds(target)
	found := false
	for _, p := range preds {
		if p.Neighbor.Cell == start.Cell {
			found = true
		}
	}
	test.That(t, found, test.ShouldBeTrue)
}

func TestEnsureHeuristicUpdatedIsAdmissible(t *testing.T) {
	env := testEnv()
	env.SetGoal(geometry.NewPose(1.0, 0, 0))
	err := env.EnsureHeuristicUpdated()
	test.That(t, err, test.ShouldBeNil)

	goalCell := env.Goal().Cell
	test.That(t, env.Heuristic(goalCell), test.ShouldAlmostEqual, 0.0)

	farCell := geometry.Discretize(geometry.NewPose(0, 0, 0), env.Resolution, env.NumThetaBins)
	h := env.Heuristic(farCell)
	straightLine := geometry.Distance(
		geometry.Continuize(farCell, env.Resolution, env.NumThetaBins),
		geometry.Continuize(goalCell, env.Resolution, env.NumThetaBins),
	)
	test.That(t, h >= straightLine-1e-6, test.ShouldBeTrue)
}

func TestEnsureHeuristicUpdatedSkipsWhenFresh(t *testing.T) {
	env := testEnv()
	env.SetGoal(geometry.NewPose(0.5, 0.5, 0))
	test.That(t, env.EnsureHeuristicUpdated(), test.ShouldBeNil)
	test.That(t, env.heuristicSet, test.ShouldBeTrue)

	env.SetGoal(geometry.NewPose(0.5, 0.5, 0))
	test.That(t, env.heuristicSet, test.ShouldBeTrue)

	env.SetGoal(geometry.NewPose(2.0, 2.0, 0))
	test.That(t, env.heuristicSet, test.ShouldBeFalse)
}

func TestEnsureHeuristicUpdatedFailsWithoutGoal(t *testing.T) {
	env := testEnv()
	err := env.EnsureHeuristicUpdated()
	test.That(t, err, test.ShouldNotBeNil)
}
