package search

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/fetchcore/navcore/costmap"
	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/lattice"
	"github.com/fetchcore/navcore/logging"
)

func testSearcher(t *testing.T) (*Searcher, *lattice.Environment) {
	grid := costmap.NewStaticGrid(0.1, 60, 60, 0, 0)
	thresh := costmap.Thresholds{PossiblyCircumscribed: 200, InscribedInflated: 253, Lethal: 254}
	table := lattice.DefaultDiffDriveTable(16, 0.1)
	env := lattice.NewEnvironment(grid, thresh, 0.1, 16, table)
	cfg := Config{InitialEpsilon: 2.0, ForceScratchLimit: 32, BroaderStartAndGoal: false}
	logger := logging.NewTestLogger(t)
	s := New(env, cfg, logger)
	return s, env
}

func TestPlanFindsPathOnOpenGrid(t *testing.T) {
	s, env := testSearcher(t)
	env.SetStart(geometry.NewPose(0, 0, 0))
	env.SetGoal(geometry.NewPose(0.5, 0, 0))

	result, err := s.Plan(200 * time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result, test.ShouldNotBeNil)
	test.That(t, len(result.Path) > 0, test.ShouldBeTrue)
	test.That(t, result.Epsilon, test.ShouldEqual, 1.0)
}

func TestPlanFailsWhenGoalWalledOff(t *testing.T) {
	s, env := testSearcher(t)
	env.SetStart(geometry.NewPose(0, 0, 0))
	env.SetGoal(geometry.NewPose(2.0, 0, 0))

	grid := env.Grid.(*costmap.StaticGrid)
	wallCell := 15
	grid.StampRect(wallCell, 0, wallCell, 59, costmap.LETHAL)

	_, err := s.Plan(200 * time.Millisecond)
	test.That(t, err, test.ShouldEqual, ErrNoPath)
}

func TestPlanWarmRestartReusesBookkeeping(t *testing.T) {
	s, env := testSearcher(t)
	env.SetStart(geometry.NewPose(0, 0, 0))
	env.SetGoal(geometry.NewPose(0.5, 0, 0))

	first, err := s.Plan(200 * time.Millisecond)
	test.That(t, err, test.ShouldBeNil)

	env.SetStart(geometry.NewPose(0.05, 0, 0))
	second, err := s.Plan(200 * time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.Generation, test.ShouldEqual, first.Generation)
}

func TestPlanNewGoalBumpsGeneration(t *testing.T) {
	s, env := testSearcher(t)
	env.SetStart(geometry.NewPose(0, 0, 0))
	env.SetGoal(geometry.NewPose(0.5, 0, 0))
	first, err := s.Plan(200 * time.Millisecond)
	test.That(t, err, test.ShouldBeNil)

	env.SetGoal(geometry.NewPose(1.0, 0.5, 0))
	second, err := s.Plan(200 * time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.Generation, test.ShouldBeGreaterThan, first.Generation)
}

func TestCostsChangedTriggersRepair(t *testing.T) {
	s, env := testSearcher(t)
	env.SetStart(geometry.NewPose(0, 0, 0))
	env.SetGoal(geometry.NewPose(0.5, 0, 0))
	_, err := s.Plan(200 * time.Millisecond)
	test.That(t, err, test.ShouldBeNil)

	changed := []geometry.Cell{{X: 3, Y: 0, Theta: 0}}
	s.CostsChanged(changed)
	test.That(t, s.epsilon, test.ShouldEqual, s.cfg.InitialEpsilon)

	result, err := s.Plan(200 * time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result, test.ShouldNotBeNil)
}
