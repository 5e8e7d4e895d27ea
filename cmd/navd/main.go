// Command navd runs the navigation control core: a planner worker
// goroutine and a fixed-rate supervisor tick loop sharing a costmap grid,
// wired together at construction time with no package-level singletons
// (spec.md §5).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/fetchcore/navcore/costmap"
	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/lattice"
	"github.com/fetchcore/navcore/localctrl"
	"github.com/fetchcore/navcore/logging"
	"github.com/fetchcore/navcore/navpath"
	"github.com/fetchcore/navcore/planner"
	"github.com/fetchcore/navcore/safety"
	"github.com/fetchcore/navcore/search"
	"github.com/fetchcore/navcore/supervisor"
)

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// nullRotateService stands in for the rotation hardware service spec.md §1
// places out of scope; a real deployment injects a hardware-backed
// implementation satisfying supervisor.RotateService instead.
type nullRotateService struct{}

func (nullRotateService) Start(ctx context.Context) error        { return nil }
func (nullRotateService) Stop(ctx context.Context) error         { return nil }
func (nullRotateService) Check(ctx context.Context) (bool, error) { return true, nil }

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "navd:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := logging.NewLogger("navd")

	grid := costmap.NewStaticGrid(0.05, 400, 400, -10, -10)
	thresholds := costmap.Thresholds{PossiblyCircumscribed: 200, InscribedInflated: 253, Lethal: 254}

	numThetaBins := geometry.DefaultNumThetaBins
	table := lattice.DefaultDiffDriveTable(numThetaBins, grid.Resolution())
	env := lattice.NewEnvironment(grid, thresholds, grid.Resolution(), numThetaBins, table)
	searcher := search.New(env, search.DefaultConfig(), logger.Named("search"))

	lp := &latticePlanner{env: env, searcher: searcher, budget: 1.0}
	cp := &coarseAStarPlanner{grid: grid, thresholds: thresholds, resolution: grid.Resolution() * 4, numTheta: numThetaBins / 2, budget: 0.5, logger: logger.Named("coarse_search")}

	checker := &safety.Checker{
		LiveGrid:   grid,
		StaticGrid: grid,
		Thresholds: thresholds,
		Circles:    []safety.Circle{{Radius: 0.3}},
		Polygon: []geometry.Pose{
			geometry.NewPose(0.35, 0.25, 0),
			geometry.NewPose(0.35, -0.25, 0),
			geometry.NewPose(-0.35, -0.25, 0),
			geometry.NewPose(-0.35, 0.25, 0),
		},
	}

	// currentPose/currentVelocity/localizationValid/protectorBus stand in
	// for the TF, odometry, AMCL and protector bus integrations spec.md §1
	// places out of scope.
	var robotPose geometry.Pose
	currentPose := func() geometry.Pose { return robotPose }
	currentVelocity := func() localctrl.Twist { return localctrl.Twist{} }
	localizationValid := func() bool { return true }
	protectorBus := func() uint32 { return 0 }
	publishTwist := func(t localctrl.Twist) {
		logger.Debugw("cmd_vel", "vx", t.Vx, "vy", t.Vy, "omega", t.Omega)
	}

	controller, err := localctrl.New(localctrl.Rollout, localctrl.DefaultParams(), func(pose geometry.Pose, t localctrl.Twist) bool {
		return checker.MaxCostPolygon(pose, safety.Live) >= 0
	}, logger.Named("localctrl"))
	if err != nil {
		return err
	}
	controller.ClearanceCost = func(pose geometry.Pose) float64 {
		return checker.MaxCostCircles(pose, safety.Live)
	}

	worker := planner.New(planner.Config{
		Plan:             buildPlanFunc(lp, cp),
		CurrentPose:      currentPose,
		SBPLMaxDistance:  10.0,
		PlannerFrequency: 2.0,
		Clock:            clock.New(),
		Logger:           logger.Named("planner"),
	})

	deps := supervisor.Deps{
		CurrentPose:       currentPose,
		CurrentVelocity:   currentVelocity,
		LocalizationValid: localizationValid,
		ProtectorBus:      protectorBus,
		PublishTwist:      publishTwist,
		Rotate:            nullRotateService{},
		Controller:        controller,
		Checker:           checker,
		Worker:            worker,
		Clock:             clock.New(),
		Logger:            logger.Named("supervisor"),
	}
	params := supervisor.DefaultParams()
	sup := supervisor.New(deps, params, navpath.DefaultTuning())
	sup.SetGoal(geometry.NewPose(2, 0, 0))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		worker.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return runSupervisorLoop(groupCtx, sup, deps.Clock, logger, params.ControllerFrequency)
	})

	err = group.Wait()
	worker.Stop()
	stopErr := deps.Rotate.Stop(context.Background())
	return multierr.Combine(err, stopErr)
}

// runSupervisorLoop ticks the supervisor at controller_frequency until ctx
// is cancelled or the goal resolves to a terminal status (spec.md §5).
func runSupervisorLoop(ctx context.Context, sup *supervisor.Supervisor, clk clock.Clock, logger logging.Logger, controllerFrequency float64) error {
	period := secondsToDuration(1.0 / controllerFrequency)
	ticker := clk.Ticker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			code := sup.Tick(ctx)
			logger.Debugw("tick", "state", sup.State(), "status", code)
			if sup.State() == supervisor.Done {
				return nil
			}
		}
	}
}
