package safety

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/fetchcore/navcore/costmap"
	"github.com/fetchcore/navcore/geometry"
)

func testChecker() (*Checker, *costmap.StaticGrid) {
	grid := costmap.NewStaticGrid(0.1, 50, 50, -2.5, -2.5)
	thresh := costmap.Thresholds{PossiblyCircumscribed: 200, InscribedInflated: 253, Lethal: 254}
	c := &Checker{
		LiveGrid:   grid,
		StaticGrid: grid,
		Thresholds: thresh,
		Circles:    []Circle{{OffsetX: 0, OffsetY: 0, Radius: 0.2}},
		Polygon: []geometry.Pose{
			{X: -0.2, Y: -0.2}, {X: 0.2, Y: -0.2}, {X: 0.2, Y: 0.2}, {X: -0.2, Y: 0.2},
		},
	}
	return c, grid
}

func TestMaxCostCirclesFreeSpace(t *testing.T) {
	c, _ := testChecker()
	cost := c.MaxCostCircles(geometry.NewPose(0, 0, 0), Live)
	test.That(t, cost, test.ShouldEqual, 0.0)
}

func TestMaxCostCirclesDetectsLethal(t *testing.T) {
	c, grid := testChecker()
	cx, cy := costmap.WorldToCell(grid, 0, 0)
	grid.SetCost(cx, cy, costmap.LETHAL)
	cost := c.MaxCostCircles(geometry.NewPose(0, 0, 0), Live)
	test.That(t, cost, test.ShouldEqual, Unsafe)
}

func TestMaxCostPolygonDetectsLethalInsideFootprint(t *testing.T) {
	c, grid := testChecker()
	cx, cy := costmap.WorldToCell(grid, 0.1, 0.1)
	grid.SetCost(cx, cy, costmap.Cost(220))
	cost := c.MaxCostPolygon(geometry.NewPose(0, 0, 0), Live)
	test.That(t, cost, test.ShouldEqual, Unsafe)
}

func TestRecoveryCircleCostFindsClearYaw(t *testing.T) {
	c, grid := testChecker()
	cx, cy := costmap.WorldToCell(grid, 0.18, 0)
	grid.SetCost(cx, cy, costmap.LETHAL)

	result := c.RecoveryCircleCost(geometry.NewPose(0, 0, 0), Live, math.Pi, 0.1)
	test.That(t, result.Found, test.ShouldBeTrue)
}

func TestRecoveryCircleCostNoneFoundWhenSurrounded(t *testing.T) {
	c, grid := testChecker()
	grid.StampRect(0, 0, 49, 49, costmap.LETHAL)
	result := c.RecoveryCircleCost(geometry.NewPose(0, 0, 0), Live, math.Pi, 0.5)
	test.That(t, result.Found, test.ShouldBeFalse)
}
