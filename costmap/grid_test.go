package costmap

import (
	"testing"

	"go.viam.com/test"

	"github.com/fetchcore/navcore/geometry"
)

func TestStaticGridBounds(t *testing.T) {
	g := NewStaticGrid(0.05, 10, 10, 0, 0)
	test.That(t, g.InBounds(0, 0), test.ShouldBeTrue)
	test.That(t, g.InBounds(9, 9), test.ShouldBeTrue)
	test.That(t, g.InBounds(10, 0), test.ShouldBeFalse)
	test.That(t, g.InBounds(-1, 0), test.ShouldBeFalse)
	test.That(t, g.CostAt(20, 20), test.ShouldEqual, UNKNOWN)
}

func TestStaticGridSetAndStamp(t *testing.T) {
	g := NewStaticGrid(0.05, 10, 10, 0, 0)
	ok := g.SetCost(3, 3, LETHAL)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, g.CostAt(3, 3), test.ShouldEqual, LETHAL)

	changed := g.StampRect(0, 0, 2, 2, Inscribed)
	test.That(t, len(changed), test.ShouldEqual, 9)
	test.That(t, g.CostAt(1, 1), test.ShouldEqual, Inscribed)
}

func TestWorldToCellRoundTrip(t *testing.T) {
	g := NewStaticGrid(0.1, 20, 20, -1.0, -1.0)
	cx, cy := WorldToCell(g, 0.0, 0.0)
	wx, wy := CellToWorld(g, cx, cy)
	cx2, cy2 := WorldToCell(g, wx, wy)
	test.That(t, cx2, test.ShouldEqual, cx)
	test.That(t, cy2, test.ShouldEqual, cy)
}

func TestCostAtPoseOutOfBounds(t *testing.T) {
	g := NewStaticGrid(0.1, 5, 5, 0, 0)
	cost := CostAtPose(g, geometry.Pose{X: 100, Y: 100})
	test.That(t, cost, test.ShouldEqual, UNKNOWN)
}

func TestClearFootprint(t *testing.T) {
	g := NewStaticGrid(0.1, 10, 10, 0, 0)
	g.StampRect(0, 0, 9, 9, LETHAL)
	err := g.ClearFootprint(geometry.Pose{X: 0.5, Y: 0.5})
	test.That(t, err, test.ShouldBeNil)
	cx, cy := WorldToCell(g, 0.5, 0.5)
	test.That(t, g.CostAt(cx, cy), test.ShouldEqual, FREE)
}
