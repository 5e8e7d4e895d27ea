package geometry

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestWrapAngle(t *testing.T) {
	test.That(t, WrapAngle(0), test.ShouldAlmostEqual, 0.0)
	test.That(t, WrapAngle(2*math.Pi), test.ShouldAlmostEqual, 0.0)
	test.That(t, WrapAngle(3*math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, WrapAngle(-3*math.Pi), test.ShouldAlmostEqual, math.Pi)
}

func TestAngleDiff(t *testing.T) {
	d := AngleDiff(0, math.Pi/2)
	test.That(t, d, test.ShouldAlmostEqual, math.Pi/2)
	d = AngleDiff(math.Pi-0.1, -math.Pi+0.1)
	test.That(t, d, test.ShouldAlmostEqual, 0.2)
}

func TestDistance(t *testing.T) {
	d := Distance(Pose{X: 0, Y: 0}, Pose{X: 3, Y: 4})
	test.That(t, d, test.ShouldAlmostEqual, 5.0)
}

func TestDiscretizeContinuizeRoundTrip(t *testing.T) {
	const res = 0.05
	const bins = DefaultNumThetaBins
	for _, p := range []Pose{
		NewPose(0, 0, 0),
		NewPose(1.234, -5.678, 1.0),
		NewPose(-3.0, 3.0, math.Pi-0.01),
		NewPose(10.025, -10.025, -math.Pi/2),
	} {
		cell := Discretize(p, res, bins)
		back := Continuize(cell, res, bins)
		roundTrip := Discretize(back, res, bins)
		test.That(t, roundTrip, test.ShouldResemble, cell)
	}
}

func TestDiscretizeThetaWrapsIntoRange(t *testing.T) {
	cell := Discretize(NewPose(0, 0, -math.Pi+0.001), 0.05, 16)
	test.That(t, cell.Theta >= 0, test.ShouldBeTrue)
	test.That(t, cell.Theta < 16, test.ShouldBeTrue)
}
