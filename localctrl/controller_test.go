package localctrl

import (
	"testing"

	"go.viam.com/test"

	"github.com/fetchcore/navcore/geometry"
	"github.com/fetchcore/navcore/logging"
	"github.com/fetchcore/navcore/navpath"
)

func alwaysValid(pose geometry.Pose, twist Twist) bool { return true }

func straightPath(n int, step float64) *navpath.Path {
	p := navpath.NewPath(navpath.DefaultTuning())
	pts := make([]navpath.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = navpath.Point{Pose: geometry.NewPose(float64(i)*step, 0, 0)}
	}
	p.SetFixPath(pts)
	return p
}

func TestComputeVelocityTracksStraightPath(t *testing.T) {
	logger := logging.NewTestLogger(t)
	c, err := New(Rollout, DefaultParams(), alwaysValid, logger)
	test.That(t, err, test.ShouldBeNil)

	path := straightPath(20, 0.2)
	twist, err := c.ComputeVelocity(geometry.NewPose(0, 0, 0), Twist{}, path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, twist.Vx > 0, test.ShouldBeTrue)
}

func TestComputeVelocityReturnsErrorWhenAllInvalid(t *testing.T) {
	logger := logging.NewTestLogger(t)
	neverValid := func(pose geometry.Pose, twist Twist) bool { return false }
	c, err := New(Rollout, DefaultParams(), neverValid, logger)
	test.That(t, err, test.ShouldBeNil)

	path := straightPath(20, 0.2)
	_, err = c.ComputeVelocity(geometry.NewPose(0, 0, 0), Twist{}, path)
	test.That(t, err, test.ShouldEqual, ErrNoValidTwist)
}

func TestComputeVelocityEntersCornerRotate(t *testing.T) {
	logger := logging.NewTestLogger(t)
	c, err := New(Rollout, DefaultParams(), alwaysValid, logger)
	test.That(t, err, test.ShouldBeNil)

	path := navpath.NewPath(navpath.DefaultTuning())
	path.SetFixPath([]navpath.Point{
		{Pose: geometry.NewPose(0, 0, 0), Corner: true, ThetaOut: 1.57},
		{Pose: geometry.NewPose(1, 0, 0)},
	})

	twist, err := c.ComputeVelocity(geometry.NewPose(0, 0, 0), Twist{}, path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.mode, test.ShouldEqual, ModeCornerRotate)
	test.That(t, twist.Vx, test.ShouldEqual, 0.0)
	test.That(t, twist.Omega != 0, test.ShouldBeTrue)
}

func TestComputeVelocityReachesGoal(t *testing.T) {
	logger := logging.NewTestLogger(t)
	params := DefaultParams()
	c, err := New(Rollout, params, alwaysValid, logger)
	test.That(t, err, test.ShouldBeNil)

	path := navpath.NewPath(navpath.DefaultTuning())
	path.SetFixPath([]navpath.Point{{Pose: geometry.NewPose(0, 0, 0)}})

	twist, err := c.ComputeVelocity(geometry.NewPose(0, 0, 0), Twist{}, path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, twist, test.ShouldResemble, Twist{})
	test.That(t, c.mode, test.ShouldEqual, ModeReached)
}

func TestRotateTowardRespectsMinimumSpeed(t *testing.T) {
	logger := logging.NewTestLogger(t)
	c, err := New(Rollout, DefaultParams(), alwaysValid, logger)
	test.That(t, err, test.ShouldBeNil)
	speed := c.rotateToward(0.001)
	test.That(t, speed, test.ShouldAlmostEqual, c.Params.MinInPlaceRotationalVel)
}
