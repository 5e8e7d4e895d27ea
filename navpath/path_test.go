package navpath

import (
	"testing"

	"go.viam.com/test"

	"github.com/fetchcore/navcore/geometry"
)

func straightPoints(n int, step float64) []Point {
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		pts[i] = Point{Pose: geometry.NewPose(float64(i)*step, 0, 0), MaxVel: 0.5}
	}
	return pts
}

func TestSetFixPathAndLength(t *testing.T) {
	p := NewPath(DefaultTuning())
	p.SetFixPath(straightPoints(5, 1.0))
	test.That(t, len(p.Points), test.ShouldEqual, 5)
	test.That(t, p.Length(), test.ShouldAlmostEqual, 4.0)
}

func TestCornerPropagation(t *testing.T) {
	tuning := Tuning{MinBeforeCornerLength: 1.5, MinAfterCornerLength: 1.0}
	p := NewPath(tuning)
	pts := straightPoints(10, 1.0)
	pts[5].Corner = true
	pts[5].ThetaOut = 1.57
	pts[5].RotateDirection = RotateClockwise
	p.SetFixPath(pts)

	test.That(t, p.Points[4].Corner, test.ShouldBeTrue)
	test.That(t, p.Points[4].ThetaOut, test.ShouldAlmostEqual, 1.57)
	test.That(t, p.Points[3].Corner, test.ShouldBeFalse)

	test.That(t, p.Points[6].Corner, test.ShouldBeTrue)
	test.That(t, p.Points[7].Corner, test.ShouldBeFalse)
}

func TestCornerPropagationIsIdempotent(t *testing.T) {
	tuning := Tuning{MinBeforeCornerLength: 1.5, MinAfterCornerLength: 1.0}
	p := NewPath(tuning)
	pts := straightPoints(10, 1.0)
	pts[5].Corner = true
	pts[5].ThetaOut = 1.0
	p.SetFixPath(pts)
	first := append([]Point(nil), p.Points...)

	p.propagateCorners()
	test.That(t, p.Points, test.ShouldResemble, first)
}

func TestPruneTrimsBehindRobot(t *testing.T) {
	p := NewPath(DefaultTuning())
	p.SetFixPath(straightPoints(10, 1.0))
	err := p.Prune(geometry.NewPose(3, 0, 0), 0.5, 0.5, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Points[0].Pose.X, test.ShouldAlmostEqual, 3.0)
}

func TestPruneFailsWhenOffPath(t *testing.T) {
	p := NewPath(DefaultTuning())
	p.SetFixPath(straightPoints(10, 1.0))
	err := p.Prune(geometry.NewPose(3, 5, 0), 0.5, 0.5, false)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInsertMiddlePathSplicesSegment(t *testing.T) {
	p := NewPath(DefaultTuning())
	p.SetFixPath(straightPoints(10, 1.0))
	segment := []Point{
		{Pose: geometry.NewPose(3, 1, 0)},
		{Pose: geometry.NewPose(4, 1, 0)},
	}
	err := p.InsertMiddlePath(segment, geometry.NewPose(3, 0, 0), geometry.NewPose(6, 0, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Points[3].Pose.Y, test.ShouldAlmostEqual, 1.0)
}

func TestEraseToPoint(t *testing.T) {
	p := NewPath(DefaultTuning())
	p.SetFixPath(straightPoints(10, 1.0))
	p.EraseToPoint(geometry.NewPose(5, 0, 0))
	test.That(t, p.Points[0].Pose.X, test.ShouldAlmostEqual, 5.0)
}

func TestFinishPathClearsTrailingCorner(t *testing.T) {
	p := NewPath(DefaultTuning())
	pts := straightPoints(5, 1.0)
	pts[4].Corner = true
	p.SetFixPath(pts)
	p.FinishPath()
	test.That(t, p.Points[4].Corner, test.ShouldBeFalse)
}

func TestPruneCornerOnStart(t *testing.T) {
	p := NewPath(DefaultTuning())
	pts := straightPoints(5, 1.0)
	pts[0].Corner = true
	pts[1].Corner = true
	p.Points = pts
	p.PruneCornerOnStart()
	test.That(t, len(p.Points), test.ShouldEqual, 3)
	test.That(t, p.Points[0].Pose.X, test.ShouldAlmostEqual, 2.0)
}
