// Package navpath implements the path model (C4): a typed sequence of path
// points with corner markers, highlight distances, and per-point speed
// caps, plus the mutators the planner worker and supervisor use to splice,
// prune, and extend it.
//
// The point-window propagation scan is grounded on the distance-window
// smoothing pattern in viamrobotics-rdk/motionplan/tpspace's trajectory
// node lists, generalized from a single pass-through smoothing filter to
// the spec's two-sided corner-window propagation.
package navpath

import (
	"github.com/pkg/errors"

	"github.com/fetchcore/navcore/geometry"
)

// RotateDirection is the in-place rotation sense a corner point requests.
type RotateDirection int

const (
	RotateNone RotateDirection = iota
	RotateClockwise
	RotateCounterClockwise
)

// Point is one path point: a pose plus the per-point annotations the local
// controller and safety checker consume.
type Point struct {
	Pose              geometry.Pose
	MaxVel            float64
	HighlightDistance float64
	Radius            float64

	Corner          bool
	ThetaOut        float64
	RotateDirection RotateDirection

	// propagated marks a corner flag set by propagateCorners rather than by
	// the caller, so a later pass does not treat it as an explicit corner.
	propagated bool
}

// Tuning bounds the corner-propagation windows (spec.md §4.4).
type Tuning struct {
	MinBeforeCornerLength float64
	MinAfterCornerLength  float64
}

// DefaultTuning mirrors the spec's nominal corner windows.
func DefaultTuning() Tuning {
	return Tuning{MinBeforeCornerLength: 0.5, MinAfterCornerLength: 0.3}
}

// Path is an ordered, mutable sequence of Points.
type Path struct {
	Points []Point
	tuning Tuning
}

// NewPath returns an empty path with the given corner-window tuning.
func NewPath(tuning Tuning) *Path {
	return &Path{tuning: tuning}
}

// SetFixPath replaces the path wholesale with points, the constructor used
// when the supervisor installs a freshly planned global path.
func (p *Path) SetFixPath(points []Point) {
	p.Points = append([]Point(nil), points...)
	p.propagateCorners()
}

// SetSBPLPath installs points produced by the direct lattice search
// planner variant.
func (p *Path) SetSBPLPath(points []Point) { p.SetFixPath(points) }

// SetShortSBPLPath installs a lattice-search repair pass over a coarse
// A* path (spec.md §4.7's "optional lattice-search repair pass").
func (p *Path) SetShortSBPLPath(points []Point) { p.SetFixPath(points) }

// SetBezierPath installs points produced by the (externally owned) Bézier
// curve generator (spec.md §1 non-goal).
func (p *Path) SetBezierPath(points []Point) { p.SetFixPath(points) }

// Length returns the sum of Euclidean segment lengths (spec.md §4.4).
func (p *Path) Length() float64 {
	total := 0.0
	for i := 1; i < len(p.Points); i++ {
		total += geometry.Distance(p.Points[i-1].Pose, p.Points[i].Pose)
	}
	return total
}

// InsertBeginPath prepends points to the path.
func (p *Path) InsertBeginPath(points []Point) {
	p.Points = append(append([]Point(nil), points...), p.Points...)
	p.propagateCorners()
}

// InsertEndPath appends points to the path.
func (p *Path) InsertEndPath(points []Point) {
	p.Points = append(p.Points, points...)
	p.propagateCorners()
}

// closestIndex returns the index of the path point nearest target.
func (p *Path) closestIndex(target geometry.Pose) int {
	best := -1
	bestDist := 0.0
	for i, pt := range p.Points {
		d := geometry.Distance(pt.Pose, target)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// InsertMiddlePath splices newSegment between the closest points matching
// start and goal, discarding the replaced interior (spec.md §4.4).
func (p *Path) InsertMiddlePath(newSegment []Point, start, goal geometry.Pose) error {
	if len(p.Points) == 0 {
		return errors.New("navpath: cannot insert into an empty path")
	}
	startIdx := p.closestIndex(start)
	goalIdx := p.closestIndex(goal)
	if startIdx > goalIdx {
		startIdx, goalIdx = goalIdx, startIdx
	}
	out := make([]Point, 0, startIdx+len(newSegment)+(len(p.Points)-goalIdx-1))
	out = append(out, p.Points[:startIdx]...)
	out = append(out, newSegment...)
	out = append(out, p.Points[goalIdx+1:]...)
	p.Points = out
	p.propagateCorners()
	return nil
}

// Prune trims points behind currentPose, keeping path topology. It fails
// iff currentPose deviates beyond maxOffroadDis/maxOffroadYaw from every
// point within the search window (spec.md §4.4).
func (p *Path) Prune(currentPose geometry.Pose, maxOffroadDis, maxOffroadYaw float64, strict bool) error {
	if len(p.Points) == 0 {
		return errors.New("navpath: cannot prune an empty path")
	}
	idx := p.closestIndex(currentPose)
	d := geometry.Distance(p.Points[idx].Pose, currentPose)
	yawDiff := geometry.AngleDiff(p.Points[idx].Pose.Theta, currentPose.Theta)
	if d > maxOffroadDis || (strict && (yawDiff > maxOffroadYaw || yawDiff < -maxOffroadYaw)) {
		return errors.Errorf("navpath: current pose deviates from path by %.3fm (max %.3fm)", d, maxOffroadDis)
	}
	p.Points = p.Points[idx:]
	p.propagateCorners()
	return nil
}

// PruneCornerOnStart drops leading points while the path still starts on a
// corner run, used when the robot resumes mid-rotation at a corner.
func (p *Path) PruneCornerOnStart() {
	i := 0
	for i < len(p.Points) && p.Points[i].Corner {
		i++
	}
	if i > 0 {
		p.Points = p.Points[i:]
	}
}

// EraseToPoint drops every point before the closest match to target.
func (p *Path) EraseToPoint(target geometry.Pose) {
	if len(p.Points) == 0 {
		return
	}
	idx := p.closestIndex(target)
	p.Points = p.Points[idx:]
}

// ExtendPath appends points without re-deriving topology from a planner
// run, used to graft a short repair segment onto an existing path tail.
func (p *Path) ExtendPath(points []Point) {
	p.Points = append(p.Points, points...)
	p.propagateCorners()
}

// FinishPath marks the path as terminated by clearing the last point's
// corner flag and rotation direction, since there is no "after" run left
// to rotate out of. No points are removed, and corner flags on earlier
// points are left as they are.
func (p *Path) FinishPath() {
	if len(p.Points) == 0 {
		return
	}
	last := &p.Points[len(p.Points)-1]
	last.Corner = false
	last.RotateDirection = RotateNone
}

// propagateCorners re-scans the path after any mutator and marks every
// point within MinBeforeCornerLength before, and MinAfterCornerLength
// after, each explicit corner as a corner point sharing its ThetaOut and
// RotateDirection (spec.md §4.4). It is idempotent: running it twice in a
// row leaves the path unchanged.
func (p *Path) propagateCorners() {
	result := make([]Point, len(p.Points))
	copy(result, p.Points)

	explicit := make([]bool, len(p.Points))
	for i, pt := range p.Points {
		if pt.propagated {
			result[i].Corner = false
			result[i].propagated = false
		} else if pt.Corner {
			explicit[i] = true
		}
	}

	for i := range p.Points {
		if !explicit[i] {
			continue
		}
		cornerTheta := p.Points[i].ThetaOut
		cornerDir := p.Points[i].RotateDirection

		dist := 0.0
		for j := i - 1; j >= 0; j-- {
			dist += geometry.Distance(p.Points[j].Pose, p.Points[j+1].Pose)
			if dist > p.tuning.MinBeforeCornerLength {
				break
			}
			if explicit[j] {
				continue
			}
			result[j].Corner = true
			result[j].ThetaOut = cornerTheta
			result[j].RotateDirection = cornerDir
			result[j].propagated = true
		}

		afterWindow := p.tuning.MinAfterCornerLength
		dist = 0.0
		for j := i + 1; j < len(p.Points); j++ {
			dist += geometry.Distance(p.Points[j-1].Pose, p.Points[j].Pose)
			if dist > afterWindow {
				break
			}
			if explicit[j] {
				continue
			}
			result[j].Corner = true
			result[j].ThetaOut = cornerTheta
			result[j].RotateDirection = cornerDir
			result[j].propagated = true
		}
	}

	p.Points = result
}
