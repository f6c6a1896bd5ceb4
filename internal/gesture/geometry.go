package gesture

import (
	"math"

	"github.com/ayusman/librasctl/internal/detector"
)

type orientation int

const (
	collinear orientation = iota
	clockwise
	counterClockwise
)

// orient classifies the turn p -> q -> r by the sign of the cross product.
func orient(p, q, r detector.Point3D) orientation {
	val := (q.Y-p.Y)*(r.X-q.X) - (q.X-p.X)*(r.Y-q.Y)
	switch {
	case val == 0:
		return collinear
	case val > 0:
		return clockwise
	default:
		return counterClockwise
	}
}

// onSegment reports whether q lies within the bounding box of segment p-r.
// Only meaningful when p, q and r are collinear.
func onSegment(p, q, r detector.Point3D) bool {
	return q.X <= math.Max(p.X, r.X) && q.X >= math.Min(p.X, r.X) &&
		q.Y <= math.Max(p.Y, r.Y) && q.Y >= math.Min(p.Y, r.Y)
}

// segmentsIntersect reports whether segment p1-p2 crosses or touches q1-q2,
// counting collinear overlap as an intersection. Z is ignored.
func segmentsIntersect(p1, p2, q1, q2 detector.Point3D) bool {
	o1 := orient(p1, p2, q1)
	o2 := orient(p1, p2, q2)
	o3 := orient(q1, q2, p1)
	o4 := orient(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	switch {
	case o1 == collinear && onSegment(p1, q1, p2):
		return true
	case o2 == collinear && onSegment(p1, q2, p2):
		return true
	case o3 == collinear && onSegment(q1, p1, q2):
		return true
	case o4 == collinear && onSegment(q1, p2, q2):
		return true
	}
	return false
}

func distance2D(a, b detector.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
