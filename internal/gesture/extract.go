package gesture

import (
	"fmt"

	"github.com/ayusman/librasctl/internal/detector"
)

// Palm box parameters. Landmarks are projected onto a 480x640 pixel grid
// before the containment test.
const (
	gridWidth  = 480
	gridHeight = 640
	palmMargin = 15

	tipTouchDistance = 0.05
	togetherPercent  = 12.0
)

// finger lists the four landmark indices of one digit, base first.
type finger [4]int

var (
	thumb  = finger{detector.ThumbCMC, detector.ThumbMCP, detector.ThumbIP, detector.ThumbTip}
	index  = finger{detector.IndexMCP, detector.IndexPIP, detector.IndexDIP, detector.IndexTip}
	middle = finger{detector.MiddleMCP, detector.MiddlePIP, detector.MiddleDIP, detector.MiddleTip}
	ring   = finger{detector.RingMCP, detector.RingPIP, detector.RingDIP, detector.RingTip}
	pinky  = finger{detector.PinkyMCP, detector.PinkyPIP, detector.PinkyDIP, detector.PinkyTip}
)

func (f finger) tip() int { return f[3] }

// overlapPairs are the finger pairs checked for fingers_overlap.
var overlapPairs = [][2]finger{
	{thumb, middle},
	{thumb, ring},
	{thumb, pinky},
	{index, middle},
	{middle, ring},
	{ring, pinky},
}

// Extract derives the feature vector of one hand. A hand with a non-finite
// coordinate is rejected; nothing is substituted for it.
func Extract(h detector.HandLandmarks) (Vector, error) {
	if err := h.Validate(); err != nil {
		return Vector{}, fmt.Errorf("extract features: %w", err)
	}

	palm := newPalmBox(&h)

	return Vector{
		PointingDown:        pointingDown(&h, index, middle, ring, pinky),
		FingersOverlap:      fingersOverlap(&h, overlapPairs),
		ThumbInsideHand:     !palm.fingerUp(&h, thumb[2:]),
		IndexUp:             palm.fingerUp(&h, index[1:]),
		MiddleUp:            palm.fingerUp(&h, middle[1:]),
		RingUp:              palm.fingerUp(&h, ring[1:]),
		PinkyUp:             palm.fingerUp(&h, pinky[1:]),
		ThumbMiddleTouch:    tipsTouching(&h, thumb, middle, tipTouchDistance),
		ThumbCrossIndex:     fingersOverlap(&h, [][2]finger{{thumb, index}}),
		IndexMiddleTogether: fingersTogether(&h, index, middle, togetherPercent),
	}, nil
}

// palmBox is the padded pixel box around the wrist and the five finger bases.
type palmBox struct {
	minX, minY, maxX, maxY int
}

func newPalmBox(h *detector.HandLandmarks) palmBox {
	bases := []int{detector.Wrist, detector.ThumbCMC, detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP}

	x, y := toGrid(h.Points[bases[0]])
	box := palmBox{minX: x, minY: y, maxX: x, maxY: y}
	for _, i := range bases[1:] {
		x, y := toGrid(h.Points[i])
		box.minX = min(box.minX, x)
		box.minY = min(box.minY, y)
		box.maxX = max(box.maxX, x)
		box.maxY = max(box.maxY, y)
	}

	box.minX -= palmMargin
	box.minY -= palmMargin
	box.maxX += palmMargin
	box.maxY += palmMargin
	return box
}

func (b palmBox) contains(x, y int) bool {
	return x >= b.minX && x <= b.maxX && y >= b.minY && y <= b.maxY
}

// fingerUp reports a finger as up unless one of the given landmarks falls
// inside the palm box. A folded finger curls its tip back over the palm.
func (b palmBox) fingerUp(h *detector.HandLandmarks, landmarks []int) bool {
	for _, i := range landmarks {
		if b.contains(toGrid(h.Points[i])) {
			return false
		}
	}
	return true
}

func toGrid(p detector.Point3D) (int, int) {
	return int(p.X * gridWidth), int(p.Y * gridHeight)
}

// fingersOverlap reports whether the base-to-tip segments of any pair cross.
func fingersOverlap(h *detector.HandLandmarks, pairs [][2]finger) bool {
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		if segmentsIntersect(h.Points[a[0]], h.Points[a.tip()], h.Points[b[0]], h.Points[b.tip()]) {
			return true
		}
	}
	return false
}

func tipsTouching(h *detector.HandLandmarks, a, b finger, threshold float64) bool {
	return distance2D(h.Points[a.tip()], h.Points[b.tip()]) <= threshold
}

// fingersTogether compares the tip gap with the gap one joint lower. Fingers
// held together keep both gaps within thresholdPercent of each other.
func fingersTogether(h *detector.HandLandmarks, a, b finger, thresholdPercent float64) bool {
	tipGap := distance2D(h.Points[a[3]], h.Points[b[3]])
	jointGap := distance2D(h.Points[a[2]], h.Points[b[2]])

	smaller := min(tipGap, jointGap)
	if smaller == 0 {
		return tipGap == jointGap
	}

	diff := tipGap - jointGap
	if diff < 0 {
		diff = -diff
	}
	return diff/smaller*100 <= thresholdPercent
}

// pointingDown reports whether any finger has its tip below both its own
// joint and the wrist.
func pointingDown(h *detector.HandLandmarks, fingers ...finger) bool {
	wrist := h.Points[detector.Wrist]
	for _, f := range fingers {
		tip := h.Points[f.tip()]
		if tip.Y > h.Points[f[2]].Y && tip.Y > wrist.Y {
			return true
		}
	}
	return false
}
