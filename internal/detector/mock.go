package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands ...HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]HandLandmarks, len(m.hands))
	copy(out, m.hands)
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Pose describes a synthetic hand: which fingers are extended and whether the
// thumb sticks out of the palm or is folded across it.
type Pose struct {
	Handedness    string
	ThumbExtended bool
	Index         bool
	Middle        bool
	Ring          bool
	Pinky         bool
}

// Landmarks builds a plausible landmark set for the pose. The palm is fixed;
// extended fingers point up out of the palm box and folded fingers curl back
// into it.
func (p Pose) Landmarks() HandLandmarks {
	h := HandLandmarks{Handedness: p.Handedness, Score: 0.95}
	if h.Handedness == "" {
		h.Handedness = Right
	}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}
	h.Points[ThumbCMC] = Point3D{X: 0.44, Y: 0.75}
	h.Points[IndexMCP] = Point3D{X: 0.45, Y: 0.60}
	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.58}
	h.Points[RingMCP] = Point3D{X: 0.55, Y: 0.60}
	h.Points[PinkyMCP] = Point3D{X: 0.60, Y: 0.63}

	if p.ThumbExtended {
		h.Points[ThumbMCP] = Point3D{X: 0.38, Y: 0.70}
		h.Points[ThumbIP] = Point3D{X: 0.33, Y: 0.66}
		h.Points[ThumbTip] = Point3D{X: 0.29, Y: 0.62}
	} else {
		h.Points[ThumbMCP] = Point3D{X: 0.42, Y: 0.72}
		h.Points[ThumbIP] = Point3D{X: 0.45, Y: 0.71}
		h.Points[ThumbTip] = Point3D{X: 0.47, Y: 0.70}
	}

	setFinger(&h, IndexPIP, p.Index,
		[3]Point3D{{X: 0.45, Y: 0.48}, {X: 0.45, Y: 0.41}, {X: 0.45, Y: 0.35}},
		[3]Point3D{{X: 0.45, Y: 0.66}, {X: 0.46, Y: 0.70}, {X: 0.47, Y: 0.68}})
	setFinger(&h, MiddlePIP, p.Middle,
		[3]Point3D{{X: 0.50, Y: 0.45}, {X: 0.50, Y: 0.37}, {X: 0.50, Y: 0.30}},
		[3]Point3D{{X: 0.50, Y: 0.65}, {X: 0.51, Y: 0.69}, {X: 0.52, Y: 0.67}})
	setFinger(&h, RingPIP, p.Ring,
		[3]Point3D{{X: 0.55, Y: 0.47}, {X: 0.56, Y: 0.40}, {X: 0.56, Y: 0.34}},
		[3]Point3D{{X: 0.55, Y: 0.66}, {X: 0.56, Y: 0.70}, {X: 0.57, Y: 0.68}})
	setFinger(&h, PinkyPIP, p.Pinky,
		[3]Point3D{{X: 0.61, Y: 0.52}, {X: 0.62, Y: 0.46}, {X: 0.63, Y: 0.41}},
		[3]Point3D{{X: 0.60, Y: 0.68}, {X: 0.60, Y: 0.71}, {X: 0.59, Y: 0.70}})

	return h
}

func setFinger(h *HandLandmarks, pip int, up bool, extended, folded [3]Point3D) {
	src := folded
	if up {
		src = extended
	}
	for i, p := range src {
		h.Points[pip+i] = p
	}
}

// Shifted returns a copy of h with every landmark translated by (dx, dy).
func Shifted(h HandLandmarks, dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
