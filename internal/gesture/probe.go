package gesture

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/librasctl/internal/detector"
)

// Movement types a gesture may require.
const (
	MovementWristRotate = "wrist_rotate"
	MovementIndexX      = "x_index_tip_changes"
	MovementIndexY      = "y_index_tip_changes"
	MovementPinky       = "pinky_pos_changes"
)

// DefaultProbeWindow is how long a probe waits before taking its second sample.
const DefaultProbeWindow = time.Second

// Ratio bounds inside which a position is considered unchanged.
const (
	stillLower = 0.9
	stillUpper = 1.2
)

// Feed supplies fresh landmark samples of one hand. Each Subscribe call gets
// its own channel, closed over by the returned cancel func.
type Feed interface {
	Subscribe() (<-chan detector.HandLandmarks, func())
}

// MovementProbe decides whether a hand moved over a short window.
type MovementProbe struct {
	Window time.Duration
}

// NewMovementProbe returns a probe waiting window between samples.
func NewMovementProbe(window time.Duration) *MovementProbe {
	if window <= 0 {
		window = DefaultProbeWindow
	}
	return &MovementProbe{Window: window}
}

type movementCheck func(before, after detector.HandLandmarks) bool

// The index checks read the axis opposite to their name: x_index_tip_changes
// follows the tip's height and y_index_tip_changes its horizontal position.
// Stored gestures such as Z are defined against this mapping.
var movementChecks = map[string]movementCheck{
	MovementWristRotate: wristRotated,
	MovementIndexX: func(before, after detector.HandLandmarks) bool {
		_, y := tipMoved(before, after, index)
		return y
	},
	MovementIndexY: func(before, after detector.HandLandmarks) bool {
		x, _ := tipMoved(before, after, index)
		return x
	},
	MovementPinky: func(before, after detector.HandLandmarks) bool {
		_, y := tipMoved(before, after, pinky)
		return y
	},
}

// KnownMovement reports whether movementType names a supported check.
func KnownMovement(movementType string) bool {
	_, ok := movementChecks[movementType]
	return ok
}

// Run compares reference against the latest sample the feed delivered within
// the window. It returns the movement type it evaluated and whether movement
// was seen. No sample, a cancelled context or an unknown type all count as no
// movement; an unknown type also reports an empty type.
func (p *MovementProbe) Run(ctx context.Context, movementType string, reference detector.HandLandmarks, feed Feed) (string, bool) {
	check, ok := movementChecks[movementType]
	if !ok {
		return "", false
	}

	samples, cancel := feed.Subscribe()
	defer cancel()

	timer := time.NewTimer(p.Window)
	defer timer.Stop()

	var (
		latest detector.HandLandmarks
		fresh  bool
	)
	for {
		select {
		case <-ctx.Done():
			return movementType, false
		case s, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			latest, fresh = s, true
		case <-timer.C:
			if !fresh {
				return movementType, false
			}
			return movementType, check(reference, latest)
		}
	}
}

func wristRotated(before, after detector.HandLandmarks) bool {
	b := before.Points[detector.PinkyMCP].X - before.Points[detector.IndexMCP].X
	a := after.Points[detector.PinkyMCP].X - after.Points[detector.IndexMCP].X
	return changed(b, a)
}

// tipMoved reports independently whether the tip's x and y positions changed.
func tipMoved(before, after detector.HandLandmarks, f finger) (bool, bool) {
	b, a := before.Points[f.tip()], after.Points[f.tip()]
	return changed(b.X, a.X), changed(b.Y, a.Y)
}

func changed(before, after float64) bool {
	if after == 0 {
		return before != 0
	}
	r := before / after
	return r < stillLower || r > stillUpper
}

// Relay fans samples of one hand out to the probe currently subscribed, if
// any. It keeps only the most recent undelivered sample.
type Relay struct {
	mu sync.Mutex
	ch chan detector.HandLandmarks
}

// Subscribe opens a channel scoped to a single probe invocation.
func (r *Relay) Subscribe() (<-chan detector.HandLandmarks, func()) {
	ch := make(chan detector.HandLandmarks, 1)

	r.mu.Lock()
	r.ch = ch
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.ch == ch {
			r.ch = nil
		}
	}
}

// Offer passes h to the active subscriber. It reports false when no probe is
// listening.
func (r *Relay) Offer(h detector.HandLandmarks) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch == nil {
		return false
	}

	select {
	case r.ch <- h:
	default:
		// Replace the stale sample with the newer one.
		select {
		case <-r.ch:
		default:
		}
		select {
		case r.ch <- h:
		default:
		}
	}
	return true
}

// Active reports whether a probe is subscribed.
func (r *Relay) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch != nil
}
