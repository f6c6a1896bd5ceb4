package gesture

import (
	"context"
	"fmt"

	"github.com/ayusman/librasctl/internal/detector"
	"go.uber.org/zap"
)

// Databases provides the current gesture sets. Snapshots may be swapped when
// gestures are saved; a pass keeps the snapshot it started with.
type Databases interface {
	Library() *Database
	Custom() *Database
}

// DisplaySink records the gesture name shown for a hand.
type DisplaySink interface {
	SetDisplayedGesture(handedness, name string) error
}

// Dispatcher turns recognized gestures into input.
type Dispatcher interface {
	Dispatch(name, hand string) error
	DispatchCursor(x, y float64) error
}

// Result is the outcome of one classification pass.
type Result struct {
	Name     string
	Accepted bool
	Features Vector
}

// Matcher classifies one hand per call. It holds no per-pass state so the
// right and left passes may run concurrently.
type Matcher struct {
	dbs      Databases
	probe    *MovementProbe
	display  DisplaySink
	dispatch Dispatcher
	log      *zap.Logger
}

// NewMatcher creates a Matcher. display and dispatch may be nil.
func NewMatcher(dbs Databases, probe *MovementProbe, display DisplaySink, dispatch Dispatcher, log *zap.Logger) *Matcher {
	if probe == nil {
		probe = NewMovementProbe(DefaultProbeWindow)
	}
	return &Matcher{
		dbs:      dbs,
		probe:    probe,
		display:  display,
		dispatch: dispatch,
		log:      log,
	}
}

// database picks the gesture set by handedness: the right hand reads library
// gestures and the left hand reads custom ones.
func (m *Matcher) database(handedness string) *Database {
	switch handedness {
	case detector.Right:
		return m.dbs.Library()
	case detector.Left:
		return m.dbs.Custom()
	}
	return nil
}

// Classify runs extraction, filtering, the optional movement probe and
// verification for one hand, then updates the displayed name and dispatches
// the accepted gesture. feed supplies later samples of the same hand to the
// probe.
//
// A cancelled ctx abandons the pass before any state is written and returns
// ctx.Err(). Extraction and dispatch failures are returned; the displayed name
// is still updated for dispatch failures.
func (m *Matcher) Classify(ctx context.Context, hand detector.HandLandmarks, feed Feed) (Result, error) {
	observed, err := Extract(hand)
	if err != nil {
		return Result{Name: Placeholder}, err
	}

	db := m.database(hand.Handedness)
	candidates := Filter(db, observed)

	// Movement is only confirmatory: it is folded in after filtering settled
	// on one candidate and does not take part in elimination.
	if len(candidates) == 1 {
		if def, ok := db.Lookup(candidates[0]); ok && def.RequiresMovement() && feed != nil {
			movementType, moved := m.probe.Run(ctx, def.Features.MovementType, hand, feed)
			observed.MovementType = movementType
			observed.HasMovement = moved
			m.log.Debug("movement probe finished",
				zap.String("gesture", def.Name),
				zap.String("movement", movementType),
				zap.Bool("moved", moved))
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{Name: Placeholder, Features: observed}, err
	}

	name, accepted := Verify(db, candidates, observed)
	res := Result{Name: name, Accepted: accepted, Features: observed}

	if m.display != nil {
		if err := m.display.SetDisplayedGesture(hand.Handedness, name); err != nil {
			m.log.Warn("update displayed gesture", zap.String("hand", hand.Handedness), zap.Error(err))
		}
	}

	if !accepted || m.dispatch == nil {
		return res, nil
	}

	m.log.Debug("gesture accepted", zap.String("hand", hand.Handedness), zap.String("gesture", name))

	if err := m.dispatch.Dispatch(name, hand.Handedness); err != nil {
		return res, fmt.Errorf("dispatch %s: %w", name, err)
	}
	if name == MouseTracking {
		tip := hand.Points[detector.IndexTip]
		if err := m.dispatch.DispatchCursor(tip.X, tip.Y); err != nil {
			return res, fmt.Errorf("move cursor: %w", err)
		}
	}
	return res, nil
}
