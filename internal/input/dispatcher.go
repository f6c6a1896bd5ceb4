package input

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ayusman/librasctl/internal/config"
	"github.com/ayusman/librasctl/internal/store"
	"go.uber.org/zap"
)

// BindSource looks up the bind of a gesture.
type BindSource interface {
	Get(name string) (store.Bind, bool, error)
}

// CursorState keeps the last tracked cursor position between frames.
type CursorState interface {
	CursorPosition() (x, y float64)
	SetCursorPosition(x, y float64) error
}

// Recorder stores dispatched inputs.
type Recorder interface {
	Record(ctx context.Context, e store.Entry) (store.Entry, error)
}

// activeInput is the press currently held by the dispatcher.
type activeInput struct {
	gesture  string
	hand     string
	bind     store.Bind
	key      Key
	device   Device
	cancel   chan struct{}
	released chan struct{}
}

// Dispatcher presses the bind of recognized gestures. At most one input is in
// flight: repeats of the active gesture are ignored and a different gesture
// releases the active input before pressing its own.
type Dispatcher struct {
	binds   BindSource
	inj     Injector
	cursor  CursorState
	journal Recorder
	cfg     config.InputConfig
	log     *zap.Logger

	dispatchMu sync.Mutex // serializes Dispatch calls from both hand workers

	mu     sync.Mutex
	active *activeInput
	closed bool

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. cursor and journal may be nil.
func NewDispatcher(binds BindSource, inj Injector, cursor CursorState, journal Recorder, cfg config.InputConfig, log *zap.Logger) *Dispatcher {
	if cfg.CursorSpeed < 1 {
		cfg.CursorSpeed = 1
	}
	return &Dispatcher{
		binds:   binds,
		inj:     inj,
		cursor:  cursor,
		journal: journal,
		cfg:     cfg,
		log:     log,
	}
}

// Active returns the gesture whose input is in flight, if any.
func (d *Dispatcher) Active() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return "", false
	}
	return d.active.gesture, true
}

// Dispatch presses the bind of gesture name, recognized on hand. Gestures
// without a bind are ignored. The press is held for the bind's hold time,
// released, and the dispatcher stays locked to the gesture for the settle
// delay.
func (d *Dispatcher) Dispatch(name, hand string) error {
	b, ok, err := d.binds.Get(name)
	if err != nil {
		return fmt.Errorf("failed to look up bind: %w", err)
	}
	if !ok {
		return nil
	}

	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	prev := d.active
	if prev != nil && prev.gesture == name {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	key, err := LookupKey(b.Bind)
	if err != nil {
		return err
	}
	dev, err := deviceFor(d.inj, key)
	if err != nil {
		return err
	}

	if prev != nil {
		d.log.Debug("preempting input",
			zap.String("previous", prev.gesture),
			zap.String("gesture", name),
		)
		d.mu.Lock()
		d.active = nil
		close(prev.cancel)
		d.mu.Unlock()
		<-prev.released
	}

	a := &activeInput{
		gesture:  name,
		hand:     hand,
		bind:     b,
		key:      key,
		device:   dev,
		cancel:   make(chan struct{}),
		released: make(chan struct{}),
	}

	if err := dev.Down(key); err != nil {
		d.log.Error("input down failed",
			zap.String("gesture", name),
			zap.String("bind", key.Name),
			zap.Error(err),
		)
		d.record(a, store.OutcomeFailed)
		return fmt.Errorf("press %q: %w", key.Name, err)
	}

	d.log.Info("input pressed",
		zap.String("gesture", name),
		zap.String("bind", key.Name),
		zap.Stringer("device", key.Kind),
		zap.Float64("hold_seconds", b.Hold),
		zap.Bool("toggle", b.Toggle),
	)

	d.mu.Lock()
	d.active = a
	d.mu.Unlock()

	d.wg.Add(1)
	go d.hold(a)
	return nil
}

// hold keeps a pressed, releases it, then waits out the settle delay before
// unlocking. Cancellation cuts both waits short.
func (d *Dispatcher) hold(a *activeInput) {
	defer d.wg.Done()
	defer d.clear(a)

	preempted := false
	holdTimer := time.NewTimer(time.Duration(a.bind.Hold * float64(time.Second)))
	select {
	case <-holdTimer.C:
	case <-a.cancel:
		holdTimer.Stop()
		preempted = true
	}

	if err := a.device.Up(a.key); err != nil {
		d.log.Error("input up failed",
			zap.String("gesture", a.gesture),
			zap.String("bind", a.key.Name),
			zap.Error(err),
		)
	}
	outcome := store.OutcomeSent
	if preempted {
		outcome = store.OutcomePreempted
	}
	d.record(a, outcome)
	close(a.released)

	if preempted {
		return
	}
	settle := time.NewTimer(d.cfg.SettleDelay)
	defer settle.Stop()
	select {
	case <-settle.C:
	case <-a.cancel:
	}
}

// clear unlocks the dispatcher unless a newer input already took over.
func (d *Dispatcher) clear(a *activeInput) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == a {
		d.active = nil
	}
}

func (d *Dispatcher) record(a *activeInput, outcome string) {
	if d.journal == nil {
		return
	}
	_, err := d.journal.Record(context.Background(), store.Entry{
		Gesture:     a.gesture,
		Bind:        a.key.Name,
		Hand:        a.hand,
		HoldSeconds: a.bind.Hold,
		Toggle:      a.bind.Toggle,
		Outcome:     outcome,
	})
	if err != nil {
		d.log.Warn("failed to journal input", zap.String("gesture", a.gesture), zap.Error(err))
	}
}

// DispatchCursor moves the cursor toward the normalized point (x, y). The
// tracked position moves 1/CursorSpeed of the way to the target; steps larger
// than MaxCursorStep are treated as tracking jumps and not sent, but the
// tracked position is still updated.
func (d *Dispatcher) DispatchCursor(x, y float64) error {
	if d.cursor == nil {
		return nil
	}

	width, height, err := d.inj.ScreenSize()
	if err != nil {
		return fmt.Errorf("failed to read screen size: %w", err)
	}

	targetX := clamp01(x) * float64(width)
	targetY := clamp01(y) * float64(height)

	lastX, lastY := d.cursor.CursorPosition()
	newX := int(lastX + (targetX-lastX)/d.cfg.CursorSpeed)
	newY := int(lastY + (targetY-lastY)/d.cfg.CursorSpeed)

	dx := newX - int(lastX)
	dy := newY - int(lastY)
	if abs(dx) > d.cfg.MaxCursorStep || abs(dy) > d.cfg.MaxCursorStep {
		dx, dy = 0, 0
	}

	if err := d.cursor.SetCursorPosition(float64(newX), float64(newY)); err != nil {
		d.log.Warn("failed to persist cursor position", zap.Error(err))
	}

	if dx == 0 && dy == 0 {
		return nil
	}

	curX, curY, err := d.inj.CursorPos()
	if err != nil {
		return fmt.Errorf("failed to read cursor position: %w", err)
	}
	if nx, ny := curX+dx, curY+dy; nx < 0 || ny < 0 || nx > width || ny > height {
		return nil
	}

	if err := d.inj.MoveRelative(dx, dy); err != nil {
		d.log.Error("cursor move failed", zap.Int("dx", dx), zap.Int("dy", dy), zap.Error(err))
		return fmt.Errorf("move cursor: %w", err)
	}
	return nil
}

// Close releases any held input and waits for the timing goroutines. Later
// dispatches are ignored.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.dispatchMu.Lock()
	d.mu.Lock()
	d.closed = true
	if d.active != nil {
		select {
		case <-d.active.cancel:
		default:
			close(d.active.cancel)
		}
	}
	d.mu.Unlock()
	d.dispatchMu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
