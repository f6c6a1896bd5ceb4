// Package app runs the capture loop: it reads the camera, detects hands,
// hands each hand to its classification worker and publishes annotated frames.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/librasctl/internal/capture"
	"github.com/ayusman/librasctl/internal/detector"
	"github.com/ayusman/librasctl/internal/gesture"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultEmptyFrameBackoff is how long the loop waits after an empty read.
const DefaultEmptyFrameBackoff = 10 * time.Millisecond

var (
	// ErrNotRunning is returned when an operation needs an active detection.
	ErrNotRunning = errors.New("detection is not running")
	// ErrAlreadyRunning is returned when detection is started twice.
	ErrAlreadyRunning = errors.New("detection is already running")
)

// DisplayBoard holds the gesture name shown for each hand.
type DisplayBoard interface {
	SetDisplayedGesture(handedness, name string) error
	DisplayedGesture(handedness string) string
}

// CameraSelection provides the camera chosen by the user.
type CameraSelection interface {
	Camera() string
	Resolution() (width, height int)
}

// CameraOpener builds the camera for a device index.
type CameraOpener func(index, width, height int) capture.Camera

// Config holds the collaborators of the capture loop.
type Config struct {
	Detector  detector.Detector
	Matcher   *gesture.Matcher
	Board     DisplayBoard
	Selection CameraSelection
	Lister    capture.Lister

	// OpenCamera defaults to capture.NewCamera.
	OpenCamera        CameraOpener
	EmptyFrameBackoff time.Duration
	JPEGQuality       int
}

// Frame is a published JPEG frame.
type Frame struct {
	JPEG       []byte
	Seq        uint64
	CapturedAt time.Time
}

// run is one detection session.
type run struct {
	cancel context.CancelFunc
	camera capture.Camera
	device capture.Device
	done   chan struct{}
	err    error
}

// App owns the detection lifecycle.
type App struct {
	cfg Config
	log *zap.Logger

	opMu sync.Mutex // serializes start and stop

	mu  sync.Mutex
	run *run
	// failure is the error that ended the last session on its own. It is
	// reported once, by the next StopDetection.
	failure error

	cropMode atomic.Bool
	latest   atomic.Pointer[Frame]
	seq      atomic.Uint64
	started  time.Time
}

// New creates an App. Detection does not start until StartDetection.
func New(cfg Config, log *zap.Logger) *App {
	if cfg.OpenCamera == nil {
		cfg.OpenCamera = capture.NewCamera
	}
	if cfg.EmptyFrameBackoff <= 0 {
		cfg.EmptyFrameBackoff = DefaultEmptyFrameBackoff
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = capture.DefaultJPEGQuality
	}
	return &App{
		cfg:     cfg,
		log:     log,
		started: time.Now(),
	}
}

// StartDetection opens the selected camera and starts the loop and the hand
// workers.
func (a *App) StartDetection() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	if a.Running() {
		return ErrAlreadyRunning
	}

	device, err := capture.ResolveDevice(a.cfg.Lister, a.cfg.Selection.Camera())
	if err != nil {
		return err
	}

	width, height := a.cfg.Selection.Resolution()
	cam := a.cfg.OpenCamera(device.Index, width, height)
	if err := cam.Open(); err != nil {
		return fmt.Errorf("failed to open camera %q: %w", device.Name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		cancel: cancel,
		camera: cam,
		device: device,
		done:   make(chan struct{}),
	}

	right := newHandWorker(detector.Right, a.cfg.Matcher, a.log)
	left := newHandWorker(detector.Left, a.cfg.Matcher, a.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return right.run(gctx) })
	g.Go(func() error { return left.run(gctx) })
	g.Go(func() error { return a.loop(gctx, cam, right, left) })

	a.mu.Lock()
	a.run = r
	a.failure = nil
	a.mu.Unlock()

	go a.watch(r, g)

	a.log.Info("detection started",
		zap.String("camera", device.Name),
		zap.Int("index", device.Index),
		zap.Int("width", width),
		zap.Int("height", height),
	)
	return nil
}

// watch waits for a session to end, then releases the camera and clears the
// published frame.
func (a *App) watch(r *run, g *errgroup.Group) {
	err := g.Wait()
	r.cancel()

	if cerr := r.camera.Close(); cerr != nil {
		a.log.Warn("error closing camera", zap.Error(cerr))
	}
	a.latest.Store(nil)
	a.cropMode.Store(false)

	r.err = err
	a.mu.Lock()
	if a.run == r {
		a.run = nil
		a.failure = err
	}
	a.mu.Unlock()

	if err != nil {
		a.log.Error("detection stopped", zap.Error(err))
	} else {
		a.log.Info("detection stopped")
	}
	close(r.done)
}

// StopDetection stops the loop, waits for the workers and releases the
// camera. When the previous session already ended on a failure, the returned
// error wraps both ErrNotRunning and that failure.
func (a *App) StopDetection() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	r := a.run
	failure := a.failure
	a.failure = nil
	a.mu.Unlock()
	if r == nil {
		if failure != nil {
			return fmt.Errorf("%w: session ended: %w", ErrNotRunning, failure)
		}
		return ErrNotRunning
	}

	r.cancel()
	<-r.done

	a.mu.Lock()
	a.failure = nil
	a.mu.Unlock()
	return r.err
}

// LastError returns the error that ended the last session, or nil when it
// was stopped on request or is still running.
func (a *App) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failure
}

// Running reports whether a detection session is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run != nil
}

// Camera returns the device of the active session.
func (a *App) Camera() (capture.Device, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.run == nil {
		return capture.Device{}, false
	}
	return a.run.device, true
}

// StartCropHandMode makes the published frames show only the right hand.
// Classification pauses while crop mode is on.
func (a *App) StartCropHandMode() error {
	if !a.Running() {
		return ErrNotRunning
	}
	a.cropMode.Store(true)
	return nil
}

// StopCropHandMode restores full frames and classification.
func (a *App) StopCropHandMode() error {
	if !a.Running() {
		return ErrNotRunning
	}
	a.cropMode.Store(false)
	return nil
}

// CropMode reports whether crop mode is on.
func (a *App) CropMode() bool {
	return a.cropMode.Load()
}

// LatestFrame returns the most recent published frame.
func (a *App) LatestFrame() (Frame, bool) {
	f := a.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// FramesPublished returns how many frames were published since start up.
func (a *App) FramesPublished() uint64 {
	return a.seq.Load()
}

// Uptime returns the time since the App was created.
func (a *App) Uptime() time.Duration {
	return time.Since(a.started)
}

// Close stops detection when it is running.
func (a *App) Close() error {
	if err := a.StopDetection(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return nil
}
