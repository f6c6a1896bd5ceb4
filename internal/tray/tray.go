// Package tray provides a system tray menu for librasctl: it toggles detection
// and shows the gesture currently displayed for each hand.
package tray

import (
	"sync"
	"time"

	"github.com/ayusman/librasctl/internal/detector"
	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

// DefaultRefresh is how often the hand labels are refreshed.
const DefaultRefresh = 250 * time.Millisecond

// Detection is the capture loop as seen by the tray.
type Detection interface {
	StartDetection() error
	StopDetection() error
	Running() bool
}

// NameBoard provides the gesture name displayed for a hand.
type NameBoard interface {
	DisplayedGesture(handedness string) string
}

// Tray represents the system tray application.
type Tray struct {
	detection Detection
	board     NameBoard
	log       *zap.Logger
	refresh   time.Duration

	mu     sync.RWMutex
	onQuit func()

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuRight  *systray.MenuItem
	menuLeft   *systray.MenuItem
	done       chan struct{}
}

// New creates a Tray.
func New(d Detection, board NameBoard, log *zap.Logger) *Tray {
	return &Tray{
		detection: d,
		board:     board,
		log:       log,
		refresh:   DefaultRefresh,
		done:      make(chan struct{}),
	}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("librasctl")
	systray.SetTooltip("librasctl gesture input")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.detection.Running()), "Start or stop detection")
	systray.AddSeparator()

	t.menuRight = systray.AddMenuItem(handTitle(detector.Right, ""), "Gesture shown for the right hand")
	t.menuRight.Disable()
	t.menuLeft = systray.AddMenuItem(handTitle(detector.Left, ""), "Gesture shown for the left hand")
	t.menuLeft.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit librasctl")
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(t.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				if _, err := t.toggle(); err != nil {
					t.log.Warn("tray toggle failed", zap.Error(err))
				}
				t.update()
			case <-ticker.C:
				t.update()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			case <-t.done:
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	close(t.done)
}

// toggle starts detection when stopped and stops it when running. It returns
// whether detection runs afterwards.
func (t *Tray) toggle() (bool, error) {
	if t.detection.Running() {
		if err := t.detection.StopDetection(); err != nil {
			return t.detection.Running(), err
		}
		return false, nil
	}
	if err := t.detection.StartDetection(); err != nil {
		return false, err
	}
	return true, nil
}

// update refreshes the menu titles from the current state.
func (t *Tray) update() {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuToggle == nil {
		return
	}
	running := t.detection.Running()
	t.menuToggle.SetTitle(toggleTitle(running))

	right, left := "", ""
	if running {
		right = t.board.DisplayedGesture(detector.Right)
		left = t.board.DisplayedGesture(detector.Left)
	}
	t.menuRight.SetTitle(handTitle(detector.Right, right))
	t.menuLeft.SetTitle(handTitle(detector.Left, left))
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

func toggleTitle(running bool) string {
	if running {
		return "● Detecting"
	}
	return "○ Stopped"
}

func handTitle(hand, name string) string {
	if name == "" {
		name = "none"
	}
	return hand + ": " + name
}
