package input

import (
	"fmt"
	"sync"
)

// Event is one call recorded by MockInjector.
type Event struct {
	Action string // "down", "up" or "move"
	Key    string
	DX, DY int
}

func (e Event) String() string {
	if e.Action == "move" {
		return fmt.Sprintf("move(%d,%d)", e.DX, e.DY)
	}
	return e.Action + ":" + e.Key
}

// MockInjector records events instead of sending them. It tracks the cursor
// so relative moves are reflected by CursorPos.
type MockInjector struct {
	mu      sync.Mutex
	events  []Event
	width   int
	height  int
	cursorX int
	cursorY int
	err     error
}

// NewMockInjector creates a mock with the given screen size and the cursor at
// the origin.
func NewMockInjector(width, height int) *MockInjector {
	return &MockInjector{width: width, height: height}
}

// SetError makes every following press, release and move fail with err.
func (m *MockInjector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetCursor places the cursor.
func (m *MockInjector) SetCursor(x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorX, m.cursorY = x, y
}

// Events returns a copy of the recorded events.
func (m *MockInjector) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Trace renders the recorded events as strings, e.g. "down:a".
func (m *MockInjector) Trace() []string {
	events := m.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

func (m *MockInjector) record(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *MockInjector) KeyDown(k Key) error   { return m.record(Event{Action: "down", Key: k.Name}) }
func (m *MockInjector) KeyUp(k Key) error     { return m.record(Event{Action: "up", Key: k.Name}) }
func (m *MockInjector) MouseDown(k Key) error { return m.record(Event{Action: "down", Key: k.Name}) }
func (m *MockInjector) MouseUp(k Key) error   { return m.record(Event{Action: "up", Key: k.Name}) }

func (m *MockInjector) MoveRelative(dx, dy int) error {
	if err := m.record(Event{Action: "move", DX: dx, DY: dy}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorX += dx
	m.cursorY += dy
	return nil
}

func (m *MockInjector) CursorPos() (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursorX, m.cursorY, nil
}

func (m *MockInjector) ScreenSize() (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height, nil
}
