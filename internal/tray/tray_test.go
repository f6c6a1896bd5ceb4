package tray

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDetection struct {
	running  bool
	startErr error
	starts   int
	stops    int
}

func (f *fakeDetection) StartDetection() error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeDetection) StopDetection() error {
	f.stops++
	f.running = false
	return nil
}

func (f *fakeDetection) Running() bool { return f.running }

type board map[string]string

func (b board) DisplayedGesture(hand string) string { return b[hand] }

func TestTray_Toggle(t *testing.T) {
	d := &fakeDetection{}
	tr := New(d, board{}, zap.NewNop())

	running, err := tr.toggle()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, 1, d.starts)

	running, err = tr.toggle()
	require.NoError(t, err)
	assert.False(t, running)
	assert.Equal(t, 1, d.stops)
}

func TestTray_ToggleStartFailure(t *testing.T) {
	d := &fakeDetection{startErr: errors.New("camera device not found")}
	tr := New(d, board{}, zap.NewNop())

	running, err := tr.toggle()
	assert.ErrorContains(t, err, "camera device not found")
	assert.False(t, running)
}

func TestTray_UpdateBeforeReady(t *testing.T) {
	tr := New(&fakeDetection{running: true}, board{"Right": "A"}, zap.NewNop())
	assert.NotPanics(t, tr.update)
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "● Detecting", toggleTitle(true))
	assert.Equal(t, "○ Stopped", toggleTitle(false))
	assert.Equal(t, "Right: A", handTitle("Right", "A"))
	assert.Equal(t, "Left: none", handTitle("Left", ""))
}
