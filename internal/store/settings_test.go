package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/librasctl/internal/detector"
	"github.com/ayusman/librasctl/internal/gesture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSettings(t *testing.T, dir string) *Settings {
	t.Helper()
	s, err := NewSettings(dir, 640, 480, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewSettings_Defaults(t *testing.T) {
	s := newTestSettings(t, t.TempDir())

	w, h := s.Resolution()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, "", s.Camera())
	assert.Equal(t, gesture.Placeholder, s.DisplayedGesture(detector.Right))
	assert.Equal(t, gesture.Placeholder, s.DisplayedGesture(detector.Left))
}

func TestSettings_GetSet(t *testing.T) {
	s := newTestSettings(t, t.TempDir())

	tests := []struct {
		attr  string
		value any
		want  any
	}{
		{AttrCamera, "USB Camera", "USB Camera"},
		{AttrWidth, float64(1280), 1280},
		{AttrHeight, 720, 720},
		{AttrRightName, "L", "L"},
		{AttrLeftName, "wave", "wave"},
		{AttrCursorX, 0.25, 0.25},
		{AttrCursorY, 1, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			require.NoError(t, s.Set(tt.attr, tt.value))
			got, err := s.Get(tt.attr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettings_RejectsBadInput(t *testing.T) {
	s := newTestSettings(t, t.TempDir())

	_, err := s.Get("brightness")
	assert.ErrorIs(t, err, ErrUnknownAttribute)
	assert.ErrorIs(t, s.Set("brightness", 1), ErrUnknownAttribute)

	assert.Error(t, s.Set(AttrCamera, 3))
	assert.Error(t, s.Set(AttrWidth, 12.5))
	assert.Error(t, s.Set(AttrHeight, 0))
	assert.Error(t, s.Set(AttrCursorX, "left"))
	assert.Error(t, s.SetDisplayedGesture("Both", "A"))
}

func TestSettings_Persists(t *testing.T) {
	dir := t.TempDir()
	s := newTestSettings(t, dir)

	require.NoError(t, s.SetCamera("Integrated Webcam"))
	require.NoError(t, s.SetCursorPosition(0.4, 0.6))
	require.NoError(t, s.SetDisplayedGesture(detector.Right, "B"))

	reopened := newTestSettings(t, dir)
	assert.Equal(t, "Integrated Webcam", reopened.Camera())
	x, y := reopened.CursorPosition()
	assert.Equal(t, 0.4, x)
	assert.Equal(t, 0.6, y)
	assert.Equal(t, gesture.Placeholder, reopened.DisplayedGesture(detector.Right), "displayed names reset on start")
}

func TestSettings_CorruptFileRestoresDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BasicSettingsFile), []byte("{not json"), 0o644))

	s := newTestSettings(t, dir)
	w, _ := s.Resolution()
	assert.Equal(t, 640, w)

	data, err := os.ReadFile(filepath.Join(dir, BasicSettingsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"webcam_width": 640`)
}

func TestSettings_DisplayedGestureSink(t *testing.T) {
	var sink gesture.DisplaySink = newTestSettings(t, t.TempDir())
	require.NoError(t, sink.SetDisplayedGesture(detector.Left, "wave"))
	assert.Equal(t, "wave", sink.(*Settings).DisplayedGesture(detector.Left))
}

func TestSettings_KeepsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	s := newTestSettings(t, dir)

	require.NoError(t, writeJSON(filepath.Join(dir, BasicSettingsFile), basicSettings{Camera: "USB Camera", Width: 800, Height: 600}))
	require.NoError(t, s.Set(AttrRightName, "A"))
	require.NoError(t, s.SetCamera("Integrated Webcam"))

	var basic basicSettings
	require.NoError(t, readJSON(filepath.Join(dir, BasicSettingsFile), &basic))
	assert.Equal(t, basicSettings{Camera: "Integrated Webcam", Width: 800, Height: 600}, basic)
	w, h := s.Resolution()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	require.NoError(t, writeJSON(filepath.Join(dir, StateSettingsFile), stateSettings{RightName: "A", LeftName: "MAO", CursorX: 10, CursorY: 20}))
	require.NoError(t, s.SetDisplayedGesture(detector.Left, "B"))

	var state stateSettings
	require.NoError(t, readJSON(filepath.Join(dir, StateSettingsFile), &state))
	assert.Equal(t, stateSettings{RightName: "A", LeftName: "B", CursorX: 10, CursorY: 20}, state)
	x, y := s.CursorPosition()
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)
}
