package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/librasctl/internal/detector"
	"github.com/ayusman/librasctl/internal/gesture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGestureStore(t *testing.T) (*GestureStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewGestureStore(dir)
	require.NoError(t, err)
	return s, dir
}

func TestNewGestureStore_SeedsFiles(t *testing.T) {
	s, dir := newTestGestureStore(t)

	for _, name := range []string{LibraryFile, CustomFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	assert.Equal(t, []string{"A", "B", "D", "I", "L", "R", "U", "V", "W", "Y", "Z", gesture.MouseTracking}, s.Library().Names())
	assert.Equal(t, 0, s.Custom().Len())

	z, ok := s.Library().Lookup("Z")
	require.True(t, ok)
	assert.True(t, z.RequiresMovement())
	assert.Equal(t, gesture.MovementIndexX, z.Features.MovementType)
}

func TestNewGestureStore_KeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LibraryFile),
		[]byte(`{"data_gestos": {"only": {"index_up": true}}, "atributos_relevantes": {"only": ["index_up"]}}`), 0o644))

	s, err := NewGestureStore(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, s.Library().Names())
}

func TestNewGestureStore_RejectsUnknownRelevantKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LibraryFile),
		[]byte(`{"data_gestos": {"x": {}}, "atributos_relevantes": {"x": ["bent_index"]}}`), 0o644))

	_, err := NewGestureStore(dir)
	assert.ErrorContains(t, err, "unknown feature")
}

// The seeded library must classify the synthetic poses the way a signer would
// read them.
func TestSeedLibrary_ClassifiesPoses(t *testing.T) {
	s, _ := newTestGestureStore(t)

	tests := []struct {
		name string
		pose detector.Pose
		want string
	}{
		{"fist with thumb out", detector.Pose{ThumbExtended: true}, "A"},
		{"flat hand", detector.Pose{Index: true, Middle: true, Ring: true, Pinky: true}, "B"},
		{"pinky only", detector.Pose{Pinky: true}, "I"},
		{"thumb and pinky", detector.Pose{ThumbExtended: true, Pinky: true}, "Y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observed, err := gesture.Extract(tt.pose.Landmarks())
			require.NoError(t, err)

			candidates := gesture.Filter(s.Library(), observed)
			name, ok := gesture.Verify(s.Library(), candidates, observed)
			assert.True(t, ok)
			assert.Equal(t, tt.want, name)
		})
	}

	observed, err := gesture.Extract(detector.Pose{Index: true}.Landmarks())
	require.NoError(t, err)
	assert.Equal(t, []string{"Z"}, gesture.Filter(s.Library(), observed), "index alone narrows to the moving Z")
}

func TestGestureStore_SaveCustom(t *testing.T) {
	s, dir := newTestGestureStore(t)
	before := s.Custom()

	def := gesture.Definition{
		Name:     "wave",
		Features: gesture.Vector{IndexUp: true, MiddleUp: true},
		Relevant: []gesture.Key{gesture.KeyIndexUp, gesture.KeyMiddleUp},
	}
	require.NoError(t, s.SaveCustom(def, false))

	got, ok := s.Custom().Lookup("wave")
	require.True(t, ok)
	assert.Equal(t, def, got)
	assert.Equal(t, 0, before.Len(), "earlier snapshots stay unchanged")

	err := s.SaveCustom(def, false)
	assert.ErrorIs(t, err, ErrGestureExists)

	def.Features.RingUp = true
	require.NoError(t, s.SaveCustom(def, true))

	// A fresh store sees the change on disk.
	reopened, err := NewGestureStore(dir)
	require.NoError(t, err)
	got, ok = reopened.Lookup("wave")
	require.True(t, ok)
	assert.True(t, got.Features.RingUp)
}

func TestGestureStore_SaveCustomRejectsLibraryName(t *testing.T) {
	s, _ := newTestGestureStore(t)
	err := s.SaveCustom(gesture.Definition{Name: "A"}, true)
	assert.ErrorIs(t, err, ErrGestureExists)
}

func TestGestureStore_RemoveCustom(t *testing.T) {
	s, _ := newTestGestureStore(t)
	require.NoError(t, s.SaveCustom(gesture.Definition{Name: "wave"}, false))

	require.NoError(t, s.RemoveCustom("wave"))
	_, ok := s.Lookup("wave")
	assert.False(t, ok)

	assert.ErrorIs(t, s.RemoveCustom("wave"), ErrNotFound)
}

func TestGestureStore_LookupPrefersLibrary(t *testing.T) {
	s, _ := newTestGestureStore(t)
	def, ok := s.Lookup("L")
	require.True(t, ok)
	assert.True(t, def.Features.IndexUp)

	_, ok = s.Lookup("nope")
	assert.False(t, ok)
}
