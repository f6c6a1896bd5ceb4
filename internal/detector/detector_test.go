package detector

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandLandmarks_Validate(t *testing.T) {
	h := Pose{Index: true}.Landmarks()
	require.NoError(t, h.Validate())

	h.Points[IndexTip].X = math.NaN()
	assert.Error(t, h.Validate())

	h = Pose{}.Landmarks()
	h.Points[Wrist].Y = math.Inf(1)
	assert.Error(t, h.Validate())
}

func TestHandLandmarks_Bounds(t *testing.T) {
	h := Pose{ThumbExtended: true, Index: true}.Landmarks()

	minX, minY, maxX, maxY := h.Bounds()
	assert.InDelta(t, 0.29, minX, 1e-9)
	assert.InDelta(t, 0.35, minY, 1e-9)
	assert.InDelta(t, 0.60, maxX, 1e-9)
	assert.InDelta(t, 0.80, maxY, 1e-9)
}

func TestByHandedness(t *testing.T) {
	right := Pose{Handedness: Right}.Landmarks()
	left := Pose{Handedness: Left, Index: true}.Landmarks()

	got, ok := ByHandedness([]HandLandmarks{right, left}, Left)
	require.True(t, ok)
	assert.Equal(t, left, got)

	_, ok = ByHandedness([]HandLandmarks{right}, Left)
	assert.False(t, ok)
}

func TestParseResponse(t *testing.T) {
	t.Run("complete hand", func(t *testing.T) {
		line := []byte(`{"hands":[{"handedness":"Left","score":0.9,"points":[` + points(21) + `]}]}`)

		hands, err := parseResponse(line)
		require.NoError(t, err)
		require.Len(t, hands, 1)
		assert.Equal(t, Left, hands[0].Handedness)
		assert.InDelta(t, 0.20, hands[0].Points[PinkyTip].X, 1e-9)
	})

	t.Run("missing landmark is an error", func(t *testing.T) {
		line := []byte(`{"hands":[{"handedness":"Right","points":[` + points(20) + `]}]}`)

		_, err := parseResponse(line)
		assert.ErrorContains(t, err, "has 20 landmarks")
	})

	t.Run("service error", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"error":"decode failed"}`))
		assert.ErrorContains(t, err, "decode failed")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseResponse([]byte(`not json`))
		assert.Error(t, err)
	})

	t.Run("no hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[]}`))
		require.NoError(t, err)
		assert.Empty(t, hands)
	})
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	hands, err := m.Detect(nil)
	require.NoError(t, err)
	assert.Empty(t, hands)

	m.SetHands(Pose{}.Landmarks())
	hands, err = m.Detect(nil)
	require.NoError(t, err)
	assert.Len(t, hands, 1)

	boom := errors.New("boom")
	m.SetError(boom)
	_, err = m.Detect(nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, m.Calls())
	assert.NoError(t, m.Close())
}

func points(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"x":%.2f,"y":0.5,"z":0}`, float64(i)/100)
	}
	return strings.Join(parts, ",")
}
