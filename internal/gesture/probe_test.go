package gesture

import (
	"context"
	"testing"
	"time"

	"github.com/ayusman/librasctl/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticFeed hands every subscriber the same pre-recorded samples.
type staticFeed struct {
	samples []detector.HandLandmarks
}

func newStaticFeed(samples ...detector.HandLandmarks) *staticFeed {
	return &staticFeed{samples: samples}
}

func (f *staticFeed) Subscribe() (<-chan detector.HandLandmarks, func()) {
	ch := make(chan detector.HandLandmarks, len(f.samples))
	for _, s := range f.samples {
		ch <- s
	}
	close(ch)
	return ch, func() {}
}

func TestMovementProbe_Run(t *testing.T) {
	ref := detector.Pose{Index: true, Pinky: true}.Landmarks()

	rotated := ref
	rotated.Points[detector.PinkyMCP].X = ref.Points[detector.IndexMCP].X + 0.05

	raised := ref
	raised.Points[detector.PinkyTip].Y = ref.Points[detector.PinkyTip].Y * 0.5

	tests := []struct {
		name     string
		movement string
		after    []detector.HandLandmarks
		wantType string
		wantMove bool
	}{
		{"wrist rotated", MovementWristRotate, []detector.HandLandmarks{rotated}, MovementWristRotate, true},
		{"wrist still", MovementWristRotate, []detector.HandLandmarks{ref}, MovementWristRotate, false},
		{"x change follows tip height", MovementIndexX, []detector.HandLandmarks{detector.Shifted(ref, 0, 0.2)}, MovementIndexX, true},
		{"x change ignores sideways travel", MovementIndexX, []detector.HandLandmarks{detector.Shifted(ref, 0.2, 0)}, MovementIndexX, false},
		{"y change follows sideways travel", MovementIndexY, []detector.HandLandmarks{detector.Shifted(ref, 0.2, 0)}, MovementIndexY, true},
		{"y change ignores tip height", MovementIndexY, []detector.HandLandmarks{detector.Shifted(ref, 0, -0.2)}, MovementIndexY, false},
		{"pinky raised", MovementPinky, []detector.HandLandmarks{raised}, MovementPinky, true},
		{"pinky moved sideways only", MovementPinky, []detector.HandLandmarks{detector.Shifted(ref, 0.2, 0)}, MovementPinky, false},
		{"latest sample wins", MovementIndexX, []detector.HandLandmarks{detector.Shifted(ref, 0, 0.2), ref}, MovementIndexX, false},
		{"no sample", MovementIndexX, nil, MovementIndexX, false},
		{"unknown movement", "spin", []detector.HandLandmarks{rotated}, "", false},
	}

	probe := NewMovementProbe(20 * time.Millisecond)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotMove := probe.Run(context.Background(), tt.movement, ref, newStaticFeed(tt.after...))
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantMove, gotMove)
		})
	}
}

func TestMovementProbe_WaitsForWindow(t *testing.T) {
	probe := NewMovementProbe(50 * time.Millisecond)
	ref := detector.Pose{Index: true}.Landmarks()

	start := time.Now()
	probe.Run(context.Background(), MovementIndexX, ref, newStaticFeed(ref))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMovementProbe_Cancelled(t *testing.T) {
	probe := NewMovementProbe(time.Hour)
	ref := detector.Pose{Index: true}.Landmarks()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		_, moved := probe.Run(ctx, MovementIndexX, ref, &Relay{})
		done <- moved
	}()

	cancel()
	select {
	case moved := <-done:
		assert.False(t, moved)
	case <-time.After(time.Second):
		t.Fatal("probe did not return after cancel")
	}
}

func TestNewMovementProbe_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultProbeWindow, NewMovementProbe(0).Window)
	assert.True(t, KnownMovement(MovementPinky))
	assert.False(t, KnownMovement("bent_index"))
}

func TestRelay(t *testing.T) {
	var r Relay
	first := detector.Pose{Index: true}.Landmarks()
	second := detector.Pose{Pinky: true}.Landmarks()

	assert.False(t, r.Offer(first), "no subscriber")
	assert.False(t, r.Active())

	ch, cancel := r.Subscribe()
	assert.True(t, r.Active())
	require.True(t, r.Offer(first))
	require.True(t, r.Offer(second))

	assert.Equal(t, second, <-ch, "only the newest sample is kept")

	// A newer subscription replaces the old one; cancelling the old one
	// must not detach the new.
	ch2, cancel2 := r.Subscribe()
	cancel()
	assert.True(t, r.Active())
	require.True(t, r.Offer(first))
	assert.Equal(t, first, <-ch2)

	cancel2()
	assert.False(t, r.Active())
	assert.False(t, r.Offer(first))
}

func TestRelay_ProbeIntegration(t *testing.T) {
	var r Relay
	probe := NewMovementProbe(200 * time.Millisecond)
	ref := detector.Pose{Index: true}.Landmarks()

	type result struct {
		kind  string
		moved bool
	}
	done := make(chan result, 1)
	go func() {
		kind, moved := probe.Run(context.Background(), MovementIndexX, ref, &r)
		done <- result{kind, moved}
	}()

	require.Eventually(t, r.Active, time.Second, time.Millisecond)
	r.Offer(detector.Shifted(ref, 0, 0.2))

	res := <-done
	assert.Equal(t, MovementIndexX, res.kind)
	assert.True(t, res.moved)
	assert.False(t, r.Active(), "probe unsubscribes on return")
}
