package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/librasctl/internal/app"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticFrames struct {
	mu    sync.Mutex
	frame *app.Frame
}

func (s *staticFrames) set(jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = &app.Frame{JPEG: jpeg, Seq: 1, CapturedAt: time.Now()}
}

func (s *staticFrames) LatestFrame() (app.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return app.Frame{}, false
	}
	return *s.frame, true
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]string
	require.NoError(t, json.Unmarshal(data, &msg))
	jpeg, err := base64.StdEncoding.DecodeString(msg["frame"])
	require.NoError(t, err)
	return jpeg
}

func newHub(t *testing.T, source FrameSource) (*FrameHub, *httptest.Server) {
	t.Helper()
	hub := NewFrameHub(source, 100, time.Second, 320, 240, zap.NewNop())
	ts := httptest.NewServer(hub)
	t.Cleanup(ts.Close)
	return hub, ts
}

func TestFrameHub_PushesLatestFrame(t *testing.T) {
	source := &staticFrames{}
	source.set([]byte{0xFF, 0xD8, 0x01, 0x02})
	hub, ts := newHub(t, source)

	conn := dial(t, ts)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, hub.Broadcast())
	assert.Equal(t, []byte{0xFF, 0xD8, 0x01, 0x02}, readFrame(t, conn))
}

func TestFrameHub_PlaceholderWithoutFrame(t *testing.T) {
	hub, ts := newHub(t, &staticFrames{})

	conn := dial(t, ts)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, hub.Broadcast())
	jpeg := readFrame(t, conn)
	require.Greater(t, len(jpeg), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2])
}

func TestFrameHub_NoSubscribers(t *testing.T) {
	hub, _ := newHub(t, &staticFrames{})
	assert.Equal(t, 0, hub.Broadcast())
}

func TestFrameHub_PrunesDisconnectedSubscribers(t *testing.T) {
	source := &staticFrames{}
	source.set([]byte{0xFF, 0xD8})
	hub, ts := newHub(t, source)

	stay := dial(t, ts)
	leave := dial(t, ts)
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, time.Second, 5*time.Millisecond)

	leave.Close()
	require.Eventually(t, func() bool {
		hub.Broadcast()
		return hub.Subscribers() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []byte{0xFF, 0xD8}, readFrame(t, stay))
}

func TestFrameHub_RunStopsAndDisconnects(t *testing.T) {
	source := &staticFrames{}
	source.set([]byte{0xFF, 0xD8})
	hub, ts := newHub(t, source)

	conn := dial(t, ts)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	assert.Equal(t, []byte{0xFF, 0xD8}, readFrame(t, conn))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, hub.Subscribers())

	// Drain anything already queued; the connection must end.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.False(t, isTimeout(err), "connection should be closed, not idle")
			break
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
