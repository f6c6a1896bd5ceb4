package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ayusman/librasctl/internal/config"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *fixture) {
	t.Helper()
	f := newFixture(t, nil)
	s := New(cfg, Deps{
		Detection: f.detection,
		Gestures:  f.gestures,
		Binds:     f.binds,
		Settings:  f.settings,
		Cameras:   f.controller.deps.Cameras,
		History:   f.journal,
	}, &staticFrames{}, 320, 240, zap.NewNop())
	return s, f
}

func TestServer_Health(t *testing.T) {
	s, f := newTestServer(t, config.Default().Server)

	for name, h := range map[string]http.Handler{"data": s.DataHandler(), "frames": s.FramesHandler()} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "ok", resp["status"])
			assert.Contains(t, resp, "uptime")
			assert.Equal(t, false, resp["detection"])
		})
	}

	require.NoError(t, f.detection.StartDetection())
	rec := httptest.NewRecorder()
	s.DataHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["detection"])
	assert.NotContains(t, resp, "lastError")
}

func TestServer_HealthReportsSessionFailure(t *testing.T) {
	s, f := newTestServer(t, config.Default().Server)
	f.detection.failure = errors.New("read frame: unplugged")

	rec := httptest.NewRecorder()
	s.DataHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, false, resp["detection"])
	assert.Equal(t, "read frame: unplugged", resp["lastError"])
}

func TestServer_HealthOnlyAllowsGET(t *testing.T) {
	s, _ := newTestServer(t, config.Default().Server)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		s.DataHandler().ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
}

func TestServer_ControlChannel(t *testing.T) {
	s, f := newTestServer(t, config.Default().Server)
	ts := httptest.NewServer(s.DataHandler())
	defer ts.Close()

	conn := dial(t, ts)
	exchange := func(msg string) map[string]any {
		t.Helper()
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var resp map[string]any
		require.NoError(t, conn.ReadJSON(&resp))
		return resp
	}

	assert.Equal(t, map[string]any{"pong": true}, exchange(`{"ping": true}`))
	assert.Equal(t, map[string]any{"error": "invalid JSON"}, exchange(`not json`))
	assert.Equal(t, map[string]any{"error": "unknown command"}, exchange(`{"JUMP": 1}`))

	assert.Equal(t, "success", exchange(`{"START_DETECTION": true}`)["status"])
	assert.True(t, f.detection.Running())

	// The connection survives error replies.
	assert.Equal(t, map[string]any{"cameraSelecionada": ""}, exchange(`{"GET_CAMERA": true}`))

	require.Eventually(t, func() bool { return s.control.Connections() == 1 }, time.Second, 5*time.Millisecond)
	s.control.CloseAll()
	assert.Equal(t, 0, s.control.Connections())
}

func TestServer_FrameChannel(t *testing.T) {
	s, _ := newTestServer(t, config.Default().Server)
	ts := httptest.NewServer(s.FramesHandler())
	defer ts.Close()

	conn := dial(t, ts)
	require.Eventually(t, func() bool { return s.Hub().Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, s.Hub().Broadcast())
	jpeg := readFrame(t, conn)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2], "placeholder is a JPEG")
}

func TestServer_RunFailsWhenPortTaken(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	freePort := free.Addr().(*net.TCPAddr).Port
	require.NoError(t, free.Close())

	cfg := config.Default().Server
	cfg.Host = "127.0.0.1"
	cfg.DataPort = taken.Addr().(*net.TCPAddr).Port
	cfg.FramesPort = freePort
	s, _ := newTestServer(t, cfg)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "data listener")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not fail on a taken port")
	}
}
