package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/librasctl/internal/app"
	"github.com/ayusman/librasctl/internal/capture"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PlaceholderMessage is drawn on the frame pushed while no camera frame exists.
const PlaceholderMessage = "Camera desligada"

// FrameSource provides the most recent published frame.
type FrameSource interface {
	LatestFrame() (app.Frame, bool)
}

type frameMessage struct {
	Frame string `json:"frame"`
}

// FrameHub pushes the latest frame to every frame channel subscriber.
type FrameHub struct {
	source       FrameSource
	limiter      *rate.Limiter
	writeTimeout time.Duration
	log          *zap.Logger

	subs    connSet
	writeMu sync.Mutex // one broadcast at a time; gorilla allows a single writer

	placeholderMu sync.Mutex
	placeholder   []byte
	width, height int
}

// NewFrameHub creates a FrameHub pushing at most fps frames per second.
// width and height size the placeholder image.
func NewFrameHub(source FrameSource, fps float64, writeTimeout time.Duration, width, height int, log *zap.Logger) *FrameHub {
	return &FrameHub{
		source:       source,
		limiter:      rate.NewLimiter(rate.Limit(fps), 1),
		writeTimeout: writeTimeout,
		log:          log,
		width:        width,
		height:       height,
	}
}

// ServeHTTP subscribes the connection. Incoming messages are discarded; the
// read loop only notices disconnects.
func (h *FrameHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	h.subs.add(conn)
	h.log.Info("frame subscriber connected", zap.String("remote", r.RemoteAddr), zap.Int("subscribers", h.subs.len()))

	defer func() {
		if h.subs.remove(conn) {
			conn.Close()
		}
		h.log.Info("frame subscriber disconnected", zap.String("remote", r.RemoteAddr))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *FrameHub) Subscribers() int {
	return h.subs.len()
}

// Run broadcasts until ctx is done, then disconnects every subscriber.
func (h *FrameHub) Run(ctx context.Context) error {
	defer h.subs.closeAll()
	for {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil
		}
		h.Broadcast()
	}
}

// Broadcast sends the latest frame, or the placeholder when there is none, to
// every subscriber. Subscribers whose write fails are dropped. It returns the
// number of successful sends.
func (h *FrameHub) Broadcast() int {
	subs := h.subs.snapshot()
	if len(subs) == 0 {
		return 0
	}

	msg, err := h.message()
	if err != nil {
		h.log.Warn("failed to build frame message", zap.Error(err))
		return 0
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	sent := 0
	for _, conn := range subs {
		if h.writeTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("failed to send frame, dropping subscriber", zap.Error(err))
			if h.subs.remove(conn) {
				conn.Close()
			}
			continue
		}
		sent++
	}
	return sent
}

func (h *FrameHub) message() ([]byte, error) {
	jpeg, err := h.frame()
	if err != nil {
		return nil, err
	}
	return json.Marshal(frameMessage{Frame: base64.StdEncoding.EncodeToString(jpeg)})
}

func (h *FrameHub) frame() ([]byte, error) {
	if f, ok := h.source.LatestFrame(); ok {
		return f.JPEG, nil
	}

	h.placeholderMu.Lock()
	defer h.placeholderMu.Unlock()
	if h.placeholder == nil {
		img, err := capture.Placeholder(h.width, h.height, PlaceholderMessage)
		if err != nil {
			return nil, err
		}
		h.placeholder = img
	}
	return h.placeholder, nil
}
