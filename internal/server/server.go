// Package server provides the two websocket listeners of librasctl: the
// control channel answering JSON commands and the frame channel pushing the
// annotated camera frames.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/librasctl/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful shutdown of each listener.
const shutdownTimeout = 5 * time.Second

// Server runs the control and frame listeners.
type Server struct {
	cfg       config.ServerConfig
	detection Detection
	control   *ControlHandler
	hub       *FrameHub
	log       *zap.Logger
	start     time.Time
}

// New creates a Server. frames feeds the frame channel; width and height size
// its placeholder image.
func New(cfg config.ServerConfig, deps Deps, frames FrameSource, width, height int, log *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		detection: deps.Detection,
		control:   NewControlHandler(NewController(deps, log.Named("control")), cfg.WriteTimeout, log),
		hub:       NewFrameHub(frames, cfg.FrameFPS, cfg.WriteTimeout, width, height, log.Named("frames")),
		log:       log,
		start:     time.Now(),
	}
}

// DataHandler routes the control listener.
func (s *Server) DataHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/", s.control)
	return mux
}

// FramesHandler routes the frame listener.
func (s *Server) FramesHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/", s.hub)
	return mux
}

// Hub returns the frame hub.
func (s *Server) Hub() *FrameHub {
	return s.hub
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.start).String(),
		"detection": s.detection != nil && s.detection.Running(),
	}
	if s.detection != nil {
		if err := s.detection.LastError(); err != nil {
			response["lastError"] = err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves both listeners and the frame broadcaster until ctx is done or a
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	data := &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.DataPort)),
		Handler:           s.DataHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	data.RegisterOnShutdown(s.control.CloseAll)

	frames := &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.FramesPort)),
		Handler:           s.FramesHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.serve(data, "data") })
	g.Go(func() error { return s.serve(frames, "frames") })
	g.Go(func() error { return s.hub.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(data.Shutdown(shutdownCtx), frames.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func (s *Server) serve(srv *http.Server, name string) error {
	s.log.Info("listening", zap.String("listener", name), zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listener: %w", name, err)
	}
	return nil
}
