package store

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/ayusman/librasctl/internal/detector"
	"github.com/ayusman/librasctl/internal/gesture"
	"go.uber.org/zap"
)

// File names of the two settings documents.
const (
	BasicSettingsFile = "configuracoes.json"
	StateSettingsFile = "estado.json"
)

// Settings attributes.
const (
	AttrCamera    = "camera_selecionada"
	AttrWidth     = "webcam_width"
	AttrHeight    = "webcam_height"
	AttrRightName = "nome_gesto_direita"
	AttrLeftName  = "nome_gesto_esquerda"
	AttrCursorX   = "x_ultima_pos_cursor"
	AttrCursorY   = "y_ultima_pos_cursor"
)

// ErrUnknownAttribute is returned for a settings attribute outside the known
// set.
var ErrUnknownAttribute = errors.New("unknown settings attribute")

type basicSettings struct {
	Camera string `json:"camera_selecionada"`
	Width  int    `json:"webcam_width"`
	Height int    `json:"webcam_height"`
}

type stateSettings struct {
	RightName string  `json:"nome_gesto_direita"`
	LeftName  string  `json:"nome_gesto_esquerda"`
	CursorX   float64 `json:"x_ultima_pos_cursor"`
	CursorY   float64 `json:"y_ultima_pos_cursor"`
}

func defaultBasic(width, height int) basicSettings {
	return basicSettings{Width: width, Height: height}
}

func defaultState() stateSettings {
	return stateSettings{RightName: gesture.Placeholder, LeftName: gesture.Placeholder}
}

// Settings is the attribute store shared by the capture loop, the matcher, the
// dispatcher and the control channel. Reads are served from memory; each change
// re-reads its file under the lock and writes the result through.
type Settings struct {
	basicPath string
	statePath string
	log       *zap.Logger

	mu    sync.Mutex
	basic basicSettings
	state stateSettings
}

// NewSettings loads both settings files from dir. Missing or unreadable files
// are replaced with defaults; width and height seed a fresh basic file.
func NewSettings(dir string, width, height int, log *zap.Logger) (*Settings, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Settings{
		basicPath: filepath.Join(dir, BasicSettingsFile),
		statePath: filepath.Join(dir, StateSettingsFile),
		log:       log,
		basic:     defaultBasic(width, height),
		state:     defaultState(),
	}

	if err := s.loadOrReset(s.basicPath, &s.basic, defaultBasic(width, height)); err != nil {
		return nil, err
	}
	// Displayed names never survive a restart.
	loaded := defaultState()
	if err := s.loadOrReset(s.statePath, &loaded, defaultState()); err != nil {
		return nil, err
	}
	s.state = defaultState()
	s.state.CursorX, s.state.CursorY = loaded.CursorX, loaded.CursorY
	if err := writeJSON(s.statePath, s.state); err != nil {
		return nil, fmt.Errorf("failed to save state: %w", err)
	}
	return s, nil
}

func (s *Settings) loadOrReset(path string, dst any, defaults any) error {
	err := readJSON(path, dst)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		s.log.Warn("settings file unreadable, restoring defaults",
			zap.String("file", filepath.Base(path)),
			zap.Error(err),
		)
	}
	if err := writeJSON(path, defaults); err != nil {
		return fmt.Errorf("failed to write default settings: %w", err)
	}
	return readJSON(path, dst)
}

// Get returns the value of a settings attribute.
func (s *Settings) Get(attr string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch attr {
	case AttrCamera:
		return s.basic.Camera, nil
	case AttrWidth:
		return s.basic.Width, nil
	case AttrHeight:
		return s.basic.Height, nil
	case AttrRightName:
		return s.state.RightName, nil
	case AttrLeftName:
		return s.state.LeftName, nil
	case AttrCursorX:
		return s.state.CursorX, nil
	case AttrCursorY:
		return s.state.CursorY, nil
	}
	return nil, fmt.Errorf("%q: %w", attr, ErrUnknownAttribute)
}

// Set updates a settings attribute and persists its file when the value
// changed. Values decoded from JSON are accepted for numeric attributes.
func (s *Settings) Set(attr string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch attr {
	case AttrCamera, AttrRightName, AttrLeftName:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s: expected string, got %T", attr, value)
		}
		switch attr {
		case AttrCamera:
			return s.setBasic(func(b *basicSettings) { b.Camera = str })
		case AttrRightName:
			return s.setState(func(st *stateSettings) { st.RightName = str })
		default:
			return s.setState(func(st *stateSettings) { st.LeftName = str })
		}

	case AttrWidth, AttrHeight:
		n, err := toInt(value)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}
		if n <= 0 {
			return fmt.Errorf("%s: must be positive, got %d", attr, n)
		}
		if attr == AttrWidth {
			return s.setBasic(func(b *basicSettings) { b.Width = n })
		}
		return s.setBasic(func(b *basicSettings) { b.Height = n })

	case AttrCursorX, AttrCursorY:
		f, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}
		if attr == AttrCursorX {
			return s.setState(func(st *stateSettings) { st.CursorX = f })
		}
		return s.setState(func(st *stateSettings) { st.CursorY = f })
	}
	return fmt.Errorf("%q: %w", attr, ErrUnknownAttribute)
}

func (s *Settings) setBasic(update func(*basicSettings)) error {
	return writeThrough(s, s.basicPath, &s.basic, update)
}

func (s *Settings) setState(update func(*stateSettings)) error {
	return writeThrough(s, s.statePath, &s.state, update)
}

// writeThrough applies update on top of the file's current contents so edits
// made outside the process are kept. The caller holds s.mu. An unreadable file
// falls back to the in-memory copy.
func writeThrough[T comparable](s *Settings, path string, mem *T, update func(*T)) error {
	var cur T
	if err := readJSON(path, &cur); err != nil {
		s.log.Warn("settings file unreadable, using last known values",
			zap.String("file", filepath.Base(path)),
			zap.Error(err),
		)
		cur = *mem
	}
	next := cur
	update(&next)
	if next != cur {
		if err := writeJSON(path, next); err != nil {
			return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
		}
	}
	*mem = next
	return nil
}

// SetDisplayedGesture records the gesture shown for a hand.
func (s *Settings) SetDisplayedGesture(handedness, name string) error {
	switch handedness {
	case detector.Right:
		return s.Set(AttrRightName, name)
	case detector.Left:
		return s.Set(AttrLeftName, name)
	}
	return fmt.Errorf("unknown handedness %q", handedness)
}

// DisplayedGesture returns the gesture shown for a hand.
func (s *Settings) DisplayedGesture(handedness string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handedness == detector.Left {
		return s.state.LeftName
	}
	return s.state.RightName
}

// CursorPosition returns the last tracked cursor position in screen pixels.
func (s *Settings) CursorPosition() (x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CursorX, s.state.CursorY
}

// SetCursorPosition records the tracked cursor position in screen pixels.
func (s *Settings) SetCursorPosition(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setState(func(st *stateSettings) {
		st.CursorX = x
		st.CursorY = y
	})
}

// Camera returns the selected camera name.
func (s *Settings) Camera() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basic.Camera
}

// SetCamera selects the camera used by the next detection start.
func (s *Settings) SetCamera(name string) error {
	return s.Set(AttrCamera, name)
}

// Resolution returns the configured capture size.
func (s *Settings) Resolution() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basic.Width, s.basic.Height
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
