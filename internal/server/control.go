package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/librasctl/internal/app"
	"github.com/ayusman/librasctl/internal/capture"
	"github.com/ayusman/librasctl/internal/gesture"
	"github.com/ayusman/librasctl/internal/input"
	"github.com/ayusman/librasctl/internal/store"
	"go.uber.org/zap"
)

// DefaultHistoryLimit is the number of journal entries returned by
// GET_INPUT_HISTORY when the request names none.
const DefaultHistoryLimit = 50

// maxHistoryLimit caps GET_INPUT_HISTORY.
const maxHistoryLimit = 500

// Detection controls the capture loop.
type Detection interface {
	StartDetection() error
	StopDetection() error
	StartCropHandMode() error
	StopCropHandMode() error
	Running() bool
	// LastError is the failure that ended the last session, if any.
	LastError() error
}

// GestureCatalog is the gesture definition store.
type GestureCatalog interface {
	Lookup(name string) (gesture.Definition, bool)
	SaveCustom(def gesture.Definition, overwrite bool) error
	RemoveCustom(name string) error
}

// BindCatalog is the gesture to key binding store.
type BindCatalog interface {
	All() (map[string]store.Bind, error)
	Get(name string) (store.Bind, bool, error)
	Add(name, bind string, hold float64, toggle, overwrite bool) error
	Remove(name string) error
}

// CameraSettings persists the selected camera.
type CameraSettings interface {
	Camera() string
	SetCamera(name string) error
}

// History reads the input journal.
type History interface {
	Recent(ctx context.Context, limit int) ([]store.Entry, error)
}

// Deps are the collaborators of the control channel.
type Deps struct {
	Detection Detection
	Gestures  GestureCatalog
	Binds     BindCatalog
	Settings  CameraSettings
	Cameras   capture.Lister
	// History is optional; GET_INPUT_HISTORY fails without it.
	History History
}

// reply is one control message answer.
type reply map[string]any

func errorReply(err error) reply {
	return reply{"error": err.Error()}
}

func successReply(format string, args ...any) reply {
	return reply{"status": "success", "message": fmt.Sprintf(format, args...)}
}

// command handles one control message. arg is the value of the command key;
// msg is the whole message for commands reading sibling keys.
type command func(arg json.RawMessage, msg map[string]json.RawMessage) reply

// Controller answers control channel messages.
type Controller struct {
	deps Deps
	log  *zap.Logger

	// order is the command precedence when a message carries several keys.
	order    []string
	commands map[string]command
}

// NewController creates a Controller.
func NewController(deps Deps, log *zap.Logger) *Controller {
	c := &Controller{deps: deps, log: log}
	c.register("ping", c.ping)
	c.register("START_DETECTION", c.startDetection)
	c.register("STOP_DETECTION", c.stopDetection)
	c.register("START_CROP_HAND_MODE", c.startCrop)
	c.register("STOP_CROP_HAND_MODE", c.stopCrop)
	c.register("GET_ALL_GESTOS", c.allGestures)
	c.register("GET_GESTO_BY_NAME", c.gestureByName)
	c.register("GET_CUSTOMIZABLE_STATE", c.customizableState)
	c.register("SAVE_GESTO", c.saveGesture)
	c.register("SET_CAMERA", c.setCamera)
	c.register("GET_CAMERA", c.getCamera)
	c.register("GET_CAMERAS_DISPONIVEIS", c.cameras)
	c.register("REMOVE_GESTO", c.removeGesture)
	c.register("GET_INPUT_HISTORY", c.inputHistory)
	return c
}

func (c *Controller) register(name string, cmd command) {
	if c.commands == nil {
		c.commands = make(map[string]command)
	}
	c.order = append(c.order, name)
	c.commands[name] = cmd
}

// Commands lists the recognized commands in precedence order.
func (c *Controller) Commands() []string {
	return append([]string(nil), c.order...)
}

// Handle answers one raw control message. The command is the first
// recognized key of the JSON object.
func (c *Controller) Handle(raw []byte) reply {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg == nil {
		return reply{"error": "invalid JSON"}
	}

	for _, name := range c.order {
		arg, ok := msg[name]
		if !ok {
			continue
		}
		if name != "ping" {
			c.log.Debug("control command", zap.String("command", name))
		}
		return c.commands[name](arg, msg)
	}

	keys := make([]string, 0, len(msg))
	for k := range msg {
		keys = append(keys, k)
	}
	c.log.Warn("unknown control command", zap.Strings("keys", keys))
	return reply{"error": "unknown command"}
}

func (c *Controller) ping(json.RawMessage, map[string]json.RawMessage) reply {
	return reply{"pong": true}
}

func (c *Controller) startDetection(json.RawMessage, map[string]json.RawMessage) reply {
	if err := c.deps.Detection.StartDetection(); err != nil {
		c.log.Error("failed to start detection", zap.Error(err))
		return errorReply(err)
	}
	return successReply("detection started")
}

func (c *Controller) stopDetection(json.RawMessage, map[string]json.RawMessage) reply {
	if err := c.deps.Detection.StopDetection(); err != nil {
		return errorReply(err)
	}
	return successReply("detection stopped")
}

func (c *Controller) startCrop(json.RawMessage, map[string]json.RawMessage) reply {
	if err := c.deps.Detection.StartCropHandMode(); err != nil {
		return errorReply(notRunningHint(err))
	}
	return successReply("crop hand mode started")
}

func (c *Controller) stopCrop(json.RawMessage, map[string]json.RawMessage) reply {
	if err := c.deps.Detection.StopCropHandMode(); err != nil {
		return errorReply(notRunningHint(err))
	}
	return successReply("crop hand mode stopped")
}

func notRunningHint(err error) error {
	if errors.Is(err, app.ErrNotRunning) {
		return fmt.Errorf("%w, send START_DETECTION first", err)
	}
	return err
}

func (c *Controller) allGestures(json.RawMessage, map[string]json.RawMessage) reply {
	binds, err := c.deps.Binds.All()
	if err != nil {
		c.log.Error("failed to read binds", zap.Error(err))
		return errorReply(err)
	}
	return reply{"allGestos": binds}
}

func (c *Controller) gestureByName(arg json.RawMessage, _ map[string]json.RawMessage) reply {
	name, err := stringArg(arg)
	if err != nil {
		return errorReply(err)
	}
	def, ok := c.deps.Gestures.Lookup(name)
	if !ok {
		return reply{"gesto": nil}
	}
	return reply{"gesto": def.Features}
}

func (c *Controller) customizableState(arg json.RawMessage, _ map[string]json.RawMessage) reply {
	name, err := stringArg(arg)
	if err != nil {
		return errorReply(err)
	}
	b, _, err := c.deps.Binds.Get(name)
	if err != nil {
		return errorReply(err)
	}
	return reply{"customizableState": b.Customizable}
}

// saveRequest is the SAVE_GESTO payload. Gesture and Relevant optionally
// define a custom gesture along with its bind.
type saveRequest struct {
	Name      string          `json:"nome"`
	Bind      string          `json:"bind"`
	Toggle    bool            `json:"modoToggle"`
	Hold      float64         `json:"tempoPressionado"`
	Overwrite bool            `json:"sobreescrever"`
	Gesture   *gesture.Vector `json:"gesto"`
	Relevant  []string        `json:"atributosRelevantes"`
}

func (c *Controller) saveGesture(arg json.RawMessage, msg map[string]json.RawMessage) reply {
	var req saveRequest
	if err := json.Unmarshal(arg, &req); err != nil {
		return reply{"error": "invalid JSON"}
	}
	if raw, ok := msg["sobreescrever"]; ok {
		var overwrite bool
		if err := json.Unmarshal(raw, &overwrite); err != nil {
			return reply{"error": "invalid JSON"}
		}
		req.Overwrite = req.Overwrite || overwrite
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return reply{"error": "gesture name is required"}
	}
	if _, err := input.LookupKey(req.Bind); err != nil {
		return errorReply(err)
	}
	if req.Hold < 0 || req.Hold > store.MaxHoldSeconds {
		return errorReply(fmt.Errorf("%w: must be between 0 and %d seconds", store.ErrInvalidHold, store.MaxHoldSeconds))
	}

	bind := strings.ToLower(strings.TrimSpace(req.Bind))
	if req.Gesture == nil {
		if err := c.deps.Binds.Add(req.Name, bind, req.Hold, req.Toggle, req.Overwrite); err != nil {
			return errorReply(err)
		}
	} else if err := c.saveCustom(req, bind); err != nil {
		return errorReply(err)
	}

	c.log.Info("gesture saved",
		zap.String("gesture", req.Name),
		zap.String("bind", req.Bind),
		zap.Bool("toggle", req.Toggle),
		zap.Float64("hold", req.Hold),
		zap.Bool("overwrite", req.Overwrite),
	)
	return successReply("gesture %q saved: bind %s, toggle %t, hold %gs", req.Name, req.Bind, req.Toggle, req.Hold)
}

// saveCustom stores a custom gesture together with its bind. Either both are
// saved or the gesture store is left as it was.
func (c *Controller) saveCustom(req saveRequest, bind string) error {
	def := gesture.Definition{Name: req.Name, Features: *req.Gesture}
	for _, s := range req.Relevant {
		k, err := gesture.ParseKey(s)
		if err != nil {
			return err
		}
		def.Relevant = append(def.Relevant, k)
	}

	_, hasBind, err := c.deps.Binds.Get(req.Name)
	if err != nil {
		return err
	}
	if hasBind && !req.Overwrite {
		return fmt.Errorf("%q: %w", req.Name, store.ErrBindExists)
	}

	prev, hadPrev := c.deps.Gestures.Lookup(req.Name)
	if err := c.deps.Gestures.SaveCustom(def, req.Overwrite); err != nil {
		return err
	}
	if err := c.deps.Binds.Add(req.Name, bind, req.Hold, req.Toggle, req.Overwrite); err != nil {
		// SaveCustom refuses library names, so prev can only be a custom gesture.
		var rerr error
		if hadPrev {
			rerr = c.deps.Gestures.SaveCustom(prev, true)
		} else {
			rerr = c.deps.Gestures.RemoveCustom(req.Name)
		}
		if rerr != nil {
			c.log.Error("failed to roll back custom gesture", zap.String("gesture", req.Name), zap.Error(rerr))
		}
		return err
	}
	return nil
}

func (c *Controller) removeGesture(arg json.RawMessage, _ map[string]json.RawMessage) reply {
	name, err := stringArg(arg)
	if err != nil {
		return errorReply(err)
	}
	if err := c.deps.Gestures.RemoveCustom(name); err != nil {
		return errorReply(err)
	}
	if err := c.deps.Binds.Remove(name); err != nil {
		return errorReply(err)
	}
	c.log.Info("gesture removed", zap.String("gesture", name))
	return successReply("gesture %q removed", name)
}

func (c *Controller) setCamera(arg json.RawMessage, _ map[string]json.RawMessage) reply {
	name, err := stringArg(arg)
	if err != nil {
		return errorReply(err)
	}
	if err := c.deps.Settings.SetCamera(name); err != nil {
		return errorReply(err)
	}
	c.log.Info("camera selected", zap.String("camera", name))
	return successReply("camera %q selected", name)
}

func (c *Controller) getCamera(json.RawMessage, map[string]json.RawMessage) reply {
	return reply{"cameraSelecionada": c.deps.Settings.Camera()}
}

func (c *Controller) cameras(json.RawMessage, map[string]json.RawMessage) reply {
	devices, err := c.deps.Cameras.Devices()
	if err != nil || len(devices) == 0 {
		if err != nil {
			c.log.Error("failed to list cameras", zap.Error(err))
		}
		return reply{"error": "could not list the available cameras"}
	}
	return reply{"camerasDisponiveis": capture.Names(devices)}
}

func (c *Controller) inputHistory(arg json.RawMessage, _ map[string]json.RawMessage) reply {
	if c.deps.History == nil {
		return reply{"error": "input history is not available"}
	}

	limit := DefaultHistoryLimit
	var n int
	if err := json.Unmarshal(arg, &n); err == nil && n > 0 {
		limit = min(n, maxHistoryLimit)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries, err := c.deps.History.Recent(ctx, limit)
	if err != nil {
		c.log.Error("failed to read input history", zap.Error(err))
		return errorReply(err)
	}
	return reply{"inputHistory": entries}
}

func stringArg(arg json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(arg, &s); err != nil {
		return "", errors.New("expected a string argument")
	}
	return s, nil
}
