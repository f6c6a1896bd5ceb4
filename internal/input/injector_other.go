//go:build !windows

package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

type robotInjector struct{}

// NewSystemInjector returns the injector backed by robotgo.
func NewSystemInjector() (Injector, error) {
	return robotInjector{}, nil
}

func (robotInjector) KeyDown(k Key) error {
	if err := robotgo.KeyToggle(k.Robot, "down"); err != nil {
		return fmt.Errorf("key down %q: %w", k.Name, err)
	}
	return nil
}

func (robotInjector) KeyUp(k Key) error {
	if err := robotgo.KeyToggle(k.Robot, "up"); err != nil {
		return fmt.Errorf("key up %q: %w", k.Name, err)
	}
	return nil
}

func (robotInjector) MouseDown(k Key) error {
	if err := robotgo.Toggle(k.Robot, "down"); err != nil {
		return fmt.Errorf("mouse down %q: %w", k.Name, err)
	}
	return nil
}

func (robotInjector) MouseUp(k Key) error {
	if err := robotgo.Toggle(k.Robot, "up"); err != nil {
		return fmt.Errorf("mouse up %q: %w", k.Name, err)
	}
	return nil
}

func (robotInjector) MoveRelative(dx, dy int) error {
	robotgo.MoveRelative(dx, dy)
	return nil
}

func (robotInjector) CursorPos() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

func (robotInjector) ScreenSize() (int, int, error) {
	w, h := robotgo.GetScreenSize()
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("screen size unavailable")
	}
	return w, h, nil
}
