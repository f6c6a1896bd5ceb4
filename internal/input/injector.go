package input

import "fmt"

// Injector sends synthetic input events to the operating system.
type Injector interface {
	KeyDown(k Key) error
	KeyUp(k Key) error
	MouseDown(k Key) error
	MouseUp(k Key) error
	MoveRelative(dx, dy int) error
	CursorPos() (x, y int, err error)
	ScreenSize() (width, height int, err error)
}

// Device presses and releases one kind of key.
type Device interface {
	Down(k Key) error
	Up(k Key) error
}

type keyboardDevice struct{ inj Injector }

func (d keyboardDevice) Down(k Key) error { return d.inj.KeyDown(k) }
func (d keyboardDevice) Up(k Key) error   { return d.inj.KeyUp(k) }

type mouseDevice struct{ inj Injector }

func (d mouseDevice) Down(k Key) error { return d.inj.MouseDown(k) }
func (d mouseDevice) Up(k Key) error   { return d.inj.MouseUp(k) }

// deviceFor picks the device that handles k.
func deviceFor(inj Injector, k Key) (Device, error) {
	switch k.Kind {
	case Keyboard:
		return keyboardDevice{inj}, nil
	case Mouse:
		return mouseDevice{inj}, nil
	}
	return nil, fmt.Errorf("key %q has no device", k.Name)
}
