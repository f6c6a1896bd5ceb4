//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"github.com/lxn/win"
)

const (
	keyEventKeyUp = 0x0002

	mouseEventMove       = 0x0001
	mouseEventLeftDown   = 0x0002
	mouseEventLeftUp     = 0x0004
	mouseEventRightDown  = 0x0008
	mouseEventRightUp    = 0x0010
	mouseEventMiddleDown = 0x0020
	mouseEventMiddleUp   = 0x0040
)

type windowsInjector struct{}

// NewSystemInjector returns the injector backed by SendInput.
func NewSystemInjector() (Injector, error) {
	return windowsInjector{}, nil
}

func (windowsInjector) sendKey(k Key, flags uint32) error {
	in := win.KEYBD_INPUT{
		Type: win.INPUT_KEYBOARD,
		Ki:   win.KEYBDINPUT{WVk: k.VK, DwFlags: flags},
	}
	if n := win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in))); n != 1 {
		return fmt.Errorf("SendInput rejected key %q", k.Name)
	}
	return nil
}

func (windowsInjector) sendMouse(dx, dy int32, flags uint32) error {
	in := win.MOUSE_INPUT{
		Type: win.INPUT_MOUSE,
		Mi:   win.MOUSEINPUT{Dx: dx, Dy: dy, DwFlags: flags},
	}
	if n := win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in))); n != 1 {
		return fmt.Errorf("SendInput rejected mouse event %#x", flags)
	}
	return nil
}

func (w windowsInjector) KeyDown(k Key) error { return w.sendKey(k, 0) }
func (w windowsInjector) KeyUp(k Key) error   { return w.sendKey(k, keyEventKeyUp) }

func buttonFlags(k Key) (down, up uint32, err error) {
	switch k.Name {
	case "m1":
		return mouseEventLeftDown, mouseEventLeftUp, nil
	case "m2":
		return mouseEventRightDown, mouseEventRightUp, nil
	case "m3":
		return mouseEventMiddleDown, mouseEventMiddleUp, nil
	}
	return 0, 0, fmt.Errorf("%q is not a mouse button", k.Name)
}

func (w windowsInjector) MouseDown(k Key) error {
	down, _, err := buttonFlags(k)
	if err != nil {
		return err
	}
	return w.sendMouse(0, 0, down)
}

func (w windowsInjector) MouseUp(k Key) error {
	_, up, err := buttonFlags(k)
	if err != nil {
		return err
	}
	return w.sendMouse(0, 0, up)
}

func (w windowsInjector) MoveRelative(dx, dy int) error {
	return w.sendMouse(int32(dx), int32(dy), mouseEventMove)
}

func (windowsInjector) CursorPos() (int, int, error) {
	var p win.POINT
	if !win.GetCursorPos(&p) {
		return 0, 0, fmt.Errorf("GetCursorPos failed")
	}
	return int(p.X), int(p.Y), nil
}

func (windowsInjector) ScreenSize() (int, int, error) {
	w := win.GetSystemMetrics(win.SM_CXSCREEN)
	h := win.GetSystemMetrics(win.SM_CYSCREEN)
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("GetSystemMetrics returned an empty screen")
	}
	return int(w), int(h), nil
}
