// Package input turns binds into synthetic keyboard and mouse events.
package input

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrUnknownKey is returned for a bind code outside the key table.
var ErrUnknownKey = errors.New("unknown key")

// Kind tells which device handles a key.
type Kind int

const (
	Keyboard Kind = iota + 1
	Mouse
)

func (k Kind) String() string {
	switch k {
	case Keyboard:
		return "keyboard"
	case Mouse:
		return "mouse"
	}
	return "unknown"
}

// Key is one entry of the key table. VK is the Windows virtual-key code and
// Robot the name understood by robotgo on other platforms.
type Key struct {
	Name  string
	Kind  Kind
	VK    uint16
	Robot string
}

var keyTable = buildKeyTable()

func buildKeyTable() map[string]Key {
	t := map[string]Key{}
	add := func(name string, vk uint16, robot string) {
		t[name] = Key{Name: name, Kind: Keyboard, VK: vk, Robot: robot}
	}

	for c := 'a'; c <= 'z'; c++ {
		add(string(c), uint16('A'+(c-'a')), string(c))
	}
	for c := '0'; c <= '9'; c++ {
		add(string(c), uint16(c), string(c))
	}
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("f%d", i)
		add(name, uint16(0x70+i-1), name)
	}

	add("backspace", 0x08, "backspace")
	add("tab", 0x09, "tab")
	add("enter", 0x0D, "enter")
	add("shift", 0x10, "shift")
	add("ctrl", 0x11, "ctrl")
	add("alt", 0x12, "alt")
	add("pause", 0x13, "pause")
	add("capslock", 0x14, "capslock")
	add("esc", 0x1B, "esc")
	add("space", 0x20, "space")
	add("pageup", 0x21, "pageup")
	add("pagedown", 0x22, "pagedown")
	add("end", 0x23, "end")
	add("home", 0x24, "home")
	add("left", 0x25, "left")
	add("up", 0x26, "up")
	add("right", 0x27, "right")
	add("down", 0x28, "down")
	add("printscreen", 0x2C, "printscreen")
	add("insert", 0x2D, "insert")
	add("delete", 0x2E, "delete")
	add("win", 0x5B, "cmd")
	add("numlock", 0x90, "numlock")
	add("scrolllock", 0x91, "scrolllock")
	add("lshift", 0xA0, "lshift")
	add("rshift", 0xA1, "rshift")
	add("lctrl", 0xA2, "lctrl")
	add("rctrl", 0xA3, "rctrl")
	add("lalt", 0xA4, "lalt")
	add("ralt", 0xA5, "ralt")

	// Mouse buttons.
	t["m1"] = Key{Name: "m1", Kind: Mouse, Robot: "left"}
	t["m2"] = Key{Name: "m2", Kind: Mouse, Robot: "right"}
	t["m3"] = Key{Name: "m3", Kind: Mouse, Robot: "center"}

	return t
}

// LookupKey resolves a bind code, case-insensitively. Unknown codes fail with
// ErrUnknownKey and name the closest known code.
func LookupKey(code string) (Key, error) {
	k, ok := keyTable[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		if s := SuggestKey(code); s != "" {
			return Key{}, fmt.Errorf("%w %q, did you mean %q?", ErrUnknownKey, code, s)
		}
		return Key{}, fmt.Errorf("%w %q", ErrUnknownKey, code)
	}
	return k, nil
}

// KnownKey reports whether code is in the key table.
func KnownKey(code string) bool {
	_, err := LookupKey(code)
	return err == nil
}

// SuggestKey returns the known code closest to code by edit distance. Ties go
// to the alphabetically first code.
func SuggestKey(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}

	best, bestDist := "", -1
	for _, name := range KeyNames() {
		d := levenshtein.ComputeDistance(code, name)
		if bestDist < 0 || d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// KeyNames lists every bind code in sorted order.
func KeyNames() []string {
	names := make([]string, 0, len(keyTable))
	for name := range keyTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
