package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKey(t *testing.T) {
	tests := []struct {
		code string
		name string
		kind Kind
		vk   uint16
	}{
		{"a", "a", Keyboard, 0x41},
		{"Z", "z", Keyboard, 0x5A},
		{"7", "7", Keyboard, 0x37},
		{"f5", "f5", Keyboard, 0x74},
		{" space ", "space", Keyboard, 0x20},
		{"enter", "enter", Keyboard, 0x0D},
		{"m1", "m1", Mouse, 0},
		{"M3", "m3", Mouse, 0},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			k, err := LookupKey(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.name, k.Name)
			assert.Equal(t, tt.kind, k.Kind)
			assert.Equal(t, tt.vk, k.VK)
			assert.NotEmpty(t, k.Robot)
		})
	}
}

func TestLookupKey_UnknownSuggests(t *testing.T) {
	_, err := LookupKey("spcae")
	require.ErrorIs(t, err, ErrUnknownKey)
	assert.Contains(t, err.Error(), `did you mean "space"`)

	_, err = LookupKey("")
	require.ErrorIs(t, err, ErrUnknownKey)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestSuggestKey(t *testing.T) {
	assert.Equal(t, "enter", SuggestKey("entr"))
	assert.Equal(t, "delete", SuggestKey("DELET"))
	assert.Equal(t, "4", SuggestKey("m4"), "ties resolve alphabetically")
	assert.Equal(t, "", SuggestKey("  "))
}

func TestKeyNames(t *testing.T) {
	names := KeyNames()
	assert.Contains(t, names, "m1")
	assert.Contains(t, names, "f12")
	assert.IsNonDecreasing(t, names)
	assert.True(t, KnownKey("ESC"))
	assert.False(t, KnownKey("hyper"))
}

func TestDeviceFor(t *testing.T) {
	inj := NewMockInjector(100, 100)

	a, _ := LookupKey("a")
	dev, err := deviceFor(inj, a)
	require.NoError(t, err)
	assert.IsType(t, keyboardDevice{}, dev)

	m1, _ := LookupKey("m1")
	dev, err = deviceFor(inj, m1)
	require.NoError(t, err)
	assert.IsType(t, mouseDevice{}, dev)

	_, err = deviceFor(inj, Key{Name: "ghost"})
	assert.Error(t, err)
}
