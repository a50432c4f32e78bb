package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheerer/companion-lights/internal/effect"
)

func TestDefault(t *testing.T) {
	l := Default()
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"body", "base"}, l.Names())
	assert.Equal(t, map[string]int{"body": 0, "base": 16}, l.PixelOffsets())
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	l, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), l)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	data := `
channels:
  - name: body
    pixels: 16
    prefix: "Light: "
    topic: /light
    gpio: 18
    boot:
      - "Hex(B5B5B5) Brightness(100) Fade(0)"
  - name: base
    pixels: 40
    prefix: "LightBase: "
    topic: /LightBase
    gpio: 13
    boot:
      - "Hex(FFB126) Brightness(100) Fade(0)"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	l, err := Load(path)
	require.NoError(t, err)
	require.Len(t, l.Channels, 2)
	assert.Equal(t, Channel{
		Name:    "base",
		Pixels:  40,
		Prefix:  "LightBase: ",
		Topic:   "/LightBase",
		GpioPin: 13,
		Boot:    []string{"Hex(FFB126) Brightness(100) Fade(0)"},
	}, l.Channels[1])
}

func TestPixelOffsetsHonorsExplicitOffset(t *testing.T) {
	l, err := Parse([]byte(`
channels:
  - {name: a, pixels: 4}
  - {name: b, pixels: 2, ddp_offset: 100}
  - {name: c, pixels: 1}
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 0, "b": 100, "c": 102}, l.PixelOffsets())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "channels: [:"},
		{"no channels", "channels: []"},
		{"missing name", "channels: [{pixels: 3}]"},
		{"duplicate name", "channels: [{name: a, pixels: 1}, {name: a, pixels: 2}]"},
		{"zero pixels", "channels: [{name: a}]"},
		{"negative offset", "channels: [{name: a, pixels: 1, ddp_offset: -1}]"},
		{"duplicate prefix", "channels: [{name: a, pixels: 1, prefix: 'L: '}, {name: b, pixels: 1, prefix: 'L: '}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsBadBootCommand(t *testing.T) {
	_, err := Parse([]byte("channels: [{name: a, pixels: 1, boot: ['Hex(XYZ) Brightness(1) Fade(0)']}]"))
	assert.ErrorIs(t, err, effect.ErrMalformedCommand)
}
