package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scheerer/companion-lights/lights"
)

func TestWheel(t *testing.T) {
	tests := []struct {
		pos  uint8
		want lights.Color
	}{
		{0, lights.Color{Red: 255}},
		{85, lights.Color{Green: 255}},
		{170, lights.Color{Blue: 255}},
		{255, lights.Color{Red: 255}},
		{128, lights.Color{Green: 126, Blue: 129}},
		{16, lights.Color{Red: 207, Green: 48}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Wheel(tt.pos), "Wheel(%d)", tt.pos)
	}
}

func TestWheelPeriodic(t *testing.T) {
	assert.Equal(t, Wheel(0), Wheel(uint8(256%256)))
}

func TestWheelIsFullySaturated(t *testing.T) {
	for pos := 0; pos < 256; pos++ {
		c := Wheel(uint8(pos))
		sum := int(c.Red) + int(c.Green) + int(c.Blue)
		assert.Equal(t, 255, sum, "Wheel(%d) = %v", pos, c)
	}
}
