package effect

import "github.com/scheerer/companion-lights/lights"

// Wheel maps a position on a 256-step color wheel to a fully saturated color.
// The three 85-wide arcs run red -> blue -> green -> red.
func Wheel(pos uint8) lights.Color {
	p := 255 - pos
	switch {
	case p < 85:
		return lights.Color{Red: 255 - p*3, Green: 0, Blue: p * 3}
	case p < 170:
		p -= 85
		return lights.Color{Red: 0, Green: p * 3, Blue: 255 - p*3}
	default:
		p -= 170
		return lights.Color{Red: p * 3, Green: 255 - p*3, Blue: 0}
	}
}
