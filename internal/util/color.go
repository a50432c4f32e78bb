package util

import (
	"math"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/scheerer/companion-lights/lights"
)

// RgbToHsb converts an 8-bit RGB color to 16-bit hue, saturation and brightness
// as used by LIFX bulbs.
func RgbToHsb(r, g, b uint8) (uint16, uint16, uint16) {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	h, s, v := c.Hsv()

	hue := uint16(math.Round(math.Mod(h, 360) / 360 * 0xFFFF))
	saturation := uint16(math.Round(s * 0xFFFF))
	brightness := uint16(math.Round(v * 0xFFFF))

	return hue, saturation, brightness
}

// AverageColor averages a strip in linear RGB so a rainbow doesn't collapse to a
// muddy mid-grey.
func AverageColor(pixels []lights.Color) lights.Color {
	if len(pixels) == 0 {
		return lights.Black
	}

	var sumR, sumG, sumB float64
	for _, p := range pixels {
		r, g, b := toColorful(p).LinearRgb()
		sumR += r
		sumG += g
		sumB += b
	}

	n := float64(len(pixels))
	return fromColorful(colorful.LinearRgb(sumR/n, sumG/n, sumB/n))
}

// SquaredAverageColor calculates the root-mean-square of each component.
func SquaredAverageColor(pixels []lights.Color) lights.Color {
	if len(pixels) == 0 {
		return lights.Black
	}

	var sumR, sumG, sumB uint64
	for _, p := range pixels {
		sumR += uint64(p.Red) * uint64(p.Red)
		sumG += uint64(p.Green) * uint64(p.Green)
		sumB += uint64(p.Blue) * uint64(p.Blue)
	}

	n := uint64(len(pixels))
	return lights.Color{
		Red:   uint8(math.Sqrt(float64(sumR / n))),
		Green: uint8(math.Sqrt(float64(sumG / n))),
		Blue:  uint8(math.Sqrt(float64(sumB / n))),
	}
}

// MedianColor calculates the per-component median of a strip.
func MedianColor(pixels []lights.Color) lights.Color {
	if len(pixels) == 0 {
		return lights.Black
	}

	reds := make([]uint8, 0, len(pixels))
	greens := make([]uint8, 0, len(pixels))
	blues := make([]uint8, 0, len(pixels))
	for _, p := range pixels {
		reds = append(reds, p.Red)
		greens = append(greens, p.Green)
		blues = append(blues, p.Blue)
	}

	sort.Slice(reds, func(i, j int) bool { return reds[i] < reds[j] })
	sort.Slice(greens, func(i, j int) bool { return greens[i] < greens[j] })
	sort.Slice(blues, func(i, j int) bool { return blues[i] < blues[j] })

	median := func(values []uint8) uint8 {
		n := len(values)
		if n%2 == 0 {
			return uint8((int(values[n/2-1]) + int(values[n/2])) / 2)
		}
		return values[n/2]
	}

	return lights.Color{
		Red:   median(reds),
		Green: median(greens),
		Blue:  median(blues),
	}
}

func toColorful(c lights.Color) colorful.Color {
	return colorful.Color{R: float64(c.Red) / 255.0, G: float64(c.Green) / 255.0, B: float64(c.Blue) / 255.0}
}

func fromColorful(c colorful.Color) lights.Color {
	r, g, b := c.Clamped().RGB255()
	return lights.Color{Red: r, Green: g, Blue: b}
}
