package lights

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/scheerer/companion-lights/internal/logging"
)

var logger = logging.New("lights")

type Color struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

var Black = Color{}

// Scale multiplies each component by percent/100. Percent is clamped to 0-100.
func (c Color) Scale(percent uint8) Color {
	if percent > 100 {
		percent = 100
	}
	p := uint16(percent)
	return Color{
		Red:   uint8(uint16(c.Red) * p / 100),
		Green: uint8(uint16(c.Green) * p / 100),
		Blue:  uint8(uint16(c.Blue) * p / 100),
	}
}

func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.Red, c.Green, c.Blue)
}

// Uint32 packs the color as 0x00RRGGBB.
func (c Color) Uint32() uint32 {
	return uint32(c.Red)<<16 | uint32(c.Green)<<8 | uint32(c.Blue)
}

// PixelSink renders a channel's pixel buffer. Show is called from the tick loop
// and must not block; implementations that talk to slow devices should buffer
// the frame and push it from their own Start loop.
type PixelSink interface {
	Show(channel string, pixels []Color) error
}

// Starter is implemented by sinks that run a background loop.
type Starter interface {
	Start(ctx context.Context)
}

// MultiSink fans a frame out to every sink it holds.
type MultiSink []PixelSink

var _ PixelSink = MultiSink(nil)

func (m MultiSink) Show(channel string, pixels []Color) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Show(channel, pixels))
	}
	return err
}

// Start launches the background loop of every sink that has one.
func (m MultiSink) Start(ctx context.Context) {
	for _, s := range m {
		if starter, ok := s.(Starter); ok {
			go starter.Start(ctx)
		}
	}
}

func (m MultiSink) Close() error {
	var err error
	for _, s := range m {
		if closer, ok := s.(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	if err != nil {
		logger.Warnf("Failed to close %d sink(s): %v", len(multierr.Errors(err)), err)
	}
	return err
}
