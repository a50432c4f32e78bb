// Package ws281x drives WS2812 strips attached to a Raspberry Pi. Each light
// channel maps to one of the controller's two PWM channels.
package ws281x

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/logging"
	"github.com/scheerer/companion-lights/lights"
)

var logger = logging.New("ws281x")

// engine is the subset of the rpi-ws281x driver the sink needs.
type engine interface {
	Init() error
	Render() error
	Wait() error
	Fini()
	Leds(channel int) []uint32
}

// Strip describes one physical strip.
type Strip struct {
	Channel    string
	GpioPin    int
	LedCount   int
	Brightness int
}

type Sink struct {
	mu      sync.Mutex
	ws      engine
	indexes map[string]int
}

var _ lights.PixelSink = (*Sink)(nil)

// NewSink initializes the controller for up to two strips.
func NewSink(strips []Strip) (*Sink, error) {
	if len(strips) == 0 || len(strips) > 2 {
		return nil, errors.Errorf("ws281x supports one or two strips, got %d", len(strips))
	}
	ws, err := makeEngine(strips)
	if err != nil {
		return nil, errors.Wrap(err, "create ws281x engine")
	}
	return newSink(ws, strips)
}

func newSink(ws engine, strips []Strip) (*Sink, error) {
	if err := ws.Init(); err != nil {
		return nil, errors.Wrap(err, "init ws281x")
	}
	s := &Sink{
		ws:      ws,
		indexes: make(map[string]int, len(strips)),
	}
	for i, strip := range strips {
		s.indexes[strip.Channel] = i
		logger.With(zap.String("channel", strip.Channel), zap.Int("gpio", strip.GpioPin), zap.Int("leds", strip.LedCount)).
			Info("ws281x strip ready")
	}
	return s, nil
}

func (s *Sink) Show(channel string, pixels []lights.Color) error {
	idx, ok := s.indexes[channel]
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return nil
	}

	leds := s.ws.Leds(idx)
	for i := range leds {
		if i < len(pixels) {
			leds[i] = pixels[i].Uint32()
		} else {
			leds[i] = 0
		}
	}
	return s.ws.Render()
}

// Close blanks the strips and releases the hardware.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return nil
	}

	for _, idx := range s.indexes {
		leds := s.ws.Leds(idx)
		for i := range leds {
			leds[i] = 0
		}
	}
	err := s.ws.Render()
	if err == nil {
		err = s.ws.Wait()
	}
	s.ws.Fini()
	s.ws = nil
	return err
}
