package effect

import (
	"sync"

	"github.com/scheerer/companion-lights/internal/logging"
	"github.com/scheerer/companion-lights/lights"
)

var logger = logging.New("effect")

// FadeDuration is how long a full 0-100 brightness fade takes, in milliseconds.
// Breathing uses its ceiling as the range, so a smaller ceiling breathes faster.
const FadeDuration uint32 = 2000

const maxBrightness = 100

// State is the animation state of one channel. It is a plain value so callers
// can snapshot and compare it.
type State struct {
	Current lights.Color
	Target  lights.Color

	// Brightness is the resting solid-color brightness once no fade is in flight.
	Brightness uint8

	FadeEnabled bool
	FadeValue   uint8
	FadeTarget  uint8
	LastFade    uint32

	BreathingEnabled bool
	BreathingCeiling uint8

	RainbowEnabled    bool
	RainbowPhase      uint8
	RainbowBrightness uint8
	// RainbowHalfStep toggles every rainbow tick; the phase only advances when it turns true.
	RainbowHalfStep bool

	ColorTransitioning bool
}

// EffectiveBrightness is the brightness used for pixel scaling right now.
func (s State) EffectiveBrightness() uint8 {
	switch {
	case s.FadeEnabled:
		return s.FadeValue
	case s.RainbowEnabled:
		return s.RainbowBrightness
	default:
		return s.Brightness
	}
}

// Channel is one independently animated LED strip. All mutation goes through
// Apply and Tick, which serialize on the channel's own lock.
type Channel struct {
	name       string
	pixelCount int
	sink       lights.PixelSink

	mu    sync.Mutex
	state State
	buf   []lights.Color
}

// NewChannel builds a channel in the off, solid-color state. A nil sink means
// frames are only returned from Tick.
func NewChannel(name string, pixelCount int, sink lights.PixelSink) *Channel {
	if pixelCount < 1 {
		pixelCount = 1
	}
	return &Channel{
		name:       name,
		pixelCount: pixelCount,
		sink:       sink,
		buf:        make([]lights.Color, pixelCount),
	}
}

func (c *Channel) Name() string {
	return c.name
}

func (c *Channel) PixelCount() int {
	return c.pixelCount
}

// State returns a snapshot of the channel's animation state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tick advances every active animation to now, renders the pixel buffer and
// pushes it to the sink. The returned slice is a copy owned by the caller.
// A sink error is returned but never changes the animation state.
func (c *Channel) Tick(now uint32) ([]lights.Color, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.advanceFade(now)
	c.advanceColor()
	c.render()

	frame := make([]lights.Color, len(c.buf))
	copy(frame, c.buf)

	if c.sink == nil {
		return frame, nil
	}
	return frame, c.sink.Show(c.name, frame)
}

func (c *Channel) fadeRange() uint32 {
	s := &c.state
	// A zero ceiling would never move, so it fades at the full-range rate.
	if s.BreathingEnabled && s.BreathingCeiling > 0 {
		return uint32(s.BreathingCeiling)
	}
	return maxBrightness
}

func (c *Channel) advanceFade(now uint32) {
	s := &c.state
	if !s.FadeEnabled {
		return
	}

	// A command can land between the registry reading the clock and taking this
	// lock, leaving LastFade ahead of now. The signed difference treats that as
	// no time elapsed and still survives one wraparound.
	if int32(now-s.LastFade) <= 0 {
		return
	}
	elapsed := now - s.LastFade

	distance := absDiff(s.FadeTarget, s.FadeValue)
	if distance > 0 {
		steps := uint64(elapsed) * uint64(c.fadeRange()) / uint64(FadeDuration)
		if steps >= 1 {
			s.LastFade = now
			if steps > uint64(distance) {
				steps = uint64(distance)
			}
			if s.FadeValue < s.FadeTarget {
				s.FadeValue += uint8(steps)
			} else {
				s.FadeValue -= uint8(steps)
			}
		}
	}

	if s.FadeValue != s.FadeTarget {
		return
	}
	if s.BreathingEnabled {
		if s.FadeTarget == 0 {
			s.FadeTarget = s.BreathingCeiling
		} else {
			s.FadeTarget = 0
		}
		return
	}
	s.Brightness = s.FadeTarget
	s.RainbowBrightness = s.FadeTarget
	s.FadeEnabled = false
}

func (c *Channel) advanceColor() {
	s := &c.state
	if !s.ColorTransitioning || s.RainbowEnabled {
		return
	}

	moved := false
	step := func(cur *uint8, target uint8) {
		switch {
		case *cur < target:
			*cur++
			moved = true
		case *cur > target:
			*cur--
			moved = true
		}
	}
	step(&s.Current.Red, s.Target.Red)
	step(&s.Current.Green, s.Target.Green)
	step(&s.Current.Blue, s.Target.Blue)

	if !moved {
		s.ColorTransitioning = false
	}
}

func (c *Channel) render() {
	s := &c.state

	if !s.RainbowEnabled {
		brightness := s.Brightness
		if s.FadeEnabled {
			brightness = s.FadeValue
		}
		color := s.Current.Scale(brightness)
		for i := range c.buf {
			c.buf[i] = color
		}
		return
	}

	brightness := s.RainbowBrightness
	if s.FadeEnabled {
		brightness = s.FadeValue
	}
	for i := range c.buf {
		pos := uint8((i*256/c.pixelCount + int(s.RainbowPhase)) & 0xFF)
		c.buf[i] = Wheel(pos).Scale(brightness)
	}

	s.RainbowHalfStep = !s.RainbowHalfStep
	if s.RainbowHalfStep {
		s.RainbowPhase++
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func clampBrightness(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > maxBrightness:
		return maxBrightness
	default:
		return uint8(v)
	}
}
