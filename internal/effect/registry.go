package effect

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrUnknownChannel = errors.New("unknown light channel")

// Clock returns monotonic milliseconds. Wraparound is tolerated because every
// elapsed computation is an unsigned difference.
type Clock func() uint32

// MonotonicClock counts milliseconds since it was created.
func MonotonicClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

// Registry is the ordered set of channels driven by one tick loop.
type Registry struct {
	clock    Clock
	channels []*Channel
	byName   map[string]*Channel
}

func NewRegistry(clock Clock, channels ...*Channel) (*Registry, error) {
	r := &Registry{
		clock:    clock,
		channels: make([]*Channel, 0, len(channels)),
		byName:   make(map[string]*Channel, len(channels)),
	}
	for _, ch := range channels {
		if _, exists := r.byName[ch.Name()]; exists {
			return nil, errors.Errorf("duplicate light channel %q", ch.Name())
		}
		r.channels = append(r.channels, ch)
		r.byName[ch.Name()] = ch
	}
	return r, nil
}

func (r *Registry) Now() uint32 {
	return r.clock()
}

// Channels returns the channels in registration order.
func (r *Registry) Channels() []*Channel {
	out := make([]*Channel, len(r.channels))
	copy(out, r.channels)
	return out
}

func (r *Registry) Get(name string) (*Channel, bool) {
	ch, ok := r.byName[name]
	return ch, ok
}

// Apply runs a light command against the named channel.
func (r *Registry) Apply(name, command string) error {
	ch, ok := r.byName[name]
	if !ok {
		return errors.Wrapf(ErrUnknownChannel, "%q", name)
	}
	if err := ch.Apply(command, r.clock()); err != nil {
		logger.With(zap.String("channel", name), zap.String("command", command), zap.Error(err)).
			Warn("Ignoring light command")
		return err
	}
	logger.With(zap.String("channel", name), zap.String("command", command)).Debug("Applied light command")
	return nil
}

// OffAll starts a fade to black on every channel.
func (r *Registry) OffAll() {
	now := r.clock()
	for _, ch := range r.channels {
		ch.Execute(Command{Kind: CommandOff}, now)
	}
}

// Tick advances and renders every channel in order. Sink failures are
// collected and returned together; every channel is still ticked.
func (r *Registry) Tick() error {
	now := r.clock()
	var err error
	for _, ch := range r.channels {
		_, tickErr := ch.Tick(now)
		if tickErr != nil {
			err = multierr.Append(err, errors.Wrapf(tickErr, "channel %s", ch.Name()))
		}
	}
	return err
}

// Dark reports whether every channel has settled at zero brightness.
func (r *Registry) Dark() bool {
	for _, ch := range r.channels {
		s := ch.State()
		if s.FadeEnabled || s.EffectiveBrightness() != 0 {
			return false
		}
	}
	return true
}
