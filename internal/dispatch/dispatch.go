// Package dispatch routes prefixed command lines, as sent by the companion's
// main controller, to light channels.
package dispatch

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/layout"
	"github.com/scheerer/companion-lights/internal/logging"
)

var logger = logging.New("dispatch")

var (
	// ErrUnsupported marks lines for peripherals this daemon does not drive.
	ErrUnsupported   = errors.New("unsupported peripheral")
	ErrUnknownPrefix = errors.New("unknown command prefix")
)

// Peripheral prefixes that share the serial line with the lights.
var ignoredPrefixes = []string{"Servo: ", "Haptic: ", "Body: ", "Head: ", "Sleep: "}

// Applier runs a light command against a named channel.
type Applier interface {
	Apply(channel, command string) error
}

type route struct {
	prefix  string
	channel string
}

type Dispatcher struct {
	target Applier
	routes []route
}

// New routes each channel's prefix in l to target. Longer prefixes are tried
// first so "LightBase: " is never taken for "Light".
func New(target Applier, l layout.Layout) *Dispatcher {
	d := &Dispatcher{target: target}
	for _, ch := range l.Channels {
		if ch.Prefix != "" {
			d.routes = append(d.routes, route{prefix: ch.Prefix, channel: ch.Name})
		}
	}
	sort.SliceStable(d.routes, func(i, j int) bool {
		return len(d.routes[i].prefix) > len(d.routes[j].prefix)
	})
	return d
}

// Dispatch handles one line. Blank lines are ignored.
func (d *Dispatcher) Dispatch(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	for _, r := range d.routes {
		if command, ok := strings.CutPrefix(line, r.prefix); ok {
			return d.target.Apply(r.channel, command)
		}
	}
	for _, prefix := range ignoredPrefixes {
		if strings.HasPrefix(line, prefix) {
			logger.With(zap.String("line", line)).Debug("Ignoring peripheral command")
			return errors.Wrapf(ErrUnsupported, "%q", strings.TrimSpace(prefix))
		}
	}
	return errors.Wrapf(ErrUnknownPrefix, "%q", line)
}
