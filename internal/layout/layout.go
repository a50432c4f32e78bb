// Package layout describes the light channels of the device: their size, how
// commands reach them and what they show at power-on.
package layout

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/scheerer/companion-lights/internal/effect"
)

type Channel struct {
	Name   string `yaml:"name"`
	Pixels int    `yaml:"pixels"`
	// Prefix selects this channel on the serial line protocol, e.g. "Light: ".
	Prefix string `yaml:"prefix"`
	// Topic is the MQTT topic whose payloads are commands for this channel.
	Topic   string `yaml:"topic"`
	GpioPin int    `yaml:"gpio"`
	// DDPOffset pins the channel's first pixel on the DDP display. Unset
	// channels follow the previous one.
	DDPOffset *int     `yaml:"ddp_offset,omitempty"`
	Boot      []string `yaml:"boot"`
}

type Layout struct {
	Channels []Channel `yaml:"channels"`
}

// Default is the companion's body ring and base strip.
func Default() Layout {
	return Layout{Channels: []Channel{
		{Name: "body", Pixels: 16, Prefix: "Light: ", Topic: "/light", GpioPin: 18, Boot: []string{"rainbow"}},
		{Name: "base", Pixels: 40, Prefix: "LightBase: ", Topic: "/LightBase", GpioPin: 13, Boot: []string{"rainbow"}},
	}}
}

// Load reads a YAML layout file. An empty path returns Default.
func Load(path string) (Layout, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, errors.Wrapf(err, "read channel file %s", path)
	}
	l, err := Parse(data)
	if err != nil {
		return Layout{}, errors.Wrapf(err, "channel file %s", path)
	}
	return l, nil
}

func Parse(data []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, errors.Wrap(err, "parse layout")
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func (l Layout) Validate() error {
	if len(l.Channels) == 0 {
		return errors.New("layout has no channels")
	}
	names := make(map[string]bool, len(l.Channels))
	prefixes := make(map[string]bool, len(l.Channels))
	for _, ch := range l.Channels {
		if ch.Name == "" {
			return errors.New("channel without a name")
		}
		if names[ch.Name] {
			return errors.Errorf("duplicate channel %q", ch.Name)
		}
		names[ch.Name] = true

		if ch.Pixels < 1 {
			return errors.Errorf("channel %q needs at least one pixel", ch.Name)
		}
		if ch.DDPOffset != nil && *ch.DDPOffset < 0 {
			return errors.Errorf("channel %q has a negative ddp offset", ch.Name)
		}
		if ch.Prefix != "" {
			if prefixes[ch.Prefix] {
				return errors.Errorf("channel %q reuses prefix %q", ch.Name, ch.Prefix)
			}
			prefixes[ch.Prefix] = true
		}
		for _, cmd := range ch.Boot {
			if _, err := effect.ParseCommand(cmd); err != nil {
				return errors.Wrapf(err, "channel %q boot command", ch.Name)
			}
		}
	}
	return nil
}

func (l Layout) Names() []string {
	names := make([]string, 0, len(l.Channels))
	for _, ch := range l.Channels {
		names = append(names, ch.Name)
	}
	return names
}

// PixelOffsets lays the channels end to end, in order, on one pixel bus.
func (l Layout) PixelOffsets() map[string]int {
	offsets := make(map[string]int, len(l.Channels))
	next := 0
	for _, ch := range l.Channels {
		if ch.DDPOffset != nil {
			next = *ch.DDPOffset
		}
		offsets[ch.Name] = next
		next += ch.Pixels
	}
	return offsets
}
