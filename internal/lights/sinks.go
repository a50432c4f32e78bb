// Package lights assembles the pixel sinks selected by configuration.
package lights

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/layout"
	"github.com/scheerer/companion-lights/internal/lights/ddp"
	"github.com/scheerer/companion-lights/internal/lights/lifx"
	"github.com/scheerer/companion-lights/internal/lights/term"
	"github.com/scheerer/companion-lights/internal/lights/ws281x"
	"github.com/scheerer/companion-lights/internal/logging"
	sink "github.com/scheerer/companion-lights/lights"
)

var logger = logging.New("sinks")

const (
	TypeTerminal = "TERMINAL"
	TypeDDP      = "DDP"
	TypeLifx     = "LIFX"
	TypeWS281x   = "WS281X"
	TypeNone     = "NONE"
)

type Config struct {
	Types []string

	DDPAddress string

	GroupName        string
	LifxChannel      string
	ColorAlgo        string
	MinBrightness    float64
	MaxBrightness    float64
	LifxPushInterval time.Duration

	StripBrightness int

	// OnQuit is called when the terminal sink sees a quit key.
	OnQuit func()
}

// NewSinks builds one sink per configured type. If any sink fails to come up,
// the ones already built are closed.
func NewSinks(config Config, l layout.Layout) (sink.MultiSink, error) {
	var sinks sink.MultiSink
	for _, t := range config.Types {
		s, err := newSink(strings.ToUpper(strings.TrimSpace(t)), config, l)
		if err != nil {
			_ = sinks.Close()
			return nil, errors.Wrapf(err, "light type %s", t)
		}
		if s != nil {
			sinks = append(sinks, s)
		}
	}
	if len(sinks) == 0 {
		logger.Warn("No light outputs configured; channels will only be simulated")
	}
	return sinks, nil
}

func newSink(lightType string, config Config, l layout.Layout) (sink.PixelSink, error) {
	switch lightType {
	case TypeNone, "":
		return nil, nil
	case TypeTerminal:
		return term.NewSink(l.Names(), config.OnQuit)
	case TypeDDP:
		return ddp.NewSink(config.DDPAddress, l.PixelOffsets())
	case TypeLifx:
		channel := config.LifxChannel
		if channel == "" {
			channel = l.Channels[0].Name
		}
		logger.With(zap.String("group", config.GroupName), zap.String("channel", channel)).Info("Mirroring channel to LIFX")
		return lifx.NewLifx(lifx.Config{
			GroupName:     config.GroupName,
			Channel:       channel,
			ColorAlgo:     config.ColorAlgo,
			MinBrightness: config.MinBrightness,
			MaxBrightness: config.MaxBrightness,
			PushInterval:  config.LifxPushInterval,
		})
	case TypeWS281x:
		strips := make([]ws281x.Strip, 0, len(l.Channels))
		for _, ch := range l.Channels {
			strips = append(strips, ws281x.Strip{
				Channel:    ch.Name,
				GpioPin:    ch.GpioPin,
				LedCount:   ch.Pixels,
				Brightness: config.StripBrightness,
			})
		}
		return ws281x.NewSink(strips)
	default:
		return nil, errors.Errorf("unknown light type: %v", lightType)
	}
}
