package lifx

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pdf/golifx"
	"github.com/pdf/golifx/common"
	"github.com/pdf/golifx/protocol"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/logging"
	"github.com/scheerer/companion-lights/internal/util"
	"github.com/scheerer/companion-lights/lights"
)

var logger = logging.New("lifx")

// LifxLights mirrors one light channel onto a LIFX group. Show only records the
// latest frame; Start pushes it to the bulbs on its own cadence.
type LifxLights struct {
	config Config
	client client

	lightsMu sync.RWMutex
	group    common.Group

	frameMu   sync.Mutex
	frame     lights.Color
	dirty     bool
	lastColor common.Color
}

// client is the part of *golifx.Client the sink uses.
type client interface {
	GetGroupByLabel(label string) (common.Group, error)
	SetDiscoveryInterval(interval time.Duration) error
	Close() error
}

type Config struct {
	GroupName     string
	Channel       string
	ColorAlgo     string
	MaxBrightness float64
	MinBrightness float64
	PushInterval  time.Duration
}

var _ lights.PixelSink = (*LifxLights)(nil)

func NewLifx(config Config) (*LifxLights, error) {
	c, err := golifx.NewClient(&protocol.V2{})
	if err != nil {
		return nil, err
	}
	if config.PushInterval <= 0 {
		config.PushInterval = 100 * time.Millisecond
	}

	return &LifxLights{
		config: config,
		client: c,
	}, nil
}

// Show reduces the frame to a single color when it belongs to the mirrored channel.
func (l *LifxLights) Show(channel string, pixels []lights.Color) error {
	if channel != l.config.Channel {
		return nil
	}

	var c lights.Color
	switch l.config.ColorAlgo {
	case "SQUARED_AVERAGE":
		c = util.SquaredAverageColor(pixels)
	case "MEDIAN":
		c = util.MedianColor(pixels)
	default:
		c = util.AverageColor(pixels)
	}

	l.frameMu.Lock()
	if c != l.frame {
		l.frame = c
		l.dirty = true
	}
	l.frameMu.Unlock()
	return nil
}

// Start pushes frames on PushInterval until ctx is done. Discovery runs in its
// own goroutine so a slow network never holds up pushes.
func (l *LifxLights) Start(ctx context.Context) {
	go l.discoverLoop(ctx, 15*time.Second)

	pushTicker := time.NewTicker(l.config.PushInterval)
	defer pushTicker.Stop()

	for {
		select {
		case <-pushTicker.C:
			l.push()
		case <-ctx.Done():
			return
		}
	}
}

func (l *LifxLights) discoverLoop(ctx context.Context, interval time.Duration) {
	discoveryTicker := time.NewTicker(interval)
	defer discoveryTicker.Stop()

	if err := l.client.SetDiscoveryInterval(interval); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to set LIFX discovery interval")
	}

	timeout := 5 * time.Second
	for {
		ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
		l.discover(ctxWithTimeout)
		cancel()

		select {
		case <-discoveryTicker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (l *LifxLights) Close() error {
	return l.client.Close()
}

func (l *LifxLights) discover(ctx context.Context) {
	logger.With(zap.String("group", l.config.GroupName)).Info("LIFX discovery starting...")

	completed := make(chan error, 1)

	var g common.Group
	go func() {
		var err error
		g, err = l.client.GetGroupByLabel(l.config.GroupName)
		if err != nil {
			logger.With(zap.Error(err)).Warn("Failed to get LIFX group by label")
		}
		completed <- err
	}()

	select {
	case <-ctx.Done():
		logger.With(zap.Error(ctx.Err())).Warn("LIFX discovery timed out.")
	case <-completed:
		if g != nil {
			l.lightsMu.Lock()
			l.group = g
			l.lightsMu.Unlock()
			logger.With(zap.String("group", g.GetLabel()), zap.Int("lights", l.LightCount())).Info("LIFX group found")
		} else {
			logger.Warn("Couldn't discover group.")
		}
	}

	logger.Info("LIFX discovery complete")
}

func (l *LifxLights) LightCount() int {
	l.lightsMu.RLock()
	defer l.lightsMu.RUnlock()

	if l.group == nil {
		return 0
	}
	count := 0
	for range l.group.Lights() {
		count++
	}
	return count
}

func (l *LifxLights) push() {
	l.frameMu.Lock()
	if !l.dirty {
		l.frameMu.Unlock()
		return
	}
	color := l.frame
	l.dirty = false
	l.frameMu.Unlock()

	l.lightsMu.RLock()
	group := l.group
	l.lightsMu.RUnlock()
	if group == nil {
		return
	}

	lifxColor := adjustColor(newLifxColor(color), l.config)
	if lifxColor == l.lastColor {
		return
	}

	logger.With(zap.Any("color", color),
		zap.Any("lifxColor", lifxColor)).
		Debug("Setting LIFX group color")

	if err := group.SetColor(lifxColor, l.config.PushInterval); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to set color for LIFX group")
		return
	}
	l.lastColor = lifxColor
}

func newLifxColor(color lights.Color) common.Color {
	hue, saturation, brightness := util.RgbToHsb(color.Red, color.Green, color.Blue)

	return common.Color{
		Hue:        hue,
		Saturation: saturation,
		Brightness: brightness,
		Kelvin:     3500,
	}
}

func adjustColor(color common.Color, config Config) common.Color {
	blackThreshold := 0.015 * 0xFFFF
	if color.Brightness <= uint16(blackThreshold) {
		// the strip is fading out - turn the bulbs off rather than clamping up to MinBrightness
		return common.Color{
			Hue:        0,
			Saturation: 0,
			Brightness: 0,
			Kelvin:     3500,
		}
	}

	color.Brightness = uint16(math.Min(config.MaxBrightness*0xFFFF, math.Max(config.MinBrightness*0xFFFF, float64(color.Brightness))))

	return color
}
