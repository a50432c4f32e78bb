package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/driver"
	"github.com/scheerer/companion-lights/internal/dispatch"
	"github.com/scheerer/companion-lights/internal/effect"
	"github.com/scheerer/companion-lights/internal/layout"
	sinks "github.com/scheerer/companion-lights/internal/lights"
	"github.com/scheerer/companion-lights/internal/logging"
	"github.com/scheerer/companion-lights/internal/source/mqtt"
	"github.com/scheerer/companion-lights/internal/source/serial"
	"github.com/scheerer/companion-lights/lights"
)

var (
	logger = logging.New("main")
	config = LightsConfig{}
)

type LightsConfig struct {
	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"20ms"`
	LightTypes       []string      `env:"LIGHT_TYPE" envDefault:"WS281X" envSeparator:","`
	ChannelFile      string        `env:"CHANNEL_FILE"`
	SerialPort       string        `env:"SERIAL_PORT"`
	SerialBaud       int           `env:"SERIAL_BAUD" envDefault:"115200"`
	MqttBroker       string        `env:"MQTT_BROKER"`
	MqttClientID     string        `env:"MQTT_CLIENT_ID" envDefault:"companion-lights"`
	DDPAddress       string        `env:"DDP_ADDRESS" envDefault:"127.0.0.1:4048"`
	LightGroupName   string        `env:"LIGHT_GROUP_NAME" envDefault:"COMPANION"`
	LifxChannel      string        `env:"LIFX_CHANNEL"`
	ColorAlgo        string        `env:"COLOR_ALGO" envDefault:"AVERAGE"`
	MaxBrightness    float64       `env:"MAX_BRIGHTNESS" envDefault:"0.65"`
	MinBrightness    float64       `env:"MIN_BRIGHTNESS" envDefault:"0"`
	LifxPushInterval time.Duration `env:"LIFX_PUSH_INTERVAL" envDefault:"100ms"`
	StripBrightness  int           `env:"STRIP_BRIGHTNESS" envDefault:"255"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownFade     time.Duration `env:"SHUTDOWN_FADE" envDefault:"2500ms"`
}

func main() {
	defer logger.Sync()

	err := env.Parse(&config)
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to parse environment variables")
	}
	logging.GetLeveler().SetAll(logging.ParseLevel(config.LogLevel))

	logger.With(zap.Any("config", config)).Info("Starting companion lights")

	logger.Info("Adjust LIGHT_TYPE to choose outputs. Valid values are: [WS281X, DDP, LIFX, TERMINAL, NONE], comma separated.")
	logger.Info("Set CHANNEL_FILE to a YAML channel layout to override the built-in body and base channels.")
	logger.Info("Set SERIAL_PORT and/or MQTT_BROKER to receive light commands.")
	logger.Info("Adjust TICK_INTERVAL to change the animation frame rate.")
	logger.Info("Press Ctrl+C to stop")

	l, err := layout.Load(config.ChannelFile)
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to load channel layout")
	}

	quit := make(chan struct{}, 1)
	output, err := sinks.NewSinks(sinks.Config{
		Types:            config.LightTypes,
		DDPAddress:       config.DDPAddress,
		GroupName:        config.LightGroupName,
		LifxChannel:      config.LifxChannel,
		ColorAlgo:        config.ColorAlgo,
		MinBrightness:    config.MinBrightness,
		MaxBrightness:    config.MaxBrightness,
		LifxPushInterval: config.LifxPushInterval,
		StripBrightness:  config.StripBrightness,
		OnQuit: func() {
			select {
			case quit <- struct{}{}:
			default:
			}
		},
	}, l)
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to create light outputs")
	}
	defer output.Close()

	registry, err := newRegistry(l, output)
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to create light channels")
	}
	applyBootCommands(registry, l)

	// Outputs outlive the command sources so the shutdown fade is still shown.
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	defer stopSinks()
	output.Start(sinkCtx)

	ctx, cancel := context.WithCancel(context.Background())
	startSources(ctx, config, registry, l)

	running := make(chan struct{})
	go func() {
		driver.Run(ctx, driver.Config{TickInterval: config.TickInterval}, registry)
		close(running)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-shutdown:
	case <-quit:
	}
	logger.Info("Shutting down")
	cancel()
	<-running

	fadeOut(registry, config)
}

func newRegistry(l layout.Layout, output lights.PixelSink) (*effect.Registry, error) {
	channels := make([]*effect.Channel, 0, len(l.Channels))
	for _, ch := range l.Channels {
		channels = append(channels, effect.NewChannel(ch.Name, ch.Pixels, output))
	}
	return effect.NewRegistry(effect.MonotonicClock(), channels...)
}

func applyBootCommands(registry *effect.Registry, l layout.Layout) {
	for _, ch := range l.Channels {
		for _, cmd := range ch.Boot {
			// Boot commands were validated with the layout.
			_ = registry.Apply(ch.Name, cmd)
		}
	}
}

func startSources(ctx context.Context, config LightsConfig, registry *effect.Registry, l layout.Layout) {
	if config.SerialPort != "" {
		d := dispatch.New(registry, l)
		go serial.New(config.SerialPort, config.SerialBaud, d.Dispatch).Start(ctx)
	}
	if config.MqttBroker != "" {
		go mqtt.New(config.MqttBroker, config.MqttClientID, registry, l).Start(ctx)
	}
	if config.SerialPort == "" && config.MqttBroker == "" {
		logger.Warn("No command source configured; lights will only show their boot animation")
	}
}

// fadeOut turns every channel off and keeps ticking until they are dark or
// SHUTDOWN_FADE runs out.
func fadeOut(registry *effect.Registry, config LightsConfig) {
	if config.ShutdownFade <= 0 {
		return
	}
	registry.OffAll()

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownFade)
	defer cancel()
	driver.Run(ctx, driver.Config{TickInterval: config.TickInterval, StopWhen: registry.Dark}, registry)
}
