package driver

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/logging"
)

var logger = logging.New("driver")

const warnInterval = 10 * time.Second

// Ticker advances and renders every light channel once.
type Ticker interface {
	Tick() error
}

type Config struct {
	TickInterval time.Duration
	// StopWhen, if set, is checked after every tick; Run returns once it is true.
	StopWhen func() bool
}

// Run ticks t every TickInterval until ctx is done. Overruns and sink failures
// are logged at most once every 10 seconds each.
func Run(ctx context.Context, config Config, t Ticker) {
	var lastSlowWarning, lastSinkWarning time.Time
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		startTime := time.Now()
		err := t.Tick()
		tickDuration := time.Since(startTime)

		if err != nil && time.Since(lastSinkWarning) > warnInterval {
			logger.With(zap.Int("failures", len(multierr.Errors(err))), zap.Error(err)).
				Warn("Failed to push frames to lights")
			lastSinkWarning = time.Now()
		}

		if config.StopWhen != nil && config.StopWhen() {
			return
		}

		if tickDuration > config.TickInterval {
			if time.Since(lastSlowWarning) > warnInterval {
				logger.With(
					zap.Stringer("tickDuration", tickDuration),
					zap.Stringer("tickInterval", config.TickInterval)).
					Warn("Cannot keep up with TICK_INTERVAL. Consider increasing TICK_INTERVAL or removing slow light outputs.")
				lastSlowWarning = time.Now()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(config.TickInterval - tickDuration):
		}
	}
}
