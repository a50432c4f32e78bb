package driver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheerer/companion-lights/internal/effect"
	"github.com/scheerer/companion-lights/lights"
)

type countingTicker struct {
	ticks atomic.Int32
	err   error
}

func (c *countingTicker) Tick() error {
	c.ticks.Add(1)
	return c.err
}

func TestRunTicksUntilCancelled(t *testing.T) {
	ticker := &countingTicker{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Run(ctx, Config{TickInterval: time.Millisecond}, ticker)
		close(done)
	}()

	assert.Eventually(t, func() bool { return ticker.ticks.Load() >= 5 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunKeepsTickingThroughSinkErrors(t *testing.T) {
	ticker := &countingTicker{err: errors.New("strip unplugged")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Run(ctx, Config{TickInterval: time.Millisecond}, ticker)
	assert.Eventually(t, func() bool { return ticker.ticks.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestRunStopWhen(t *testing.T) {
	ticker := &countingTicker{}
	Run(context.Background(), Config{
		TickInterval: time.Millisecond,
		StopWhen:     func() bool { return ticker.ticks.Load() == 3 },
	}, ticker)
	assert.Equal(t, int32(3), ticker.ticks.Load())
}

func TestRunFadesRegistryToBlack(t *testing.T) {
	var now atomic.Uint32
	clock := func() uint32 { return now.Add(50) }
	body := effect.NewChannel("body", 4, nil)
	reg, err := effect.NewRegistry(clock, body)
	require.NoError(t, err)

	require.NoError(t, reg.Apply("body", "Hex(FF0000) Brightness(100) Fade(0)"))
	Run(context.Background(), Config{TickInterval: time.Microsecond, StopWhen: func() bool {
		return body.State().Current == (lights.Color{Red: 255})
	}}, reg)

	reg.OffAll()
	Run(context.Background(), Config{TickInterval: time.Microsecond, StopWhen: reg.Dark}, reg)
	assert.Equal(t, uint8(0), body.State().EffectiveBrightness())
}
