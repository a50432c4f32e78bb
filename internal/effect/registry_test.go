package effect

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/scheerer/companion-lights/lights"
)

type fakeClock struct {
	now uint32
}

func (f *fakeClock) Clock() Clock {
	return func() uint32 { return f.now }
}

func newTestRegistry(t *testing.T, sink lights.PixelSink) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	r, err := NewRegistry(clock.Clock(),
		NewChannel("body", 16, sink),
		NewChannel("base", 40, sink),
	)
	require.NoError(t, err)
	return r, clock
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(MonotonicClock(), NewChannel("body", 1, nil), NewChannel("body", 2, nil))
	assert.Error(t, err)
}

func TestRegistryChannelsKeepOrder(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	var names []string
	for _, ch := range r.Channels() {
		names = append(names, ch.Name())
	}
	assert.Equal(t, []string{"body", "base"}, names)

	ch, ok := r.Get("base")
	require.True(t, ok)
	assert.Equal(t, 40, ch.PixelCount())

	_, ok = r.Get("head")
	assert.False(t, ok)
}

func TestRegistryApply(t *testing.T) {
	r, clock := newTestRegistry(t, nil)
	clock.now = 500

	require.NoError(t, r.Apply("base", "Hex(FFB126) Brightness(100) Fade(0)"))
	base, _ := r.Get("base")
	body, _ := r.Get("body")
	assert.Equal(t, uint32(500), base.State().LastFade)
	assert.Equal(t, lights.Color{Red: 0xFF, Green: 0xB1, Blue: 0x26}, base.State().Target)
	assert.Equal(t, State{}, body.State())

	err := r.Apply("head", "off")
	assert.ErrorIs(t, err, ErrUnknownChannel)

	err = r.Apply("body", "Hex(nothex) Brightness(1) Fade(0)")
	assert.ErrorIs(t, err, ErrMalformedCommand)
	assert.Equal(t, State{}, body.State())
}

func TestRegistryTickRendersEveryChannel(t *testing.T) {
	sink := &recordingSink{}
	r, clock := newTestRegistry(t, sink)
	require.NoError(t, r.Apply("body", "rainbow"))
	require.NoError(t, r.Apply("base", "Hex(FFFFFF) Brightness(100) Fade(0)"))

	clock.now += tickMs
	require.NoError(t, r.Tick())
	assert.Len(t, sink.frames["body"], 16)
	assert.Len(t, sink.frames["base"], 40)
}

func TestRegistryTickCollectsSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("strip unplugged")}
	r, clock := newTestRegistry(t, sink)

	clock.now += tickMs
	err := r.Tick()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Len(t, sink.frames, 2)
}

func TestRegistryOffAllGoesDark(t *testing.T) {
	r, clock := newTestRegistry(t, nil)
	require.NoError(t, r.Apply("body", "rainbow 80"))
	require.NoError(t, r.Apply("base", "Hex(FFFFFF) Brightness(60) Fade(1)"))
	for i := 0; i < 50; i++ {
		clock.now += tickMs
		require.NoError(t, r.Tick())
	}
	assert.False(t, r.Dark())

	r.OffAll()
	for i := 0; i < int(FadeDuration/tickMs); i++ {
		clock.now += tickMs
		require.NoError(t, r.Tick())
	}
	assert.True(t, r.Dark())
}

// hookSink runs onShow for every frame, while the ticking channel's lock is held.
type hookSink struct {
	onShow func(channel string)
}

func (h hookSink) Show(channel string, _ []lights.Color) error {
	h.onShow(channel)
	return nil
}

func TestRegistryCommandDuringTickKeepsFadeTimed(t *testing.T) {
	clock := &fakeClock{now: 1000}
	var r *Registry
	fired := false
	sink := hookSink{onShow: func(channel string) {
		// A command for base arrives after Tick read the clock but before base
		// is ticked.
		if channel == "body" && !fired {
			fired = true
			clock.now = 1001
			require.NoError(t, r.Apply("base", "Hex(FFFFFF) Brightness(100) Fade(0)"))
			clock.now = 1000
		}
	}}
	var err error
	r, err = NewRegistry(clock.Clock(), NewChannel("body", 1, sink), NewChannel("base", 1, sink))
	require.NoError(t, err)

	require.NoError(t, r.Tick())
	require.True(t, fired)

	base, _ := r.Get("base")
	st := base.State()
	assert.True(t, st.FadeEnabled)
	assert.Equal(t, uint8(0), st.FadeValue)
	assert.Equal(t, uint32(1001), st.LastFade)
}

func TestRegistryConcurrentApplyAndTick(t *testing.T) {
	var ms atomic.Uint32
	clock := func() uint32 { return ms.Add(1) }
	slow := hookSink{onShow: func(channel string) {
		if channel == "slow" {
			runtime.Gosched()
		}
	}}
	r, err := NewRegistry(clock, NewChannel("slow", 8, slow), NewChannel("target", 8, slow))
	require.NoError(t, err)

	const rounds = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			assert.NoError(t, r.Apply("target", "Hex(FFFFFF) Brightness(100) Fade(0)"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			assert.NoError(t, r.Tick())
		}
	}()
	wg.Wait()

	// The clock advanced about 1000 ms in total, so the 0-100 fade can be at
	// most halfway.
	target, _ := r.Get("target")
	st := target.State()
	assert.True(t, st.FadeEnabled)
	assert.LessOrEqual(t, uint32(st.FadeValue), ms.Load()*maxBrightness/FadeDuration)
	assert.Less(t, st.FadeValue, uint8(maxBrightness))
}

func TestMonotonicClockStartsNearZero(t *testing.T) {
	clock := MonotonicClock()
	assert.Less(t, clock(), uint32(1000))
}
