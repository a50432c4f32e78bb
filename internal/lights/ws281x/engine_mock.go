//go:build !pi

package ws281x

// Without the pi build tag the strips live in memory, so the rest of the
// daemon can run on a development machine.
type memoryEngine struct {
	leds    [][]uint32
	renders int
}

func makeEngine(strips []Strip) (engine, error) {
	m := &memoryEngine{leds: make([][]uint32, len(strips))}
	for i, strip := range strips {
		m.leds[i] = make([]uint32, strip.LedCount)
	}
	logger.Warn("Built without the pi tag; ws281x output is simulated in memory")
	return m, nil
}

func (m *memoryEngine) Init() error { return nil }

func (m *memoryEngine) Render() error {
	m.renders++
	return nil
}

func (m *memoryEngine) Wait() error { return nil }

func (m *memoryEngine) Fini() {}

func (m *memoryEngine) Leds(channel int) []uint32 {
	return m.leds[channel]
}
