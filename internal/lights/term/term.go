// Package term renders light channels as rows of colored blocks in a terminal,
// for running the engine without strip hardware.
package term

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"

	"github.com/scheerer/companion-lights/internal/logging"
	"github.com/scheerer/companion-lights/lights"
)

var logger = logging.New("term")

const (
	labelWidth = 10
	pixelGlyph = '█'
)

// screen is the part of tcell.Screen the sink draws with.
type screen interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Show()
	Fini()
}

type Sink struct {
	mu     sync.Mutex
	screen screen
	rows   map[string]int
	onQuit func()

	// events is nil when the screen cannot deliver input (tests).
	events tcell.Screen
}

var _ lights.PixelSink = (*Sink)(nil)

// NewSink takes over the terminal. Each channel gets its own row in the given
// order; onQuit runs when Esc or Ctrl+C is pressed.
func NewSink(channels []string, onQuit func()) (*Sink, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "create terminal screen")
	}
	if err := s.Init(); err != nil {
		return nil, errors.Wrap(err, "init terminal screen")
	}
	s.Clear()

	sink := newSink(s, channels, onQuit)
	sink.events = s
	return sink, nil
}

func newSink(s screen, channels []string, onQuit func()) *Sink {
	sink := &Sink{
		screen: s,
		rows:   make(map[string]int, len(channels)),
		onQuit: onQuit,
	}
	for i, name := range channels {
		sink.rows[name] = i * 2
	}
	return sink
}

func (s *Sink) Show(channel string, pixels []lights.Color) error {
	row, ok := s.rows[channel]
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen == nil {
		return nil
	}

	label := fmt.Sprintf("%-*.*s", labelWidth, labelWidth-1, channel)
	for x, r := range label {
		s.screen.SetContent(x, row, r, nil, tcell.StyleDefault)
	}
	for i, p := range pixels {
		color := tcell.NewRGBColor(int32(p.Red), int32(p.Green), int32(p.Blue))
		s.screen.SetContent(labelWidth+i, row, pixelGlyph, nil, tcell.StyleDefault.Foreground(color))
	}
	s.screen.Show()
	return nil
}

// Start polls terminal input until the screen is closed.
func (s *Sink) Start(ctx context.Context) {
	if s.events == nil {
		return
	}
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	for {
		ev := s.events.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				logger.Info("Quit requested from terminal")
				if s.onQuit != nil {
					s.onQuit()
				}
			}
		case *tcell.EventResize:
			s.events.Sync()
		}
	}
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screen != nil {
		s.screen.Fini()
		s.screen = nil
	}
	return nil
}
