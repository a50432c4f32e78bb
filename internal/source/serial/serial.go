// Package serial reads newline-terminated command lines from the serial link
// to the companion's main controller.
package serial

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	goserial "github.com/tarm/goserial"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/dispatch"
	"github.com/scheerer/companion-lights/internal/effect"
	"github.com/scheerer/companion-lights/internal/logging"
)

var logger = logging.New("serial")

const reopenDelay = 5 * time.Second

// Handler consumes one line. dispatch.Dispatcher.Dispatch satisfies it.
type Handler func(line string) error

type Source struct {
	port   string
	baud   int
	handle Handler
	open   func() (io.ReadCloser, error)
}

func New(port string, baud int, handle Handler) *Source {
	s := &Source{port: port, baud: baud, handle: handle}
	s.open = func() (io.ReadCloser, error) {
		return goserial.OpenPort(&goserial.Config{Name: s.port, Baud: s.baud})
	}
	return s
}

// Start reads the port until ctx is done, reopening it after read errors.
func (s *Source) Start(ctx context.Context) {
	log := logger.With(zap.String("port", s.port), zap.Int("baud", s.baud))
	for {
		port, err := s.open()
		if err != nil {
			log.With(zap.Error(err)).Error("Failed to open serial port")
		} else {
			log.Info("Listening for commands")
			err = ReadLines(ctx, port, s.handle)
			if ctx.Err() != nil {
				return
			}
			log.With(zap.Error(err)).Warn("Serial port closed; reopening")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reopenDelay):
		}
	}
}

// ReadLines hands every line read from r to handle until r is exhausted or ctx
// is done. r is closed on return. A trailing \r is dropped from each line.
// Rejected lines are logged and skipped.
func ReadLines(ctx context.Context, r io.ReadCloser, handle Handler) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		r.Close()
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if err := handle(line); err != nil {
			logRejected(line, err)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read serial")
	}
	return io.EOF
}

func logRejected(line string, err error) {
	log := logger.With(zap.String("line", line), zap.Error(err))
	switch {
	case errors.Is(err, dispatch.ErrUnsupported):
		// Other peripherals share the line.
	case errors.Is(err, effect.ErrMalformedCommand):
		log.Warn("Malformed light command")
	default:
		log.Warn("Rejected command line")
	}
}
