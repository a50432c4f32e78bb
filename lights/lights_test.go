package lights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

type fakeSink struct {
	shown   map[string][]Color
	err     error
	closed  bool
	started chan struct{}
}

func newFakeSink(err error) *fakeSink {
	return &fakeSink{shown: make(map[string][]Color), err: err, started: make(chan struct{})}
}

func (f *fakeSink) Show(channel string, pixels []Color) error {
	f.shown[channel] = pixels
	return f.err
}

func (f *fakeSink) Start(ctx context.Context) { close(f.started) }

func (f *fakeSink) Close() error {
	f.closed = true
	return f.err
}

// plainSink has neither Start nor Close.
type plainSink struct{ shows int }

func (p *plainSink) Show(string, []Color) error {
	p.shows++
	return nil
}

func TestScale(t *testing.T) {
	c := Color{Red: 255, Green: 177, Blue: 38}
	assert.Equal(t, c, c.Scale(100))
	assert.Equal(t, c, c.Scale(200))
	assert.Equal(t, Black, c.Scale(0))
	assert.Equal(t, Color{Red: 127, Green: 88, Blue: 19}, c.Scale(50))
}

func TestHexAndUint32(t *testing.T) {
	c := Color{Red: 0xFF, Green: 0xB1, Blue: 0x26}
	assert.Equal(t, "FFB126", c.Hex())
	assert.Equal(t, uint32(0xFFB126), c.Uint32())
}

func TestMultiSinkShowFansOut(t *testing.T) {
	a, b := newFakeSink(nil), &plainSink{}
	m := MultiSink{a, b}

	frame := []Color{{Red: 1}}
	assert.NoError(t, m.Show("body", frame))
	assert.Equal(t, frame, a.shown["body"])
	assert.Equal(t, 1, b.shows)
}

func TestMultiSinkShowCollectsErrors(t *testing.T) {
	a, b, c := newFakeSink(errors.New("a")), &plainSink{}, newFakeSink(errors.New("c"))
	err := MultiSink{a, b, c}.Show("body", nil)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 1, b.shows)
}

func TestMultiSinkStartAndClose(t *testing.T) {
	a, b := newFakeSink(nil), &plainSink{}
	m := MultiSink{a, b}

	m.Start(context.Background())
	select {
	case <-a.started:
	case <-time.After(time.Second):
		t.Fatal("sink was not started")
	}

	assert.NoError(t, m.Close())
	assert.True(t, a.closed)

	failing := newFakeSink(errors.New("busy"))
	assert.Error(t, MultiSink{failing}.Close())
}
