package term

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheerer/companion-lights/lights"
)

type cell struct {
	r     rune
	style tcell.Style
}

type mockScreen struct {
	cells map[[2]int]cell
	shows int
	fini  bool
}

func newMockScreen() *mockScreen {
	return &mockScreen{cells: make(map[[2]int]cell)}
}

func (m *mockScreen) SetContent(x, y int, primary rune, combining []rune, style tcell.Style) {
	m.cells[[2]int{x, y}] = cell{primary, style}
}

func (m *mockScreen) Show() { m.shows++ }

func (m *mockScreen) Fini() { m.fini = true }

func TestShowDrawsChannelRow(t *testing.T) {
	screen := newMockScreen()
	sink := newSink(screen, []string{"body", "base"}, nil)

	require.NoError(t, sink.Show("base", []lights.Color{{Red: 255}, {Green: 128}}))
	assert.Equal(t, 1, screen.shows)

	assert.Equal(t, 'b', screen.cells[[2]int{0, 2}].r)
	assert.Equal(t, 'e', screen.cells[[2]int{3, 2}].r)

	first := screen.cells[[2]int{labelWidth, 2}]
	assert.Equal(t, pixelGlyph, first.r)
	assert.Equal(t, tcell.StyleDefault.Foreground(tcell.NewRGBColor(255, 0, 0)), first.style)

	second := screen.cells[[2]int{labelWidth + 1, 2}]
	assert.Equal(t, tcell.StyleDefault.Foreground(tcell.NewRGBColor(0, 128, 0)), second.style)

	_, drawnOnBodyRow := screen.cells[[2]int{labelWidth, 0}]
	assert.False(t, drawnOnBodyRow)
}

func TestShowIgnoresUnknownChannel(t *testing.T) {
	screen := newMockScreen()
	sink := newSink(screen, []string{"body"}, nil)

	require.NoError(t, sink.Show("head", []lights.Color{{Red: 1}}))
	assert.Equal(t, 0, screen.shows)
	assert.Empty(t, screen.cells)
}

func TestCloseStopsDrawing(t *testing.T) {
	screen := newMockScreen()
	sink := newSink(screen, []string{"body"}, nil)

	require.NoError(t, sink.Close())
	assert.True(t, screen.fini)
	require.NoError(t, sink.Close())

	require.NoError(t, sink.Show("body", []lights.Color{{Red: 1}}))
	assert.Equal(t, 0, screen.shows)
}
