// Package ddp pushes channel frames to a Distributed Display Protocol receiver
// (WLED, xLights, ESPixelStick) over UDP. See http://www.3waylabs.com/ddp/.
package ddp

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/logging"
	"github.com/scheerer/companion-lights/lights"
)

var logger = logging.New("ddp")

const (
	DefaultPort = 4048
	HeaderLen   = 10
	MaxDataLen  = 480 * 3

	IDDisplay byte = 1
)

const (
	flagVersion1 byte = 0x40
	flagPush     byte = 0x01

	// RGB data type (TTT=001) with 24-bit pixels (SSS=101).
	dataTypeRGB24 byte = 1<<3 | 5
)

// Header is the fixed part of a DDP packet. Timecodes are not used.
type Header struct {
	Push     bool
	Sequence byte
	ID       byte
	Offset   uint32
	Length   uint16
}

func (h Header) Bytes() []byte {
	b := make([]byte, HeaderLen)
	b[0] = flagVersion1
	if h.Push {
		b[0] |= flagPush
	}
	b[1] = h.Sequence & 0x0F
	b[2] = dataTypeRGB24
	b[3] = h.ID
	binary.BigEndian.PutUint32(b[4:8], h.Offset)
	binary.BigEndian.PutUint16(b[8:10], h.Length)
	return b
}

// Packets splits an RGB payload into DDP packets starting at byteOffset. Only
// the last packet carries the push flag so the receiver latches a whole frame.
func Packets(data []byte, byteOffset uint32, sequence byte) [][]byte {
	var packets [][]byte
	start := 0
	for {
		end := min(start+MaxDataLen, len(data))
		h := Header{
			Push:     end == len(data),
			Sequence: sequence,
			ID:       IDDisplay,
			Offset:   byteOffset + uint32(start),
			Length:   uint16(end - start),
		}
		packets = append(packets, append(h.Bytes(), data[start:end]...))
		if end == len(data) {
			return packets
		}
		start = end
	}
}

// Sink writes every channel into one DDP display, each at its own pixel offset.
type Sink struct {
	mu       sync.Mutex
	output   io.WriteCloser
	offsets  map[string]uint32
	sequence byte
}

var _ lights.PixelSink = (*Sink)(nil)

// NewSink dials addr over UDP. offsets maps channel name to its first pixel index.
func NewSink(addr string, offsets map[string]int) (*Sink, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve ddp address %s", addr)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial ddp %s", addr)
	}
	logger.With(zap.String("addr", addr), zap.Any("offsets", offsets)).Info("DDP output ready")
	return newSink(conn, offsets), nil
}

func newSink(output io.WriteCloser, offsets map[string]int) *Sink {
	s := &Sink{
		output:  output,
		offsets: make(map[string]uint32, len(offsets)),
	}
	for name, px := range offsets {
		s.offsets[name] = uint32(px) * 3
	}
	return s
}

func (s *Sink) Show(channel string, pixels []lights.Color) error {
	offset, ok := s.offsets[channel]
	if !ok {
		return nil
	}

	data := make([]byte, 0, len(pixels)*3)
	for _, p := range pixels {
		data = append(data, p.Red, p.Green, p.Blue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sequence numbers run 1-15; 0 means "not used" to receivers.
	s.sequence = s.sequence%15 + 1
	for _, packet := range Packets(data, offset, s.sequence) {
		if _, err := s.output.Write(packet); err != nil {
			return errors.Wrap(err, "ddp write")
		}
	}
	return nil
}

func (s *Sink) Close() error {
	return s.output.Close()
}
