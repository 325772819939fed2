package eo

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethanmoffat/eolib-go/v3/data"
)

// HeaderSize is the size of the length header in front of every packet.
const HeaderSize = 2

// MaxPacketSize is the largest payload a 2-byte header can describe.
const MaxPacketSize = ShortMax - 1

var (
	// ErrEndOfStream is returned when the stream ends or fails before a
	// complete packet was read. The stream cannot be resynchronized.
	ErrEndOfStream = errors.New("eo: end of stream")

	// ErrPacketTooLarge is returned by EncodePacket for payloads that do not
	// fit in a 2-byte length header.
	ErrPacketTooLarge = errors.New("eo: packet too large")
)

// PacketReader reads length-prefixed packets from a byte stream.
type PacketReader struct {
	r      io.Reader
	header [HeaderSize]byte
}

// NewPacketReader returns a PacketReader reading from r.
func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{r: r}
}

// ReadPacket reads one packet and returns its payload without the header.
// A packet whose header encodes a length of zero yields a nil payload and a
// nil error. Any read failure, including a short read, is reported as
// ErrEndOfStream wrapping the underlying error.
func (p *PacketReader) ReadPacket() ([]byte, error) {
	if _, err := io.ReadFull(p.r, p.header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrEndOfStream, err)
	}

	// Decoding stops at the first 0xFE, so [0xFE, x] is a zero length.
	length := data.DecodeNumber(p.header[:])
	if length == 0 {
		return nil, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(p.r, payload); err != nil {
		return nil, fmt.Errorf("%w: reading %d byte payload: %w", ErrEndOfStream, length, err)
	}

	return payload, nil
}

// EncodePacket prepends the 2-byte length header to payload.
func EncodePacket(payload []byte) ([]byte, error) {
	if len(payload) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPacketTooLarge, len(payload), MaxPacketSize)
	}

	length := data.EncodeNumber(len(payload))
	packet := make([]byte, 0, HeaderSize+len(payload))
	packet = append(packet, length[0], length[1])
	return append(packet, payload...), nil
}
