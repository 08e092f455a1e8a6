package legacyipc

import (
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"
)

// HeaderSize is the size of the length prefix in front of every frame.
const HeaderSize = 4

// defaultMaxFrameSize bounds the declared length of an incoming frame (16MB).
const defaultMaxFrameSize = 16 * 1024 * 1024

// Byte order names accepted by ParseByteOrder.
const (
	ByteOrderNative = "native"
	ByteOrderLittle = "little"
	ByteOrderBig    = "big"
)

// ParseByteOrder resolves a configured byte order name. "native" (or the
// empty string) resolves to the byte order of the running CPU, which is
// what the legacy peer uses for its length prefix.
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ByteOrderNative:
		return hostByteOrder(), nil
	case ByteOrderLittle:
		return binary.LittleEndian, nil
	case ByteOrderBig:
		return binary.BigEndian, nil
	}
	return nil, errors.Wrapf(ErrUnknownByteOrder, "%q", name)
}

func hostByteOrder() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// FrameCodec reads and writes frames of the form
//
//	[4 bytes: int32 length][length bytes: payload]
//
// using a fixed byte order for the prefix.
type FrameCodec struct {
	order     binary.ByteOrder
	maxLength int
}

// NewFrameCodec returns a FrameCodec using order for the length prefix.
// A non-positive maxLength selects the default limit.
func NewFrameCodec(order binary.ByteOrder, maxLength int) *FrameCodec {
	if maxLength <= 0 {
		maxLength = defaultMaxFrameSize
	}
	return &FrameCodec{order: order, maxLength: maxLength}
}

// ByteOrder returns the byte order used for the length prefix.
func (f *FrameCodec) ByteOrder() binary.ByteOrder {
	return f.order
}

// ReadFrame reads exactly one frame from r and returns its payload.
// It never resynchronizes: any shortfall is reported as a FramingError.
func (f *FrameCodec) ReadFrame(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, framingError(ShortHeader, err)
	}

	length := int32(f.order.Uint32(header[:]))
	switch {
	case length == 0:
		return nil, framingError(EmptyMessage, nil)
	case length < 0 || int64(length) > int64(f.maxLength):
		return nil, framingError(InvalidLength, errors.Errorf("declared length %d, limit %d", length, f.maxLength))
	}

	body := make([]byte, length)
	if n, err := io.ReadFull(r, body); err != nil {
		return nil, framingError(ShortBody, errors.Wrapf(err, "read %d of %d bytes", n, length))
	}

	return body, nil
}

// WriteFrame writes the length prefix followed by payload as two writes.
// Short writes are retried until the frame is complete.
func (f *FrameCodec) WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > math.MaxInt32 {
		return framingError(InvalidLength, errors.Errorf("payload of %d bytes", len(payload)))
	}

	var header [HeaderSize]byte
	f.order.PutUint32(header[:], uint32(int32(len(payload))))

	if err := writeFull(w, header[:]); err != nil {
		return framingError(WriteFailed, errors.Wrap(err, "write header"))
	}
	if err := writeFull(w, payload); err != nil {
		return framingError(WriteFailed, errors.Wrap(err, "write body"))
	}
	return nil
}

func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}
