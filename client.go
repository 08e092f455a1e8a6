package legacyipc

import (
	"context"
	"encoding/binary"
	"net"

	"github.com/pkg/errors"
)

// Client speaks the peer side of the protocol: one connection per request.
type Client struct {
	addr   string
	frames *FrameCodec
	codec  JSONCodec
}

// NewClient returns a Client for the bridge listening on addr.
// A nil order selects the host byte order.
func NewClient(addr string, order binary.ByteOrder) *Client {
	if order == nil {
		order = hostByteOrder()
	}
	return &Client{
		addr:   addr,
		frames: NewFrameCodec(order, 0),
	}
}

// Calculate sends req and waits for the star rating. The bridge closes the
// connection without answering malformed requests; that surfaces as a
// FramingError with kind ShortHeader.
func (c *Client) Calculate(ctx context.Context, req RequestPayload) (float64, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return 0, errors.Wrapf(err, "dial %s", c.addr)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	body, err := c.codec.EncodeRequest(req)
	if err != nil {
		return 0, errors.Wrap(err, "encode request")
	}
	if err = c.frames.WriteFrame(conn, body); err != nil {
		return 0, err
	}

	data, err := c.frames.ReadFrame(conn)
	if err != nil {
		return 0, err
	}

	resp, err := c.codec.DecodeResponse(data)
	if err != nil {
		return 0, err
	}
	return resp.StarRating, nil
}
