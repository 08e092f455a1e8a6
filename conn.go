// Package legacyipc bridges the legacy TCP IPC difficulty calculation
// contract to an external star rating engine.
//
// Every connection carries exactly one request frame and at most one
// response frame. Connections are served one at a time.
package legacyipc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
)

// State is the processing stage of a connection.
type State int

const (
	Accepted State = iota
	FrameRead
	Decoded
	Dispatched
	ResponseSent
	Closed
)

func (s State) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case FrameRead:
		return "frame_read"
	case Decoded:
		return "decoded"
	case Dispatched:
		return "dispatched"
	case ResponseSent:
		return "response_sent"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// connection drives a single request/response cycle on an accepted connection.
type connection struct {
	rawConn    net.Conn
	frames     *FrameCodec
	dispatcher *Dispatcher
	logger     Logger

	opts options

	state State
	// last stage reached before the connection was closed
	reached State
}

// newConn wraps an accepted connection.
func newConn(c net.Conn, frames *FrameCodec, dispatcher *Dispatcher, opts options) *connection {
	return &connection{
		rawConn:    c,
		frames:     frames,
		dispatcher: dispatcher,
		logger:     opts.logger,
		opts:       opts,
		state:      Accepted,
	}
}

// Process reads one request, answers it according to the response policy
// and closes the connection. The returned error is the reason processing
// stopped early, or the calculation failure behind a sentinel response.
// Canceling ctx unblocks any pending read or write.
func (c *connection) Process(ctx context.Context) error {
	defer c.close()

	stop := context.AfterFunc(ctx, func() {
		_ = c.rawConn.SetDeadline(time.Now())
	})
	defer stop()

	rating, err := c.receive(ctx)
	if c.state == Decoded {
		c.state = Dispatched
	}

	if err != nil {
		c.logFailure(err)
	}

	response, ok := Decide(Outcome{StarRating: rating, Err: err})
	if !ok {
		return err
	}

	if sendErr := c.send(response); sendErr != nil {
		c.logger.Info("response not sent", "remote_addr", c.Addr(), "error", sendErr)
		return sendErr
	}
	c.state = ResponseSent
	c.logger.Debug("response sent", "remote_addr", c.Addr(), "star_rating", response.StarRating)

	return err
}

// receive reads, decodes and dispatches the request frame.
func (c *connection) receive(ctx context.Context) (float64, error) {
	if c.opts.readTimeout > 0 {
		_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.readTimeout))
	}

	data, err := c.frames.ReadFrame(c.rawConn)
	if err != nil {
		return 0, err
	}
	c.state = FrameRead

	req, err := c.opts.codec.DecodeRequest(data)
	if err != nil {
		return 0, err
	}
	c.state = Decoded
	c.logger.Debug("request received", "remote_addr", c.Addr(),
		"beatmap", req.BeatmapFile, "ruleset", req.RulesetID, "mods", req.Mods)

	return c.dispatcher.Dispatch(ctx, req)
}

// send encodes the response and writes it as one frame.
func (c *connection) send(response ResponsePayload) error {
	body, err := c.opts.codec.EncodeResponse(response)
	if err != nil {
		return errors.Wrap(err, "encode response")
	}

	if c.opts.writeTimeout > 0 {
		_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout))
	}
	return c.frames.WriteFrame(c.rawConn, body)
}

func (c *connection) logFailure(err error) {
	var (
		fe *FramingError
		de *DecodeError
		ce *CalculationError
	)
	switch {
	case errors.As(err, &ce):
		c.logger.Warn("calculation failed, sending sentinel", "remote_addr", c.Addr(),
			"kind", ce.Kind, "error", err)
	case errors.As(err, &fe):
		c.logger.Info("malformed frame, closing without response", "remote_addr", c.Addr(),
			"state", c.state, "kind", fe.Kind, "error", err)
	case errors.As(err, &de):
		c.logger.Info("malformed request, closing without response", "remote_addr", c.Addr(),
			"state", c.state, "kind", de.Kind, "error", err)
	default:
		c.logger.Error("request failed", "remote_addr", c.Addr(), "state", c.state, "error", err)
	}
}

// Addr returns the remote address of the connection.
func (c *connection) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// Reached returns the last stage the connection reached before it was closed.
func (c *connection) Reached() State {
	return c.reached
}

func (c *connection) close() {
	c.reached = c.state
	c.state = Closed
	_ = c.rawConn.Close()
}
