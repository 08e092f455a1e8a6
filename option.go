package legacyipc

import (
	"encoding/binary"
	"time"

	"golang.org/x/time/rate"
)

// options holds the configuration shared by the server and its connections.
type options struct {
	codec  Codec
	logger Logger

	byteOrder    binary.ByteOrder
	maxFrameSize int
	readTimeout  time.Duration // zero means reads block until the peer sends or closes
	writeTimeout time.Duration

	acceptLimit rate.Limit // retry rate after a failed Accept
	acceptBurst int
}

// Default configuration values.
const (
	defaultAcceptLimit = rate.Limit(10)
	defaultAcceptBurst = 1
)

// Option configures a Server.
type Option func(*options)

// CodecOption sets the message codec. Defaults to JSONCodec.
func CodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// LoggerOption sets the logger. If not set, the default slog logger is used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// ByteOrderOption sets the byte order of the frame length prefix.
// Defaults to the host byte order.
func ByteOrderOption(order binary.ByteOrder) Option {
	return func(o *options) {
		o.byteOrder = order
	}
}

// MaxFrameSizeOption sets the largest accepted request frame.
func MaxFrameSizeOption(size int) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// ReadTimeoutOption sets a deadline for reading each request frame.
// The default of zero keeps reads blocking, so a stalled peer stalls the server.
func ReadTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.readTimeout = timeout
	}
}

// WriteTimeoutOption sets a deadline for writing each response frame.
func WriteTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// AcceptBackoffOption limits how fast Accept is retried after it fails.
func AcceptBackoffOption(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.acceptLimit = limit
		o.acceptBurst = burst
	}
}

// checkOptions sets default values for unset options.
func checkOptions(opts *options) {
	if opts.codec == nil {
		opts.codec = JSONCodec{}
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	if opts.byteOrder == nil {
		opts.byteOrder = hostByteOrder()
	}

	if opts.maxFrameSize <= 0 {
		opts.maxFrameSize = defaultMaxFrameSize
	}

	if opts.acceptLimit <= 0 {
		opts.acceptLimit = defaultAcceptLimit
	}

	if opts.acceptBurst <= 0 {
		opts.acceptBurst = defaultAcceptBurst
	}
}
