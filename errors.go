package legacyipc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Configuration errors returned at startup.
var (
	// ErrUnknownByteOrder is returned when the configured byte order is not native, little or big.
	ErrUnknownByteOrder = errors.New("unknown byte order")
	// ErrNonLoopbackAddr is returned when the listen address is not a loopback address.
	ErrNonLoopbackAddr = errors.New("listen address is not loopback")
	// ErrNoCalculator is returned when a server is created without a calculator.
	ErrNoCalculator = errors.New("no calculator configured")
)

// FramingErrorKind classifies transport-level failures.
type FramingErrorKind int

const (
	// ShortHeader means fewer than 4 length bytes arrived.
	ShortHeader FramingErrorKind = iota
	// EmptyMessage means the declared length was zero.
	EmptyMessage
	// ShortBody means the body did not match the declared length.
	ShortBody
	// InvalidLength means the declared length was negative or above the frame limit.
	InvalidLength
	// WriteFailed means the response frame could not be written completely.
	WriteFailed
)

func (k FramingErrorKind) String() string {
	switch k {
	case ShortHeader:
		return "ShortHeader"
	case EmptyMessage:
		return "EmptyMessage"
	case ShortBody:
		return "ShortBody"
	case InvalidLength:
		return "InvalidLength"
	case WriteFailed:
		return "WriteFailed"
	}
	return fmt.Sprintf("FramingErrorKind(%d)", int(k))
}

// FramingError is a failure of the length-prefixed envelope. The connection
// is closed without a response.
type FramingError struct {
	Kind FramingErrorKind
	Err  error
}

func (e *FramingError) Error() string {
	if e.Err == nil {
		return "framing: " + e.Kind.String()
	}
	return "framing: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *FramingError) Unwrap() error { return e.Err }

// DecodeErrorKind classifies unparsable request content.
type DecodeErrorKind int

const (
	InvalidUTF8 DecodeErrorKind = iota
	InvalidJSON
	SchemaMismatch
)

func (k DecodeErrorKind) String() string {
	switch k {
	case InvalidUTF8:
		return "InvalidUTF8"
	case InvalidJSON:
		return "InvalidJSON"
	case SchemaMismatch:
		return "SchemaMismatch"
	}
	return fmt.Sprintf("DecodeErrorKind(%d)", int(k))
}

// DecodeError means a frame arrived but its payload is not a request envelope.
// The connection is closed without a response.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode: " + e.Kind.String()
	}
	return "decode: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CalculationErrorKind classifies failures while rating a decoded request.
type CalculationErrorKind int

const (
	InvalidRuleset CalculationErrorKind = iota
	FileNotFound
	ParseFailure
	ComputeFailure
)

func (k CalculationErrorKind) String() string {
	switch k {
	case InvalidRuleset:
		return "InvalidRuleset"
	case FileNotFound:
		return "FileNotFound"
	case ParseFailure:
		return "ParseFailure"
	case ComputeFailure:
		return "ComputeFailure"
	}
	return fmt.Sprintf("CalculationErrorKind(%d)", int(k))
}

// CalculationError means the request was valid but no rating could be produced.
// The peer still receives a sentinel response.
type CalculationError struct {
	Kind CalculationErrorKind
	Err  error
}

func (e *CalculationError) Error() string {
	if e.Err == nil {
		return "calculation: " + e.Kind.String()
	}
	return "calculation: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *CalculationError) Unwrap() error { return e.Err }

func framingError(kind FramingErrorKind, err error) error {
	return &FramingError{Kind: kind, Err: err}
}

func decodeError(kind DecodeErrorKind, err error) error {
	return &DecodeError{Kind: kind, Err: err}
}

func calculationError(kind CalculationErrorKind, err error) error {
	return &CalculationError{Kind: kind, Err: err}
}

// IsFramingError reports whether err is a FramingError of the given kind.
func IsFramingError(err error, kind FramingErrorKind) bool {
	var fe *FramingError
	return errors.As(err, &fe) && fe.Kind == kind
}

// IsDecodeError reports whether err is a DecodeError of the given kind.
func IsDecodeError(err error, kind DecodeErrorKind) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Kind == kind
}

// IsCalculationError reports whether err is a CalculationError of the given kind.
func IsCalculationError(err error, kind CalculationErrorKind) bool {
	var ce *CalculationError
	return errors.As(err, &ce) && ce.Kind == kind
}
