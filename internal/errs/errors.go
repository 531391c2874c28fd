package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindCodec: the value/argument encoder or decoder rejected input.
	KindCodec
	// KindTransport: the endpoint was unreachable, failed at the protocol
	// level, or the call ran out of time.
	KindTransport
	// KindIO: local filesystem failure during ingestion.
	KindIO
	// KindIdentity: key material could not be generated or parsed.
	KindIdentity
	// KindChannel: an internal hand-off between goroutines broke.
	KindChannel
)

func (k Kind) String() string {
	switch k {
	case KindCodec:
		return "codec"
	case KindTransport:
		return "transport"
	case KindIO:
		return "io"
	case KindIdentity:
		return "identity"
	case KindChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Markers for errors.Is. Every *Error matches the marker of its Kind.
var (
	ErrCodec     = errors.New("codec error")
	ErrTransport = errors.New("transport error")
	ErrIO        = errors.New("io error")
	ErrIdentity  = errors.New("identity error")
	ErrChannel   = errors.New("channel error")

	// ErrTimeout refines KindTransport: the retry budget was exhausted.
	ErrTimeout = errors.New("request timed out")
	// ErrUnsupported refines KindCodec: a value has no target representation.
	ErrUnsupported = errors.New("unsupported conversion")
)

func (k Kind) marker() error {
	switch k {
	case KindCodec:
		return ErrCodec
	case KindTransport:
		return ErrTransport
	case KindIO:
		return ErrIO
	case KindIdentity:
		return ErrIdentity
	case KindChannel:
		return ErrChannel
	default:
		return nil
	}
}

// Error is a classified failure. Op names the operation that failed, for
// example "ingest" or "decode reply".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind.marker(), e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind.marker(), e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the marker for e's Kind.
func (e *Error) Is(target error) bool {
	m := e.Kind.marker()
	return m != nil && target == m
}

// New wraps err with a kind and operation. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string. %w verbs are
// honoured.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func Codec(op string, err error) error     { return New(KindCodec, op, err) }
func IO(op string, err error) error        { return New(KindIO, op, err) }
func Identity(op string, err error) error  { return New(KindIdentity, op, err) }
func Channel(op string, err error) error   { return New(KindChannel, op, err) }
func Transport(op string, err error) error { return New(KindTransport, op, err) }

// Unsupported reports a conversion with no target representation.
func Unsupported(op, format string, args ...any) error {
	return &Error{Kind: KindCodec, Op: op, Err: fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))}
}

// Timeout reports an exhausted retry budget. last is the final attempt's
// error and may be nil.
func Timeout(op string, last error) error {
	if last == nil {
		return &Error{Kind: KindTransport, Op: op, Err: ErrTimeout}
	}
	return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("%w (last attempt: %v)", ErrTimeout, last)}
}

// TransportError is a failed network attempt. Retryable attempts may be
// repeated under the call's retry policy; the rest are definitive.
type TransportError struct {
	// Status is the protocol status code, or 0 when no response arrived.
	Status    int
	Retryable bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Retryable wraps err as a transport failure worth another attempt.
func Retryable(status int, err error) error {
	return &TransportError{Status: status, Retryable: true, Err: err}
}

// Rejected wraps err as a definitive transport failure.
func Rejected(status int, err error) error {
	return &TransportError{Status: status, Retryable: false, Err: err}
}

// IsRetryable reports whether err is a transport failure that may succeed on
// another attempt.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		switch e := cur.(type) {
		case *Error:
			return e.Kind
		case *TransportError:
			return KindTransport
		}
	}
	return KindUnknown
}
