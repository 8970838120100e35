package xcm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrDepthLimitExceeded  = errors.New("xcm: decode depth limit exceeded")
	ErrUnsupportedVersion  = errors.New("xcm: unsupported version")
	ErrVersionIncompatible = errors.New("xcm: program not representable in working version")
	ErrTrailingBytes       = errors.New("xcm: trailing bytes after program")
	ErrTooManyItems        = errors.New("xcm: collection exceeds its bound")
	ErrUnknownVariant      = errors.New("xcm: unknown variant")
	ErrAmountOverflow      = errors.New("xcm: integer exceeds its width")
	ErrInvalidValue        = errors.New("xcm: invalid value")
)

// DecodeError reports which part of an encoded program could not be decoded.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("xcm: failed to decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SendErrorKind enumerates the ways a Sender can refuse a program.
type SendErrorKind uint8

const (
	NotApplicable SendErrorKind = iota + 1
	Unroutable
	Transport
	DestinationUnsupported
	ExceedsMaxMessageSize
	MissingArgument
	Fees
)

// SendErrorKinds lists every SendErrorKind.
var SendErrorKinds = []SendErrorKind{
	NotApplicable,
	Unroutable,
	Transport,
	DestinationUnsupported,
	ExceedsMaxMessageSize,
	MissingArgument,
	Fees,
}

func (k SendErrorKind) String() string {
	switch k {
	case NotApplicable:
		return "NotApplicable"
	case Unroutable:
		return "Unroutable"
	case Transport:
		return "Transport"
	case DestinationUnsupported:
		return "DestinationUnsupported"
	case ExceedsMaxMessageSize:
		return "ExceedsMaxMessageSize"
	case MissingArgument:
		return "MissingArgument"
	case Fees:
		return "Fees"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// SendError is returned by a Sender or an exporter. Reason is only set for Transport errors.
type SendError struct {
	Kind   SendErrorKind
	Reason string
}

func NewSendError(kind SendErrorKind) *SendError {
	return &SendError{Kind: kind}
}

func NewTransportError(reason string) *SendError {
	return &SendError{Kind: Transport, Reason: reason}
}

func (e *SendError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("xcm send: %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("xcm send: %s", e.Kind)
}

// Is matches any SendError of the same kind, so errors.Is(err, NewSendError(Unroutable)) works.
func (e *SendError) Is(target error) bool {
	var t *SendError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sender forwards a program to a destination.
type Sender interface {
	Send(dest Location, prog Program) (common.Hash, Assets, error)
}
