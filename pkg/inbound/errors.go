package inbound

import (
	"errors"
	"fmt"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
)

var (
	ErrHalted          = errors.New("inbound: pipeline is halted")
	ErrInvalidEnvelope = errors.New("inbound: invalid envelope")
	ErrInvalidGateway  = errors.New("inbound: message not emitted by the gateway")
	ErrInvalidNonce    = errors.New("inbound: nonce already consumed")
	ErrInvalidPayload  = errors.New("inbound: invalid payload")
	ErrInvalidChannel  = errors.New("inbound: invalid channel")
	ErrMaxNonceReached = errors.New("inbound: max nonce reached")
	// ErrNonceCommitFailed means the message was forwarded but its nonce could not be marked consumed.
	ErrNonceCommitFailed = errors.New("inbound: message forwarded but nonce commit failed")
	// ErrInvalidAccountConversion is reserved for origins that cannot be converted to a local account.
	ErrInvalidAccountConversion = errors.New("inbound: invalid account conversion")
)

// SendErrorKind is the local classification of a transport failure.
type SendErrorKind uint8

const (
	SendNotApplicable SendErrorKind = iota + 1
	SendNotRoutable
	SendTransport
	SendDestinationUnsupported
	SendExceedsMaxMessageSize
	SendMissingArgument
	SendFees
)

func (k SendErrorKind) String() string {
	switch k {
	case SendNotApplicable:
		return "NotApplicable"
	case SendNotRoutable:
		return "NotRoutable"
	case SendTransport:
		return "Transport"
	case SendDestinationUnsupported:
		return "DestinationUnsupported"
	case SendExceedsMaxMessageSize:
		return "ExceedsMaxMessageSize"
	case SendMissingArgument:
		return "MissingArgument"
	case SendFees:
		return "Fees"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// sendErrorKinds maps every transport error kind to its local counterpart.
var sendErrorKinds = map[xcm.SendErrorKind]SendErrorKind{
	xcm.NotApplicable:          SendNotApplicable,
	xcm.Unroutable:             SendNotRoutable,
	xcm.Transport:              SendTransport,
	xcm.DestinationUnsupported: SendDestinationUnsupported,
	xcm.ExceedsMaxMessageSize:  SendExceedsMaxMessageSize,
	xcm.MissingArgument:        SendMissingArgument,
	xcm.Fees:                   SendFees,
}

// SendError reports that the transport refused to forward a message.
type SendError struct {
	Kind SendErrorKind
	Err  error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inbound: send failed: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("inbound: send failed: %s", e.Kind)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// newSendError classifies an error returned by an xcm.Sender. Errors that are not an *xcm.SendError are reported
// as transport failures.
func newSendError(err error) *SendError {
	var se *xcm.SendError
	if !errors.As(err, &se) {
		return &SendError{Kind: SendTransport, Err: err}
	}
	kind, ok := sendErrorKinds[se.Kind]
	if !ok {
		kind = SendTransport
	}
	return &SendError{Kind: kind, Err: err}
}
