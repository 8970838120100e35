package inbound

import "fmt"

// Message is an inbound submission: a raw gateway event log plus a proof of its inclusion.
type Message struct {
	EventLog []byte
	Proof    []byte
}

// Verifier checks that an event log was included in a finalized execution block.
type Verifier interface {
	Verify(eventLog []byte, proof []byte) error
}

type VerificationErrorKind uint8

const (
	VerificationHeaderNotFound VerificationErrorKind = iota + 1
	VerificationLogNotFound
	VerificationInvalidLog
	VerificationInvalidProof
	VerificationInvalidExecutionProof
)

func (k VerificationErrorKind) String() string {
	switch k {
	case VerificationHeaderNotFound:
		return "HeaderNotFound"
	case VerificationLogNotFound:
		return "LogNotFound"
	case VerificationInvalidLog:
		return "InvalidLog"
	case VerificationInvalidProof:
		return "InvalidProof"
	case VerificationInvalidExecutionProof:
		return "InvalidExecutionProof"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

type VerificationError struct {
	Kind VerificationErrorKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inbound: verification failed: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("inbound: verification failed: %s", e.Kind)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}
