package inbound

import (
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Event is an observable outcome of a pipeline call.
type Event interface {
	eventName() string
}

// MessageReceived is emitted once a message has been forwarded and its nonce consumed.
type MessageReceived struct {
	Nonce     uint64
	MessageID ethcommon.Hash
}

type OperatingModeChanged struct {
	Mode common.OperatingMode
}

func (MessageReceived) eventName() string      { return "MessageReceived" }
func (OperatingModeChanged) eventName() string { return "OperatingModeChanged" }
