package outbound

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MaxCommands bounds the number of commands a single message may carry.
const MaxCommands = 8

// Command is an instruction the gateway contract executes on the destination ledger.
type Command interface {
	// Index is the command discriminant understood by the gateway.
	Index() uint8
	String() string
}

// UnlockNativeToken releases tokens held by an agent back to a recipient.
type UnlockNativeToken struct {
	AgentID   common.Hash
	Token     common.Address
	Recipient common.Address
	Amount    uint256.Int
}

// MintForeignToken mints the gateway's representation of a token registered under TokenID.
type MintForeignToken struct {
	TokenID   common.Hash
	Recipient common.Address
	Amount    uint256.Int
}

func (UnlockNativeToken) Index() uint8 { return 0 }
func (MintForeignToken) Index() uint8  { return 1 }

func (c UnlockNativeToken) String() string {
	return fmt.Sprintf("UnlockNativeToken{agent: %s, token: %s, recipient: %s, amount: %s}",
		c.AgentID, c.Token, c.Recipient, c.Amount.ToBig())
}

func (c MintForeignToken) String() string {
	return fmt.Sprintf("MintForeignToken{token_id: %s, recipient: %s, amount: %s}",
		c.TokenID, c.Recipient, c.Amount.ToBig())
}

// Message is the result of translating a program. It is handed to the Queue unchanged.
type Message struct {
	// ID is the topic of the program the message was translated from.
	ID       common.Hash
	Origin   common.Hash
	Fee      uint256.Int
	Commands []Command
}

// Fee is the cost quoted by the Queue for delivering a message.
type Fee struct {
	// Local covers processing on the bridge hub.
	Local uint256.Int
	// Remote covers execution on the destination ledger.
	Remote uint256.Int
}

// maxFee is the largest fee expressible as an XCM fungible amount (u128).
var maxFee = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// Total returns Local+Remote, saturating at 2^128-1.
func (f Fee) Total() uint256.Int {
	total, overflow := new(uint256.Int).AddOverflow(&f.Local, &f.Remote)
	if overflow || total.Gt(maxFee) {
		return *maxFee
	}
	return *total
}
