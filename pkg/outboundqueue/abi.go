package outboundqueue

import (
	"fmt"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/outbound"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Gas forwarded to the gateway for executing each command kind.
const (
	unlockNativeTokenGas = 100_000
	mintForeignTokenGas  = 200_000
)

var (
	// messageArgs is the layout the gateway decodes a committed message with.
	messageArgs abi.Arguments
	unlockArgs  abi.Arguments
	mintArgs    abi.Arguments
)

// commandWrapper is a single encoded command as the gateway consumes it.
type commandWrapper struct {
	Kind    uint8
	Gas     uint64
	Payload []byte
}

func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	ty, err := abi.NewType(t, "", components)
	if err != nil {
		panic(fmt.Sprintf("invalid abi type %s: %v", t, err))
	}
	return ty
}

func init() {
	bytes32 := mustType("bytes32", nil)
	address := mustType("address", nil)
	uint128 := mustType("uint128", nil)

	messageArgs = abi.Arguments{
		{Name: "origin", Type: bytes32},
		{Name: "nonce", Type: mustType("uint64", nil)},
		{Name: "topic", Type: bytes32},
		{Name: "commands", Type: mustType("tuple[]", []abi.ArgumentMarshaling{
			{Name: "kind", Type: "uint8"},
			{Name: "gas", Type: "uint64"},
			{Name: "payload", Type: "bytes"},
		})},
	}
	unlockArgs = abi.Arguments{
		{Name: "agentID", Type: bytes32},
		{Name: "token", Type: address},
		{Name: "recipient", Type: address},
		{Name: "amount", Type: uint128},
	}
	mintArgs = abi.Arguments{
		{Name: "tokenID", Type: bytes32},
		{Name: "recipient", Type: address},
		{Name: "amount", Type: uint128},
	}
}

func encodeCommand(cmd outbound.Command) (commandWrapper, error) {
	var (
		payload []byte
		gas     uint64
		err     error
	)
	switch c := cmd.(type) {
	case outbound.UnlockNativeToken:
		if c.Amount.BitLen() > 128 {
			return commandWrapper{}, fmt.Errorf("%w: %s", ErrInvalidAmount, c.Amount.ToBig())
		}
		gas = unlockNativeTokenGas
		payload, err = unlockArgs.Pack([32]byte(c.AgentID), c.Token, c.Recipient, c.Amount.ToBig())
	case outbound.MintForeignToken:
		if c.Amount.BitLen() > 128 {
			return commandWrapper{}, fmt.Errorf("%w: %s", ErrInvalidAmount, c.Amount.ToBig())
		}
		gas = mintForeignTokenGas
		payload, err = mintArgs.Pack([32]byte(c.TokenID), c.Recipient, c.Amount.ToBig())
	default:
		return commandWrapper{}, fmt.Errorf("%w: %T", ErrUnsupportedCommand, cmd)
	}
	if err != nil {
		return commandWrapper{}, fmt.Errorf("failed to encode %s: %w", cmd, err)
	}
	return commandWrapper{Kind: cmd.Index(), Gas: gas, Payload: payload}, nil
}

func encodeMessage(origin common.Hash, nonce uint64, topic common.Hash, commands []commandWrapper) ([]byte, error) {
	return messageArgs.Pack([32]byte(origin), nonce, [32]byte(topic), commands)
}

// DecodeMessage decodes a committed message, returning its nonce, topic and the kinds of its commands.
func DecodeMessage(data []byte) (nonce uint64, topic common.Hash, kinds []uint8, err error) {
	values, err := messageArgs.Unpack(data)
	if err != nil {
		return 0, common.Hash{}, nil, err
	}
	if len(values) != 4 {
		return 0, common.Hash{}, nil, fmt.Errorf("expected 4 fields, got %d", len(values))
	}

	var decoded struct {
		Origin   [32]byte
		Nonce    uint64
		Topic    [32]byte
		Commands []commandWrapper
	}
	if err := messageArgs.Copy(&decoded, values); err != nil {
		return 0, common.Hash{}, nil, err
	}
	for _, c := range decoded.Commands {
		kinds = append(kinds, c.Kind)
	}
	return decoded.Nonce, decoded.Topic, kinds, nil
}
