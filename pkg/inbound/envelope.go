package inbound

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

const gatewayABIJSON = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"uint64","name":"nonce","type":"uint64"},{"indexed":false,"internalType":"bytes","name":"payload","type":"bytes"}],"name":"OutboundMessageAccepted","type":"event"}]`

const outboundMessageAccepted = "OutboundMessageAccepted"

var (
	gatewayABI     abi.ABI
	acceptedEvent  abi.Event
	acceptedFields abi.Arguments
)

func init() {
	var err error
	gatewayABI, err = abi.JSON(strings.NewReader(gatewayABIJSON))
	if err != nil {
		panic(fmt.Sprintf("failed to parse gateway abi: %v", err))
	}
	acceptedEvent = gatewayABI.Events[outboundMessageAccepted]
	acceptedFields = acceptedEvent.Inputs.NonIndexed()
}

// Envelope is the decoded form of a gateway OutboundMessageAccepted event log.
type Envelope struct {
	Gateway common.Address
	Nonce   uint64
	Payload []byte
}

// eventLog is the execution-layer encoding of a log entry.
type eventLog struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// EventID returns the topic identifying OutboundMessageAccepted logs.
func EventID() common.Hash {
	return acceptedEvent.ID
}

// DecodeEnvelope decodes an RLP-encoded event log. Every structural mismatch is reported as ErrInvalidEnvelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var log eventLog
	if err := rlp.DecodeBytes(data, &log); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("%w: expected 2 topics, got %d", ErrInvalidEnvelope, len(log.Topics))
	}
	if log.Topics[0] != acceptedEvent.ID {
		return nil, fmt.Errorf("%w: unexpected event %s", ErrInvalidEnvelope, log.Topics[0])
	}

	nonceTopic := log.Topics[1]
	if !bytes.Equal(nonceTopic[:24], make([]byte, 24)) {
		return nil, fmt.Errorf("%w: nonce topic does not fit in 64 bits", ErrInvalidEnvelope)
	}
	nonce := binary.BigEndian.Uint64(nonceTopic[24:])

	values, err := acceptedFields.Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: expected 1 data field, got %d", ErrInvalidEnvelope, len(values))
	}
	payload, ok := values[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: payload has type %T", ErrInvalidEnvelope, values[0])
	}

	// The unpacker tolerates padding garbage and trailing words, so require the canonical form.
	canonical, err := acceptedFields.Pack(payload)
	if err != nil || !bytes.Equal(canonical, log.Data) {
		return nil, fmt.Errorf("%w: non-canonical event data", ErrInvalidEnvelope)
	}

	return &Envelope{
		Gateway: log.Address,
		Nonce:   nonce,
		Payload: payload,
	}, nil
}

// EncodeEnvelope is the inverse of DecodeEnvelope.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, errors.New("inbound: nil envelope")
	}
	data, err := acceptedFields.Pack(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to pack event data: %w", err)
	}
	log := eventLog{
		Address: env.Gateway,
		Topics:  []common.Hash{acceptedEvent.ID, common.BigToHash(new(big.Int).SetUint64(env.Nonce))},
		Data:    data,
	}
	return rlp.EncodeToBytes(&log)
}
