package inbound

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
)

// Payload is the gateway-defined message carried by an Envelope: a fee and an encoded instruction program.
type Payload struct {
	Fee uint256.Int
	XCM []byte
}

var payloadFields abi.Arguments

func init() {
	uint128Ty, err := abi.NewType("uint128", "", nil)
	if err != nil {
		panic(err)
	}
	bytesTy, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	payloadFields = abi.Arguments{
		{Name: "fee", Type: uint128Ty},
		{Name: "xcm", Type: bytesTy},
	}
}

// DecodePayload decodes the ABI tuple (uint128 fee, bytes xcm). Input must be in canonical form and consumed
// exactly; every failure is reported as ErrInvalidPayload.
func DecodePayload(data []byte) (*Payload, error) {
	values, err := payloadFields.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("%w: expected 2 fields, got %d", ErrInvalidPayload, len(values))
	}

	fee, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: fee has type %T", ErrInvalidPayload, values[0])
	}
	if fee.Sign() < 0 || fee.BitLen() > 128 {
		return nil, fmt.Errorf("%w: fee does not fit in 128 bits", ErrInvalidPayload)
	}
	program, ok := values[1].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: xcm has type %T", ErrInvalidPayload, values[1])
	}

	canonical, err := payloadFields.Pack(fee, program)
	if err != nil || !bytes.Equal(canonical, data) {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrInvalidPayload)
	}

	p := &Payload{XCM: program}
	p.Fee.SetFromBig(fee)
	return p, nil
}

// EncodePayload is the inverse of DecodePayload.
func EncodePayload(p *Payload) ([]byte, error) {
	if p.Fee.BitLen() > 128 {
		return nil, fmt.Errorf("%w: fee does not fit in 128 bits", ErrInvalidPayload)
	}
	xcm := p.XCM
	if xcm == nil {
		xcm = []byte{}
	}
	return payloadFields.Pack(p.Fee.ToBig(), xcm)
}
