package xcm

import (
	"fmt"
	"strings"
)

// Opcode is the wire discriminant of an instruction.
type Opcode uint8

const (
	OpWithdrawAsset          Opcode = 0
	OpReserveAssetDeposited  Opcode = 1
	OpReceiveTeleportedAsset Opcode = 2
	OpClearOrigin            Opcode = 10
	OpDescendOrigin          Opcode = 11
	OpDepositAsset           Opcode = 13
	OpBuyExecution           Opcode = 19
	OpRefundSurplus          Opcode = 20
	OpSetErrorHandler        Opcode = 21
	OpSetAppendix            Opcode = 22
	OpClearError             Opcode = 23
	OpExpectAsset            Opcode = 29
	OpUniversalOrigin        Opcode = 37
	OpSetTopic               Opcode = 44
	OpClearTopic             Opcode = 45
	// OpPayFees only exists from version 5 onwards.
	OpPayFees Opcode = 48
)

func (o Opcode) String() string {
	switch o {
	case OpWithdrawAsset:
		return "WithdrawAsset"
	case OpReserveAssetDeposited:
		return "ReserveAssetDeposited"
	case OpReceiveTeleportedAsset:
		return "ReceiveTeleportedAsset"
	case OpClearOrigin:
		return "ClearOrigin"
	case OpDescendOrigin:
		return "DescendOrigin"
	case OpDepositAsset:
		return "DepositAsset"
	case OpBuyExecution:
		return "BuyExecution"
	case OpRefundSurplus:
		return "RefundSurplus"
	case OpSetErrorHandler:
		return "SetErrorHandler"
	case OpSetAppendix:
		return "SetAppendix"
	case OpClearError:
		return "ClearError"
	case OpExpectAsset:
		return "ExpectAsset"
	case OpUniversalOrigin:
		return "UniversalOrigin"
	case OpSetTopic:
		return "SetTopic"
	case OpClearTopic:
		return "ClearTopic"
	case OpPayFees:
		return "PayFees"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(o))
	}
}

// Instruction is a single step of a Program.
type Instruction interface {
	Opcode() Opcode
}

type (
	WithdrawAsset struct {
		Assets Assets
	}

	ReserveAssetDeposited struct {
		Assets Assets
	}

	ReceiveTeleportedAsset struct {
		Assets Assets
	}

	ClearOrigin struct{}

	DescendOrigin struct {
		Interior Junctions
	}

	DepositAsset struct {
		Assets      AssetFilter
		Beneficiary Location
	}

	BuyExecution struct {
		Fees        Asset
		WeightLimit WeightLimit
	}

	RefundSurplus struct{}

	SetErrorHandler struct {
		Program Program
	}

	SetAppendix struct {
		Program Program
	}

	ClearError struct{}

	// ExpectAsset asserts the holding register contains at least the given assets.
	ExpectAsset struct {
		Assets Assets
	}

	UniversalOrigin struct {
		Junction Junction
	}

	SetTopic struct {
		ID [32]byte
	}

	ClearTopic struct{}

	PayFees struct {
		Asset Asset
	}
)

func (WithdrawAsset) Opcode() Opcode          { return OpWithdrawAsset }
func (ReserveAssetDeposited) Opcode() Opcode  { return OpReserveAssetDeposited }
func (ReceiveTeleportedAsset) Opcode() Opcode { return OpReceiveTeleportedAsset }
func (ClearOrigin) Opcode() Opcode            { return OpClearOrigin }
func (DescendOrigin) Opcode() Opcode          { return OpDescendOrigin }
func (DepositAsset) Opcode() Opcode           { return OpDepositAsset }
func (BuyExecution) Opcode() Opcode           { return OpBuyExecution }
func (RefundSurplus) Opcode() Opcode          { return OpRefundSurplus }
func (SetErrorHandler) Opcode() Opcode        { return OpSetErrorHandler }
func (SetAppendix) Opcode() Opcode            { return OpSetAppendix }
func (ClearError) Opcode() Opcode             { return OpClearError }
func (ExpectAsset) Opcode() Opcode            { return OpExpectAsset }
func (UniversalOrigin) Opcode() Opcode        { return OpUniversalOrigin }
func (SetTopic) Opcode() Opcode               { return OpSetTopic }
func (ClearTopic) Opcode() Opcode             { return OpClearTopic }
func (PayFees) Opcode() Opcode                { return OpPayFees }

// Program is an ordered sequence of instructions.
type Program []Instruction

// String renders the opcode sequence, descending into nested programs.
func (p Program) String() string {
	parts := make([]string, len(p))
	for i, inst := range p {
		switch v := inst.(type) {
		case SetErrorHandler:
			parts[i] = "SetErrorHandler" + v.Program.String()
		case SetAppendix:
			parts[i] = "SetAppendix" + v.Program.String()
		case nil:
			parts[i] = "<nil>"
		default:
			parts[i] = inst.Opcode().String()
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
