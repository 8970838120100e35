package outbound

import (
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	testEthereum  = xcm.Ethereum(11155111)
	testRelay     = xcm.Relay(xcm.NetworkPolkadot)
	testUniversal = xcm.Junctions{xcm.GlobalConsensus{Network: testRelay}, xcm.Parachain(1002)}
	assetHub      = xcm.Junctions{xcm.GlobalConsensus{Network: testRelay}, xcm.Parachain(1000)}

	wethKey   = [20]byte{0xfF, 0xf9, 0x97, 0x67, 0x82, 0xd4, 0x6c, 0xc0, 0x56, 0x30, 0xd1, 0xf6, 0xeb, 0xab, 0x18, 0xb2, 0x32, 0x4d, 0x6b, 0x14}
	recipient = common.Address{0xcd, 0xcd, 0xcd}
	topicU    = common.Hash{0x55, 0x55}

	weth        = xcm.NewLocation(0, xcm.AccountKey20{Network: testEthereum, Key: wethKey})
	beneficiary = xcm.NewLocation(0, xcm.AccountKey20{Key: recipient})
	dot         = xcm.Parent()
)

func feeInstruction(fee uint64) xcm.BuyExecution {
	return xcm.BuyExecution{Fees: xcm.NewFungible(weth, fee), WeightLimit: xcm.Unlimited}
}

func depositAll() xcm.DepositAsset {
	return xcm.DepositAsset{Assets: xcm.WildAllCounted{Count: 1}, Beneficiary: beneficiary}
}

func setTopicU() xcm.SetTopic {
	return xcm.SetTopic{ID: topicU}
}

// withdrawTransfer is the canonical program returning an ethereum token.
func withdrawTransfer(as ...xcm.Asset) xcm.Program {
	return xcm.Program{
		xcm.WithdrawAsset{Assets: as},
		xcm.ClearOrigin{},
		feeInstruction(5),
		depositAll(),
		setTopicU(),
	}
}

// reserveTransfer is the canonical program sending a token native to this side.
func reserveTransfer(as ...xcm.Asset) xcm.Program {
	return xcm.Program{
		xcm.ReserveAssetDeposited{Assets: as},
		xcm.ClearOrigin{},
		feeInstruction(5),
		depositAll(),
		setTopicU(),
	}
}

// converterFunc adapts a function to AssetIDConverter.
type converterFunc func(common.Hash) (xcm.Location, bool)

func (f converterFunc) Location(id common.Hash) (xcm.Location, bool) {
	return f(id)
}

type mockQueue struct {
	validateErr error
	deliverErr  error
	validated   []*Message
	delivered   map[common.Hash]bool
}

func newMockQueue() *mockQueue {
	return &mockQueue{delivered: make(map[common.Hash]bool)}
}

func (q *mockQueue) Validate(msg *Message) ([]byte, Fee, error) {
	if q.validateErr != nil {
		return nil, Fee{}, q.validateErr
	}
	q.validated = append(q.validated, msg)
	return msg.ID.Bytes(), Fee{Local: *uint256.NewInt(3), Remote: *uint256.NewInt(4)}, nil
}

func (q *mockQueue) Deliver(ticket []byte) (common.Hash, error) {
	if q.deliverErr != nil {
		return common.Hash{}, q.deliverErr
	}
	if len(ticket) != common.HashLength {
		return common.Hash{}, ErrUndecodableTicket
	}
	id := common.BytesToHash(ticket)
	if q.delivered[id] {
		return common.Hash{}, ErrTicketSpent
	}
	q.delivered[id] = true
	return id, nil
}
