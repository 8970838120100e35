package outbound

import (
	"testing"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/assets"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAgent = common.Hash{0xa9}

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	registry := assets.NewRegistry()
	_, err := registry.Register(dot)
	require.NoError(t, err)
	return NewMatcher(testEthereum, testAgent, registry)
}

func TestConvertUnlockNativeToken(t *testing.T) {
	msg, err := newTestMatcher(t).Convert(withdrawTransfer(xcm.NewFungible(weth, 100)))
	require.NoError(t, err)

	assert.Equal(t, &Message{
		ID:     topicU,
		Origin: common.Hash{},
		Fee:    *uint256.NewInt(5),
		Commands: []Command{UnlockNativeToken{
			AgentID:   testAgent,
			Token:     common.Address(wethKey),
			Recipient: recipient,
			Amount:    *uint256.NewInt(100),
		}},
	}, msg)
}

func TestConvertMintForeignToken(t *testing.T) {
	msg, err := newTestMatcher(t).Convert(reserveTransfer(xcm.NewFungible(dot, 50)))
	require.NoError(t, err)

	require.Len(t, msg.Commands, 1)
	assert.Equal(t, MintForeignToken{
		TokenID:   assets.MustTokenIDOf(dot),
		Recipient: recipient,
		Amount:    *uint256.NewInt(50),
	}, msg.Commands[0])
	assert.Equal(t, topicU, msg.ID)
	assert.Equal(t, uint64(5), msg.Fee.Uint64())
}

func TestConvertOptionalSteps(t *testing.T) {
	m := newTestMatcher(t)

	tests := map[string]xcm.Program{
		"withdraw without clear origin": {
			xcm.WithdrawAsset{Assets: xcm.Assets{xcm.NewFungible(weth, 1)}},
			feeInstruction(5),
			depositAll(),
			setTopicU(),
		},
		"reserve with expect asset": {
			xcm.ReserveAssetDeposited{Assets: xcm.Assets{xcm.NewFungible(dot, 1)}},
			xcm.ClearOrigin{},
			feeInstruction(5),
			xcm.ExpectAsset{Assets: xcm.Assets{xcm.NewFungible(dot, 1)}},
			depositAll(),
			setTopicU(),
		},
		"definite filter": {
			xcm.WithdrawAsset{Assets: xcm.Assets{xcm.NewFungible(weth, 1)}},
			feeInstruction(5),
			xcm.DepositAsset{Assets: xcm.Definite{Assets: xcm.Assets{xcm.NewFungible(weth, 1)}}, Beneficiary: beneficiary},
			setTopicU(),
		},
		"beneficiary on ethereum network": {
			xcm.WithdrawAsset{Assets: xcm.Assets{xcm.NewFungible(weth, 1)}},
			feeInstruction(5),
			xcm.DepositAsset{
				Assets:      xcm.WildAll{},
				Beneficiary: xcm.NewLocation(0, xcm.AccountKey20{Network: testEthereum, Key: recipient}),
			},
			setTopicU(),
		},
	}

	for name, prog := range tests {
		t.Run(name, func(t *testing.T) {
			msg, err := m.Convert(prog)
			require.NoError(t, err)
			require.Len(t, msg.Commands, 1)
		})
	}
}

func TestConvertRejects(t *testing.T) {
	replace := func(prog xcm.Program, i int, inst xcm.Instruction) xcm.Program {
		out := append(xcm.Program(nil), prog...)
		out[i] = inst
		return out
	}
	remove := func(prog xcm.Program, i int) xcm.Program {
		out := append(xcm.Program(nil), prog[:i]...)
		return append(out, prog[i+1:]...)
	}

	withdraw := withdrawTransfer(xcm.NewFungible(weth, 100))
	reserve := reserveTransfer(xcm.NewFungible(dot, 50))
	otherNetwork := xcm.Ethereum(1)
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	unregistered := xcm.NewLocation(1, xcm.Parachain(2000))

	tests := map[string]struct {
		prog      xcm.Program
		converter AssetIDConverter
		err       error
	}{
		"empty program":         {prog: nil, err: ErrUnexpectedEndOfXcm},
		"unknown opening":       {prog: xcm.Program{xcm.ClearOrigin{}}, err: ErrUnexpectedInstruction},
		"teleport opening":      {prog: replace(withdraw, 0, xcm.ReceiveTeleportedAsset{}), err: ErrUnexpectedInstruction},
		"only opening":          {prog: withdraw[:1], err: ErrUnexpectedEndOfXcm},
		"missing buy execution": {prog: remove(withdraw, 2), err: ErrInvalidFeeAsset},
		"non-fungible fee": {
			prog: replace(withdraw, 2, xcm.BuyExecution{Fees: xcm.Asset{ID: weth, Fun: xcm.NonFungible{}}}),
			err:  ErrAssetResolutionFailed,
		},
		"missing deposit":          {prog: remove(withdraw, 3), err: ErrDepositAssetExpected},
		"expect asset on withdraw": {prog: append(withdraw[:3:3], append(xcm.Program{xcm.ExpectAsset{}}, withdraw[3:]...)...), err: ErrDepositAssetExpected},
		"beneficiary not local": {
			prog: replace(withdraw, 3, xcm.DepositAsset{Assets: xcm.WildAll{}, Beneficiary: xcm.NewLocation(1, xcm.AccountKey20{Key: recipient})}),
			err:  ErrBeneficiaryResolutionFailed,
		},
		"beneficiary on other network": {
			prog: replace(withdraw, 3, xcm.DepositAsset{Assets: xcm.WildAll{}, Beneficiary: xcm.NewLocation(0, xcm.AccountKey20{Network: otherNetwork, Key: recipient})}),
			err:  ErrBeneficiaryResolutionFailed,
		},
		"beneficiary is a substrate account": {
			prog: replace(withdraw, 3, xcm.DepositAsset{Assets: xcm.WildAll{}, Beneficiary: xcm.NewLocation(0, xcm.AccountID32{})}),
			err:  ErrBeneficiaryResolutionFailed,
		},
		"no reserve assets": {prog: withdrawTransfer(), err: ErrNoReserveAssets},
		"filter misses asset": {
			prog: replace(withdraw, 3, xcm.DepositAsset{Assets: xcm.WildAllOf{ID: dot, Fun: xcm.WildFungible}, Beneficiary: beneficiary}),
			err:  ErrFilterDoesNotConsumeAllAssets,
		},
		"filter counts zero assets": {
			prog: replace(withdraw, 3, xcm.DepositAsset{Assets: xcm.WildAllCounted{Count: 0}, Beneficiary: beneficiary}),
			err:  ErrFilterDoesNotConsumeAllAssets,
		},
		"too many assets": {prog: withdrawTransfer(xcm.NewFungible(weth, 1), xcm.NewFungible(weth, 2)), err: ErrTooManyAssets},
		"not a token":     {prog: withdrawTransfer(xcm.NewFungible(dot, 1)), err: ErrAssetResolutionFailed},
		"token on other network": {
			prog: withdrawTransfer(xcm.NewFungible(xcm.NewLocation(0, xcm.AccountKey20{Network: otherNetwork, Key: wethKey}), 1)),
			err:  ErrAssetResolutionFailed,
		},
		"non-fungible asset": {prog: withdrawTransfer(xcm.Asset{ID: weth, Fun: xcm.NonFungible{}}), err: ErrAssetResolutionFailed},
		"amount over 128 bits": {
			prog: withdrawTransfer(xcm.Asset{ID: weth, Fun: xcm.Fungible{Amount: *huge}}),
			err:  ErrAssetResolutionFailed,
		},
		"zero withdraw":        {prog: withdrawTransfer(xcm.NewFungible(weth, 0)), err: ErrZeroAssetTransfer},
		"zero reserve":         {prog: reserveTransfer(xcm.NewFungible(dot, 0)), err: ErrZeroAssetTransfer},
		"missing topic":        {prog: withdraw[:4], err: ErrUnexpectedEndOfXcm},
		"clear topic":          {prog: replace(withdraw, 4, xcm.ClearTopic{}), err: ErrSetTopicExpected},
		"trailing instruction": {prog: append(append(xcm.Program(nil), withdraw...), xcm.ClearOrigin{}), err: ErrEndOfXcmMessageExpected},
		"trailing on reserve":  {prog: append(append(xcm.Program(nil), reserve...), xcm.RefundSurplus{}), err: ErrEndOfXcmMessageExpected},
		"unregistered asset":   {prog: reserveTransfer(xcm.NewFungible(unregistered, 1)), err: ErrInvalidAsset},
		"undescribable asset":  {prog: reserveTransfer(xcm.NewFungible(xcm.Here(), 1)), err: ErrInvalidAsset},
		"registry disagrees": {
			prog: reserve,
			converter: converterFunc(func(common.Hash) (xcm.Location, bool) {
				return unregistered, true
			}),
			err: ErrInvalidAsset,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			m := newTestMatcher(t)
			if tc.converter != nil {
				m = NewMatcher(testEthereum, testAgent, tc.converter)
			}
			msg, err := m.Convert(tc.prog)
			assert.ErrorIs(t, err, tc.err)
			assert.Nil(t, msg)
		})
	}
}

func TestFeeTotal(t *testing.T) {
	maxU128 := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
	maxU256 := new(uint256.Int).SetAllOne()

	tests := map[string]struct {
		fee      Fee
		expected *uint256.Int
	}{
		"sum":                {Fee{Local: *uint256.NewInt(3), Remote: *uint256.NewInt(4)}, uint256.NewInt(7)},
		"exactly u128 max":   {Fee{Local: *maxU128}, maxU128},
		"sum above u128":     {Fee{Local: *maxU128, Remote: *uint256.NewInt(1)}, maxU128},
		"wide local":         {Fee{Local: *new(uint256.Int).Lsh(uint256.NewInt(1), 200)}, maxU128},
		"sum overflows u256": {Fee{Local: *maxU256, Remote: *uint256.NewInt(1)}, maxU128},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			total := tc.fee.Total()
			assert.Equal(t, *tc.expected, total)
			assert.LessOrEqual(t, total.BitLen(), 128)
		})
	}
}

// TestSingleAssetProperty checks that only programs reserving exactly one non-zero asset produce a command.
func TestSingleAssetProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	registry := assets.NewRegistry()
	if _, err := registry.Register(dot); err != nil {
		t.Fatal(err)
	}
	m := NewMatcher(testEthereum, testAgent, registry)

	properties.Property("withdraw transfers need exactly one asset", prop.ForAll(
		func(count int, amount uint64) bool {
			as := make(xcm.Assets, count)
			for i := range as {
				as[i] = xcm.NewFungible(weth, amount)
			}
			msg, err := m.Convert(withdrawTransfer(as...))
			switch {
			case count == 0:
				return assert.ErrorIs(t, err, ErrNoReserveAssets)
			case count > 1:
				return assert.ErrorIs(t, err, ErrTooManyAssets)
			case amount == 0:
				return assert.ErrorIs(t, err, ErrZeroAssetTransfer)
			default:
				return err == nil && len(msg.Commands) == 1
			}
		},
		gen.IntRange(0, xcm.MaxAssets),
		gen.UInt64Range(0, 1<<20),
	))

	properties.Property("reserve transfers need exactly one asset", prop.ForAll(
		func(count int, amount uint64) bool {
			as := make(xcm.Assets, count)
			for i := range as {
				as[i] = xcm.NewFungible(dot, amount)
			}
			msg, err := m.Convert(reserveTransfer(as...))
			switch {
			case count == 0:
				return assert.ErrorIs(t, err, ErrNoReserveAssets)
			case count > 1:
				return assert.ErrorIs(t, err, ErrTooManyAssets)
			case amount == 0:
				return assert.ErrorIs(t, err, ErrZeroAssetTransfer)
			default:
				return err == nil && len(msg.Commands) == 1
			}
		},
		gen.IntRange(0, xcm.MaxAssets),
		gen.UInt64Range(0, 1<<20),
	))

	properties.TestingRun(t)
}
