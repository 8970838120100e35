package outbound

import (
	"errors"
	"fmt"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/assets"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrUnexpectedEndOfXcm            = errors.New("outbound: unexpected end of program")
	ErrEndOfXcmMessageExpected       = errors.New("outbound: instructions left after transfer")
	ErrWithdrawAssetExpected         = errors.New("outbound: WithdrawAsset expected")
	ErrReserveAssetDepositedExpected = errors.New("outbound: ReserveAssetDeposited expected")
	ErrDepositAssetExpected          = errors.New("outbound: DepositAsset expected")
	ErrNoReserveAssets               = errors.New("outbound: no reserve assets")
	ErrFilterDoesNotConsumeAllAssets = errors.New("outbound: deposit filter does not consume all reserved assets")
	ErrTooManyAssets                 = errors.New("outbound: more than one asset")
	ErrZeroAssetTransfer             = errors.New("outbound: zero asset transfer")
	ErrBeneficiaryResolutionFailed   = errors.New("outbound: beneficiary is not an account on the ethereum network")
	ErrAssetResolutionFailed         = errors.New("outbound: asset resolution failed")
	ErrInvalidFeeAsset               = errors.New("outbound: BuyExecution expected")
	ErrSetTopicExpected              = errors.New("outbound: SetTopic expected")
	ErrInvalidAsset                  = errors.New("outbound: asset is not registered")
	ErrUnexpectedInstruction         = errors.New("outbound: unexpected instruction")
	ErrTooManyCommands               = errors.New("outbound: too many commands")
)

// AssetIDConverter resolves a gateway token id to the asset location it was registered for. assets.Registry
// implements it.
type AssetIDConverter interface {
	Location(tokenID common.Hash) (xcm.Location, bool)
}

// Matcher recognises the two transfer programs the gateway can execute:
//
//	WithdrawAsset, [ClearOrigin], BuyExecution, DepositAsset, SetTopic
//	ReserveAssetDeposited, [ClearOrigin], BuyExecution, [ExpectAsset], DepositAsset, SetTopic
//
// and translates them into a single-command Message.
type Matcher struct {
	ethereumNetwork xcm.NetworkID
	agentID         common.Hash
	assets          AssetIDConverter
}

func NewMatcher(ethereumNetwork xcm.NetworkID, agentID common.Hash, assets AssetIDConverter) *Matcher {
	return &Matcher{
		ethereumNetwork: ethereumNetwork,
		agentID:         agentID,
		assets:          assets,
	}
}

// cursor is a forward-only position in a program. Steps take a cursor by value and return the advanced one.
type cursor struct {
	prog xcm.Program
	pos  int
}

func (c cursor) peek() (xcm.Instruction, bool) {
	if c.pos >= len(c.prog) {
		return nil, false
	}
	return c.prog[c.pos], true
}

func (c cursor) next() (xcm.Instruction, cursor, error) {
	inst, ok := c.peek()
	if !ok {
		return nil, c, ErrUnexpectedEndOfXcm
	}
	return inst, cursor{prog: c.prog, pos: c.pos + 1}, nil
}

func (c cursor) done() bool {
	return c.pos >= len(c.prog)
}

// Convert translates prog, which must match one of the transfer grammars exactly.
func (m *Matcher) Convert(prog xcm.Program) (*Message, error) {
	c := cursor{prog: prog}
	first, ok := c.peek()
	if !ok {
		return nil, ErrUnexpectedEndOfXcm
	}

	var (
		msg *Message
		err error
	)
	switch first.(type) {
	case xcm.ReserveAssetDeposited:
		msg, c, err = m.mintForeignToken(c)
	case xcm.WithdrawAsset:
		msg, c, err = m.unlockNativeToken(c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedInstruction, first.Opcode())
	}
	if err != nil {
		return nil, err
	}

	if !c.done() {
		return nil, ErrEndOfXcmMessageExpected
	}
	return msg, nil
}

// unlockNativeToken matches a transfer of a token that lives on the ethereum side back to it.
func (m *Matcher) unlockNativeToken(c cursor) (*Message, cursor, error) {
	t, c, err := m.transfer(c, xcm.OpWithdrawAsset, false)
	if err != nil {
		return nil, c, err
	}

	token, amount, err := m.ethereumToken(t.asset)
	if err != nil {
		return nil, c, err
	}
	if amount.IsZero() {
		return nil, c, ErrZeroAssetTransfer
	}

	topic, c, err := setTopic(c)
	if err != nil {
		return nil, c, err
	}

	msg, err := newMessage(topic, t.fee, UnlockNativeToken{
		AgentID:   m.agentID,
		Token:     token,
		Recipient: t.recipient,
		Amount:    amount,
	})
	return msg, c, err
}

// mintForeignToken matches a transfer of a token that is native to this side.
func (m *Matcher) mintForeignToken(c cursor) (*Message, cursor, error) {
	t, c, err := m.transfer(c, xcm.OpReserveAssetDeposited, true)
	if err != nil {
		return nil, c, err
	}

	amount, err := fungibleAmount(t.asset)
	if err != nil {
		return nil, c, err
	}
	if amount.IsZero() {
		return nil, c, ErrZeroAssetTransfer
	}

	tokenID, err := m.registeredToken(t.asset.ID)
	if err != nil {
		return nil, c, err
	}

	topic, c, err := setTopic(c)
	if err != nil {
		return nil, c, err
	}

	msg, err := newMessage(topic, t.fee, MintForeignToken{
		TokenID:   tokenID,
		Recipient: t.recipient,
		Amount:    amount,
	})
	return msg, c, err
}

// transferFragment is what both grammars share: the fee, the recipient and the single transferred asset.
type transferFragment struct {
	fee       uint256.Int
	recipient common.Address
	asset     xcm.Asset
}

func (m *Matcher) transfer(c cursor, opening xcm.Opcode, allowExpectAsset bool) (transferFragment, cursor, error) {
	reserved, c, err := reserveAssets(c, opening)
	if err != nil {
		return transferFragment{}, c, err
	}

	c = skip(c, xcm.OpClearOrigin)

	fee, c, err := buyExecution(c)
	if err != nil {
		return transferFragment{}, c, err
	}

	if allowExpectAsset {
		c = skip(c, xcm.OpExpectAsset)
	}

	deposit, c, err := depositAsset(c)
	if err != nil {
		return transferFragment{}, c, err
	}

	recipient, err := m.beneficiary(deposit.Beneficiary)
	if err != nil {
		return transferFragment{}, c, err
	}

	asset, err := singleAsset(reserved, deposit.Assets)
	if err != nil {
		return transferFragment{}, c, err
	}

	return transferFragment{fee: fee, recipient: recipient, asset: asset}, c, nil
}

func reserveAssets(c cursor, opening xcm.Opcode) (xcm.Assets, cursor, error) {
	inst, c, err := c.next()
	if err != nil {
		return nil, c, err
	}
	switch v := inst.(type) {
	case xcm.WithdrawAsset:
		if opening == xcm.OpWithdrawAsset {
			return v.Assets, c, nil
		}
	case xcm.ReserveAssetDeposited:
		if opening == xcm.OpReserveAssetDeposited {
			return v.Assets, c, nil
		}
	}
	if opening == xcm.OpWithdrawAsset {
		return nil, c, ErrWithdrawAssetExpected
	}
	return nil, c, ErrReserveAssetDepositedExpected
}

// skip consumes the next instruction if it has the given opcode.
func skip(c cursor, op xcm.Opcode) cursor {
	if inst, ok := c.peek(); ok && inst.Opcode() == op {
		_, c, _ = c.next()
	}
	return c
}

func buyExecution(c cursor) (uint256.Int, cursor, error) {
	inst, c, err := c.next()
	if err != nil {
		return uint256.Int{}, c, err
	}
	buy, ok := inst.(xcm.BuyExecution)
	if !ok {
		return uint256.Int{}, c, ErrInvalidFeeAsset
	}
	fee, err := fungibleAmount(buy.Fees)
	return fee, c, err
}

func depositAsset(c cursor) (xcm.DepositAsset, cursor, error) {
	inst, c, err := c.next()
	if err != nil {
		return xcm.DepositAsset{}, c, err
	}
	deposit, ok := inst.(xcm.DepositAsset)
	if !ok {
		return xcm.DepositAsset{}, c, ErrDepositAssetExpected
	}
	return deposit, c, nil
}

func setTopic(c cursor) (common.Hash, cursor, error) {
	inst, c, err := c.next()
	if err != nil {
		return common.Hash{}, c, err
	}
	topic, ok := inst.(xcm.SetTopic)
	if !ok {
		return common.Hash{}, c, ErrSetTopicExpected
	}
	return topic.ID, c, nil
}

func (m *Matcher) networkMatches(n xcm.NetworkID) bool {
	return !n.IsSpecified() || n == m.ethereumNetwork
}

// ethereumKey returns the key of a location that is a bare account key on the ethereum network.
func (m *Matcher) ethereumKey(loc xcm.Location) (common.Address, bool) {
	if loc.Parents != 0 || len(loc.Interior) != 1 {
		return common.Address{}, false
	}
	key, ok := loc.Interior[0].(xcm.AccountKey20)
	if !ok || !m.networkMatches(key.Network) {
		return common.Address{}, false
	}
	return common.Address(key.Key), true
}

func (m *Matcher) beneficiary(loc xcm.Location) (common.Address, error) {
	recipient, ok := m.ethereumKey(loc)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrBeneficiaryResolutionFailed, loc)
	}
	return recipient, nil
}

// singleAsset checks that the deposit consumes exactly the one reserved asset.
func singleAsset(reserved xcm.Assets, filter xcm.AssetFilter) (xcm.Asset, error) {
	if len(reserved) == 0 {
		return xcm.Asset{}, ErrNoReserveAssets
	}
	if filter == nil {
		return xcm.Asset{}, ErrFilterDoesNotConsumeAllAssets
	}
	for _, a := range reserved {
		if !filter.Matches(a) {
			return xcm.Asset{}, ErrFilterDoesNotConsumeAllAssets
		}
	}
	if len(reserved) != 1 {
		return xcm.Asset{}, ErrTooManyAssets
	}
	return reserved[0], nil
}

// fungibleAmount returns the amount of a fungible asset. Amounts wider than the gateway's uint128 are refused
// rather than narrowed.
func fungibleAmount(a xcm.Asset) (uint256.Int, error) {
	amount, ok := a.FungibleAmount()
	if !ok {
		return uint256.Int{}, fmt.Errorf("%w: %s is not fungible", ErrAssetResolutionFailed, a)
	}
	if amount.BitLen() > 128 {
		return uint256.Int{}, fmt.Errorf("%w: %s exceeds 128 bits", ErrAssetResolutionFailed, a)
	}
	return amount, nil
}

func (m *Matcher) ethereumToken(a xcm.Asset) (common.Address, uint256.Int, error) {
	amount, err := fungibleAmount(a)
	if err != nil {
		return common.Address{}, uint256.Int{}, err
	}
	token, ok := m.ethereumKey(a.ID)
	if !ok {
		return common.Address{}, uint256.Int{}, fmt.Errorf("%w: %s is not an ethereum token", ErrAssetResolutionFailed, a.ID)
	}
	return token, amount, nil
}

// registeredToken resolves the token id of loc and checks that the registry maps it back to the same location.
func (m *Matcher) registeredToken(loc xcm.Location) (common.Hash, error) {
	tokenID, ok := assets.TokenIDOf(loc)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %s has no token id", ErrInvalidAsset, loc)
	}
	expected, ok := m.assets.Location(tokenID)
	if !ok || !expected.Equal(loc) {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrInvalidAsset, loc)
	}
	return tokenID, nil
}

func newMessage(topic common.Hash, fee uint256.Int, commands ...Command) (*Message, error) {
	if len(commands) > MaxCommands {
		return nil, ErrTooManyCommands
	}
	return &Message{
		ID:       topic,
		Origin:   common.Hash{},
		Fee:      fee,
		Commands: commands,
	}, nil
}
