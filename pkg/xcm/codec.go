package xcm

import (
	"bytes"
	"fmt"
	"math"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/holiman/uint256"
)

const (
	// MaxDecodeDepth bounds how deeply programs may nest (SetErrorHandler, SetAppendix) on decode,
	// counting the outermost program.
	MaxDecodeDepth = 8
	// MaxInstructions bounds the length of a single program.
	MaxInstructions = 100
	MaxAssets       = 20
	MaxJunctions    = 8

	maxGeneralKeyLength = 32
)

// DecodeVersioned decodes a version-tagged program. Nested programs consume the depthLimit budget and decoding fails
// with ErrDepthLimitExceeded once it is exhausted. The input must be consumed exactly.
func DecodeVersioned(data []byte, depthLimit int) (*Versioned, error) {
	reader := bytes.NewReader(data)
	d := &decoder{Decoder: scale.NewDecoder(reader), depth: depthLimit}

	b, err := d.ReadOneByte()
	if err != nil {
		return nil, &DecodeError{What: "version", Err: err}
	}
	version := Version(b)
	if !SupportedVersions[version] {
		return nil, &DecodeError{What: "version", Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, b)}
	}

	d.version = version
	prog, err := d.program(version)
	if err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, &DecodeError{What: "program", Err: fmt.Errorf("%w: %d", ErrTrailingBytes, reader.Len())}
	}

	return &Versioned{Version: version, Program: prog}, nil
}

// EncodeVersioned is the inverse of DecodeVersioned.
func EncodeVersioned(v *Versioned) ([]byte, error) {
	if !SupportedVersions[v.Version] {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v.Version)
	}
	buf := new(bytes.Buffer)
	e := &encoder{Encoder: scale.NewEncoder(buf), version: v.Version}
	if err := e.PushByte(byte(v.Version)); err != nil {
		return nil, err
	}
	if err := e.program(v.Program); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeLocation returns the canonical encoding of a location, as used for hashed descriptions.
func EncodeLocation(l Location) ([]byte, error) {
	buf := new(bytes.Buffer)
	e := &encoder{Encoder: scale.NewEncoder(buf), version: CurrentVersion}
	if err := e.location(l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeCompact returns the compact encoding of v.
func EncodeCompact(v uint64) []byte {
	buf := new(bytes.Buffer)
	e := scale.NewEncoder(buf)
	if err := e.EncodeUintCompact(*new(big.Int).SetUint64(v)); err != nil {
		panic(fmt.Errorf("failed to encode compact: %w", err).Error())
	}
	return buf.Bytes()
}

type decoder struct {
	*scale.Decoder
	// depth is the remaining nesting budget.
	depth   int
	version Version
}

func wrap(what string, err error) error {
	if _, ok := err.(*DecodeError); ok {
		return err
	}
	return &DecodeError{What: what, Err: err}
}

func (d *decoder) compact(what string) (*big.Int, error) {
	v, err := d.DecodeUintCompact()
	if err != nil {
		return nil, wrap(what, err)
	}
	return v, nil
}

func (d *decoder) compactU32(what string) (uint32, error) {
	v, err := d.compact(what)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > math.MaxUint32 {
		return 0, wrap(what, ErrAmountOverflow)
	}
	return uint32(v.Uint64()), nil
}

func (d *decoder) compactU64(what string) (uint64, error) {
	v, err := d.compact(what)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, wrap(what, ErrAmountOverflow)
	}
	return v.Uint64(), nil
}

func (d *decoder) compactU128(what string) (uint256.Int, error) {
	v, err := d.compact(what)
	if err != nil {
		return uint256.Int{}, err
	}
	if v.BitLen() > 128 {
		return uint256.Int{}, wrap(what, ErrAmountOverflow)
	}
	u, _ := uint256.FromBig(v)
	return *u, nil
}

// length reads a collection length and rejects it if it exceeds max before anything is allocated.
func (d *decoder) length(what string, max int) (int, error) {
	v, err := d.compact(what + " length")
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > uint64(max) {
		return 0, wrap(what, fmt.Errorf("%w: %s > %d", ErrTooManyItems, v, max))
	}
	return int(v.Uint64()), nil
}

func (d *decoder) byteValue(what string) (byte, error) {
	b, err := d.ReadOneByte()
	if err != nil {
		return 0, wrap(what, err)
	}
	return b, nil
}

func (d *decoder) fixed(what string, out []byte) error {
	if err := d.Read(out); err != nil {
		return wrap(what, err)
	}
	return nil
}

func (d *decoder) program(v Version) (Program, error) {
	if d.depth <= 0 {
		return nil, wrap("program", ErrDepthLimitExceeded)
	}
	d.depth--
	defer func() { d.depth++ }()

	n, err := d.length("instructions", MaxInstructions)
	if err != nil || n == 0 {
		return nil, err
	}
	prog := make(Program, 0, n)
	for i := 0; i < n; i++ {
		inst, err := d.instruction(v)
		if err != nil {
			return nil, err
		}
		prog = append(prog, inst)
	}
	return prog, nil
}

func (d *decoder) instruction(v Version) (Instruction, error) {
	b, err := d.byteValue("opcode")
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	if introducedIn(op) > v {
		return nil, wrap("opcode", fmt.Errorf("%w: %s in version %d", ErrUnknownVariant, op, v))
	}

	switch op {
	case OpWithdrawAsset:
		as, err := d.assets()
		return WithdrawAsset{Assets: as}, err
	case OpReserveAssetDeposited:
		as, err := d.assets()
		return ReserveAssetDeposited{Assets: as}, err
	case OpReceiveTeleportedAsset:
		as, err := d.assets()
		return ReceiveTeleportedAsset{Assets: as}, err
	case OpExpectAsset:
		as, err := d.assets()
		return ExpectAsset{Assets: as}, err
	case OpClearOrigin:
		return ClearOrigin{}, nil
	case OpRefundSurplus:
		return RefundSurplus{}, nil
	case OpClearError:
		return ClearError{}, nil
	case OpClearTopic:
		return ClearTopic{}, nil
	case OpDescendOrigin:
		js, err := d.junctions()
		return DescendOrigin{Interior: js}, err
	case OpDepositAsset:
		filter, err := d.assetFilter()
		if err != nil {
			return nil, err
		}
		beneficiary, err := d.location()
		if err != nil {
			return nil, err
		}
		return DepositAsset{Assets: filter, Beneficiary: beneficiary}, nil
	case OpBuyExecution:
		fees, err := d.asset()
		if err != nil {
			return nil, err
		}
		limit, err := d.weightLimit()
		if err != nil {
			return nil, err
		}
		return BuyExecution{Fees: fees, WeightLimit: limit}, nil
	case OpSetErrorHandler:
		p, err := d.program(v)
		return SetErrorHandler{Program: p}, err
	case OpSetAppendix:
		p, err := d.program(v)
		return SetAppendix{Program: p}, err
	case OpUniversalOrigin:
		j, err := d.junction()
		return UniversalOrigin{Junction: j}, err
	case OpSetTopic:
		var t SetTopic
		err := d.fixed("topic", t.ID[:])
		return t, err
	case OpPayFees:
		a, err := d.asset()
		return PayFees{Asset: a}, err
	default:
		return nil, wrap("opcode", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

func (d *decoder) network() (NetworkID, error) {
	b, err := d.byteValue("network")
	if err != nil {
		return NetworkID{}, err
	}
	switch b {
	case 0:
		n := NetworkID{Kind: NetworkByGenesis}
		err := d.fixed("genesis", n.Genesis[:])
		return n, err
	case 2:
		return Relay(NetworkPolkadot), nil
	case 3:
		return Relay(NetworkKusama), nil
	case 4:
		return Relay(NetworkWestend), nil
	case 5:
		return Relay(NetworkRococo), nil
	case 7:
		chainID, err := d.compactU64("chain id")
		return Ethereum(chainID), err
	default:
		return NetworkID{}, wrap("network", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

func (d *decoder) optionalNetwork() (NetworkID, error) {
	b, err := d.byteValue("network option")
	if err != nil {
		return NetworkID{}, err
	}
	switch b {
	case 0:
		return NetworkID{}, nil
	case 1:
		return d.network()
	default:
		return NetworkID{}, wrap("network option", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

func (d *decoder) junction() (Junction, error) {
	b, err := d.byteValue("junction")
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		id, err := d.compactU32("parachain")
		return Parachain(id), err
	case 1:
		net, err := d.optionalNetwork()
		if err != nil {
			return nil, err
		}
		j := AccountID32{Network: net}
		err = d.fixed("account id", j.ID[:])
		return j, err
	case 3:
		net, err := d.optionalNetwork()
		if err != nil {
			return nil, err
		}
		j := AccountKey20{Network: net}
		err = d.fixed("account key", j.Key[:])
		return j, err
	case 4:
		p, err := d.byteValue("pallet instance")
		return PalletInstance(p), err
	case 5:
		idx, err := d.compactU128("general index")
		return GeneralIndex{Index: idx}, err
	case 6:
		l, err := d.byteValue("general key length")
		if err != nil {
			return nil, err
		}
		if l > maxGeneralKeyLength {
			return nil, wrap("general key", fmt.Errorf("%w: length %d", ErrInvalidValue, l))
		}
		j := GeneralKey{Length: l}
		err = d.fixed("general key", j.Data[:])
		return j, err
	case 7:
		return OnlyChild{}, nil
	case 9:
		net, err := d.network()
		return GlobalConsensus{Network: net}, err
	default:
		return nil, wrap("junction", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

func (d *decoder) junctions() (Junctions, error) {
	n, err := d.byteValue("junctions")
	if err != nil {
		return nil, err
	}
	if n > MaxJunctions {
		return nil, wrap("junctions", fmt.Errorf("%w: %d > %d", ErrTooManyItems, n, MaxJunctions))
	}
	if n == 0 {
		return nil, nil
	}
	js := make(Junctions, 0, n)
	for i := 0; i < int(n); i++ {
		j, err := d.junction()
		if err != nil {
			return nil, err
		}
		js = append(js, j)
	}
	return js, nil
}

func (d *decoder) location() (Location, error) {
	parents, err := d.byteValue("parents")
	if err != nil {
		return Location{}, err
	}
	interior, err := d.junctions()
	if err != nil {
		return Location{}, err
	}
	return Location{Parents: parents, Interior: interior}, nil
}

// assetID reads an asset id. V3 prefixes the location with an AssetId tag; only Concrete ids map to a location.
func (d *decoder) assetID() (Location, error) {
	if d.version == V3 {
		tag, err := d.byteValue("asset id")
		if err != nil {
			return Location{}, err
		}
		switch tag {
		case 0:
		case 1:
			return Location{}, wrap("asset id", fmt.Errorf("%w: abstract asset id", ErrVersionIncompatible))
		default:
			return Location{}, wrap("asset id", fmt.Errorf("%w: %d", ErrUnknownVariant, tag))
		}
	}
	return d.location()
}

func (d *decoder) asset() (Asset, error) {
	id, err := d.assetID()
	if err != nil {
		return Asset{}, err
	}
	b, err := d.byteValue("fungibility")
	if err != nil {
		return Asset{}, err
	}
	switch b {
	case 0:
		amount, err := d.compactU128("amount")
		return Asset{ID: id, Fun: Fungible{Amount: amount}}, err
	case 1:
		inst, err := d.assetInstance()
		return Asset{ID: id, Fun: NonFungible{Instance: inst}}, err
	default:
		return Asset{}, wrap("fungibility", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

func (d *decoder) assetInstance() (AssetInstance, error) {
	b, err := d.byteValue("asset instance")
	if err != nil {
		return AssetInstance{}, err
	}
	inst := AssetInstance{Kind: InstanceKind(b)}
	switch inst.Kind {
	case InstanceUndefined:
		return inst, nil
	case InstanceIndex:
		inst.Index, err = d.compactU128("instance index")
		return inst, err
	case InstanceArray4, InstanceArray8, InstanceArray16, InstanceArray32:
		err = d.fixed("instance data", inst.Data[:inst.Kind.arrayLen()])
		return inst, err
	default:
		return AssetInstance{}, wrap("asset instance", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

func (d *decoder) assets() (Assets, error) {
	n, err := d.length("assets", MaxAssets)
	if err != nil || n == 0 {
		return nil, err
	}
	as := make(Assets, 0, n)
	for i := 0; i < n; i++ {
		a, err := d.asset()
		if err != nil {
			return nil, err
		}
		as = append(as, a)
	}
	return as, nil
}

func (d *decoder) wildFungibility() (WildFungibility, error) {
	b, err := d.byteValue("wild fungibility")
	if err != nil {
		return 0, err
	}
	if b > byte(WildNonFungible) {
		return 0, wrap("wild fungibility", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
	return WildFungibility(b), nil
}

func (d *decoder) assetFilter() (AssetFilter, error) {
	b, err := d.byteValue("asset filter")
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		as, err := d.assets()
		return Definite{Assets: as}, err
	case 1:
		return d.wildAsset()
	default:
		return nil, wrap("asset filter", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

func (d *decoder) wildAsset() (AssetFilter, error) {
	b, err := d.byteValue("wild asset")
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		return WildAll{}, nil
	case 1, 3:
		id, err := d.assetID()
		if err != nil {
			return nil, err
		}
		fun, err := d.wildFungibility()
		if err != nil {
			return nil, err
		}
		if b == 1 {
			return WildAllOf{ID: id, Fun: fun}, nil
		}
		count, err := d.compactU32("count")
		return WildAllOfCounted{ID: id, Fun: fun, Count: count}, err
	case 2:
		count, err := d.compactU32("count")
		return WildAllCounted{Count: count}, err
	default:
		return nil, wrap("wild asset", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

func (d *decoder) weightLimit() (WeightLimit, error) {
	b, err := d.byteValue("weight limit")
	if err != nil {
		return WeightLimit{}, err
	}
	switch b {
	case 0:
		return Unlimited, nil
	case 1:
		refTime, err := d.compactU64("ref time")
		if err != nil {
			return WeightLimit{}, err
		}
		proofSize, err := d.compactU64("proof size")
		return WeightLimit{Limited: true, RefTime: refTime, ProofSize: proofSize}, err
	default:
		return WeightLimit{}, wrap("weight limit", fmt.Errorf("%w: %d", ErrUnknownVariant, b))
	}
}

type encoder struct {
	*scale.Encoder
	version Version
}

func (e *encoder) compactU64(v uint64) error {
	return e.EncodeUintCompact(*new(big.Int).SetUint64(v))
}

func (e *encoder) compactU128(v uint256.Int) error {
	if v.BitLen() > 128 {
		return ErrAmountOverflow
	}
	return e.EncodeUintCompact(*v.ToBig())
}

func (e *encoder) length(n int, max int) error {
	if n > max {
		return fmt.Errorf("%w: %d > %d", ErrTooManyItems, n, max)
	}
	return e.compactU64(uint64(n))
}

func (e *encoder) program(p Program) error {
	if err := e.length(len(p), MaxInstructions); err != nil {
		return err
	}
	for _, inst := range p {
		if err := e.instruction(inst); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) instruction(inst Instruction) error {
	if inst == nil {
		return fmt.Errorf("%w: nil instruction", ErrInvalidValue)
	}
	if introducedIn(inst.Opcode()) > e.version {
		return fmt.Errorf("%w: %s in version %d", ErrUnknownVariant, inst.Opcode(), e.version)
	}
	if err := e.PushByte(byte(inst.Opcode())); err != nil {
		return err
	}

	switch v := inst.(type) {
	case WithdrawAsset:
		return e.assets(v.Assets)
	case ReserveAssetDeposited:
		return e.assets(v.Assets)
	case ReceiveTeleportedAsset:
		return e.assets(v.Assets)
	case ExpectAsset:
		return e.assets(v.Assets)
	case ClearOrigin, RefundSurplus, ClearError, ClearTopic:
		return nil
	case DescendOrigin:
		return e.junctions(v.Interior)
	case DepositAsset:
		if err := e.assetFilter(v.Assets); err != nil {
			return err
		}
		return e.location(v.Beneficiary)
	case BuyExecution:
		if err := e.asset(v.Fees); err != nil {
			return err
		}
		return e.weightLimit(v.WeightLimit)
	case SetErrorHandler:
		return e.program(v.Program)
	case SetAppendix:
		return e.program(v.Program)
	case UniversalOrigin:
		return e.junction(v.Junction)
	case SetTopic:
		return e.Write(v.ID[:])
	case PayFees:
		return e.asset(v.Asset)
	default:
		return fmt.Errorf("%w: instruction %T", ErrUnknownVariant, inst)
	}
}

func (e *encoder) network(n NetworkID) error {
	var err error
	switch n.Kind {
	case NetworkByGenesis:
		if err = e.PushByte(0); err == nil {
			err = e.Write(n.Genesis[:])
		}
	case NetworkPolkadot:
		err = e.PushByte(2)
	case NetworkKusama:
		err = e.PushByte(3)
	case NetworkWestend:
		err = e.PushByte(4)
	case NetworkRococo:
		err = e.PushByte(5)
	case NetworkEthereum:
		if err = e.PushByte(7); err == nil {
			err = e.compactU64(n.ChainID)
		}
	default:
		err = fmt.Errorf("%w: network %s", ErrInvalidValue, n)
	}
	return err
}

func (e *encoder) optionalNetwork(n NetworkID) error {
	if !n.IsSpecified() {
		return e.PushByte(0)
	}
	if err := e.PushByte(1); err != nil {
		return err
	}
	return e.network(n)
}

func (e *encoder) junction(j Junction) error {
	if j == nil {
		return fmt.Errorf("%w: nil junction", ErrInvalidValue)
	}
	if err := e.PushByte(j.junctionIndex()); err != nil {
		return err
	}
	switch v := j.(type) {
	case Parachain:
		return e.compactU64(uint64(v))
	case AccountID32:
		if err := e.optionalNetwork(v.Network); err != nil {
			return err
		}
		return e.Write(v.ID[:])
	case AccountKey20:
		if err := e.optionalNetwork(v.Network); err != nil {
			return err
		}
		return e.Write(v.Key[:])
	case PalletInstance:
		return e.PushByte(byte(v))
	case GeneralIndex:
		return e.compactU128(v.Index)
	case GeneralKey:
		if v.Length > maxGeneralKeyLength {
			return fmt.Errorf("%w: general key length %d", ErrInvalidValue, v.Length)
		}
		if err := e.PushByte(v.Length); err != nil {
			return err
		}
		return e.Write(v.Data[:])
	case OnlyChild:
		return nil
	case GlobalConsensus:
		return e.network(v.Network)
	default:
		return fmt.Errorf("%w: junction %T", ErrUnknownVariant, j)
	}
}

func (e *encoder) junctions(js Junctions) error {
	if len(js) > MaxJunctions {
		return fmt.Errorf("%w: %d junctions", ErrTooManyItems, len(js))
	}
	if err := e.PushByte(byte(len(js))); err != nil {
		return err
	}
	for _, j := range js {
		if err := e.junction(j); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) location(l Location) error {
	if err := e.PushByte(l.Parents); err != nil {
		return err
	}
	return e.junctions(l.Interior)
}

func (e *encoder) assetID(l Location) error {
	if e.version == V3 {
		if err := e.PushByte(0); err != nil {
			return err
		}
	}
	return e.location(l)
}

func (e *encoder) asset(a Asset) error {
	if err := e.assetID(a.ID); err != nil {
		return err
	}
	switch f := a.Fun.(type) {
	case Fungible:
		if err := e.PushByte(0); err != nil {
			return err
		}
		return e.compactU128(f.Amount)
	case NonFungible:
		if err := e.PushByte(1); err != nil {
			return err
		}
		return e.assetInstance(f.Instance)
	default:
		return fmt.Errorf("%w: fungibility %T", ErrInvalidValue, a.Fun)
	}
}

func (e *encoder) assetInstance(inst AssetInstance) error {
	if inst.Kind > InstanceArray32 {
		return fmt.Errorf("%w: asset instance %d", ErrUnknownVariant, inst.Kind)
	}
	if err := e.PushByte(byte(inst.Kind)); err != nil {
		return err
	}
	switch inst.Kind {
	case InstanceIndex:
		return e.compactU128(inst.Index)
	case InstanceArray4, InstanceArray8, InstanceArray16, InstanceArray32:
		return e.Write(inst.Data[:inst.Kind.arrayLen()])
	default:
		return nil
	}
}

func (e *encoder) assets(as Assets) error {
	if err := e.length(len(as), MaxAssets); err != nil {
		return err
	}
	for _, a := range as {
		if err := e.asset(a); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) assetFilter(f AssetFilter) error {
	if f == nil {
		return fmt.Errorf("%w: nil asset filter", ErrInvalidValue)
	}
	if err := e.PushByte(f.filterIndex()); err != nil {
		return err
	}
	switch v := f.(type) {
	case Definite:
		return e.assets(v.Assets)
	case WildAll:
		return e.PushByte(0)
	case WildAllOf:
		if err := e.PushByte(1); err != nil {
			return err
		}
		if err := e.assetID(v.ID); err != nil {
			return err
		}
		return e.PushByte(byte(v.Fun))
	case WildAllCounted:
		if err := e.PushByte(2); err != nil {
			return err
		}
		return e.compactU64(uint64(v.Count))
	case WildAllOfCounted:
		if err := e.PushByte(3); err != nil {
			return err
		}
		if err := e.assetID(v.ID); err != nil {
			return err
		}
		if err := e.PushByte(byte(v.Fun)); err != nil {
			return err
		}
		return e.compactU64(uint64(v.Count))
	default:
		return fmt.Errorf("%w: asset filter %T", ErrUnknownVariant, f)
	}
}

func (e *encoder) weightLimit(w WeightLimit) error {
	if !w.Limited {
		return e.PushByte(0)
	}
	if err := e.PushByte(1); err != nil {
		return err
	}
	if err := e.compactU64(w.RefTime); err != nil {
		return err
	}
	return e.compactU64(w.ProofSize)
}
