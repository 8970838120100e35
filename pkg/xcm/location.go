package xcm

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

type (
	// NetworkKind identifies a consensus system. The zero value means the network was left unspecified.
	NetworkKind uint8

	// NetworkID is a global consensus identifier. Genesis is only meaningful for NetworkByGenesis and
	// ChainID only for NetworkEthereum.
	NetworkID struct {
		Kind    NetworkKind
		Genesis [32]byte
		ChainID uint64
	}
)

const (
	NetworkUnspecified NetworkKind = iota
	NetworkByGenesis
	NetworkPolkadot
	NetworkKusama
	NetworkWestend
	NetworkRococo
	NetworkEthereum
)

// Ethereum returns the NetworkID of the Ethereum chain with the given EIP-155 chain id.
func Ethereum(chainID uint64) NetworkID {
	return NetworkID{Kind: NetworkEthereum, ChainID: chainID}
}

// Relay returns the NetworkID of a named relay network.
func Relay(kind NetworkKind) NetworkID {
	return NetworkID{Kind: kind}
}

func (n NetworkID) IsSpecified() bool {
	return n.Kind != NetworkUnspecified
}

func (n NetworkID) String() string {
	switch n.Kind {
	case NetworkUnspecified:
		return "Unspecified"
	case NetworkByGenesis:
		return "ByGenesis(" + hex.EncodeToString(n.Genesis[:]) + ")"
	case NetworkPolkadot:
		return "Polkadot"
	case NetworkKusama:
		return "Kusama"
	case NetworkWestend:
		return "Westend"
	case NetworkRococo:
		return "Rococo"
	case NetworkEthereum:
		return fmt.Sprintf("Ethereum(%d)", n.ChainID)
	default:
		return fmt.Sprintf("Unknown(%d)", n.Kind)
	}
}

// ParseNetwork parses a relay network name or "ethereum:<chain id>".
func ParseNetwork(s string) (NetworkID, error) {
	str := strings.ToLower(s)
	switch str {
	case "polkadot":
		return Relay(NetworkPolkadot), nil
	case "kusama":
		return Relay(NetworkKusama), nil
	case "westend":
		return Relay(NetworkWestend), nil
	case "rococo":
		return Relay(NetworkRococo), nil
	}
	if rest, ok := strings.CutPrefix(str, "ethereum:"); ok {
		var chainID uint64
		if _, err := fmt.Sscanf(rest, "%d", &chainID); err != nil {
			return NetworkID{}, fmt.Errorf("invalid ethereum chain id %q: %w", rest, err)
		}
		return Ethereum(chainID), nil
	}
	return NetworkID{}, fmt.Errorf("invalid network string: %s", s)
}

// Junction is a single step of an interior location path.
type Junction interface {
	junctionIndex() uint8
	String() string
}

type (
	Parachain uint32

	AccountID32 struct {
		Network NetworkID
		ID      [32]byte
	}

	AccountKey20 struct {
		Network NetworkID
		Key     [20]byte
	}

	PalletInstance uint8

	GeneralIndex struct {
		Index uint256.Int
	}

	GeneralKey struct {
		Length uint8
		Data   [32]byte
	}

	OnlyChild struct{}

	GlobalConsensus struct {
		Network NetworkID
	}
)

func (Parachain) junctionIndex() uint8       { return 0 }
func (AccountID32) junctionIndex() uint8     { return 1 }
func (AccountKey20) junctionIndex() uint8    { return 3 }
func (PalletInstance) junctionIndex() uint8  { return 4 }
func (GeneralIndex) junctionIndex() uint8    { return 5 }
func (GeneralKey) junctionIndex() uint8      { return 6 }
func (OnlyChild) junctionIndex() uint8       { return 7 }
func (GlobalConsensus) junctionIndex() uint8 { return 9 }

func (p Parachain) String() string { return fmt.Sprintf("Parachain(%d)", uint32(p)) }
func (a AccountID32) String() string {
	return fmt.Sprintf("AccountId32{%s, 0x%s}", a.Network, hex.EncodeToString(a.ID[:]))
}
func (a AccountKey20) String() string {
	return fmt.Sprintf("AccountKey20{%s, 0x%s}", a.Network, hex.EncodeToString(a.Key[:]))
}
func (p PalletInstance) String() string { return fmt.Sprintf("PalletInstance(%d)", uint8(p)) }
func (g GeneralIndex) String() string   { return fmt.Sprintf("GeneralIndex(%s)", g.Index.ToBig()) }
func (g GeneralKey) String() string {
	return fmt.Sprintf("GeneralKey(0x%s)", hex.EncodeToString(g.Data[:g.Length]))
}
func (OnlyChild) String() string         { return "OnlyChild" }
func (g GlobalConsensus) String() string { return fmt.Sprintf("GlobalConsensus(%s)", g.Network) }

// Junctions is an interior location path. It holds at most MaxJunctions entries.
type Junctions []Junction

func (j Junctions) Equal(other Junctions) bool {
	if len(j) != len(other) {
		return false
	}
	for i := range j {
		if j[i] != other[i] {
			return false
		}
	}
	return true
}

// SplitGlobal splits a universal location into its global consensus and the path beneath it.
func (j Junctions) SplitGlobal() (NetworkID, Junctions, bool) {
	if len(j) == 0 {
		return NetworkID{}, nil, false
	}
	g, ok := j[0].(GlobalConsensus)
	if !ok {
		return NetworkID{}, nil, false
	}
	return g.Network, j[1:], true
}

// GlobalConsensus returns the network a universal location is rooted in.
func (j Junctions) GlobalConsensus() (NetworkID, bool) {
	n, _, ok := j.SplitGlobal()
	return n, ok
}

func (j Junctions) String() string {
	parts := make([]string, len(j))
	for i, jn := range j {
		parts[i] = jn.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Location is a relative path through the consensus hierarchy.
type Location struct {
	Parents  uint8
	Interior Junctions
}

func NewLocation(parents uint8, interior ...Junction) Location {
	return Location{Parents: parents, Interior: interior}
}

func Here() Location {
	return Location{}
}

func Parent() Location {
	return Location{Parents: 1}
}

func (l Location) IsHere() bool {
	return l.Parents == 0 && len(l.Interior) == 0
}

func (l Location) Equal(other Location) bool {
	return l.Parents == other.Parents && l.Interior.Equal(other.Interior)
}

func (l Location) String() string {
	return fmt.Sprintf("{parents: %d, interior: %s}", l.Parents, l.Interior)
}
