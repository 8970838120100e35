package xcm

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Fungibility is either Fungible or NonFungible.
type Fungibility interface {
	fungibilityIndex() uint8
}

type (
	Fungible struct {
		Amount uint256.Int
	}

	NonFungible struct {
		Instance AssetInstance
	}

	InstanceKind uint8

	// AssetInstance identifies a single non-fungible item. Index is only used by InstanceIndex;
	// Data holds the raw bytes of the fixed-size array variants, left-aligned.
	AssetInstance struct {
		Kind  InstanceKind
		Index uint256.Int
		Data  [32]byte
	}
)

const (
	InstanceUndefined InstanceKind = iota
	InstanceIndex
	InstanceArray4
	InstanceArray8
	InstanceArray16
	InstanceArray32
)

func (Fungible) fungibilityIndex() uint8    { return 0 }
func (NonFungible) fungibilityIndex() uint8 { return 1 }

func (k InstanceKind) arrayLen() int {
	switch k {
	case InstanceArray4:
		return 4
	case InstanceArray8:
		return 8
	case InstanceArray16:
		return 16
	case InstanceArray32:
		return 32
	default:
		return 0
	}
}

// Asset is an amount (or instance) of a single asset class.
type Asset struct {
	ID  Location
	Fun Fungibility
}

// NewFungible returns a fungible asset of the given class and amount.
func NewFungible(id Location, amount uint64) Asset {
	return Asset{ID: id, Fun: Fungible{Amount: *uint256.NewInt(amount)}}
}

func (a Asset) Equal(other Asset) bool {
	return a.ID.Equal(other.ID) && a.Fun == other.Fun
}

// FungibleAmount returns the amount of a fungible asset.
func (a Asset) FungibleAmount() (uint256.Int, bool) {
	f, ok := a.Fun.(Fungible)
	if !ok {
		return uint256.Int{}, false
	}
	return f.Amount, true
}

func (a Asset) String() string {
	switch f := a.Fun.(type) {
	case Fungible:
		return fmt.Sprintf("Asset{%s, Fungible(%s)}", a.ID, f.Amount.ToBig())
	case NonFungible:
		return fmt.Sprintf("Asset{%s, NonFungible(%d:%s)}", a.ID, f.Instance.Kind, hex.EncodeToString(f.Instance.Data[:f.Instance.Kind.arrayLen()]))
	default:
		return fmt.Sprintf("Asset{%s, ?}", a.ID)
	}
}

// Assets is a bounded collection of assets, at most MaxAssets long.
type Assets []Asset

func (as Assets) Contains(a Asset) bool {
	for _, x := range as {
		if x.Equal(a) {
			return true
		}
	}
	return false
}

func (as Assets) String() string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// WildFungibility restricts a wildcard filter to fungible or non-fungible assets.
type WildFungibility uint8

const (
	WildFungible WildFungibility = iota
	WildNonFungible
)

func (w WildFungibility) matches(f Fungibility) bool {
	switch f.(type) {
	case Fungible:
		return w == WildFungible
	case NonFungible:
		return w == WildNonFungible
	default:
		return false
	}
}

// AssetFilter selects assets out of a holding register.
type AssetFilter interface {
	Matches(a Asset) bool
	filterIndex() uint8
}

type (
	// Definite matches exactly the listed assets.
	Definite struct {
		Assets Assets
	}

	WildAll struct{}

	WildAllOf struct {
		ID  Location
		Fun WildFungibility
	}

	WildAllCounted struct {
		Count uint32
	}

	WildAllOfCounted struct {
		ID    Location
		Fun   WildFungibility
		Count uint32
	}
)

func (Definite) filterIndex() uint8         { return 0 }
func (WildAll) filterIndex() uint8          { return 1 }
func (WildAllOf) filterIndex() uint8        { return 1 }
func (WildAllCounted) filterIndex() uint8   { return 1 }
func (WildAllOfCounted) filterIndex() uint8 { return 1 }

func (d Definite) Matches(a Asset) bool { return d.Assets.Contains(a) }
func (WildAll) Matches(Asset) bool      { return true }
func (w WildAllOf) Matches(a Asset) bool {
	return w.ID.Equal(a.ID) && w.Fun.matches(a.Fun)
}

// A zero count selects nothing.
func (w WildAllCounted) Matches(Asset) bool { return w.Count > 0 }
func (w WildAllOfCounted) Matches(a Asset) bool {
	return w.Count > 0 && w.ID.Equal(a.ID) && w.Fun.matches(a.Fun)
}

// WeightLimit bounds the execution weight purchased by BuyExecution. The zero value is Unlimited.
type WeightLimit struct {
	Limited   bool
	RefTime   uint64
	ProofSize uint64
}

var Unlimited = WeightLimit{}
