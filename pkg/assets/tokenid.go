package assets

import (
	"errors"
	"fmt"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

const tokenIDPrefix = "ForeignTokenId"

var ErrNotDescribable = errors.New("assets: location has no token description")

// TokenIDOf derives the gateway token id of an asset location, as seen from the bridge hub. Only relay and sibling
// chain locations, and locations rooted in another global consensus, can be described.
func TokenIDOf(loc xcm.Location) (common.Hash, bool) {
	switch loc.Parents {
	case 1:
	case 2:
		if _, ok := loc.Interior.GlobalConsensus(); !ok {
			return common.Hash{}, false
		}
	default:
		return common.Hash{}, false
	}

	encoded, err := xcm.EncodeLocation(loc)
	if err != nil {
		return common.Hash{}, false
	}
	return blake2b.Sum256(append([]byte(tokenIDPrefix), encoded...)), true
}

// MustTokenIDOf is TokenIDOf for locations known to be describable.
func MustTokenIDOf(loc xcm.Location) common.Hash {
	id, ok := TokenIDOf(loc)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrNotDescribable, loc).Error())
	}
	return id
}
