package assets

import (
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

// AgentIDOf derives the id of the agent contract that represents a consensus system on the gateway. Only the
// relay chain and its parachains have agents.
func AgentIDOf(loc xcm.Location) (common.Hash, bool) {
	if loc.Parents != 1 {
		return common.Hash{}, false
	}
	switch len(loc.Interior) {
	case 0:
		return blake2b.Sum256([]byte("ParentChain")), true
	case 1:
		para, ok := loc.Interior[0].(xcm.Parachain)
		if !ok {
			return common.Hash{}, false
		}
		desc := append([]byte("SiblingChain"), xcm.EncodeCompact(uint64(para))...)
		return blake2b.Sum256(desc), true
	default:
		return common.Hash{}, false
	}
}
