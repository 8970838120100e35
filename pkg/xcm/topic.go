package xcm

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

// Topic returns the id set by a trailing SetTopic instruction.
func (p Program) Topic() (common.Hash, bool) {
	if len(p) == 0 {
		return common.Hash{}, false
	}
	t, ok := p[len(p)-1].(SetTopic)
	if !ok {
		return common.Hash{}, false
	}
	return common.Hash(t.ID), true
}

// MessageID returns the id a router reports for a forwarded program: its topic if it carries one, otherwise the
// blake2b-256 hash of its current-version encoding.
func MessageID(p Program) (common.Hash, error) {
	if topic, ok := p.Topic(); ok {
		return topic, nil
	}
	b, err := EncodeVersioned(&Versioned{Version: CurrentVersion, Program: p})
	if err != nil {
		return common.Hash{}, err
	}
	return blake2b.Sum256(b), nil
}
