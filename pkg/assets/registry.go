package assets

import (
	"fmt"
	"sync"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/ethereum/go-ethereum/common"
)

// Registry is the equivalence between gateway token ids and the asset locations they were registered for.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	byID map[common.Hash]xcm.Location
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[common.Hash]xcm.Location)}
}

// Register records loc under its token id. Registering the same location twice is a no-op.
func (r *Registry) Register(loc xcm.Location) (common.Hash, error) {
	id, ok := TokenIDOf(loc)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrNotDescribable, loc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = xcm.Location{Parents: loc.Parents, Interior: append(xcm.Junctions(nil), loc.Interior...)}
	return id, nil
}

// Location returns the location registered under id.
func (r *Registry) Location(id common.Hash) (xcm.Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byID[id]
	return loc, ok
}

// TokenID returns the token id of loc if it was registered.
func (r *Registry) TokenID(loc xcm.Location) (common.Hash, bool) {
	id, ok := TokenIDOf(loc)
	if !ok {
		return common.Hash{}, false
	}
	if _, ok := r.Location(id); !ok {
		return common.Hash{}, false
	}
	return id, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
