package poolfactory

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// registry is the plain, non-thread-safe registry state. Factory owns one and serializes access.
type registry struct {
	// forward and reverse indices; always consistent with each other and with all
	byPair map[TokenPair]common.Address
	byPool map[common.Address]TokenPair

	// all holds pools in creation order; its length is the pool count
	all []PoolEntry

	admin    Admin
	sequence uint64
}

func newRegistry(admin Admin) *registry {
	return &registry{
		byPair: make(map[TokenPair]common.Address),
		byPool: make(map[common.Address]TokenPair),
		all:    make([]PoolEntry, 0),
		admin:  admin,
	}
}

// newRegistryFromView rebuilds a registry from a snapshot, rejecting snapshots that break the
// registry invariants. The snapshot's memory is copied.
func newRegistryFromView(view *View) (*registry, error) {
	r := newRegistry(view.Admin)
	r.sequence = view.Sequence

	for i, entry := range view.Pools {
		if entry.Index != uint64(i) {
			return nil, fmt.Errorf("%w: pool %s has index %d at position %d", ErrInvalidView, entry.Pool, entry.Index, i)
		}
		if err := r.checkAdd(entry.Pair(), entry.Pool); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidView, err)
		}
		r.commit(entry)
	}

	if uint64(len(r.all)) > r.sequence {
		return nil, fmt.Errorf("%w: sequence %d is below pool count %d", ErrInvalidView, r.sequence, len(r.all))
	}
	return r, nil
}

func (r *registry) pool(pair TokenPair) (common.Address, bool) {
	pool, ok := r.byPair[pair]
	return pool, ok
}

func (r *registry) tokens(pool common.Address) (TokenPair, bool) {
	pair, ok := r.byPool[pool]
	return pair, ok
}

// checkAdd reports whether pool can be registered for pair without breaking an invariant.
func (r *registry) checkAdd(pair TokenPair, pool common.Address) error {
	if !pair.IsCanonical() {
		return ErrInvalidAddress
	}
	if _, exists := r.byPair[pair]; exists {
		return ErrPoolAlreadyCreated
	}
	if pool == (common.Address{}) {
		return ErrInvalidPoolAddress
	}
	if _, exists := r.byPool[pool]; exists {
		return ErrPoolAddressTaken
	}
	return nil
}

// nextEntry builds the entry pool would get if it were registered now.
func (r *registry) nextEntry(pair TokenPair, pool common.Address) (PoolEntry, error) {
	if err := r.checkAdd(pair, pool); err != nil {
		return PoolEntry{}, err
	}
	return PoolEntry{
		Index:  uint64(len(r.all)),
		Pool:   pool,
		TokenX: pair.TokenX,
		TokenY: pair.TokenY,
	}, nil
}

// commit records an entry previously validated with checkAdd.
func (r *registry) commit(entry PoolEntry) {
	r.byPair[entry.Pair()] = entry.Pool
	r.byPool[entry.Pool] = entry.Pair()
	r.all = append(r.all, entry)
}

// view returns a deep copy of the registry state.
func (r *registry) view() *View {
	pools := make([]PoolEntry, len(r.all))
	copy(pools, r.all)
	return &View{
		Sequence: r.sequence,
		Admin:    r.admin,
		Pools:    pools,
	}
}
