package indexer

import (
	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
	"github.com/ethereum/go-ethereum/common"
)

type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed registry from the full registry view.
func (i *Indexer) Index(view poolfactory.View) IndexedPoolFactory {
	return NewIndexablePoolFactory(view)
}

// IndexablePoolFactory provides fast, indexed access to a registry snapshot.
type IndexablePoolFactory struct {
	byPair  map[poolfactory.TokenPair]poolfactory.PoolEntry
	byPool  map[common.Address]poolfactory.PoolEntry
	byToken map[common.Address][]int
	all     []poolfactory.PoolEntry
	admin   poolfactory.Admin
	seq     uint64
}

// NewIndexablePoolFactory creates a new indexed registry from the view.
// The view's pool slice is copied.
func NewIndexablePoolFactory(view poolfactory.View) *IndexablePoolFactory {
	all := make([]poolfactory.PoolEntry, len(view.Pools))
	copy(all, view.Pools)

	byPair := make(map[poolfactory.TokenPair]poolfactory.PoolEntry, len(all))
	byPool := make(map[common.Address]poolfactory.PoolEntry, len(all))
	byToken := make(map[common.Address][]int)

	for i, e := range all {
		byPair[e.Pair()] = e
		byPool[e.Pool] = e
		byToken[e.TokenX] = append(byToken[e.TokenX], i)
		byToken[e.TokenY] = append(byToken[e.TokenY], i)
	}

	return &IndexablePoolFactory{
		byPair:  byPair,
		byPool:  byPool,
		byToken: byToken,
		all:     all,
		admin:   view.Admin,
		seq:     view.Sequence,
	}
}

// GetPool retrieves the pool of an unordered token pair.
func (ipf *IndexablePoolFactory) GetPool(tokenA, tokenB common.Address) (poolfactory.PoolEntry, bool) {
	x, y := poolfactory.SortTokens(tokenA, tokenB)
	e, ok := ipf.byPair[poolfactory.TokenPair{TokenX: x, TokenY: y}]
	return e, ok
}

// GetTokens retrieves the canonical pair of a pool.
func (ipf *IndexablePoolFactory) GetTokens(pool common.Address) (poolfactory.TokenPair, bool) {
	e, ok := ipf.byPool[pool]
	if !ok {
		return poolfactory.TokenPair{}, false
	}
	return e.Pair(), true
}

// PoolAt retrieves the pool at a creation index.
func (ipf *IndexablePoolFactory) PoolAt(index uint64) (poolfactory.PoolEntry, bool) {
	if index >= uint64(len(ipf.all)) {
		return poolfactory.PoolEntry{}, false
	}
	return ipf.all[index], true
}

// PoolsForToken returns the pools trading token, in creation order, or nil if there are none.
func (ipf *IndexablePoolFactory) PoolsForToken(token common.Address) []poolfactory.PoolEntry {
	idx, ok := ipf.byToken[token]
	if !ok {
		return nil
	}
	pools := make([]poolfactory.PoolEntry, len(idx))
	for i, j := range idx {
		pools[i] = ipf.all[j]
	}
	return pools
}

// All returns a defensive copy of the slice of all pools.
func (ipf *IndexablePoolFactory) All() []poolfactory.PoolEntry {
	allCopy := make([]poolfactory.PoolEntry, len(ipf.all))
	copy(allCopy, ipf.all)
	return allCopy
}

func (ipf *IndexablePoolFactory) Admin() poolfactory.Admin { return ipf.admin }

func (ipf *IndexablePoolFactory) PoolCount() int { return len(ipf.all) }

// Sequence returns the sequence of the view this index was built from.
func (ipf *IndexablePoolFactory) Sequence() uint64 { return ipf.seq }
