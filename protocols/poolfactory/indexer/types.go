package indexer

import (
	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
	"github.com/ethereum/go-ethereum/common"
)

// IndexedPoolFactory defines the methods for accessing indexed registry data.
type IndexedPoolFactory interface {
	GetPool(tokenA, tokenB common.Address) (poolfactory.PoolEntry, bool)
	GetTokens(pool common.Address) (poolfactory.TokenPair, bool)
	PoolAt(index uint64) (poolfactory.PoolEntry, bool)
	PoolsForToken(token common.Address) []poolfactory.PoolEntry
	All() []poolfactory.PoolEntry
	Admin() poolfactory.Admin
	PoolCount() int
	Sequence() uint64
}
