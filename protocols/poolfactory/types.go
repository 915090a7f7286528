package poolfactory

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Schema is the decode contract for streamed registry views and diffs.
const Schema = "defistate/pool-factory/View@v1"

// Side selects one of the two tokens held by a pool.
type Side uint8

const (
	SideX Side = iota
	SideY
)

func (s Side) String() string {
	switch s {
	case SideX:
		return "X"
	case SideY:
		return "Y"
	default:
		return "invalid"
	}
}

// TokenPair is a canonical token pair: TokenX always sorts strictly before TokenY.
type TokenPair struct {
	TokenX common.Address `json:"tokenX"`
	TokenY common.Address `json:"tokenY"`
}

// PoolEntry is a registered pool together with its canonical pair.
// Index is the position of the pool in creation order.
type PoolEntry struct {
	Index  uint64         `json:"index"`
	Pool   common.Address `json:"pool"`
	TokenX common.Address `json:"tokenX"`
	TokenY common.Address `json:"tokenY"`
}

// Pair returns the canonical pair of the entry.
func (e PoolEntry) Pair() TokenPair {
	return TokenPair{TokenX: e.TokenX, TokenY: e.TokenY}
}

// Admin holds the administrative identities of the registry.
type Admin struct {
	Owner   common.Address `json:"owner"`
	FeeTo   common.Address `json:"feeTo"`
	Sweeper common.Address `json:"sweeper"`
}

// View is a complete snapshot of the registry.
// Sequence increases by one for every committed mutation.
type View struct {
	Sequence uint64      `json:"sequence"`
	Admin    Admin       `json:"admin"`
	Pools    []PoolEntry `json:"pools"`
}

// Copy returns a deep copy of the view.
func (v *View) Copy() *View {
	pools := make([]PoolEntry, len(v.Pools))
	copy(pools, v.Pools)
	return &View{
		Sequence: v.Sequence,
		Admin:    v.Admin,
		Pools:    pools,
	}
}

// PoolCreated is emitted exactly once per successful CreatePool.
type PoolCreated struct {
	TokenX   common.Address `json:"tokenX"`
	TokenY   common.Address `json:"tokenY"`
	Pool     common.Address `json:"pool"`
	Index    uint64         `json:"index"`
	Sequence uint64         `json:"sequence"`
}

// Change carries the diff produced by one committed mutation.
type Change struct {
	Diff Diff `json:"diff"`
}

// PoolConstructor instantiates new pools.
// The initial point is passed through untouched; validating it is up to the implementation.
type PoolConstructor interface {
	Deploy(ctx context.Context, tokenX, tokenY common.Address, initialPoint *uint256.Int) (common.Address, error)
}

// PoolTransferer moves tokens out of a pool.
type PoolTransferer interface {
	Transfer(ctx context.Context, pool, recipient common.Address, side Side, amount *uint256.Int) error
}

// PoolDiscarder is implemented by constructors that can take back a pool the registry failed to
// commit. Without it a failed commit leaves the constructed pool behind.
type PoolDiscarder interface {
	Discard(ctx context.Context, pool common.Address) error
}

// PoolBackend is the full pool collaborator used by the Factory.
type PoolBackend interface {
	PoolConstructor
	PoolTransferer
}

// Journal persists registry mutations. Each call happens before the mutation is committed in
// memory; an error aborts the mutation.
type Journal interface {
	RecordPool(ctx context.Context, entry PoolEntry, sequence uint64) error
	RecordAdmin(ctx context.Context, admin Admin, sequence uint64) error
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
