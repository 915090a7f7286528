// Package pool is an in-process pool collaborator for the factory. Pools hold two reserves and an
// active price point; tokens swept out of a pool are credited to a ledger keyed by token and holder.
package pool

import (
	"context"
	"errors"
	"sync"

	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
	"github.com/defistate/pool-factory-go/safecast"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Config configures a Backend.
type Config struct {
	// Factory is the deployer address used when deriving pool addresses.
	Factory common.Address
	// InitCodeHash is the keccak256 of the pool init code used when deriving pool addresses.
	InitCodeHash common.Hash
	Logger       poolfactory.Logger
}

func (c *Config) validate() error {
	if c.Factory == (common.Address{}) {
		return errors.New("config: Factory cannot be the zero address")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

type pool struct {
	tokenX, tokenY common.Address
	state          *state
}

// Backend deploys and holds pools in memory. It implements poolfactory.PoolBackend.
type Backend struct {
	mu       sync.Mutex
	factory  common.Address
	initHash common.Hash
	pools    map[common.Address]*pool
	ledger   map[common.Address]map[common.Address]*uint256.Int
	logger   poolfactory.Logger
}

var (
	_ poolfactory.PoolBackend   = (*Backend)(nil)
	_ poolfactory.PoolDiscarder = (*Backend)(nil)
)

func NewBackend(cfg *Config) (*Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Backend{
		factory:  cfg.Factory,
		initHash: cfg.InitCodeHash,
		pools:    make(map[common.Address]*pool),
		ledger:   make(map[common.Address]map[common.Address]*uint256.Int),
		logger:   cfg.Logger,
	}, nil
}

// Address derives the CREATE2 address of the pool for a canonical pair.
func Address(factory common.Address, initCodeHash common.Hash, tokenX, tokenY common.Address) common.Address {
	salt := crypto.Keccak256Hash(tokenX.Bytes(), tokenY.Bytes())
	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes())
}

// Deploy creates a pool at its deterministic address. The initial point must fit in 24 bits.
func (b *Backend) Deploy(ctx context.Context, tokenX, tokenY common.Address, initialPoint *uint256.Int) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	if initialPoint == nil {
		return common.Address{}, ErrNilAmount
	}
	st, err := newState(initialPoint)
	if err != nil {
		return common.Address{}, err
	}

	addr := Address(b.factory, b.initHash, tokenX, tokenY)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.pools[addr]; exists {
		return common.Address{}, ErrPoolExists
	}
	b.pools[addr] = &pool{tokenX: tokenX, tokenY: tokenY, state: st}

	b.logger.Debug("Pool deployed", "pool", addr, "tokenX", tokenX, "tokenY", tokenY, "point", st.point())
	return addr, nil
}

// Discard removes a pool that was never registered. Pools holding reserves are kept.
func (b *Backend) Discard(_ context.Context, addr common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pools[addr]
	if !ok {
		return ErrUnknownPool
	}
	if x, y := p.state.unpack(); !x.IsZero() || !y.IsZero() {
		return ErrPoolNotEmpty
	}
	delete(b.pools, addr)

	b.logger.Debug("Pool discarded", "pool", addr, "tokenX", p.tokenX, "tokenY", p.tokenY)
	return nil
}

// Deposit credits amount to one reserve of a pool.
func (b *Backend) Deposit(ctx context.Context, addr common.Address, side poolfactory.Side, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil {
		return ErrNilAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.lookup(addr, side)
	if err != nil {
		return err
	}

	x, y := p.state.unpack()
	reserve := pick(side, x, y)
	if _, overflow := reserve.AddOverflow(reserve, amount); overflow {
		return safecast.ErrExceeds128Bits
	}
	return p.state.pack(x, y)
}

// Transfer debits amount from one reserve of a pool and credits it to recipient's ledger balance.
func (b *Backend) Transfer(ctx context.Context, addr, recipient common.Address, side poolfactory.Side, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil {
		return ErrNilAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.lookup(addr, side)
	if err != nil {
		return err
	}

	x, y := p.state.unpack()
	reserve := pick(side, x, y)
	if reserve.Lt(amount) {
		return ErrInsufficientBalance
	}
	reserve.Sub(reserve, amount)
	if err := p.state.pack(x, y); err != nil {
		return err
	}

	token := p.tokenX
	if side == poolfactory.SideY {
		token = p.tokenY
	}
	holders, ok := b.ledger[token]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		b.ledger[token] = holders
	}
	bal, ok := holders[recipient]
	if !ok {
		bal = new(uint256.Int)
		holders[recipient] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// BalanceOf returns the ledger balance of holder in token.
func (b *Backend) BalanceOf(token, holder common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.ledger[token][holder]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// Reserves returns copies of both reserves of a pool.
func (b *Backend) Reserves(addr common.Address) (x, y *uint256.Int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pools[addr]
	if !ok {
		return nil, nil, ErrUnknownPool
	}
	x, y = p.state.unpack()
	return x, y, nil
}

// ActivePoint returns the current price point of a pool.
func (b *Backend) ActivePoint(addr common.Address) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pools[addr]
	if !ok || !p.state.created() {
		return 0, ErrUnknownPool
	}
	return p.state.point(), nil
}

// lookup must be called with b.mu held.
func (b *Backend) lookup(addr common.Address, side poolfactory.Side) (*pool, error) {
	if side != poolfactory.SideX && side != poolfactory.SideY {
		return nil, ErrInvalidSide
	}
	p, ok := b.pools[addr]
	if !ok {
		return nil, ErrUnknownPool
	}
	return p, nil
}

func pick(side poolfactory.Side, x, y *uint256.Int) *uint256.Int {
	if side == poolfactory.SideX {
		return x
	}
	return y
}
