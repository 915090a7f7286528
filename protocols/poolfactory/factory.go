package poolfactory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the dependencies and initial administrative identities of a Factory.
type Config struct {
	Owner   common.Address
	FeeTo   common.Address
	Sweeper common.Address

	// OwnerOnlyCreation restricts CreatePool to the owner. Creation is permissionless otherwise.
	OwnerOnlyCreation bool

	Backend  PoolBackend           // Required.
	Journal  Journal               // Optional.
	Logger   Logger                // Required.
	Registry prometheus.Registerer // Required.
}

func (c *Config) validate() error {
	if c.Backend == nil {
		return errors.New("config: Backend cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	return nil
}

// Factory is the concurrency-safe pool registry.
//
// Creations of the same canonical pair are serialized by a per-pair mutex, so exactly one of
// several concurrent requests wins and the others observe ErrPoolAlreadyCreated. The pool
// constructor runs under the pair mutex only, while indices and admin fields are guarded by a
// sync.RWMutex. Views are served lock-free from an atomically swapped snapshot.
type Factory struct {
	mu         sync.RWMutex
	registry   *registry
	cachedView atomic.Pointer[View]
	pairLocks  *pairLocker

	backend           PoolBackend
	journal           Journal
	logger            Logger
	metrics           *Metrics
	ownerOnlyCreation bool

	poolCreatedFeed event.Feed
	changeFeed      event.Feed
}

// NewFactory creates an empty registry.
func NewFactory(cfg *Config) (*Factory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Owner == (common.Address{}) {
		return nil, errors.New("config: Owner cannot be the zero address")
	}

	admin := Admin{Owner: cfg.Owner, FeeTo: cfg.FeeTo, Sweeper: cfg.Sweeper}
	return newFactory(cfg, newRegistry(admin)), nil
}

// NewFactoryFromView restores a registry from a snapshot. The admin identities come from the
// view; the ones in cfg are ignored.
func NewFactoryFromView(view *View, cfg *Config) (*Factory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if view == nil {
		return nil, fmt.Errorf("%w: nil view", ErrInvalidView)
	}
	r, err := newRegistryFromView(view)
	if err != nil {
		return nil, err
	}
	return newFactory(cfg, r), nil
}

func newFactory(cfg *Config, r *registry) *Factory {
	f := &Factory{
		registry:          r,
		pairLocks:         newPairLocker(),
		backend:           cfg.Backend,
		journal:           cfg.Journal,
		logger:            cfg.Logger,
		metrics:           NewMetrics(cfg.Registry),
		ownerOnlyCreation: cfg.OwnerOnlyCreation,
	}
	f.cachedView.Store(r.view())
	f.metrics.poolCount.Set(float64(len(r.all)))
	return f
}

// updateCachedView stores a fresh snapshot and returns it.
// This method MUST be called from within a write lock (f.mu.Lock).
func (f *Factory) updateCachedView() *View {
	v := f.registry.view()
	f.cachedView.Store(v)
	return v
}

// --- Write Methods ---

// CreatePool registers a new pool for the unordered pair (tokenA, tokenB) and returns its identity.
func (f *Factory) CreatePool(ctx context.Context, caller, tokenA, tokenB common.Address, initialPoint *uint256.Int) (common.Address, error) {
	const op = "createPool"
	timer := prometheus.NewTimer(f.metrics.opDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	pool, err := f.createPool(ctx, caller, tokenA, tokenB, initialPoint)
	if err != nil {
		f.metrics.failures.WithLabelValues(op, failureReason(err)).Inc()
		f.logger.Debug("Pool creation rejected", "caller", caller, "tokenA", tokenA, "tokenB", tokenB, "err", err)
		return common.Address{}, err
	}
	return pool, nil
}

func (f *Factory) createPool(ctx context.Context, caller, tokenA, tokenB common.Address, initialPoint *uint256.Int) (common.Address, error) {
	// Rechecked under f.mu before commit.
	if f.ownerOnlyCreation && caller != f.Owner() {
		return common.Address{}, ErrNotAuthorized
	}

	pair, err := NewTokenPair(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}

	unlock := f.pairLocks.lock(pair)
	defer unlock()

	// Nobody else can register this pair while we hold its lock, so a miss here stays a miss
	// until commit.
	if _, exists := f.GetPool(pair.TokenX, pair.TokenY); exists {
		return common.Address{}, ErrPoolAlreadyCreated
	}

	pool, err := f.backend.Deploy(ctx, pair.TokenX, pair.TokenY, initialPoint)
	if err != nil {
		return common.Address{}, err
	}

	// The pool exists from here on, so commit or discard it even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	f.mu.Lock()
	if f.ownerOnlyCreation && caller != f.registry.admin.Owner {
		f.mu.Unlock()
		f.discard(ctx, pool)
		return common.Address{}, ErrNotAuthorized
	}
	old := f.cachedView.Load()
	entry, err := f.registry.nextEntry(pair, pool)
	if err != nil {
		f.mu.Unlock()
		return common.Address{}, err
	}
	sequence := f.registry.sequence + 1
	if f.journal != nil {
		if err := f.journal.RecordPool(ctx, entry, sequence); err != nil {
			f.mu.Unlock()
			f.discard(ctx, pool)
			return common.Address{}, fmt.Errorf("record pool: %w", err)
		}
	}
	f.registry.commit(entry)
	f.registry.sequence = sequence
	current := f.updateCachedView()
	f.mu.Unlock()

	f.metrics.poolsCreated.Inc()
	f.metrics.poolCount.Set(float64(len(current.Pools)))
	f.logger.Info("Pool created", "pool", pool, "tokenX", pair.TokenX, "tokenY", pair.TokenY, "index", entry.Index)

	f.poolCreatedFeed.Send(PoolCreated{
		TokenX:   pair.TokenX,
		TokenY:   pair.TokenY,
		Pool:     pool,
		Index:    entry.Index,
		Sequence: sequence,
	})
	f.emitChange(old, current)
	return pool, nil
}

// discard hands an uncommitted pool back to the backend so its pair can be created again.
// Must be called while holding the pair lock and not f.mu.
func (f *Factory) discard(ctx context.Context, pool common.Address) {
	d, ok := f.backend.(PoolDiscarder)
	if !ok {
		f.logger.Warn("Uncommitted pool left in backend", "pool", pool)
		return
	}
	if err := d.Discard(ctx, pool); err != nil {
		f.logger.Error("Failed to discard uncommitted pool", "pool", pool, "err", err)
	}
}

// SetOwner transfers ownership. Only the current owner may call it.
func (f *Factory) SetOwner(ctx context.Context, caller, newOwner common.Address) error {
	return f.setAdmin(ctx, "setOwner", caller, func(a *Admin) { a.Owner = newOwner })
}

// SetFeeTo changes the protocol fee recipient. Only the owner may call it.
func (f *Factory) SetFeeTo(ctx context.Context, caller, newRecipient common.Address) error {
	return f.setAdmin(ctx, "setFeeTo", caller, func(a *Admin) { a.FeeTo = newRecipient })
}

// SetSweeper changes the sweeper. Only the owner may call it.
func (f *Factory) SetSweeper(ctx context.Context, caller, newSweeper common.Address) error {
	return f.setAdmin(ctx, "setSweeper", caller, func(a *Admin) { a.Sweeper = newSweeper })
}

func (f *Factory) setAdmin(ctx context.Context, op string, caller common.Address, mutate func(*Admin)) error {
	timer := prometheus.NewTimer(f.metrics.opDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	f.mu.Lock()
	if caller != f.registry.admin.Owner {
		f.mu.Unlock()
		f.metrics.failures.WithLabelValues(op, failureReason(ErrNotAuthorized)).Inc()
		f.logger.Warn("Unauthorized admin call", "op", op, "caller", caller)
		return ErrNotAuthorized
	}

	old := f.cachedView.Load()
	admin := f.registry.admin
	mutate(&admin)
	sequence := f.registry.sequence + 1
	if f.journal != nil {
		if err := f.journal.RecordAdmin(ctx, admin, sequence); err != nil {
			f.mu.Unlock()
			f.metrics.failures.WithLabelValues(op, failureReason(err)).Inc()
			return fmt.Errorf("record admin: %w", err)
		}
	}
	f.registry.admin = admin
	f.registry.sequence = sequence
	current := f.updateCachedView()
	f.mu.Unlock()

	f.logger.Info("Admin updated", "op", op, "owner", admin.Owner, "feeTo", admin.FeeTo, "sweeper", admin.Sweeper)
	f.emitChange(old, current)
	return nil
}

// PoolSweep routes amount of the pool's selected token to recipient. Only the sweeper may call it.
// Errors from the pool transfer surface are returned as is.
func (f *Factory) PoolSweep(ctx context.Context, caller, recipient, pool common.Address, side Side, amount *uint256.Int) error {
	const op = "poolSweep"
	timer := prometheus.NewTimer(f.metrics.opDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	f.mu.RLock()
	sweeper := f.registry.admin.Sweeper
	_, registered := f.registry.tokens(pool)
	f.mu.RUnlock()

	var err error
	switch {
	case caller != sweeper:
		err = ErrNotAuthorized
	case !registered:
		err = ErrPoolNotFound
	default:
		err = f.backend.Transfer(ctx, pool, recipient, side, amount)
	}
	if err != nil {
		f.metrics.failures.WithLabelValues(op, failureReason(err)).Inc()
		f.logger.Warn("Pool sweep failed", "caller", caller, "pool", pool, "side", side, "err", err)
		return err
	}

	f.logger.Info("Pool swept", "pool", pool, "recipient", recipient, "side", side, "amount", amount)
	return nil
}

// emitChange broadcasts the diff between two committed views. Called outside of f.mu so
// subscribers may read from the Factory while handling it.
func (f *Factory) emitChange(old, current *View) {
	diff, err := Differ(*old, *current)
	if err != nil {
		f.logger.Error("Failed to diff registry views", "from", old.Sequence, "to", current.Sequence, "err", err)
		return
	}
	f.changeFeed.Send(Change{Diff: diff})
}

// --- Read Methods ---

// GetPool returns the pool registered for the unordered pair, or false if there is none.
func (f *Factory) GetPool(tokenA, tokenB common.Address) (common.Address, bool) {
	tokenX, tokenY := SortTokens(tokenA, tokenB)

	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.registry.pool(TokenPair{TokenX: tokenX, TokenY: tokenY})
}

// GetTokens returns the canonical pair of a pool, or false for an unregistered pool.
func (f *Factory) GetTokens(pool common.Address) (TokenPair, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.registry.tokens(pool)
}

// AllPoolsLength returns the total number of registered pools.
func (f *Factory) AllPoolsLength() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return uint64(len(f.registry.all))
}

// PoolAt returns the i-th pool in creation order.
func (f *Factory) PoolAt(i uint64) (common.Address, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i >= uint64(len(f.registry.all)) {
		return common.Address{}, false
	}
	return f.registry.all[i].Pool, true
}

// AllPools returns every pool identity in creation order.
func (f *Factory) AllPools() []common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pools := make([]common.Address, len(f.registry.all))
	for i, entry := range f.registry.all {
		pools[i] = entry.Pool
	}
	return pools
}

func (f *Factory) Admin() Admin {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.registry.admin
}

func (f *Factory) Owner() common.Address   { return f.Admin().Owner }
func (f *Factory) FeeTo() common.Address   { return f.Admin().FeeTo }
func (f *Factory) Sweeper() common.Address { return f.Admin().Sweeper }

// View returns a deep copy of the latest committed snapshot without taking the registry lock.
func (f *Factory) View() *View {
	v := f.cachedView.Load()
	if v == nil {
		return &View{}
	}
	return v.Copy()
}

// --- Subscriptions ---

// SubscribePoolCreated delivers one PoolCreated per successful CreatePool. Sends block until
// every subscriber has received, so subscribers should use buffered channels and drain them.
func (f *Factory) SubscribePoolCreated(ch chan<- PoolCreated) event.Subscription {
	return f.poolCreatedFeed.Subscribe(ch)
}

// SubscribeChanges delivers the diff of every committed mutation.
func (f *Factory) SubscribeChanges(ch chan<- Change) event.Subscription {
	return f.changeFeed.Subscribe(ch)
}
