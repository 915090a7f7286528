package poolfactory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Doubles ---

type transfer struct {
	pool, recipient common.Address
	side            Side
	amount          *uint256.Int
}

type mockBackend struct {
	mu        sync.Mutex
	next      uint64
	deploys   atomic.Int64
	transfers []transfer
	discarded []common.Address

	deployErr   error
	transferErr error
	// fixedPool, when set, is returned by every Deploy.
	fixedPool common.Address
	// deployDelay widens the race window in concurrency tests.
	deployDelay time.Duration
}

func (m *mockBackend) Deploy(_ context.Context, tokenX, tokenY common.Address, _ *uint256.Int) (common.Address, error) {
	m.deploys.Add(1)
	if m.deployDelay > 0 {
		time.Sleep(m.deployDelay)
	}
	if m.deployErr != nil {
		return common.Address{}, m.deployErr
	}
	if m.fixedPool != (common.Address{}) {
		return m.fixedPool, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return common.BigToAddress(new(uint256.Int).SetUint64(0xF0000+m.next).ToBig()), nil
}

func (m *mockBackend) Discard(_ context.Context, pool common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded = append(m.discarded, pool)
	return nil
}

func (m *mockBackend) Transfer(_ context.Context, pool, recipient common.Address, side Side, amount *uint256.Int) error {
	if m.transferErr != nil {
		return m.transferErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, transfer{pool: pool, recipient: recipient, side: side, amount: amount})
	return nil
}

// cancellingBackend cancels the caller's context once the pool is deployed.
type cancellingBackend struct {
	*mockBackend
	cancel context.CancelFunc
}

func (c *cancellingBackend) Deploy(ctx context.Context, tokenX, tokenY common.Address, p *uint256.Int) (common.Address, error) {
	pool, err := c.mockBackend.Deploy(ctx, tokenX, tokenY, p)
	c.cancel()
	return pool, err
}

// handoverBackend transfers ownership while a pool is being deployed.
type handoverBackend struct {
	*mockBackend
	factory  *Factory
	newOwner common.Address
}

func (h *handoverBackend) Deploy(ctx context.Context, tokenX, tokenY common.Address, p *uint256.Int) (common.Address, error) {
	if err := h.factory.SetOwner(ctx, h.factory.Owner(), h.newOwner); err != nil {
		return common.Address{}, err
	}
	return h.mockBackend.Deploy(ctx, tokenX, tokenY, p)
}

type mockJournal struct {
	mu      sync.Mutex
	pools   []PoolEntry
	admins  []Admin
	seqs    []uint64
	failErr error
	// transient makes that many RecordPool calls fail with errTransient before succeeding.
	transient int
}

var errTransient = errors.New("database is locked")

func (j *mockJournal) RecordPool(ctx context.Context, entry PoolEntry, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.transient > 0 {
		j.transient--
		return errTransient
	}
	if j.failErr != nil {
		return j.failErr
	}
	j.pools = append(j.pools, entry)
	j.seqs = append(j.seqs, seq)
	return nil
}

func (j *mockJournal) RecordAdmin(_ context.Context, admin Admin, seq uint64) error {
	if j.failErr != nil {
		return j.failErr
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.admins = append(j.admins, admin)
	j.seqs = append(j.seqs, seq)
	return nil
}

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	feeTo    = common.HexToAddress("0x00000000000000000000000000000000000000BB")
	sweeper  = common.HexToAddress("0x00000000000000000000000000000000000000CC")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000DD")

	tokenA = common.HexToAddress("0x01")
	tokenB = common.HexToAddress("0x02")
	tokenC = common.HexToAddress("0x03")
)

func testLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFactory(t *testing.T, backend *mockBackend, mutate ...func(*Config)) *Factory {
	t.Helper()
	cfg := &Config{
		Owner:    owner,
		FeeTo:    feeTo,
		Sweeper:  sweeper,
		Backend:  backend,
		Logger:   testLogger(),
		Registry: prometheus.NewRegistry(),
	}
	for _, m := range mutate {
		m(cfg)
	}
	f, err := NewFactory(cfg)
	require.NoError(t, err)
	return f
}

func point(v uint64) *uint256.Int { return uint256.NewInt(v) }

// --- Tests ---

func TestNewFactory_ConfigValidation(t *testing.T) {
	base := func() *Config {
		return &Config{
			Owner:    owner,
			Backend:  &mockBackend{},
			Logger:   testLogger(),
			Registry: prometheus.NewRegistry(),
		}
	}

	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"nil backend", func(c *Config) { c.Backend = nil }, "Backend cannot be nil"},
		{"nil logger", func(c *Config) { c.Logger = nil }, "Logger cannot be nil"},
		{"nil registry", func(c *Config) { c.Registry = nil }, "Registry cannot be nil"},
		{"zero owner", func(c *Config) { c.Owner = common.Address{} }, "Owner cannot be the zero address"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			f, err := NewFactory(cfg)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		f, err := NewFactory(base())
		require.NoError(t, err)
		assert.Equal(t, owner, f.Owner())
		assert.Equal(t, common.Address{}, f.FeeTo())
		assert.Equal(t, uint64(0), f.AllPoolsLength())
	})
}

func TestCreatePool(t *testing.T) {
	ctx := context.Background()

	t.Run("canonicalizes and indexes both directions", func(t *testing.T) {
		f := newTestFactory(t, &mockBackend{})

		p1, err := f.CreatePool(ctx, stranger, tokenB, tokenA, point(100))
		require.NoError(t, err)

		got, ok := f.GetPool(tokenA, tokenB)
		require.True(t, ok)
		assert.Equal(t, p1, got)

		got, ok = f.GetPool(tokenB, tokenA)
		require.True(t, ok)
		assert.Equal(t, p1, got)

		pair, ok := f.GetTokens(p1)
		require.True(t, ok)
		assert.Equal(t, TokenPair{TokenX: tokenA, TokenY: tokenB}, pair)
		assert.Equal(t, uint64(1), f.AllPoolsLength())

		_, err = f.CreatePool(ctx, stranger, tokenA, tokenB, point(200))
		assert.ErrorIs(t, err, ErrPoolAlreadyCreated)
		assert.Equal(t, uint64(1), f.AllPoolsLength())
	})

	t.Run("rejects invalid token addresses", func(t *testing.T) {
		backend := &mockBackend{}
		f := newTestFactory(t, backend)

		testCases := []struct {
			name string
			a, b common.Address
		}{
			{"identical tokens", tokenA, tokenA},
			{"zero first", common.Address{}, tokenA},
			{"zero second", tokenA, common.Address{}},
			{"both zero", common.Address{}, common.Address{}},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.CreatePool(ctx, stranger, tc.a, tc.b, point(1))
				assert.ErrorIs(t, err, ErrInvalidAddress)
			})
		}
		assert.Equal(t, int64(0), backend.deploys.Load(), "constructor must not run for invalid pairs")
		assert.Equal(t, uint64(0), f.AllPoolsLength())
	})

	t.Run("duplicate is never constructed", func(t *testing.T) {
		backend := &mockBackend{}
		f := newTestFactory(t, backend)

		_, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		require.NoError(t, err)
		_, err = f.CreatePool(ctx, stranger, tokenB, tokenA, point(1))
		require.ErrorIs(t, err, ErrPoolAlreadyCreated)
		assert.Equal(t, int64(1), backend.deploys.Load())
	})

	t.Run("constructor error is returned unchanged", func(t *testing.T) {
		boom := errors.New("deploy reverted")
		f := newTestFactory(t, &mockBackend{deployErr: boom})

		_, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		assert.Equal(t, boom, err)
		_, ok := f.GetPool(tokenA, tokenB)
		assert.False(t, ok)
	})

	t.Run("rejects bad pool identities", func(t *testing.T) {
		backend := &mockBackend{fixedPool: common.HexToAddress("0xF1")}
		f := newTestFactory(t, backend)

		_, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		require.NoError(t, err)
		_, err = f.CreatePool(ctx, stranger, tokenA, tokenC, point(1))
		assert.ErrorIs(t, err, ErrPoolAddressTaken)
		assert.Equal(t, uint64(1), f.AllPoolsLength())
	})

	t.Run("owner only creation", func(t *testing.T) {
		backend := &mockBackend{}
		f := newTestFactory(t, backend, func(c *Config) { c.OwnerOnlyCreation = true })

		// authorization is checked before validation
		_, err := f.CreatePool(ctx, stranger, tokenA, tokenA, point(1))
		assert.ErrorIs(t, err, ErrNotAuthorized)
		_, err = f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.Equal(t, int64(0), backend.deploys.Load())

		_, err = f.CreatePool(ctx, owner, tokenA, tokenB, point(1))
		assert.NoError(t, err)
	})

	t.Run("owner change during creation rejects the old owner", func(t *testing.T) {
		backend := &handoverBackend{mockBackend: &mockBackend{}, newOwner: stranger}
		f := newTestFactory(t, backend.mockBackend, func(c *Config) {
			c.OwnerOnlyCreation = true
			c.Backend = backend
		})
		backend.factory = f

		_, err := f.CreatePool(ctx, owner, tokenA, tokenB, point(1))
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.Equal(t, uint64(0), f.AllPoolsLength())
		assert.Equal(t, stranger, f.Owner())
		assert.Len(t, backend.discarded, 1)
	})

	t.Run("journal failure aborts the commit", func(t *testing.T) {
		journal := &mockJournal{failErr: errors.New("disk full")}
		backend := &mockBackend{}
		f := newTestFactory(t, backend, func(c *Config) { c.Journal = journal })

		_, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, journal.failErr)
		assert.Equal(t, uint64(0), f.AllPoolsLength())
		assert.Equal(t, uint64(0), f.View().Sequence)
		assert.Len(t, backend.discarded, 1)
	})

	t.Run("retry succeeds after a transient journal failure", func(t *testing.T) {
		journal := &mockJournal{transient: 1}
		backend := &mockBackend{}
		f := newTestFactory(t, backend, func(c *Config) { c.Journal = journal })

		_, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		require.ErrorIs(t, err, errTransient)

		pool, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		require.NoError(t, err)
		got, ok := f.GetPool(tokenA, tokenB)
		require.True(t, ok)
		assert.Equal(t, pool, got)
		assert.Equal(t, []uint64{1}, journal.seqs)
	})

	t.Run("journal write outlives a cancelled caller", func(t *testing.T) {
		journal := &mockJournal{}
		backend := &cancellingBackend{mockBackend: &mockBackend{}}
		f := newTestFactory(t, backend.mockBackend, func(c *Config) {
			c.Journal = journal
			c.Backend = backend
		})

		callCtx, cancel := context.WithCancel(ctx)
		backend.cancel = cancel

		pool, err := f.CreatePool(callCtx, stranger, tokenA, tokenB, point(1))
		require.NoError(t, err)
		require.Len(t, journal.pools, 1)
		assert.Equal(t, pool, journal.pools[0].Pool)
	})

	t.Run("journal sees entries before commit", func(t *testing.T) {
		journal := &mockJournal{}
		f := newTestFactory(t, &mockBackend{}, func(c *Config) { c.Journal = journal })

		p1, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		require.NoError(t, err)
		p2, err := f.CreatePool(ctx, stranger, tokenC, tokenA, point(1))
		require.NoError(t, err)

		require.Len(t, journal.pools, 2)
		assert.Equal(t, PoolEntry{Index: 0, Pool: p1, TokenX: tokenA, TokenY: tokenB}, journal.pools[0])
		assert.Equal(t, PoolEntry{Index: 1, Pool: p2, TokenX: tokenA, TokenY: tokenC}, journal.pools[1])
		assert.Equal(t, []uint64{1, 2}, journal.seqs)
	})
}

func TestCreatePool_ConcurrentSamePair(t *testing.T) {
	const workers = 32
	backend := &mockBackend{deployDelay: time.Millisecond}
	f := newTestFactory(t, backend)

	var (
		wg        sync.WaitGroup
		successes atomic.Int64
		conflicts atomic.Int64
		start     = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			a, b := tokenA, tokenB
			if i%2 == 1 {
				a, b = b, a
			}
			_, err := f.CreatePool(context.Background(), stranger, a, b, point(uint64(i)))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrPoolAlreadyCreated):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load())
	assert.Equal(t, int64(workers-1), conflicts.Load())
	assert.Equal(t, int64(1), backend.deploys.Load())
	assert.Equal(t, uint64(1), f.AllPoolsLength())
	assert.Equal(t, 0, f.pairLocks.size(), "pair locks must be released")
}

func TestCreatePool_ConcurrentDistinctPairs(t *testing.T) {
	f := newTestFactory(t, &mockBackend{})

	const n = 50
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := common.BigToAddress(uint256.NewInt(uint64(0x1000 + i)).ToBig())
			_, err := f.CreatePool(context.Background(), stranger, tokenA, token, point(1))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	view := f.View()
	require.Len(t, view.Pools, n)
	for i, entry := range view.Pools {
		assert.Equal(t, uint64(i), entry.Index)
		got, ok := f.PoolAt(uint64(i))
		require.True(t, ok)
		assert.Equal(t, entry.Pool, got)
	}
	assert.Equal(t, uint64(n), view.Sequence)
}

func TestAdminSetters(t *testing.T) {
	ctx := context.Background()
	newOwner := common.HexToAddress("0x0E")

	testCases := []struct {
		name string
		set  func(f *Factory, caller, addr common.Address) error
		get  func(f *Factory) common.Address
	}{
		{"SetOwner", func(f *Factory, c, a common.Address) error { return f.SetOwner(ctx, c, a) }, (*Factory).Owner},
		{"SetFeeTo", func(f *Factory, c, a common.Address) error { return f.SetFeeTo(ctx, c, a) }, (*Factory).FeeTo},
		{"SetSweeper", func(f *Factory, c, a common.Address) error { return f.SetSweeper(ctx, c, a) }, (*Factory).Sweeper},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFactory(t, &mockBackend{})
			_, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
			require.NoError(t, err)
			before := f.View()

			for _, caller := range []common.Address{stranger, feeTo, sweeper} {
				err := tc.set(f, caller, newOwner)
				assert.ErrorIs(t, err, ErrNotAuthorized)
			}
			assert.Equal(t, before, f.View(), "unauthorized calls must leave state unchanged")

			require.NoError(t, tc.set(f, owner, newOwner))
			assert.Equal(t, newOwner, tc.get(f))
			assert.Equal(t, before.Sequence+1, f.View().Sequence)

			// zero is accepted
			caller := f.Owner()
			require.NoError(t, tc.set(f, caller, common.Address{}))
			assert.Equal(t, common.Address{}, tc.get(f))
		})
	}

	t.Run("ownership transfer moves authority", func(t *testing.T) {
		f := newTestFactory(t, &mockBackend{})
		require.NoError(t, f.SetOwner(ctx, owner, newOwner))
		assert.ErrorIs(t, f.SetFeeTo(ctx, owner, stranger), ErrNotAuthorized)
		assert.NoError(t, f.SetFeeTo(ctx, newOwner, stranger))
		assert.Equal(t, stranger, f.FeeTo())
	})

	t.Run("journal failure leaves admin unchanged", func(t *testing.T) {
		journal := &mockJournal{failErr: errors.New("locked")}
		f := newTestFactory(t, &mockBackend{}, func(c *Config) { c.Journal = journal })
		assert.Error(t, f.SetSweeper(ctx, owner, stranger))
		assert.Equal(t, sweeper, f.Sweeper())
	})
}

func TestPoolSweep(t *testing.T) {
	ctx := context.Background()
	recipient := common.HexToAddress("0x0F")

	t.Run("sweeper routes to backend", func(t *testing.T) {
		backend := &mockBackend{}
		f := newTestFactory(t, backend)
		pool, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		require.NoError(t, err)

		require.NoError(t, f.PoolSweep(ctx, sweeper, recipient, pool, SideY, point(42)))
		require.Len(t, backend.transfers, 1)
		assert.Equal(t, transfer{pool: pool, recipient: recipient, side: SideY, amount: point(42)}, backend.transfers[0])
	})

	t.Run("authorization checked first", func(t *testing.T) {
		backend := &mockBackend{}
		f := newTestFactory(t, backend)

		// unknown pool, but the caller learns nothing about it
		err := f.PoolSweep(ctx, owner, recipient, common.HexToAddress("0x99"), SideX, point(1))
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.Empty(t, backend.transfers)
	})

	t.Run("unknown pool", func(t *testing.T) {
		f := newTestFactory(t, &mockBackend{})
		err := f.PoolSweep(ctx, sweeper, recipient, common.HexToAddress("0x99"), SideX, point(1))
		assert.ErrorIs(t, err, ErrPoolNotFound)
	})

	t.Run("transfer error propagates", func(t *testing.T) {
		boom := errors.New("insufficient balance")
		backend := &mockBackend{}
		f := newTestFactory(t, backend)
		pool, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
		require.NoError(t, err)

		backend.transferErr = boom
		assert.Equal(t, boom, f.PoolSweep(ctx, sweeper, recipient, pool, SideX, point(1)))
	})
}

func TestReadMethods(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t, &mockBackend{})

	p1, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
	require.NoError(t, err)
	p2, err := f.CreatePool(ctx, stranger, tokenC, tokenB, point(1))
	require.NoError(t, err)

	assert.Equal(t, []common.Address{p1, p2}, f.AllPools())

	_, ok := f.PoolAt(2)
	assert.False(t, ok)

	_, ok = f.GetPool(tokenA, tokenC)
	assert.False(t, ok)
	_, ok = f.GetPool(tokenA, tokenA)
	assert.False(t, ok)
	_, ok = f.GetTokens(common.HexToAddress("0x1234"))
	assert.False(t, ok)

	assert.Equal(t, Admin{Owner: owner, FeeTo: feeTo, Sweeper: sweeper}, f.Admin())
}

func TestView_ReturnsCopy(t *testing.T) {
	f := newTestFactory(t, &mockBackend{})
	_, err := f.CreatePool(context.Background(), stranger, tokenA, tokenB, point(1))
	require.NoError(t, err)

	v1 := f.View()
	require.Len(t, v1.Pools, 1)
	original := v1.Pools[0]

	v1.Pools[0].Pool = common.HexToAddress("0xBAD")
	v1.Admin.Owner = stranger

	v2 := f.View()
	assert.Equal(t, original, v2.Pools[0])
	assert.Equal(t, owner, v2.Admin.Owner)
}

func TestNewFactoryFromView(t *testing.T) {
	ctx := context.Background()
	src := newTestFactory(t, &mockBackend{})
	_, err := src.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
	require.NoError(t, err)
	require.NoError(t, src.SetFeeTo(ctx, owner, stranger))

	cfg := &Config{
		Backend:  &mockBackend{next: 100},
		Logger:   testLogger(),
		Registry: prometheus.NewRegistry(),
	}

	t.Run("restores state", func(t *testing.T) {
		f, err := NewFactoryFromView(src.View(), cfg)
		require.NoError(t, err)
		assert.Equal(t, src.View(), f.View())
		assert.Equal(t, stranger, f.FeeTo())

		_, err = f.CreatePool(ctx, stranger, tokenB, tokenA, point(1))
		assert.ErrorIs(t, err, ErrPoolAlreadyCreated)
	})

	t.Run("rejects broken views", func(t *testing.T) {
		good := src.View()

		dupPair := good.Copy()
		dupPair.Pools = append(dupPair.Pools, PoolEntry{Index: 1, Pool: common.HexToAddress("0x77"), TokenX: tokenA, TokenY: tokenB})
		dupPair.Sequence = 10

		unsorted := good.Copy()
		unsorted.Pools[0].TokenX, unsorted.Pools[0].TokenY = tokenB, tokenA

		gap := good.Copy()
		gap.Pools[0].Index = 5

		lowSeq := good.Copy()
		lowSeq.Sequence = 0

		for name, v := range map[string]*View{"duplicate pair": dupPair, "unsorted pair": unsorted, "index gap": gap, "low sequence": lowSeq} {
			t.Run(name, func(t *testing.T) {
				cfg.Registry = prometheus.NewRegistry()
				_, err := NewFactoryFromView(v, cfg)
				assert.ErrorIs(t, err, ErrInvalidView)
			})
		}

		cfg.Registry = prometheus.NewRegistry()
		_, err := NewFactoryFromView(nil, cfg)
		assert.ErrorIs(t, err, ErrInvalidView)
	})
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t, &mockBackend{})

	created := make(chan PoolCreated, 4)
	changes := make(chan Change, 4)
	sub1 := f.SubscribePoolCreated(created)
	defer sub1.Unsubscribe()
	sub2 := f.SubscribeChanges(changes)
	defer sub2.Unsubscribe()

	pool, err := f.CreatePool(ctx, stranger, tokenB, tokenA, point(1))
	require.NoError(t, err)

	select {
	case ev := <-created:
		assert.Equal(t, PoolCreated{TokenX: tokenA, TokenY: tokenB, Pool: pool, Index: 0, Sequence: 1}, ev)
	case <-time.After(time.Second):
		t.Fatal("no PoolCreated event")
	}

	select {
	case ch := <-changes:
		assert.Equal(t, uint64(0), ch.Diff.FromSequence)
		assert.Equal(t, uint64(1), ch.Diff.ToSequence)
		require.Len(t, ch.Diff.PoolAdditions, 1)
		assert.Equal(t, pool, ch.Diff.PoolAdditions[0].Pool)
	case <-time.After(time.Second):
		t.Fatal("no Change event")
	}

	// failed creations emit nothing
	_, err = f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
	require.ErrorIs(t, err, ErrPoolAlreadyCreated)

	require.NoError(t, f.SetSweeper(ctx, owner, stranger))
	select {
	case ch := <-changes:
		require.NotNil(t, ch.Diff.Sweeper)
		assert.Equal(t, stranger, *ch.Diff.Sweeper)
		assert.Empty(t, ch.Diff.PoolAdditions)
	case <-time.After(time.Second):
		t.Fatal("no Change event for admin update")
	}
	assert.Len(t, created, 0)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	f := newTestFactory(t, &mockBackend{}, func(c *Config) { c.Registry = reg })

	_, err := f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
	require.NoError(t, err)
	_, _ = f.CreatePool(ctx, stranger, tokenA, tokenB, point(1))
	_ = f.SetOwner(ctx, stranger, stranger)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.poolsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.poolCount))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.failures.WithLabelValues("createPool", "already_created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.failures.WithLabelValues("setOwner", "unauthorized")))
}
