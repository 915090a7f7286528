package server

import (
	"context"
	"time"

	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// changeBufferSize is how many mutations a stream may lag behind before the factory blocks on it.
const changeBufferSize = 256

// Registry is the part of the factory served over RPC.
type Registry interface {
	GetPool(tokenA, tokenB common.Address) (common.Address, bool)
	GetTokens(pool common.Address) (poolfactory.TokenPair, bool)
	AllPoolsLength() uint64
	PoolAt(i uint64) (common.Address, bool)
	Owner() common.Address
	FeeTo() common.Address
	Sweeper() common.Address
	View() *poolfactory.View

	CreatePool(ctx context.Context, caller, tokenA, tokenB common.Address, initialPoint *uint256.Int) (common.Address, error)
	SetOwner(ctx context.Context, caller, newOwner common.Address) error
	SetFeeTo(ctx context.Context, caller, newRecipient common.Address) error
	SetSweeper(ctx context.Context, caller, newSweeper common.Address) error
	PoolSweep(ctx context.Context, caller, recipient, pool common.Address, side poolfactory.Side, amount *uint256.Int) error

	SubscribePoolCreated(ch chan<- poolfactory.PoolCreated) event.Subscription
	SubscribeChanges(ch chan<- poolfactory.Change) event.Subscription
}

// API is the RPC receiver registered under RpcNamespace. Callers are asserted by the peer, so it
// must only be exposed on a trusted transport.
type API struct {
	registry Registry
	logger   poolfactory.Logger
}

// --- Read Methods ---

// GetPool returns null when the pair has no pool.
func (api *API) GetPool(tokenA, tokenB common.Address) *common.Address {
	pool, ok := api.registry.GetPool(tokenA, tokenB)
	if !ok {
		return nil
	}
	return &pool
}

// GetTokens returns null for an unregistered pool.
func (api *API) GetTokens(pool common.Address) *poolfactory.TokenPair {
	pair, ok := api.registry.GetTokens(pool)
	if !ok {
		return nil
	}
	return &pair
}

func (api *API) AllPoolsLength() hexutil.Uint64 {
	return hexutil.Uint64(api.registry.AllPoolsLength())
}

func (api *API) PoolAt(i hexutil.Uint64) *common.Address {
	pool, ok := api.registry.PoolAt(uint64(i))
	if !ok {
		return nil
	}
	return &pool
}

func (api *API) Owner() common.Address   { return api.registry.Owner() }
func (api *API) FeeTo() common.Address   { return api.registry.FeeTo() }
func (api *API) Sweeper() common.Address { return api.registry.Sweeper() }

func (api *API) View() *poolfactory.View { return api.registry.View() }

// --- Write Methods ---

func (api *API) CreatePool(ctx context.Context, caller, tokenA, tokenB common.Address, initialPoint *uint256.Int) (common.Address, error) {
	return api.registry.CreatePool(ctx, caller, tokenA, tokenB, initialPoint)
}

func (api *API) SetOwner(ctx context.Context, caller, newOwner common.Address) error {
	return api.registry.SetOwner(ctx, caller, newOwner)
}

func (api *API) SetFeeTo(ctx context.Context, caller, newRecipient common.Address) error {
	return api.registry.SetFeeTo(ctx, caller, newRecipient)
}

func (api *API) SetSweeper(ctx context.Context, caller, newSweeper common.Address) error {
	return api.registry.SetSweeper(ctx, caller, newSweeper)
}

func (api *API) PoolSweep(ctx context.Context, caller, recipient, pool common.Address, side poolfactory.Side, amount *uint256.Int) error {
	return api.registry.PoolSweep(ctx, caller, recipient, pool, side, amount)
}

// --- Subscriptions ---

// SubscribeRegistryStream sends the full view followed by one diff per committed mutation.
func (api *API) SubscribeRegistryStream(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	// Subscribe before taking the view so no change falls between the two.
	changes := make(chan poolfactory.Change, changeBufferSize)
	sub := api.registry.SubscribeChanges(changes)
	view := api.registry.View()

	rpcSub := notifier.CreateSubscription()
	full := SubscriptionEvent{
		Type:    EventTypeFull,
		Payload: FullPayload{Schema: poolfactory.Schema, View: *view},
		SentAt:  time.Now().UnixNano(),
	}
	if err := notifier.Notify(rpcSub.ID, full); err != nil {
		sub.Unsubscribe()
		return nil, err
	}

	go func() {
		defer sub.Unsubscribe()
		seq := newSequencer(view.Sequence)
		for {
			select {
			case change := <-changes:
				for _, diff := range seq.push(change.Diff) {
					ev := SubscriptionEvent{
						Type:    EventTypeDiff,
						Payload: DiffPayload{Schema: poolfactory.Schema, Diff: diff},
						SentAt:  time.Now().UnixNano(),
					}
					if err := notifier.Notify(rpcSub.ID, ev); err != nil {
						api.logger.Debug("Error notifying subscriber", "id", rpcSub.ID, "err", err)
						return
					}
				}
			case err := <-sub.Err():
				if err != nil {
					api.logger.Error("Change feed failed", "err", err)
				}
				return
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}

// SubscribePoolCreated sends one notification per registered pool.
func (api *API) SubscribePoolCreated(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	created := make(chan poolfactory.PoolCreated, changeBufferSize)
	sub := api.registry.SubscribePoolCreated(created)
	rpcSub := notifier.CreateSubscription()

	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case ev := <-created:
				if err := notifier.Notify(rpcSub.ID, ev); err != nil {
					api.logger.Debug("Error notifying subscriber", "id", rpcSub.ID, "err", err)
					return
				}
			case <-sub.Err():
				return
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}
