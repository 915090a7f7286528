package poolfactory

import "errors"

var (
	// ErrInvalidAddress is returned when a token is the zero address or both tokens are equal.
	ErrInvalidAddress = errors.New("invalid token address")
	// ErrPoolAlreadyCreated is returned when the canonical pair already has a pool.
	ErrPoolAlreadyCreated = errors.New("pool already created")
	// ErrNotAuthorized is returned when the caller doesn't hold the role an operation requires.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrPoolNotFound is returned by PoolSweep for a pool the registry doesn't know.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrInvalidPoolAddress is returned when the pool constructor hands back the zero address.
	ErrInvalidPoolAddress = errors.New("pool constructor returned the zero address")
	// ErrPoolAddressTaken is returned when the pool constructor hands back an identity that is
	// already registered for another pair.
	ErrPoolAddressTaken = errors.New("pool address already registered")

	// ErrInvalidView is returned when a snapshot violates the registry invariants.
	ErrInvalidView = errors.New("invalid registry view")
	// ErrSequenceMismatch is returned when a diff doesn't start at the sequence of the state it is applied to.
	ErrSequenceMismatch = errors.New("diff sequence mismatch")
	// ErrConflictingPool is returned when a diff registers an already registered pair or pool.
	ErrConflictingPool = errors.New("diff conflicts with registered pool")
	// ErrPoolRemoved is returned by Differ when the newer view lost pools; pools are permanent.
	ErrPoolRemoved = errors.New("pool removed from registry")
)
