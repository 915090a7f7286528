package pool

import "errors"

var (
	// ErrUnknownPool is returned for a pool this backend never deployed.
	ErrUnknownPool = errors.New("unknown pool")
	// ErrPoolExists is returned when a pool with the same deterministic address already exists.
	ErrPoolExists = errors.New("pool already deployed")
	// ErrPoolNotEmpty is returned when discarding a pool that holds reserves.
	ErrPoolNotEmpty = errors.New("pool holds reserves")
	// ErrInvalidSide is returned for a side other than SideX or SideY.
	ErrInvalidSide = errors.New("invalid pool side")
	// ErrNilAmount is returned when a nil pointer is passed for an amount or point.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrInsufficientBalance is returned when a transfer exceeds the pool's reserve.
	ErrInsufficientBalance = errors.New("insufficient pool balance")
)
