package poolfactory

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Diff represents the changes required to transition from one registry view to a later one.
type Diff struct {
	FromSequence uint64 `json:"fromSequence"`
	ToSequence   uint64 `json:"toSequence"`
	// PoolAdditions contains pools created since FromSequence, in creation order.
	PoolAdditions []PoolEntry `json:"poolAdditions,omitempty"`

	// Admin fields are set only when they changed.
	Owner   *common.Address `json:"owner,omitempty"`
	FeeTo   *common.Address `json:"feeTo,omitempty"`
	Sweeper *common.Address `json:"sweeper,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d Diff) IsEmpty() bool {
	return len(d.PoolAdditions) == 0 &&
		d.Owner == nil &&
		d.FeeTo == nil &&
		d.Sweeper == nil
}

// Differ calculates the difference between two registry views (Old -> New).
// Pools are permanent, so the old pool list must be a prefix of the new one.
func Differ(old, new View) (Diff, error) {
	if new.Sequence < old.Sequence {
		return Diff{}, fmt.Errorf("%w: new view sequence %d is behind %d", ErrSequenceMismatch, new.Sequence, old.Sequence)
	}
	if len(new.Pools) < len(old.Pools) {
		return Diff{}, fmt.Errorf("%w: %d pools in old view, %d in new", ErrPoolRemoved, len(old.Pools), len(new.Pools))
	}
	for i, entry := range old.Pools {
		if new.Pools[i] != entry {
			return Diff{}, fmt.Errorf("%w: entry %d was rewritten", ErrConflictingPool, i)
		}
	}

	diff := Diff{
		FromSequence: old.Sequence,
		ToSequence:   new.Sequence,
	}
	if added := new.Pools[len(old.Pools):]; len(added) > 0 {
		diff.PoolAdditions = make([]PoolEntry, len(added))
		copy(diff.PoolAdditions, added)
	}

	if old.Admin.Owner != new.Admin.Owner {
		owner := new.Admin.Owner
		diff.Owner = &owner
	}
	if old.Admin.FeeTo != new.Admin.FeeTo {
		feeTo := new.Admin.FeeTo
		diff.FeeTo = &feeTo
	}
	if old.Admin.Sweeper != new.Admin.Sweeper {
		sweeper := new.Admin.Sweeper
		diff.Sweeper = &sweeper
	}
	return diff, nil
}
