package poolfactory

import (
	"fmt"
)

// Patcher constructs a new view by applying a diff to a previous view.
// The previous view is never modified.
func Patcher(prevState View, diff Diff) (View, error) {
	if diff.FromSequence != prevState.Sequence {
		return View{}, fmt.Errorf("%w: diff starts at %d, view is at %d", ErrSequenceMismatch, diff.FromSequence, prevState.Sequence)
	}
	if diff.ToSequence < diff.FromSequence {
		return View{}, fmt.Errorf("%w: diff ends at %d before it starts at %d", ErrSequenceMismatch, diff.ToSequence, diff.FromSequence)
	}

	r, err := newRegistryFromView(&prevState)
	if err != nil {
		return View{}, err
	}

	for _, entry := range diff.PoolAdditions {
		if entry.Index != uint64(len(r.all)) {
			return View{}, fmt.Errorf("%w: expected index %d, got %d", ErrConflictingPool, len(r.all), entry.Index)
		}
		if err := r.checkAdd(entry.Pair(), entry.Pool); err != nil {
			return View{}, fmt.Errorf("%w: pool %s: %v", ErrConflictingPool, entry.Pool, err)
		}
		r.commit(entry)
	}

	if diff.Owner != nil {
		r.admin.Owner = *diff.Owner
	}
	if diff.FeeTo != nil {
		r.admin.FeeTo = *diff.FeeTo
	}
	if diff.Sweeper != nil {
		r.admin.Sweeper = *diff.Sweeper
	}
	r.sequence = diff.ToSequence

	if uint64(len(r.all)) > r.sequence {
		return View{}, fmt.Errorf("%w: sequence %d is below pool count %d", ErrSequenceMismatch, r.sequence, len(r.all))
	}
	return *r.view(), nil
}
