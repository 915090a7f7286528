package server

import poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"

// sequencer releases diffs in sequence order. The factory emits outside of its lock, so two
// mutations committed back to back may reach a subscriber swapped.
type sequencer struct {
	next    uint64
	pending map[uint64]poolfactory.Diff
}

func newSequencer(from uint64) *sequencer {
	return &sequencer{next: from, pending: make(map[uint64]poolfactory.Diff)}
}

// push queues diff and returns every diff that is now contiguous with the last one released.
// Diffs that end at or before the released sequence are dropped.
func (s *sequencer) push(diff poolfactory.Diff) []poolfactory.Diff {
	if diff.ToSequence <= s.next {
		return nil
	}
	s.pending[diff.FromSequence] = diff

	var ready []poolfactory.Diff
	for {
		d, ok := s.pending[s.next]
		if !ok {
			return ready
		}
		delete(s.pending, s.next)
		ready = append(ready, d)
		s.next = d.ToSequence
	}
}
