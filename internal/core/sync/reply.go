package sync

import "github.com/ledgercore/node/pkg/types"

// StoreFunc appends a synchronizer-delivered block and reports whether it
// was newly written, matching the storage facade's storeBlock(pool, bySync).
type StoreFunc func(pool types.Pool, bySync bool) bool

// GetBlockReply processes a batch of blocks delivered in answer to a range
// request: each pool clears its sequence from every neighbor's outstanding
// set, is stored if not already written, and progress/finish is re-emitted
// if the batch changed anything, per §4.6.
func (s *Synchronizer) GetBlockReply(pools []types.Pool, roundNum types.RoundNumber, store StoreFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	last := s.storage.LastSequence()

	for _, pool := range pools {
		for i := range s.neighbors {
			s.neighbors[i].RemoveRequested(pool.Sequence)
		}
		delete(s.requested, pool.Sequence)

		if pool.Sequence <= last {
			continue
		}
		if store(pool, true) {
			changed = true
			if pool.Sequence > last {
				last = pool.Sequence
			}
		}
	}

	if !changed {
		return
	}

	s.emitProgressLocked(roundNum)
	if s.remainingLocked(roundNum) == 0 {
		s.finishLocked()
	}
}
