package sync

import "github.com/ledgercore/node/pkg/types"

// RefreshNeighbors reconciles the local neighbor list against transport's
// current non-signal-server peer count, extending or shrinking it and
// releasing a removed neighbor's outstanding sequences back to the pool.
func (s *Synchronizer) RefreshNeighbors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshNeighborsLocked()
}

func (s *Synchronizer) refreshNeighborsLocked() {
	want := s.transport.NeighborCountWithoutSS()

	switch {
	case want > len(s.neighbors):
		for i := len(s.neighbors); i < want; i++ {
			s.neighbors = append(s.neighbors, types.Neighbor{Index: uint8(i)})
		}
	case want < len(s.neighbors):
		removed := s.neighbors[want:]
		s.neighbors = s.neighbors[:want]
		for _, n := range removed {
			for _, seq := range n.Requested {
				delete(s.requested, seq)
			}
		}
	}
}
