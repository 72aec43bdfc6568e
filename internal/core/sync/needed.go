package sync

import (
	"sort"

	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// getNeededSequencesLocked selects the sequences neighborIdx should be asked
// for next, per §4.6's request-selection rules. Callers hold s.mu.
func (s *Synchronizer) getNeededSequencesLocked(neighborIdx int, roundNum types.RoundNumber) []types.Sequence {
	last := s.storage.LastSequence()
	target := s.targetSequenceLocked(roundNum)
	n := &s.neighbors[neighborIdx]

	for seq := range s.requested {
		if seq <= last {
			delete(s.requested, seq)
		}
	}

	gap := int64(target) - int64(last)
	isLastPacket := gap <= int64(s.cfg.BlockPoolsCount)

	if isLastPacket && len(s.requested) > 0 {
		tail := sortedKeys(s.requested)
		n.RoundCounter = 0
		if neighborHasAll(*n, tail) {
			return n.Requested
		}
		s.releaseNeighborLocked(neighborIdx)
		n.Requested = tail
		return n.Requested
	}

	ranges := s.storage.RequiredRanges()

	for seq, retries := range s.requested {
		if retries < s.cfg.NeighbourPacketsCount {
			continue
		}
		holder := s.findHolderLocked(seq, neighborIdx)
		if holder < 0 {
			continue
		}
		stolen := s.neighbors[holder].Requested
		s.neighbors[holder].Requested = nil
		n.Requested = stolen
		n.RoundCounter = 0
		if s.metrics != nil {
			s.metrics.SyncSteals.Inc()
		}
		return n.Requested
	}

	if int(n.RoundCounter) >= s.cfg.RequestRepeatRoundCount && len(n.Requested) > 0 {
		s.bumpRetriesLocked(n.Requested)
		return n.Requested
	}

	window := s.assignWindowLocked(n, last, ranges)
	n.Requested = window
	n.RoundCounter = 0
	for _, seq := range window {
		if _, ok := s.requested[seq]; !ok {
			s.requested[seq] = 0
		}
	}
	return window
}

// assignWindowLocked builds a fresh request window of up to BlockPoolsCount
// sequences, starting after the neighbor's last requested/seen sequence and
// skipping over ranges storage already has, per §4.6's last bullet.
func (s *Synchronizer) assignWindowLocked(n *types.Neighbor, last types.Sequence, ranges []interfaces.SequenceRange) []types.Sequence {
	start := lastRequested(*n)
	if start < last {
		start = last
	}
	// Continue past whatever the rest of the neighbor set already has
	// outstanding, so a single sync tick splits the gap into disjoint
	// windows instead of every idle neighbor re-requesting the same tail.
	if globalMax := s.maxRequestedLocked(); globalMax > start {
		start = globalMax
	}

	window := make([]types.Sequence, 0, s.cfg.BlockPoolsCount)
	seq := start + 1
	for len(window) < s.cfg.BlockPoolsCount {
		if inRanges(ranges, seq) {
			window = append(window, seq)
			seq++
			continue
		}
		next, ok := nextRangeLower(ranges, seq)
		if !ok {
			break
		}
		seq = next
	}
	return window
}

func (s *Synchronizer) maxRequestedLocked() types.Sequence {
	var max types.Sequence
	for seq := range s.requested {
		if seq > max {
			max = seq
		}
	}
	return max
}

func lastRequested(n types.Neighbor) types.Sequence {
	if len(n.Requested) == 0 {
		return n.LastSeenSequence
	}
	max := n.Requested[0]
	for _, s := range n.Requested[1:] {
		if s > max {
			max = s
		}
	}
	if max > n.LastSeenSequence {
		return max
	}
	return n.LastSeenSequence
}

func neighborHasAll(n types.Neighbor, seqs []types.Sequence) bool {
	for _, seq := range seqs {
		if !n.HasRequested(seq) {
			return false
		}
	}
	return len(n.Requested) == len(seqs)
}

func sortedKeys(m map[types.Sequence]int) []types.Sequence {
	out := make([]types.Sequence, 0, len(m))
	for seq := range m {
		out = append(out, seq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func inRanges(ranges []interfaces.SequenceRange, seq types.Sequence) bool {
	for _, r := range ranges {
		if seq >= r.Lo && seq <= r.Hi {
			return true
		}
	}
	return false
}

// nextRangeLower finds the smallest range lower-bound strictly above seq. It
// reports false once seq is past every range's upper bound.
func nextRangeLower(ranges []interfaces.SequenceRange, seq types.Sequence) (types.Sequence, bool) {
	var best types.Sequence
	found := false
	for _, r := range ranges {
		if r.Lo > seq && (!found || r.Lo < best) {
			best = r.Lo
			found = true
		}
	}
	return best, found
}

func (s *Synchronizer) bumpRetriesLocked(seqs []types.Sequence) {
	for _, seq := range seqs {
		s.requested[seq]++
	}
}

// findHolderLocked returns the index of the neighbor other than exclude that
// currently has seq outstanding, or -1 if none.
func (s *Synchronizer) findHolderLocked(seq types.Sequence, exclude int) int {
	for i := range s.neighbors {
		if i == exclude {
			continue
		}
		if s.neighbors[i].HasRequested(seq) {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) releaseNeighborLocked(idx int) {
	s.neighbors[idx].Requested = nil
	s.neighbors[idx].RoundCounter = 0
}
