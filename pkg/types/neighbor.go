package types

// Neighbor is the synchronizer's view of a transport peer: its local index,
// the highest sequence it is known to have, the sequences currently
// requested from it, and how many rounds have elapsed since it was last
// (re)assigned work.
type Neighbor struct {
	Index             uint8
	LastSeenSequence  Sequence
	Requested         []Sequence
	RoundCounter      uint32
}

// HasRequested reports whether seq is among the neighbor's outstanding
// requests.
func (n Neighbor) HasRequested(seq Sequence) bool {
	for _, s := range n.Requested {
		if s == seq {
			return true
		}
	}
	return false
}

// RemoveRequested drops seq from the neighbor's outstanding requests, if
// present.
func (n *Neighbor) RemoveRequested(seq Sequence) {
	out := n.Requested[:0]
	for _, s := range n.Requested {
		if s != seq {
			out = append(out, s)
		}
	}
	n.Requested = out
}
