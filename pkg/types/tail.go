package types

import "encoding/json"

// TailWindow is the width W of the replay-protection window kept per wallet.
const TailWindow = 32

// TransactionsTail is a bounded bitmap over the last TailWindow transaction
// ids seen from a single source wallet. Bit i (0 <= i < TailWindow) of window
// represents id = max-i, so bit 0 is always the most recently pushed id.
type TransactionsTail struct {
	window uint32
	max    int64
	hasMax bool
}

// IsAllowed reports whether id may be admitted given the tail's current
// state: the heap is empty, id exceeds the known maximum, or id falls inside
// the window but has not yet been recorded.
func (t TransactionsTail) IsAllowed(id int64) bool {
	if !t.hasMax {
		return true
	}
	if id > t.max {
		return true
	}
	min := t.max - (TailWindow - 1)
	if id < min {
		return false
	}
	pos := uint(t.max - id)
	return t.window&(1<<pos) == 0
}

// Push records id as seen, sliding the window forward when id is a new
// maximum. Pushing an id below the current window is a no-op: callers must
// check IsAllowed first, per the tail replay-protection invariant.
func (t *TransactionsTail) Push(id int64) {
	if !t.hasMax {
		t.hasMax = true
		t.max = id
		t.window = 1
		return
	}
	switch {
	case id > t.max:
		shift := uint64(id - t.max)
		if shift >= TailWindow {
			t.window = 0
		} else {
			t.window <<= shift
		}
		t.max = id
		t.window |= 1
	case id >= t.max-(TailWindow-1):
		pos := uint(t.max - id)
		t.window |= 1 << pos
	default:
		// outside the window; nothing to record.
	}
}

// Max reports the highest id ever pushed and whether any id has been pushed.
func (t TransactionsTail) Max() (int64, bool) { return t.max, t.hasMax }

// Window exposes the raw bitmap for persistence.
func (t TransactionsTail) Window() uint32 { return t.window }

// RestoreTail rebuilds a TransactionsTail from its persisted components.
func RestoreTail(window uint32, max int64, hasMax bool) TransactionsTail {
	return TransactionsTail{window: window, max: max, hasMax: hasMax}
}

type tailWire struct {
	Window uint32 `json:"window"`
	Max    int64  `json:"max"`
	HasMax bool   `json:"hasMax"`
}

// MarshalJSON serializes the tail's bitmap and range, mirroring RestoreTail.
func (t TransactionsTail) MarshalJSON() ([]byte, error) {
	return json.Marshal(tailWire{Window: t.window, Max: t.max, HasMax: t.hasMax})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *TransactionsTail) UnmarshalJSON(data []byte) error {
	var w tailWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.window, t.max, t.hasMax = w.Window, w.Max, w.HasMax
	return nil
}
