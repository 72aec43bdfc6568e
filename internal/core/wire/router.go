package wire

import (
	"sync"

	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// Action is the router's verdict for an incoming frame.
type Action uint8

const (
	ActionProcess Action = iota
	ActionPostpone
	ActionDrop
)

// Policy implements the round-relation table from §4.1: given the frame's
// kind, its round, the local head sequence and the node's current round, it
// decides whether to process, postpone or drop the frame.
func Policy(kind interfaces.MessageKind, frameRound, currentRound types.RoundNumber, localHead types.Sequence) Action {
	switch kind {
	case interfaces.KindBigBang:
		if frameRound > types.RoundNumber(localHead) {
			return ActionProcess
		}
		return ActionDrop
	case interfaces.KindRoundTableRequest:
		if frameRound < currentRound {
			return ActionProcess
		}
		return ActionDrop
	case interfaces.KindRoundTable:
		if frameRound > currentRound {
			return ActionProcess
		}
		return ActionDrop
	case interfaces.KindBlockRequest, interfaces.KindRequestedBlock:
		if frameRound <= currentRound {
			return ActionProcess
		}
		return ActionDrop
	case interfaces.KindNewBlock:
		if frameRound < currentRound {
			return ActionProcess
		}
		return byGenericRule(frameRound, currentRound)
	default:
		return byGenericRule(frameRound, currentRound)
	}
}

func byGenericRule(frameRound, currentRound types.RoundNumber) Action {
	switch {
	case frameRound == currentRound:
		return ActionProcess
	case frameRound > currentRound:
		return ActionPostpone
	default:
		return ActionDrop
	}
}

// PostponedQueue holds frames the policy postponed until their round starts.
// It is destroyed (never replayed) across BigBang, per the conservative
// choice recorded in §9's open questions.
type PostponedQueue struct {
	mu      sync.Mutex
	byRound map[types.RoundNumber][]interfaces.Frame
}

// NewPostponedQueue returns an empty queue.
func NewPostponedQueue() *PostponedQueue {
	return &PostponedQueue{byRound: make(map[types.RoundNumber][]interfaces.Frame)}
}

// Add stores frame under its round for later replay.
func (q *PostponedQueue) Add(frame interfaces.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.byRound[frame.Round] = append(q.byRound[frame.Round], frame)
}

// Drain removes and returns the frames postponed for round, in arrival order.
func (q *PostponedQueue) Drain(round types.RoundNumber) []interfaces.Frame {
	q.mu.Lock()
	defer q.mu.Unlock()
	frames := q.byRound[round]
	delete(q.byRound, round)
	return frames
}

// Clear drops every postponed frame, regardless of round. Called on BigBang.
func (q *PostponedQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.byRound = make(map[types.RoundNumber][]interfaces.Frame)
}

// Router classifies incoming frames per Policy and dispatches accepted ones
// to a handler, postponing or dropping the rest.
type Router struct {
	postponed   *PostponedQueue
	handle      func(interfaces.Frame)
	onPostponed func()
}

// NewRouter builds a Router that calls handle for every frame Policy accepts.
func NewRouter(handle func(interfaces.Frame)) *Router {
	return &Router{postponed: NewPostponedQueue(), handle: handle}
}

// SetPostponeHook registers a callback invoked once per frame the router
// holds back for a future round, for reporting purposes only.
func (r *Router) SetPostponeHook(hook func()) {
	r.onPostponed = hook
}

// Dispatch classifies and, if accepted, immediately hands frame to the
// configured handler.
func (r *Router) Dispatch(frame interfaces.Frame, currentRound types.RoundNumber, localHead types.Sequence) {
	switch Policy(frame.Kind, frame.Round, currentRound, localHead) {
	case ActionProcess:
		r.handle(frame)
	case ActionPostpone:
		r.postponed.Add(frame)
		if r.onPostponed != nil {
			r.onPostponed()
		}
	case ActionDrop:
	}
}

// ReplayRound is called on round start: drains and re-dispatches every frame
// postponed for round.
func (r *Router) ReplayRound(round types.RoundNumber) {
	for _, frame := range r.postponed.Drain(round) {
		r.handle(frame)
	}
}

// OnBigBang drops every postponed frame, per the conservative choice in §9.
func (r *Router) OnBigBang() {
	r.postponed.Clear()
}
