package consensus

import (
	"sync"
	"time"

	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/pkg/interfaces"
)

// FSM is the consensus state machine for a single node. It owns no
// back-pointers to a context object: every collaborator it needs is a
// constructor parameter, per the design note against cyclic references.
type FSM struct {
	mu sync.Mutex

	round     *roundstate.State
	validator BlockValidator
	applier   BlockApplier
	source    BlockSource
	sched     interfaces.Scheduler
	transport interfaces.Transport
	logger    interfaces.Logger
	cfg       interfaces.ConsensusConfig
	writer    *WriterProducer

	current      StateTag
	stateTimeout interfaces.TimerHandle
	waitTimeout  interfaces.TimerHandle

	// pendingWriterHint remembers the Stage3 evidence that put this node
	// into Waiting, so an expired wait timeout knows which writer/queue
	// bracket to request round info from.
	pendingWriterHint roundstate.Stage3
}

// New builds an FSM starting in NoState.
func New(
	round *roundstate.State,
	validator BlockValidator,
	applier BlockApplier,
	source BlockSource,
	sched interfaces.Scheduler,
	transport interfaces.Transport,
	logger interfaces.Logger,
	cfg interfaces.ConsensusConfig,
	writer *WriterProducer,
) *FSM {
	return &FSM{
		round:     round,
		validator: validator,
		applier:   applier,
		source:    source,
		sched:     sched,
		transport: transport,
		logger:    logger.With("module", "consensus"),
		cfg:       cfg,
		writer:    writer,
		current:   StateNoState,
	}
}

// Current returns the automaton's current state tag.
func (f *FSM) Current() StateTag {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// OnEvent feeds ev to the automaton, applying default behavior first and
// then any state-specific override. BigBang unconditionally resets to
// NoState regardless of the current state or event handled so far.
func (f *FSM) OnEvent(ev Event) Result {
	if ev.Kind == EventBigBang {
		return f.onBigBang(ev)
	}

	f.mu.Lock()
	state := f.current
	f.mu.Unlock()

	if res, handled := f.defaultHandle(state, ev); handled {
		return res
	}

	switch state {
	case StateNoState:
		return f.handleNoState(ev)
	case StateNormal:
		return f.handleNormal(ev)
	case StateTrusted:
		return f.handleTrusted(ev)
	case StateWriting:
		return f.handleWriting(ev)
	case StateWaiting:
		return f.handleWaiting(ev)
	default:
		return ResultIgnore
	}
}

// transitionTo cancels any pending state timeout, installs newState, and
// arms newState's DefaultStateTimeout if it declares one.
func (f *FSM) transitionTo(newState StateTag) {
	f.mu.Lock()
	old := f.current
	f.current = newState
	if f.stateTimeout != nil {
		f.stateTimeout.Cancel()
		f.stateTimeout = nil
	}
	f.mu.Unlock()

	if old != newState {
		f.logger.Info("state transition", "from", old.String(), "to", newState.String())
	}

	if d, ok := f.defaultStateTimeout(newState); ok {
		f.armTimeout(newState, d)
	}
}

func (f *FSM) defaultStateTimeout(s StateTag) (time.Duration, bool) {
	switch s {
	case StateTrusted, StateWriting:
		return f.cfg.DefaultStateTimeout, true
	default:
		return 0, false
	}
}

func (f *FSM) armTimeout(expectedState StateTag, d time.Duration) {
	handle := f.sched.After(d, func() {
		f.mu.Lock()
		stillSame := f.current == expectedState
		f.mu.Unlock()
		if !stillSame {
			return
		}
		f.OnEvent(Event{Kind: EventTimeout})
	})
	f.mu.Lock()
	f.stateTimeout = handle
	f.mu.Unlock()
}

// onBigBang resets to NoState, cancels the state and wait timeouts and drops
// buffered future blocks (§9's conservative choice extends to the FSM's own
// buffers). It does not touch the round number or the stage accumulators;
// the round table delivered after a BigBang installs those.
func (f *FSM) onBigBang(ev Event) Result {
	f.mu.Lock()
	if f.stateTimeout != nil {
		f.stateTimeout.Cancel()
		f.stateTimeout = nil
	}
	if f.waitTimeout != nil {
		f.waitTimeout.Cancel()
		f.waitTimeout = nil
	}
	f.current = StateNoState
	f.mu.Unlock()

	f.round.ClearFutureBlocks()

	f.logger.Info("bigbang reset", "round", ev.BigBangRound)
	return ResultFinish
}
