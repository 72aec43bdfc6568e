package consensus

import "github.com/ledgercore/node/pkg/types"

// defaultHandle implements the behavior every concrete state inherits:
// block acceptance/buffering and round-table-driven transition. It reports
// handled=false when the event needs state-specific handling instead.
func (f *FSM) defaultHandle(state StateTag, ev Event) (Result, bool) {
	switch ev.Kind {
	case EventBlock:
		return f.onBlock(ev.Block), true
	case EventRoundTable:
		return f.onRoundTable(ev.RoundTable), true
	case EventHash:
		return ResultIgnore, true
	default:
		return ResultIgnore, false
	}
}

// onBlock validates and stores an accepted block. A candidate whose
// predecessor hasn't landed yet is buffered in future_blocks and drained
// once its predecessor arrives, per §4.4.
func (f *FSM) onBlock(pool types.Pool) Result {
	last := f.source.LastSequence()

	if pool.Sequence > last+1 {
		f.round.BufferFutureBlock(pool)
		f.logger.Debug("buffered future block", "sequence", pool.Sequence)
		return ResultFinish
	}
	if pool.Sequence <= last {
		return ResultIgnore
	}

	prev, err := f.source.Load(last)
	if err != nil && last != 0 {
		f.logger.Error("failed to load predecessor block", "sequence", last, "err", err)
		return ResultFailure
	}

	verdict := f.validator.Validate(prev, pool)
	switch verdict {
	case VerdictFatal:
		f.logger.Error("csfatal: block rejected by fatal validation", "sequence", pool.Sequence)
		return ResultFailure
	case VerdictError:
		f.logger.Warn("block rejected by validation", "sequence", pool.Sequence)
		return ResultFailure
	}

	if err := f.applier.Apply(pool); err != nil {
		f.logger.Error("failed to apply block", "sequence", pool.Sequence, "err", err)
		return ResultFailure
	}

	f.drainFutureBlocks(pool.Sequence + 1)
	return ResultFinish
}

func (f *FSM) drainFutureBlocks(next types.Sequence) {
	for {
		p, ok := f.round.TakeFutureBlock(next)
		if !ok {
			return
		}
		f.onBlock(p)
		next++
	}
}

// onRoundTable installs the new round and drives the transition into
// Trusted (participant) or Normal (observer). Delivering the same round
// table twice is a no-op: EnterRound is idempotent on identical input and
// the resulting state assignment is deterministic, satisfying the round
// policy idempotence property.
func (f *FSM) onRoundTable(rt types.RoundTable) Result {
	f.round.EnterRound(rt)
	role := f.round.Role()

	var next StateTag
	if role == types.RoleNormal {
		next = StateNormal
	} else {
		next = StateTrusted
	}
	f.transitionTo(next)
	return ResultFinish
}
