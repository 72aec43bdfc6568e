package consensus

import (
	"time"

	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/pkg/interfaces"
)

// handleNoState covers events defaultHandle didn't already resolve. Nothing
// else is meaningful before a round table has arrived.
func (f *FSM) handleNoState(ev Event) Result {
	return ResultIgnore
}

// handleNormal ignores consensus-stage events: a Normal node only ever
// consumes blocks and round tables, both handled by defaultHandle.
func (f *FSM) handleNormal(ev Event) Result {
	switch ev.Kind {
	case EventStage1, EventStage2, EventStage3,
		EventStageRequest1, EventStageRequest2, EventStageRequest3:
		f.logger.Debug("ignoring consensus stage event outside Trusted/Writing")
		return ResultIgnore
	default:
		return ResultIgnore
	}
}

// handleTrusted accumulates stage evidence and, once this node's Stage3
// designates it Writer (writing queue number 0), transitions into Writing;
// otherwise it enters Waiting with a delayed re-activation.
func (f *FSM) handleTrusted(ev Event) Result {
	switch ev.Kind {
	case EventStage1:
		f.round.AddStage1(ev.Stage1)
		return ResultFinish
	case EventStage2:
		f.round.AddStage2(ev.Stage2)
		return ResultFinish
	case EventStage3:
		f.round.AddStage3(ev.Stage3)
		return f.onStage3(ev.Stage3)
	case EventStageRequest1, EventStageRequest2, EventStageRequest3:
		return ResultIgnore
	case EventTimeout:
		return f.onTrustedExpired()
	default:
		return ResultIgnore
	}
}

// onStage3 computes this node's writing queue number from realTrustedMask
// and either assumes Writer immediately (queue number 0) or schedules a
// delayed activate_new_round proportional to its position in the queue.
func (f *FSM) onStage3(v roundstate.Stage3) Result {
	myIndex := f.round.MyIndex()
	if myIndex < 0 {
		return ResultIgnore
	}
	queueNumber := popcountBelow(v.RealTrustedMask, myIndex)

	if queueNumber == 0 {
		f.transitionTo(StateWriting)
		pool, err := f.writer.Produce(f.round, v.RealTrustedMask, f.source.LastSequence()+1)
		if err != nil {
			f.logger.Error("writer failed to produce block", "err", err)
			return ResultFailure
		}
		// The writer never receives its own broadcast back, so it applies
		// the block it just produced directly and drives its own RoundEnd.
		f.OnEvent(Event{Kind: EventBlock, Block: pool})
		f.OnEvent(Event{Kind: EventRoundEnd})
		return ResultFinish
	}

	f.transitionTo(StateWaiting)
	delay := f.cfg.PostConsensusTimeout * time.Duration(queueNumber)
	f.armWaitTimeout(delay, v)
	return ResultFinish
}

// popcountBelow counts the set bits of mask at positions strictly below idx,
// giving the "writing queue number" §4.4 assigns to confidant idx.
func popcountBelow(mask uint64, idx int) int {
	if idx <= 0 {
		return 0
	}
	if idx >= 64 {
		idx = 64
	}
	lowMask := mask & ((uint64(1) << uint(idx)) - 1)
	count := 0
	for lowMask != 0 {
		lowMask &= lowMask - 1
		count++
	}
	return count
}

func (f *FSM) armWaitTimeout(delay time.Duration, v roundstate.Stage3) {
	handle := f.sched.After(delay, func() {
		f.OnEvent(Event{Kind: EventTimeout})
	})
	f.mu.Lock()
	if f.waitTimeout != nil {
		f.waitTimeout.Cancel()
	}
	f.waitTimeout = handle
	f.mu.Unlock()
	f.pendingWriterHint = v
}

// onTrustedExpired handles Trusted's DefaultStateTimeout firing without a
// state change: it is logged and swallowed, per §4.4's ignored-timeout rule.
func (f *FSM) onTrustedExpired() Result {
	f.logger.Debug("trusted state timeout expired without transition")
	return ResultFailure
}

// handleWriting covers the Writer's own view: once the produced block is
// itself accepted (EventBlock, handled generically) the round is over and
// Writing yields to Waiting on RoundEnd.
func (f *FSM) handleWriting(ev Event) Result {
	switch ev.Kind {
	case EventRoundEnd:
		f.transitionTo(StateWaiting)
		return ResultFinish
	case EventTimeout:
		f.logger.Warn("writer timed out producing block")
		return ResultFailure
	default:
		return ResultIgnore
	}
}

// handleWaiting requests round info from neighbors bracketing the expected
// proposer once the delayed activate_new_round timer fires, per §4.4.
func (f *FSM) handleWaiting(ev Event) Result {
	switch ev.Kind {
	case EventTimeout:
		f.requestRoundInfoBracket()
		return ResultFinish
	default:
		return ResultIgnore
	}
}

// requestRoundInfoBracket asks the neighbors at (writer + queueNumber ± 1)
// mod |confidants| for round info, bracketing the expected proposer.
func (f *FSM) requestRoundInfoBracket() {
	confidants := f.round.Confidants()
	n := len(confidants)
	if n == 0 {
		return
	}
	writer := int(f.pendingWriterHint.Writer)
	queueNumber := popcountBelow(f.pendingWriterHint.RealTrustedMask, f.round.MyIndex())

	for _, delta := range []int{-1, 1} {
		idx := ((writer+queueNumber+delta)%n + n) % n
		peer := confidants[idx]
		_ = f.transport.Send(interfaces.Frame{Kind: interfaces.KindRoundInfoRequest}, peer)
	}
}
