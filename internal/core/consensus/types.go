// Package consensus implements the finite-state automaton driving one node
// through {NoState, Normal, Trusted, Writing, Waiting}, per §4.4. States are
// a tagged variant plus an explicit transition map, not a class hierarchy:
// shared behavior lives in defaultHandle, concrete states only override the
// events that differ.
package consensus

import (
	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/pkg/types"
)

// StateTag names one of the five consensus states.
type StateTag uint8

const (
	StateNoState StateTag = iota
	StateNormal
	StateTrusted
	StateWriting
	StateWaiting
)

func (s StateTag) String() string {
	switch s {
	case StateNoState:
		return "NoState"
	case StateNormal:
		return "Normal"
	case StateTrusted:
		return "Trusted"
	case StateWriting:
		return "Writing"
	case StateWaiting:
		return "Waiting"
	default:
		return "Unknown"
	}
}

// EventKind names one of the events the automaton reacts to.
type EventKind uint8

const (
	EventRoundTable EventKind = iota
	EventStage1
	EventStage2
	EventStage3
	EventStageRequest1
	EventStageRequest2
	EventStageRequest3
	EventTransaction
	EventTransactionList
	EventBlock
	EventHash
	EventBigBang
	EventTimeout
	EventRoundEnd
)

// Result mirrors §4.4/§7's uniform propagation contract: Ignore is invisible
// to the controller, Failure is logged and consumed, Finish drives the
// transition table.
type Result uint8

const (
	ResultFinish Result = iota
	ResultIgnore
	ResultFailure
)

// Event carries the payload for whichever EventKind it names; only the
// field matching Kind is meaningful.
type Event struct {
	Kind EventKind

	RoundTable   types.RoundTable
	Stage1       roundstate.Stage1
	Stage2       roundstate.Stage2
	Stage3       roundstate.Stage3
	Block        types.Pool
	Hash         types.Hash
	BigBangRound types.RoundNumber
}
