// Package roundctl implements the round advancement controller of §4.8: on
// entering a new round it replays postponed messages, hands the round table
// to consensus, and decides whether a pool sync should start. Transport task
// queues are cleared only on a BigBang, together with the postponed queue;
// the controller does not stop timers.
package roundctl

import (
	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// Synchronizer is the subset of the pool synchronizer the controller drives.
type Synchronizer interface {
	ProcessingSync(roundNum types.RoundNumber, isBigBang bool)
}

// Controller wires round-table arrival to the consensus FSM, transport
// housekeeping and pool sync evaluation.
type Controller struct {
	fsm       *consensus.FSM
	transport interfaces.Transport
	storage   interfaces.BlockStorage
	sync      Synchronizer
	logger    interfaces.Logger
	metrics   *metrics.Metrics
}

// New builds a Controller over its collaborators.
func New(fsm *consensus.FSM, transport interfaces.Transport, storage interfaces.BlockStorage, sync Synchronizer, logger interfaces.Logger, m *metrics.Metrics) *Controller {
	return &Controller{fsm: fsm, transport: transport, storage: storage, sync: sync, logger: logger.With("module", "roundctl"), metrics: m}
}

// EnterRound advances the node into round rt: on a BigBang reset the
// transport's per-round task queue and postponed-frame queue are wiped;
// otherwise the postponed queue survives so messages held back for this
// round are replayed. Consensus is then fed the new round table and pool
// sync is re-evaluated.
func (c *Controller) EnterRound(rt types.RoundTable, isBigBang bool) {
	if isBigBang {
		c.transport.ClearTasks()
	}
	c.transport.ProcessPostponed(rt.Round)

	c.logger.Info("entering round", "round", uint64(rt.Round), "role_hint", len(rt.Confidants))
	if c.metrics != nil {
		c.metrics.RoundsEntered.Inc()
	}

	c.fsm.OnEvent(consensus.Event{Kind: consensus.EventRoundTable, RoundTable: rt})

	last := c.storage.LastSequence()
	needsSync := uint64(rt.Round) > uint64(last)+1 || c.storage.BlockRequestNeed()
	if needsSync {
		c.sync.ProcessingSync(rt.Round, isBigBang)
	}
}

// EnterBigBang resets consensus to NoState via a BigBang event, then treats
// the carried round number like any other round entry.
func (c *Controller) EnterBigBang(rt types.RoundTable) {
	c.fsm.OnEvent(consensus.Event{Kind: consensus.EventBigBang, BigBangRound: rt.Round})
	c.EnterRound(rt, true)
}
