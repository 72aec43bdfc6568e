// Package dispatch is the seam between the wire-level interfaces.Frame the
// transport delivers and the typed inputs consensus, the pool synchronizer
// and the packet cache each expect. Most payloads are JSON-unmarshalled into
// the same types storage persists; block-hash and packet-request frames
// carry a raw 32-byte hash instead.
package dispatch

import (
	"encoding/json"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/internal/core/packetcache"
	"github.com/ledgercore/node/internal/core/roundctl"
	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/internal/core/sync"
	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// Dispatcher routes accepted frames to whichever subsystem owns their kind.
// Frame kinds with no corresponding consensus event (§4.4 names the full
// event set) are logged at debug and dropped.
type Dispatcher struct {
	fsm       *consensus.FSM
	ctl       *roundctl.Controller
	sync      *sync.Synchronizer
	packets   *packetcache.Cache
	storage   interfaces.BlockStorage
	transport interfaces.Transport
	logger    interfaces.Logger
	metrics   *metrics.Metrics
}

// New builds a Dispatcher over the subsystems it feeds. RoundTable and
// BigBang frames route through ctl rather than the FSM directly, since §4.8
// makes round entry the controller's job: clearing transport per-round
// queues and replaying postponed messages and evaluating sync alongside the
// FSM transition, not instead of it.
func New(fsm *consensus.FSM, ctl *roundctl.Controller, synchronizer *sync.Synchronizer, packets *packetcache.Cache, storage interfaces.BlockStorage, transport interfaces.Transport, logger interfaces.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{fsm: fsm, ctl: ctl, sync: synchronizer, packets: packets, storage: storage, transport: transport, logger: logger.With("module", "dispatch"), metrics: m}
}

// Handle is the entrypoint wired as the transport's frame handler.
func (d *Dispatcher) Handle(frame interfaces.Frame) {
	switch frame.Kind {
	case interfaces.KindRoundTable:
		d.decodeRoundTable(frame)
	case interfaces.KindBigBang:
		d.decodeBigBang(frame)
	case interfaces.KindFirstStage:
		d.decodeStage1(frame)
	case interfaces.KindSecondStage:
		d.decodeStage2(frame)
	case interfaces.KindThirdStage:
		d.decodeStage3(frame)
	case interfaces.KindNewBlock:
		d.decodeBlock(frame)
	case interfaces.KindBlockHash:
		d.decodeHash(frame)
	case interfaces.KindRequestedBlock:
		d.decodeRequestedBlock(frame)
	case interfaces.KindBlockRequest:
		d.serveBlockRequest(frame)
	case interfaces.KindTransactionPacket:
		d.decodePacket(frame)
	case interfaces.KindTransactionsPacketRequest:
		d.servePacketRequest(frame)
	case interfaces.KindTransactionsPacketReply:
		d.logger.Debug("dropping packet reply: stub codec is not reconstructible", "sender", frame.Sender)
	default:
		d.logger.Debug("dropping frame with no dispatch target", "kind", frame.Kind)
	}
}

func (d *Dispatcher) decodeRoundTable(frame interfaces.Frame) {
	var rt types.RoundTable
	if err := json.Unmarshal(frame.Payload, &rt); err != nil {
		d.logger.Warn("malformed RoundTable frame", "err", err)
		return
	}
	if !rt.Valid() {
		d.logger.Warn("dropping RoundTable with out-of-bounds confidant count", "round", rt.Round, "confidants", len(rt.Confidants))
		return
	}
	d.ctl.EnterRound(rt, false)
}

// decodeBigBang carries the same shape as a RoundTable frame: a reset needs
// the full leader/confidant schedule for the reseeded round, not just its
// number, since EnterBigBang immediately re-derives this node's role from it.
func (d *Dispatcher) decodeBigBang(frame interfaces.Frame) {
	var rt types.RoundTable
	if err := json.Unmarshal(frame.Payload, &rt); err != nil {
		d.logger.Warn("malformed BigBang frame", "err", err)
		return
	}
	if !rt.Valid() {
		d.logger.Warn("dropping BigBang with out-of-bounds confidant count", "round", rt.Round, "confidants", len(rt.Confidants))
		return
	}
	d.ctl.EnterBigBang(rt)
}

func (d *Dispatcher) decodeStage1(frame interfaces.Frame) {
	var v roundstate.Stage1
	if err := json.Unmarshal(frame.Payload, &v); err != nil {
		d.logger.Warn("malformed Stage1 frame", "err", err)
		return
	}
	d.fsm.OnEvent(consensus.Event{Kind: consensus.EventStage1, Stage1: v})
}

func (d *Dispatcher) decodeStage2(frame interfaces.Frame) {
	var v roundstate.Stage2
	if err := json.Unmarshal(frame.Payload, &v); err != nil {
		d.logger.Warn("malformed Stage2 frame", "err", err)
		return
	}
	d.fsm.OnEvent(consensus.Event{Kind: consensus.EventStage2, Stage2: v})
}

func (d *Dispatcher) decodeStage3(frame interfaces.Frame) {
	var v roundstate.Stage3
	if err := json.Unmarshal(frame.Payload, &v); err != nil {
		d.logger.Warn("malformed Stage3 frame", "err", err)
		return
	}
	d.fsm.OnEvent(consensus.Event{Kind: consensus.EventStage3, Stage3: v})
}

func (d *Dispatcher) decodeBlock(frame interfaces.Frame) {
	var pool types.Pool
	if err := json.Unmarshal(frame.Payload, &pool); err != nil {
		d.logger.Warn("malformed NewBlock frame", "err", err)
		return
	}
	result := d.fsm.OnEvent(consensus.Event{Kind: consensus.EventBlock, Block: pool})
	if d.metrics == nil {
		return
	}
	if result == consensus.ResultFailure {
		d.metrics.BlocksRejected.Inc()
	} else if result == consensus.ResultFinish {
		d.metrics.BlocksApplied.Inc()
	}
}

func (d *Dispatcher) decodeHash(frame interfaces.Frame) {
	var h types.Hash
	if len(frame.Payload) != len(h) {
		d.logger.Warn("malformed BlockHash frame")
		return
	}
	copy(h[:], frame.Payload)
	d.fsm.OnEvent(consensus.Event{Kind: consensus.EventHash, Hash: h})
}

func (d *Dispatcher) decodeRequestedBlock(frame interfaces.Frame) {
	var pools []types.Pool
	if err := json.Unmarshal(frame.Payload, &pools); err != nil {
		d.logger.Warn("malformed RequestedBlock frame", "err", err)
		return
	}
	d.sync.GetBlockReply(pools, frame.Round, func(pool types.Pool, bySync bool) bool {
		d.fsm.OnEvent(consensus.Event{Kind: consensus.EventBlock, Block: pool})
		return d.storage.LastSequence() >= pool.Sequence
	})
}

func (d *Dispatcher) serveBlockRequest(frame interfaces.Frame) {
	var seqs []types.Sequence
	if err := json.Unmarshal(frame.Payload, &seqs); err != nil {
		d.logger.Warn("malformed BlockRequest frame", "err", err)
		return
	}
	var pools []types.Pool
	for _, seq := range seqs {
		pool, err := d.storage.Load(seq)
		if err != nil {
			continue
		}
		pools = append(pools, pool)
	}
	if len(pools) == 0 {
		return
	}
	payload, err := json.Marshal(pools)
	if err != nil {
		d.logger.Error("failed to encode requested blocks", "err", err)
		return
	}
	reply := interfaces.Frame{Kind: interfaces.KindRequestedBlock, Round: frame.Round, Payload: payload}
	if err := d.transport.Send(reply, frame.Sender); err != nil {
		d.logger.Warn("failed to reply to block request", "err", err)
	}
}

// decodePacket handles a full TransactionPacket announcement. Replies on
// the TransactionsPacketReply path carry packetcache's stub concatenated
// encoding rather than a full packet and are not reconstructible here; see
// packetcache.Serialize.
func (d *Dispatcher) decodePacket(frame interfaces.Frame) {
	var packet types.TransactionsPacket
	if err := json.Unmarshal(frame.Payload, &packet); err != nil {
		d.logger.Warn("malformed transaction packet frame", "err", err)
		return
	}
	if err := d.packets.Insert(packet); err != nil {
		d.logger.Warn("rejected transaction packet", "err", err)
	}
}

func (d *Dispatcher) servePacketRequest(frame interfaces.Frame) {
	var hash types.Hash
	if len(frame.Payload) != len(hash) {
		d.logger.Warn("malformed packet request frame")
		return
	}
	copy(hash[:], frame.Payload)
	packet, ok := d.packets.Get(hash)
	if !ok {
		return
	}
	if err := d.packets.Reply(packet, frame.Sender); err != nil {
		d.logger.Warn("failed to reply to packet request", "err", err)
	}
}
