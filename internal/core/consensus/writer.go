package consensus

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/internal/core/wire"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// PacketSource supplies the candidate transactions a Writer assembles into
// a block, keyed by the packet hashes the round table proposed.
type PacketSource interface {
	Get(hash types.Hash) (types.TransactionsPacket, bool)
}

// WriterProducer assembles and broadcasts the block for a round once this
// node has been designated Writer, per §4.4's block production rules.
type WriterProducer struct {
	hashMgr   interfaces.HashManager
	packets   PacketSource
	source    BlockSource
	transport interfaces.Transport
	logger    interfaces.Logger
}

// NewWriterProducer builds a WriterProducer.
func NewWriterProducer(hashMgr interfaces.HashManager, packets PacketSource, source BlockSource, transport interfaces.Transport, logger interfaces.Logger) *WriterProducer {
	return &WriterProducer{hashMgr: hashMgr, packets: packets, source: source, transport: transport, logger: logger.With("module", "writer")}
}

// blockPrefix is the canonical, pre-signature encoding hashed to link this
// block to its successor (PreviousHash) and to derive the message
// confidants sign. Signatures deliberately are not part of it.
type blockPrefix struct {
	Sequence     types.Sequence
	PreviousHash types.Hash
	Confidants   []types.PublicKey
	Transactions []types.Transaction
	UserFields   map[uint32]any
}

// Produce assembles a Pool at sequence with the declared confidants, the
// signatures collected from this round's accumulated Stage2 evidence, and
// the selected transactions, then broadcasts NewBlock followed by
// NewCharacteristic. It returns the produced pool so the caller can apply it
// to its own chain tip without waiting for the network to echo it back.
func (w *WriterProducer) Produce(round *roundstate.State, realTrustedMask uint64, sequence types.Sequence) (types.Pool, error) {
	confidants := round.Confidants()

	var txs []types.Transaction
	var included []bool
	for _, h := range hashesFromRoundTable(round) {
		packet, ok := w.packets.Get(h)
		if !ok {
			continue
		}
		for range packet.Transactions {
			included = append(included, true)
		}
		txs = append(txs, packet.Transactions...)
	}

	pool := types.Pool{
		Sequence:     sequence,
		Confidants:   confidants,
		Transactions: txs,
		UserFields: map[uint32]any{
			types.UserFieldTimestamp: time.Now().Unix(),
		},
	}

	if sequence > 0 {
		prev, err := w.source.Load(sequence - 1)
		if err != nil {
			w.logger.Error("failed to load predecessor block", "sequence", sequence, "err", err)
			return types.Pool{}, fmt.Errorf("writer: load predecessor %d: %w", sequence-1, err)
		}
		pool.PreviousHash = w.hashMgr.Blake2(prev.HashingPrefix())
	}

	prefix, err := json.Marshal(blockPrefix{
		Sequence:     pool.Sequence,
		PreviousHash: pool.PreviousHash,
		Confidants:   pool.Confidants,
		Transactions: pool.Transactions,
		UserFields:   pool.UserFields,
	})
	if err != nil {
		w.logger.Error("failed to encode block prefix", "sequence", sequence, "err", err)
		return types.Pool{}, fmt.Errorf("writer: encode block prefix: %w", err)
	}
	pool.Bytes = prefix
	pool.HashingLength = uint32(len(prefix))

	pool.RealTrustedMask, pool.Signatures = w.collectSignatures(round, confidants, realTrustedMask)

	payload, err := json.Marshal(pool)
	if err != nil {
		w.logger.Error("failed to encode produced block", "sequence", sequence, "err", err)
		return types.Pool{}, fmt.Errorf("writer: encode produced block: %w", err)
	}
	frame := interfaces.Frame{Kind: interfaces.KindNewBlock, Round: round.Round(), Payload: payload}
	if err := w.transport.Broadcast(frame); err != nil {
		w.logger.Error("failed to broadcast new block", "err", err)
	}

	mask := encodeInclusionMask(included)
	compressed, err := wire.Compress(mask)
	if err != nil {
		w.logger.Error("failed to compress characteristic mask", "err", err)
		return pool, nil
	}
	characteristic := interfaces.Frame{Kind: interfaces.KindNewCharacteristic, Payload: compressed}
	if err := w.transport.Broadcast(characteristic); err != nil {
		w.logger.Error("failed to broadcast new characteristic", "err", err)
	}

	return pool, nil
}

// collectSignatures narrows requestedMask to the confidants this node
// actually holds Stage2 evidence for, so popcount(mask) == len(signatures)
// holds by construction: BlockSignaturesValidator rejects the block outright
// otherwise.
func (w *WriterProducer) collectSignatures(round *roundstate.State, confidants []types.PublicKey, requestedMask uint64) (uint64, []types.Signature) {
	var mask uint64
	var sigs []types.Signature
	for i, pk := range confidants {
		if i >= 64 || requestedMask&(1<<uint(i)) == 0 {
			continue
		}
		stage2, ok := round.Stage2By(pk)
		if !ok || len(stage2.Signatures) == 0 {
			continue
		}
		mask |= 1 << uint(i)
		sigs = append(sigs, stage2.Signatures[0])
	}
	return mask, sigs
}

// hashesFromRoundTable is a seam for tests; production wiring supplies the
// round table's proposed hashes via the roundstate accumulators.
var hashesFromRoundTable = func(round *roundstate.State) []types.Hash { return nil }

// encodeInclusionMask packs one bit per candidate transaction, describing
// which packet transactions were included in the block.
func encodeInclusionMask(included []bool) []byte {
	buf := make([]byte, 4+(len(included)+7)/8)
	binary.BigEndian.PutUint32(buf, uint32(len(included)))
	for i, ok := range included {
		if ok {
			buf[4+i/8] |= 1 << uint(i%8)
		}
	}
	return buf
}
