package consensus

import (
	"encoding/json"
	"testing"

	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

type packetSourceMap map[types.Hash]types.TransactionsPacket

func (m packetSourceMap) Get(hash types.Hash) (types.TransactionsPacket, bool) {
	p, ok := m[hash]
	return p, ok
}

func TestProduceBroadcastsBlockAndCharacteristic(t *testing.T) {
	round := roundstate.New(confidantA)
	round.EnterRound(types.RoundTable{Round: 7, General: leader, Confidants: []types.PublicKey{confidantA, confidantB}})
	round.AddStage2(roundstate.Stage2{Sender: confidantA, Signatures: []types.Signature{{1}}})
	round.AddStage2(roundstate.Stage2{Sender: confidantB, Signatures: []types.Signature{{2}}})

	transport := &fakeTransport{}
	source := newFakeSource()
	source.blocks[41] = types.Pool{Sequence: 41}
	writer := NewWriterProducer(stubHashMgr{}, packetSourceMap{}, source, transport, nopLogger{})

	produced, err := writer.Produce(round, 0b11, 42)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}

	if len(transport.sent) != 2 {
		t.Fatalf("expected NewBlock and NewCharacteristic to be broadcast, got %d frames", len(transport.sent))
	}
	if transport.sent[0].Kind != interfaces.KindNewBlock {
		t.Fatalf("first frame kind = %v, want KindNewBlock", transport.sent[0].Kind)
	}
	if transport.sent[1].Kind != interfaces.KindNewCharacteristic {
		t.Fatalf("second frame kind = %v, want KindNewCharacteristic", transport.sent[1].Kind)
	}

	var pool types.Pool
	if err := json.Unmarshal(transport.sent[0].Payload, &pool); err != nil {
		t.Fatalf("unmarshal produced block: %v", err)
	}
	if pool.Sequence != 42 || pool.RealTrustedMask != 0b11 {
		t.Fatalf("unexpected produced pool: %+v", pool)
	}
	if len(pool.Confidants) != 2 {
		t.Fatalf("expected the round's confidant set to be carried into the block, got %d", len(pool.Confidants))
	}
	if len(pool.Signatures) != pool.PopcountMask() {
		t.Fatalf("popcount(RealTrustedMask) = %d, len(Signatures) = %d: BlockSignaturesValidator requires equality", pool.PopcountMask(), len(pool.Signatures))
	}
	if pool.HashingLength == 0 || len(pool.Bytes) == 0 {
		t.Fatal("expected Bytes/HashingLength to be populated with the pre-signature encoding")
	}
	if produced.Sequence != pool.Sequence {
		t.Fatalf("returned pool sequence = %d, want %d", produced.Sequence, pool.Sequence)
	}
}

func TestProduceNarrowsMaskToAvailableSignatures(t *testing.T) {
	round := roundstate.New(confidantA)
	round.EnterRound(types.RoundTable{Round: 7, General: leader, Confidants: []types.PublicKey{confidantA, confidantB}})
	// Only confidantA's Stage2 evidence has actually arrived.
	round.AddStage2(roundstate.Stage2{Sender: confidantA, Signatures: []types.Signature{{1}}})

	transport := &fakeTransport{}
	source := newFakeSource()
	source.blocks[41] = types.Pool{Sequence: 41}
	writer := NewWriterProducer(stubHashMgr{}, packetSourceMap{}, source, transport, nopLogger{})

	produced, err := writer.Produce(round, 0b11, 42)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if produced.RealTrustedMask != 0b01 {
		t.Fatalf("RealTrustedMask = %b, want 0b01 (narrowed to the confidant with local evidence)", produced.RealTrustedMask)
	}
	if len(produced.Signatures) != 1 {
		t.Fatalf("expected exactly one collected signature, got %d", len(produced.Signatures))
	}
}

func TestProduceFailsWhenPredecessorMissing(t *testing.T) {
	round := roundstate.New(confidantA)
	round.EnterRound(types.RoundTable{Round: 7, General: leader, Confidants: []types.PublicKey{confidantA, confidantB}})

	transport := &fakeTransport{}
	writer := NewWriterProducer(stubHashMgr{}, packetSourceMap{}, newFakeSource(), transport, nopLogger{})

	if _, err := writer.Produce(round, 0, 42); err == nil {
		t.Fatal("expected Produce to fail when the predecessor block is not available")
	}
	if len(transport.sent) != 0 {
		t.Fatal("a failed Produce must not broadcast anything")
	}
}

func TestEncodeInclusionMaskPacksOneBitPerCandidate(t *testing.T) {
	mask := encodeInclusionMask([]bool{true, false, true, true, false})
	if len(mask) != 4+1 {
		t.Fatalf("mask length = %d, want 5 (4-byte count + 1 data byte)", len(mask))
	}
	want := byte(1<<0 | 1<<2 | 1<<3)
	if mask[4] != want {
		t.Fatalf("mask data byte = %08b, want %08b", mask[4], want)
	}
}

func TestPopcountBelow(t *testing.T) {
	cases := []struct {
		mask uint64
		idx  int
		want int
	}{
		{mask: 0, idx: 0, want: 0},
		{mask: 0b0000, idx: 5, want: 0},
		{mask: 0b0111, idx: 0, want: 0},
		{mask: 0b0111, idx: 1, want: 1},
		{mask: 0b0111, idx: 2, want: 2},
		{mask: 0b0111, idx: 3, want: 3},
		{mask: 0b1000, idx: 3, want: 0},
		{mask: ^uint64(0), idx: 64, want: 64},
	}
	for _, c := range cases {
		if got := popcountBelow(c.mask, c.idx); got != c.want {
			t.Fatalf("popcountBelow(%b, %d) = %d, want %d", c.mask, c.idx, got, c.want)
		}
	}
}
