package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/internal/core/packetcache"
	"github.com/ledgercore/node/internal/core/roundctl"
	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/internal/core/sync"
	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                 {}
func (nopLogger) Info(string, ...any)                  {}
func (nopLogger) Warn(string, ...any)                  {}
func (nopLogger) Error(string, ...any)                 {}
func (nopLogger) Fatal(string, ...any)                 {}
func (l nopLogger) With(string, any) interfaces.Logger { return l }

type fakeTransport struct {
	sent []interfaces.Frame
}

func (t *fakeTransport) Send(f interfaces.Frame, _ types.PublicKey) error {
	t.sent = append(t.sent, f)
	return nil
}
func (t *fakeTransport) Broadcast(interfaces.Frame) error            { return nil }
func (t *fakeTransport) Neighbors() []types.PublicKey                { return nil }
func (t *fakeTransport) NeighborCount() int                          { return 0 }
func (t *fakeTransport) NeighborCountWithoutSS() int                 { return 0 }
func (t *fakeTransport) NeighborByIndex(int) (types.PublicKey, bool) { return types.PublicKey{}, false }
func (t *fakeTransport) ProcessPostponed(types.RoundNumber)          {}
func (t *fakeTransport) ClearTasks()                                 {}

type fakeStorage struct {
	blocks map[types.Sequence]types.Pool
	last   types.Sequence
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blocks: make(map[types.Sequence]types.Pool)}
}

func (s *fakeStorage) Append(p types.Pool) error {
	s.blocks[p.Sequence] = p
	if p.Sequence > s.last {
		s.last = p.Sequence
	}
	return nil
}
func (s *fakeStorage) Load(seq types.Sequence) (types.Pool, error) {
	p, ok := s.blocks[seq]
	if !ok {
		return types.Pool{}, errNotFound{}
	}
	return p, nil
}
func (s *fakeStorage) LastSequence() types.Sequence                      { return s.last }
func (s *fakeStorage) CachedBlocksSize() int                             { return 0 }
func (s *fakeStorage) RequiredRanges() []interfaces.SequenceRange        { return nil }
func (s *fakeStorage) HashBySequence(types.Sequence) (types.Hash, error) { return types.Hash{}, nil }
func (s *fakeStorage) GlobalSequence() types.Sequence                    { return s.last }
func (s *fakeStorage) BlockRequestNeed() bool                            { return false }

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type stubValidator struct{ verdict consensus.ValidationVerdict }

func (v stubValidator) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	return v.verdict
}

type stubApplier struct{ applied []types.Pool }

func (a *stubApplier) Apply(p types.Pool) error {
	a.applied = append(a.applied, p)
	return nil
}

type noopSync struct{}

func (noopSync) ProcessingSync(types.RoundNumber, bool) {}

type noopScheduler struct{}

func (noopScheduler) After(time.Duration, func()) interfaces.TimerHandle { return nil }
func (noopScheduler) Every(time.Duration, func()) interfaces.TimerHandle { return nil }

type stubHashMgr struct{}

// Blake2 is a stand-in: the digest is just the data, zero-padded/truncated
// to fit a Hash, so tests can construct a matching packet.Hash by hand.
func (stubHashMgr) Blake2(data []byte) types.Hash {
	var h types.Hash
	copy(h[:], data)
	return h
}

type harness struct {
	storage   *fakeStorage
	transport *fakeTransport
	applier   *stubApplier
	metrics   *metrics.Metrics
	round     *roundstate.State
	dispatch  *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	storage := newFakeStorage()
	transport := &fakeTransport{}
	m := metrics.New()

	round := roundstate.New(types.PublicKey{1})
	applier := &stubApplier{}
	fsm := consensus.New(round, stubValidator{verdict: consensus.VerdictNoError}, applier, storage, noopScheduler{}, transport, nopLogger{}, interfaces.ConsensusConfig{}, nil)
	ctl := roundctl.New(fsm, transport, storage, noopSync{}, nopLogger{}, m)
	synchronizer := sync.New(storage, transport, noopScheduler{}, nopLogger{}, interfaces.ConsensusConfig{}, m)
	packets := packetcache.New(stubHashMgr{}, transport)
	d := New(fsm, ctl, synchronizer, packets, storage, transport, nopLogger{}, m)

	return &harness{storage: storage, transport: transport, applier: applier, metrics: m, round: round, dispatch: d}
}

func TestDecodeBlockAppliesInOrderBlock(t *testing.T) {
	h := newHarness(t)
	h.storage.last = 0

	pool := types.Pool{Sequence: 1}
	payload, err := json.Marshal(pool)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindNewBlock, Payload: payload})

	if len(h.applier.applied) != 1 || h.applier.applied[0].Sequence != 1 {
		t.Fatalf("expected block to be applied, got %+v", h.applier.applied)
	}
}

func TestDecodeBlockMalformedPayloadIsDropped(t *testing.T) {
	h := newHarness(t)
	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindNewBlock, Payload: []byte("not json")})
	if len(h.applier.applied) != 0 {
		t.Fatal("a malformed NewBlock frame must never reach the applier")
	}
}

func TestServeBlockRequestRepliesWithStoredPools(t *testing.T) {
	h := newHarness(t)
	h.storage.blocks[5] = types.Pool{Sequence: 5}
	h.storage.blocks[6] = types.Pool{Sequence: 6}
	h.storage.last = 6

	seqs := []types.Sequence{5, 6, 7}
	payload, err := json.Marshal(seqs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindBlockRequest, Payload: payload, Round: 10})

	if len(h.transport.sent) != 1 {
		t.Fatalf("expected exactly one reply frame, got %d", len(h.transport.sent))
	}
	reply := h.transport.sent[0]
	if reply.Kind != interfaces.KindRequestedBlock || reply.Round != 10 {
		t.Fatalf("unexpected reply frame: %+v", reply)
	}
	var pools []types.Pool
	if err := json.Unmarshal(reply.Payload, &pools); err != nil {
		t.Fatalf("unmarshal reply payload: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("expected 2 pools (seq 7 absent), got %d", len(pools))
	}
}

func TestServeBlockRequestNoMatchesSendsNothing(t *testing.T) {
	h := newHarness(t)
	payload, _ := json.Marshal([]types.Sequence{99})
	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindBlockRequest, Payload: payload})
	if len(h.transport.sent) != 0 {
		t.Fatal("no stored sequences match, so no reply should be sent")
	}
}

func TestDecodePacketInsertsValidPacket(t *testing.T) {
	h := newHarness(t)
	packet := types.TransactionsPacket{
		Transactions: []types.Transaction{{InnerID: 1}},
	}
	packet.Hash = stubHashMgr{}.Blake2(packetcache.Serialize(packet.Transactions))

	payload, err := json.Marshal(packet)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindTransactionPacket, Payload: payload})

	got, ok := h.dispatch.packets.Get(packet.Hash)
	if !ok {
		t.Fatal("expected packet to be present in the cache after dispatch")
	}
	if len(got.Transactions) != 1 {
		t.Fatalf("unexpected transactions: %+v", got.Transactions)
	}
}

func TestDecodePacketRejectsHashMismatch(t *testing.T) {
	h := newHarness(t)
	packet := types.TransactionsPacket{
		Hash:         types.Hash{0xff},
		Transactions: []types.Transaction{{InnerID: 1}},
	}
	payload, err := json.Marshal(packet)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindTransactionPacket, Payload: payload})

	if _, ok := h.dispatch.packets.Get(packet.Hash); ok {
		t.Fatal("a packet with a mismatched hash must never be cached")
	}
}

func TestServePacketRequestRepliesWhenPresent(t *testing.T) {
	h := newHarness(t)
	packet := types.TransactionsPacket{
		Transactions: []types.Transaction{{InnerID: 7}},
	}
	packet.Hash = stubHashMgr{}.Blake2(packetcache.Serialize(packet.Transactions))
	if err := h.dispatch.packets.Insert(packet); err != nil {
		t.Fatalf("insert: %v", err)
	}

	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindTransactionsPacketRequest, Payload: packet.Hash[:]})

	if len(h.transport.sent) != 1 || h.transport.sent[0].Kind != interfaces.KindTransactionsPacketReply {
		t.Fatalf("expected a packet reply frame, got %+v", h.transport.sent)
	}
}

func TestServePacketRequestUnknownHashSendsNothing(t *testing.T) {
	h := newHarness(t)
	var hash types.Hash
	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindTransactionsPacketRequest, Payload: hash[:]})
	if len(h.transport.sent) != 0 {
		t.Fatal("an unknown hash must not produce a reply")
	}
}

func TestTransactionsPacketReplyIsDropped(t *testing.T) {
	h := newHarness(t)
	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindTransactionsPacketReply})
	if len(h.transport.sent) != 0 || len(h.applier.applied) != 0 {
		t.Fatal("a TransactionsPacketReply frame must be dropped, not acted on")
	}
}

func TestDecodeRoundTableRejectsTooFewConfidants(t *testing.T) {
	h := newHarness(t)

	rt := types.RoundTable{Round: 7, General: types.PublicKey{9}, Confidants: []types.PublicKey{{1}, {2}}}
	payload, err := json.Marshal(rt)
	if err != nil {
		t.Fatalf("marshal round table: %v", err)
	}

	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindRoundTable, Payload: payload})

	if h.round.Round() == rt.Round {
		t.Fatal("a RoundTable frame with fewer than MinConfidants must not be installed")
	}
}

func TestDecodeRoundTableRejectsTooManyConfidants(t *testing.T) {
	h := newHarness(t)

	confidants := make([]types.PublicKey, types.MaxConfidants+1)
	for i := range confidants {
		confidants[i][0] = byte(i + 1)
	}
	rt := types.RoundTable{Round: 7, General: types.PublicKey{9}, Confidants: confidants}
	payload, err := json.Marshal(rt)
	if err != nil {
		t.Fatalf("marshal round table: %v", err)
	}

	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindRoundTable, Payload: payload})

	if h.round.Round() == rt.Round {
		t.Fatal("a RoundTable frame with more than MaxConfidants must not be installed")
	}
}

func TestDecodeBigBangRejectsOutOfBoundsConfidantCount(t *testing.T) {
	h := newHarness(t)

	rt := types.RoundTable{Round: 7, General: types.PublicKey{9}, Confidants: []types.PublicKey{{1}, {2}}}
	payload, err := json.Marshal(rt)
	if err != nil {
		t.Fatalf("marshal round table: %v", err)
	}

	h.dispatch.Handle(interfaces.Frame{Kind: interfaces.KindBigBang, Payload: payload})

	if h.round.Round() == rt.Round {
		t.Fatal("a BigBang frame with an out-of-bounds confidant count must not be installed")
	}
}
