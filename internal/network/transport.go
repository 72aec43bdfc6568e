package network

import (
	"encoding/binary"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"

	"github.com/ledgercore/node/internal/core/wire"
	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// newFrameID derives a frame identifier from a fresh UUID's leading bytes,
// giving every outbound frame a value unique enough for the sent-id
// bookkeeping ClearTasks resets on BigBang, without a stateful counter.
func newFrameID() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])
}

// Transport is the websocket-backed interfaces.Transport implementation.
// Confidant addresses are static (permissioned deployment): outbound peers
// come from Options, an inbound connection adds its first frame's sender,
// and a peer is removed when its read loop ends.
type Transport struct {
	self types.PublicKey
	opts Options

	upgrader websocket.Upgrader
	server   *http.Server
	router   *wire.Router
	logger   interfaces.Logger
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	peers map[types.PublicKey]*peer
	order []types.PublicKey // index-stable ordering for NeighborByIndex

	tasksMu sync.Mutex
	sentIDs map[uint64]struct{}

	fragMu    sync.Mutex
	fragments map[fragmentKey]*fragmentAssembly

	roundMu      sync.RWMutex
	currentRound func() types.RoundNumber
	localHead    func() types.Sequence

	handlerMu sync.RWMutex
	handler   func(interfaces.Frame)
}

// New builds a Transport bound to self's identity. The round-policy inputs
// and the frame handler are both wired in later via SetRoundSource/
// SetHandler, once their producers (consensus's round state, the
// dispatcher) exist — both depend on this Transport in turn, so neither can
// be a constructor parameter without a cycle.
func New(self types.PublicKey, opts Options, logger interfaces.Logger, m *metrics.Metrics) *Transport {
	t := &Transport{
		self:         self,
		opts:         opts,
		logger:       logger,
		metrics:      m,
		peers:        make(map[types.PublicKey]*peer),
		sentIDs:      make(map[uint64]struct{}),
		fragments:    make(map[fragmentKey]*fragmentAssembly),
		currentRound: func() types.RoundNumber { return 0 },
		localHead:    func() types.Sequence { return 0 },
	}
	t.router = wire.NewRouter(t.dispatchToHandler)
	if m != nil {
		t.router.SetPostponeHook(func() { m.PostponedFrames.Inc() })
	}
	t.upgrader = websocket.Upgrader{
		ReadBufferSize:  interfaces.MaxFragmentSize,
		WriteBufferSize: interfaces.MaxFragmentSize,
	}
	return t
}

// SetRoundSource registers the live inputs §4.1's policy table is evaluated
// against, read fresh on every arriving frame. Until called, every frame is
// evaluated against round zero.
func (t *Transport) SetRoundSource(currentRound func() types.RoundNumber, localHead func() types.Sequence) {
	t.roundMu.Lock()
	t.currentRound, t.localHead = currentRound, localHead
	t.roundMu.Unlock()
}

func (t *Transport) roundSource() (func() types.RoundNumber, func() types.Sequence) {
	t.roundMu.RLock()
	defer t.roundMu.RUnlock()
	return t.currentRound, t.localHead
}

// SetHandler registers the callback the router hands accepted frames to.
// Must be called once before ListenAndServe/DialAll start delivering.
func (t *Transport) SetHandler(handle func(interfaces.Frame)) {
	t.handlerMu.Lock()
	t.handler = handle
	t.handlerMu.Unlock()
}

func (t *Transport) dispatchToHandler(frame interfaces.Frame) {
	t.handlerMu.RLock()
	h := t.handler
	t.handlerMu.RUnlock()
	if h == nil {
		t.logger.Warn("dropping frame: no handler registered", "kind", frame.Kind)
		return
	}
	h(frame)
}

// ListenAndServe accepts inbound peer connections on opts.ListenAddr until
// Close is called.
func (t *Transport) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/p2p", t.handleInbound)
	t.server = &http.Server{Addr: t.opts.ListenAddr, Handler: mux}

	t.logger.Info("network transport listening", "addr", t.opts.ListenAddr)
	err := t.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close tears down the listener and every peer connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	for _, p := range t.peers {
		p.close()
	}
	t.mu.Unlock()
	if t.server != nil {
		return t.server.Close()
	}
	return nil
}

func (t *Transport) handleInbound(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warn("network: upgrade failed", "err", err)
		return
	}
	// The remote's identity arrives as the first frame's Sender field; until
	// then the connection is anonymous and only read, never indexed.
	t.readLoopUnidentified(conn)
}

// DialAll opens outbound connections to every configured peer that isn't
// already connected. Deployment-static, so it can be called once at
// startup and again after a partial reconnect sweep.
func (t *Transport) DialAll() {
	for _, pa := range t.opts.Peers {
		raw, err := base58.Decode(pa.PublicKeyBase58)
		if err != nil || len(raw) != types.PublicKeySize {
			t.logger.Error("network: bad peer public key", "peer", pa.URL, "err", err)
			continue
		}
		var key types.PublicKey
		copy(key[:], raw)

		t.mu.RLock()
		_, connected := t.peers[key]
		t.mu.RUnlock()
		if connected {
			continue
		}

		dialer := websocket.Dialer{HandshakeTimeout: t.opts.DialTimeout}
		conn, _, err := dialer.Dial(pa.URL, nil)
		if err != nil {
			t.logger.Warn("network: dial failed", "peer", pa.URL, "err", err)
			continue
		}
		t.addPeer(key, conn, t.isSignal(key))
		go t.readLoop(key, conn)
	}
}

func (t *Transport) isSignal(key types.PublicKey) bool {
	enc := base58.Encode(key[:])
	for _, s := range t.opts.SignalPeers {
		if s == enc {
			return true
		}
	}
	return false
}

func (t *Transport) addPeer(key types.PublicKey, conn *websocket.Conn, isSignal bool) *peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.peers[key]; ok {
		existing.close()
	} else {
		t.order = append(t.order, key)
	}
	p := newPeer(key, conn, isSignal)
	t.peers[key] = p
	if t.metrics != nil {
		t.metrics.NeighborCount.Set(float64(len(t.peers)))
	}
	return p
}

func (t *Transport) removePeer(key types.PublicKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	if t.metrics != nil {
		t.metrics.NeighborCount.Set(float64(len(t.peers)))
	}
}

func (t *Transport) readLoopUnidentified(conn *websocket.Conn) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return
	}
	frame, ok, err := t.decode(raw)
	if err != nil {
		t.logger.Warn("network: dropping malformed inbound frame", "err", err)
		_ = conn.Close()
		return
	}
	key := frame.Sender
	t.addPeer(key, conn, t.isSignal(key))
	if ok {
		t.dispatch(frame)
	}
	t.readLoop(key, conn)
}

func (t *Transport) readLoop(key types.PublicKey, conn *websocket.Conn) {
	defer t.removePeer(key)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, ok, err := t.decode(raw)
		if err != nil {
			t.logger.Warn("network: dropping malformed frame", "peer", key, "err", err)
			continue
		}
		if !ok {
			continue
		}
		t.dispatch(frame)
	}
}

func (t *Transport) dispatch(frame interfaces.Frame) {
	currentRound, localHead := t.roundSource()
	t.router.Dispatch(frame, currentRound(), localHead())
}

// fragmentKey identifies one in-flight multi-fragment message by its sender
// and frame id, both of which are carried unchanged on every fragment.
type fragmentKey struct {
	sender types.PublicKey
	id     uint64
}

// fragmentAssembly accumulates a fragmented message's chunks until every
// FragmentID in [0, total) has arrived.
type fragmentAssembly struct {
	total  uint16
	chunks [][]byte
	have   int
}

// decode parses one raw websocket message. When the frame is fragmented and
// incomplete, ok is false and the caller must wait for the remaining
// fragments; frame.Sender is still populated in that case so the caller can
// identify the peer without waiting on reassembly.
func (t *Transport) decode(raw []byte) (frame interfaces.Frame, ok bool, err error) {
	frame, fragmentID, fragmentsNum, err := wire.DecodeEnvelopeFragment(raw)
	if err != nil {
		return interfaces.Frame{}, false, err
	}

	if frame.Flags&interfaces.FlagFragmented != 0 {
		sender := frame.Sender
		frame, ok = t.reassemble(frame, fragmentID, fragmentsNum)
		if !ok {
			return interfaces.Frame{Sender: sender}, false, nil
		}
	}

	if frame.Flags&interfaces.FlagCompressed != 0 {
		data, cleared, err := wire.Decompress(frame.Payload, interfaces.MaxFragmentSize*interfaces.MaxFragments)
		if err != nil {
			return interfaces.Frame{}, false, fmt.Errorf("network: decompress: %w", err)
		}
		frame.Payload = data
		frame.Flags &^= interfaces.FlagCompressed
		frame.Flags |= cleared
	}
	return frame, true, nil
}

// reassemble folds one arriving fragment into its message's assembly buffer,
// returning the complete frame once every fragment has arrived. A duplicate
// or out-of-range fragment id is dropped rather than corrupting the buffer.
func (t *Transport) reassemble(frame interfaces.Frame, fragmentID, fragmentsNum uint16) (interfaces.Frame, bool) {
	if fragmentsNum == 0 {
		return frame, true
	}

	key := fragmentKey{sender: frame.Sender, id: frame.ID}

	t.fragMu.Lock()
	defer t.fragMu.Unlock()

	asm, ok := t.fragments[key]
	if !ok {
		asm = &fragmentAssembly{total: fragmentsNum, chunks: make([][]byte, fragmentsNum)}
		t.fragments[key] = asm
	}
	if int(fragmentID) >= len(asm.chunks) || asm.chunks[fragmentID] != nil {
		return interfaces.Frame{}, false
	}
	asm.chunks[fragmentID] = append([]byte(nil), frame.Payload...)
	asm.have++
	if asm.have < int(asm.total) {
		return interfaces.Frame{}, false
	}
	delete(t.fragments, key)

	var full []byte
	for _, chunk := range asm.chunks {
		full = append(full, chunk...)
	}
	frame.Payload = full
	frame.Flags &^= interfaces.FlagFragmented
	return frame, true
}

// fragmentPayload splits payload into interfaces.MaxFragmentSize chunks, or
// returns nil if it already fits in a single frame.
func fragmentPayload(payload []byte) [][]byte {
	if len(payload) <= interfaces.MaxFragmentSize {
		return nil
	}
	chunks := make([][]byte, 0, (len(payload)+interfaces.MaxFragmentSize-1)/interfaces.MaxFragmentSize)
	for i := 0; i < len(payload); i += interfaces.MaxFragmentSize {
		end := i + interfaces.MaxFragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, payload[i:end])
	}
	return chunks
}

// encode renders frame as one or more on-wire messages, splitting the
// payload into interfaces.MaxFragmentSize fragments when it doesn't fit a single
// frame.
func (t *Transport) encode(frame interfaces.Frame, addressee *types.PublicKey) ([][]byte, error) {
	// A frame without an addressee is a broadcast; the decoder relies on
	// FlagBroadcast to know the addressee field is absent.
	if addressee == nil {
		frame.Flags |= interfaces.FlagBroadcast
	}
	chunks := fragmentPayload(frame.Payload)
	if chunks == nil {
		h := wire.Header{Flags: frame.Flags, ID: frame.ID, Sender: t.self, Addressee: addressee}
		return [][]byte{wire.EncodeEnvelope(h, frame.Kind, frame.Round, frame.Payload)}, nil
	}
	if len(chunks) > interfaces.MaxFragments {
		return nil, fmt.Errorf("network: payload needs %d fragments, exceeds MaxFragments %d", len(chunks), interfaces.MaxFragments)
	}

	msgs := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		h := wire.Header{
			Flags:        frame.Flags | interfaces.FlagFragmented,
			FragmentID:   uint16(i),
			FragmentsNum: uint16(len(chunks)),
			ID:           frame.ID,
			Sender:       t.self,
			Addressee:    addressee,
		}
		msgs[i] = wire.EncodeEnvelope(h, frame.Kind, frame.Round, chunk)
	}
	return msgs, nil
}

// Send delivers frame to a single addressee.
func (t *Transport) Send(frame interfaces.Frame, addressee types.PublicKey) error {
	t.mu.RLock()
	p, ok := t.peers[addressee]
	t.mu.RUnlock()
	if !ok {
		return errUnknownPeer
	}
	frame.Addressee = &addressee
	if frame.ID == 0 {
		frame.ID = newFrameID()
	}
	t.markSent(frame.ID)
	msgs, err := t.encode(frame, &addressee)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := p.send(msg); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast delivers frame to every connected peer.
func (t *Transport) Broadcast(frame interfaces.Frame) error {
	frame.Flags |= interfaces.FlagBroadcast
	if frame.ID == 0 {
		frame.ID = newFrameID()
	}
	t.markSent(frame.ID)
	msgs, err := t.encode(frame, nil)
	if err != nil {
		return err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	var firstErr error
	for _, p := range t.peers {
		for _, msg := range msgs {
			if err := p.send(msg); err != nil && firstErr == nil {
				firstErr = err
				break
			}
		}
	}
	return firstErr
}

func (t *Transport) markSent(id uint64) {
	t.tasksMu.Lock()
	t.sentIDs[id] = struct{}{}
	t.tasksMu.Unlock()
}

// Neighbors returns every connected peer's public key, in index order.
func (t *Transport) Neighbors() []types.PublicKey {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.PublicKey, len(t.order))
	copy(out, t.order)
	return out
}

// NeighborCount returns the number of connected peers, signal relays
// included.
func (t *Transport) NeighborCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// NeighborCountWithoutSS excludes configured signal-relay peers, which
// participate in the network for NAT traversal but hold no ledger state
// and should not count toward sync/consensus neighbor quorums.
func (t *Transport) NeighborCountWithoutSS() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, p := range t.peers {
		if !p.isSignal {
			n++
		}
	}
	return n
}

// NeighborByIndex returns the peer at position i in the stable index
// ordering the synchronizer assigns windows against.
func (t *Transport) NeighborByIndex(i int) (types.PublicKey, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.order) {
		return types.PublicKey{}, false
	}
	return t.order[i], true
}

// ProcessPostponed replays every frame the router held back for round.
func (t *Transport) ProcessPostponed(round types.RoundNumber) {
	t.router.ReplayRound(round)
}

// ClearTasks drops per-round bookkeeping (outstanding sent-frame ids,
// in-flight fragment reassembly) and the router's postponed queue,
// mirroring the reset a BigBang demands.
func (t *Transport) ClearTasks() {
	t.tasksMu.Lock()
	t.sentIDs = make(map[uint64]struct{})
	t.tasksMu.Unlock()

	t.fragMu.Lock()
	t.fragments = make(map[fragmentKey]*fragmentAssembly)
	t.fragMu.Unlock()

	t.router.OnBigBang()
}

var _ interfaces.Transport = (*Transport)(nil)
