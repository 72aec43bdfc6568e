// Package roundstate holds the round number, elected leader, declared
// confidant set, accumulated stage evidence and role for the round the node
// is currently in. It is exclusively owned by the consensus subsystem;
// validators and the pool synchronizer only ever read it.
package roundstate

import (
	"sort"
	"sync"

	"github.com/ledgercore/node/pkg/types"
)

// Stage1, Stage2, Stage3 are the per-confidant evidence accumulated during a
// round: proposed packet hashes, signatures, and the writer choice with its
// trusted mask. This package only stores them; interpreting them is the
// consensus state machine's job.
type Stage1 struct {
	Sender types.PublicKey
	Hashes []types.Hash
}

type Stage2 struct {
	Sender     types.PublicKey
	Signatures []types.Signature
}

type Stage3 struct {
	Sender          types.PublicKey
	Writer          uint8
	RealTrustedMask uint64
}

// State is the round-scoped consensus state. EnterRound clears the stage
// accumulators in place under the lock; buffered future blocks survive it
// and are dropped only by ClearFutureBlocks.
type State struct {
	mu sync.RWMutex

	round      types.RoundNumber
	main       types.PublicKey
	confidants []types.PublicKey
	myKey      types.PublicKey
	myIndex    int // -1 when not a confidant
	role       types.Role

	stage1 map[types.PublicKey]Stage1
	stage2 map[types.PublicKey]Stage2
	stage3 map[types.PublicKey]Stage3

	futureBlocks map[types.Sequence]types.Pool
}

// New builds a State for the local key. It starts with no round installed.
func New(myKey types.PublicKey) *State {
	s := &State{myKey: myKey}
	s.reset()
	return s
}

func (s *State) reset() {
	s.stage1 = make(map[types.PublicKey]Stage1)
	s.stage2 = make(map[types.PublicKey]Stage2)
	s.stage3 = make(map[types.PublicKey]Stage3)
	if s.futureBlocks == nil {
		s.futureBlocks = make(map[types.Sequence]types.Pool)
	}
}

// EnterRound installs a new round table, clearing all stage accumulators.
// Role is computed deterministically from (myKey, main, confidants) and
// changes afterwards only through SetRole.
func (s *State) EnterRound(rt types.RoundTable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.round = rt.Round
	s.main = rt.General
	s.confidants = append([]types.PublicKey(nil), rt.Confidants...)
	s.myIndex = rt.IndexOf(s.myKey)
	s.reset()

	switch {
	case s.myKey == rt.General:
		s.role = types.RoleMain
	case s.myIndex >= 0:
		s.role = types.RoleConfidant
	default:
		s.role = types.RoleNormal
	}
}

// Round returns the currently installed round number.
func (s *State) Round() types.RoundNumber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// Main returns the current round's elected leader.
func (s *State) Main() types.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.main
}

// Confidants returns a copy of the current round's confidant set.
func (s *State) Confidants() []types.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.PublicKey(nil), s.confidants...)
}

// Role returns the node's current role.
func (s *State) Role() types.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetRole overrides the role until the next EnterRound recomputes it. The
// consensus FSM does not call it, so a stage3 outcome never sets RoleWriter.
func (s *State) SetRole(r types.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = r
}

// MyIndex returns the node's confidant index, valid only when Role is
// Confidant or Writer.
func (s *State) MyIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.myIndex
}

// AddStage1 records a Stage1 receipt, keyed by sender (last write wins,
// matching the "no re-processing on duplicate" idempotence requirement).
func (s *State) AddStage1(v Stage1) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage1[v.Sender] = v
}

// AddStage2 records a Stage2 receipt.
func (s *State) AddStage2(v Stage2) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage2[v.Sender] = v
}

// AddStage3 records a Stage3 receipt.
func (s *State) AddStage3(v Stage3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage3[v.Sender] = v
}

// Stage3Count returns how many distinct confidants have submitted Stage3.
func (s *State) Stage3Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stage3)
}

// Stage1Hashes returns the distinct candidate packet hashes proposed across
// every Stage1 receipt seen this round, sorted so every node assembling a
// block from the same accumulated evidence lands on the same byte sequence.
func (s *State) Stage1Hashes() []types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[types.Hash]struct{})
	var out []types.Hash
	for _, v := range s.stage1 {
		for _, h := range v.Hashes {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i][:]) < string(out[j][:]) })
	return out
}

// Stage3By returns the Stage3 evidence submitted by sender, if any.
func (s *State) Stage3By(sender types.PublicKey) (Stage3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.stage3[sender]
	return v, ok
}

// Stage2By returns the Stage2 evidence submitted by sender, if any. The
// Writer uses this to collect each confidant's signature over the block it
// is assembling.
func (s *State) Stage2By(sender types.PublicKey) (Stage2, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.stage2[sender]
	return v, ok
}

// BufferFutureBlock stores a block whose predecessor hasn't arrived yet.
func (s *State) BufferFutureBlock(p types.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.futureBlocks[p.Sequence] = p
}

// TakeFutureBlock removes and returns the buffered block at seq, if any.
func (s *State) TakeFutureBlock(seq types.Sequence) (types.Pool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.futureBlocks[seq]
	if ok {
		delete(s.futureBlocks, seq)
	}
	return p, ok
}

// ClearFutureBlocks empties the buffered-future-block map. reset() only
// initializes it when nil, so an already-populated map otherwise survives a
// plain round transition; BigBang needs it dropped explicitly.
func (s *State) ClearFutureBlocks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.futureBlocks = make(map[types.Sequence]types.Pool)
}
