// Package sync implements the neighbor-aware, windowed pool synchronizer of
// §4.6: it closes the gap between the local chain head and the current
// round by requesting bounded windows of missing sequences from peers,
// stealing work from slow neighbors and re-requesting on a timer.
package sync

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// syncTickBase is the unit §4.6's sequences_verification_frequency scales:
// a frequency of 1 is event-driven (no timer), anything greater polls every
// frequency seconds.
const syncTickBase = time.Second

// Synchronizer drives block-range requests against a neighbor set until the
// local chain reaches the current round.
type Synchronizer struct {
	storage   interfaces.BlockStorage
	transport interfaces.Transport
	scheduler interfaces.Scheduler
	logger    interfaces.Logger
	cfg       interfaces.ConsensusConfig
	metrics   *metrics.Metrics

	// Finished is invoked once remaining reaches zero after a sync tick.
	// Left nil, it is simply skipped.
	Finished func()

	mu        sync.Mutex
	neighbors []types.Neighbor
	requested map[types.Sequence]int // sequence -> retry count
	started   bool
	timer     interfaces.TimerHandle
}

// New builds a Synchronizer against storage and transport, configured per
// deployment parameters in cfg.
func New(storage interfaces.BlockStorage, transport interfaces.Transport, scheduler interfaces.Scheduler, logger interfaces.Logger, cfg interfaces.ConsensusConfig, m *metrics.Metrics) *Synchronizer {
	return &Synchronizer{
		storage:   storage,
		transport: transport,
		scheduler: scheduler,
		logger:    logger.With("module", "sync"),
		cfg:       cfg,
		metrics:   m,
		requested: make(map[types.Sequence]int),
	}
}

// Remaining reports how many sequences remain between the local head and
// the current sync target.
func (s *Synchronizer) Remaining(roundNum types.RoundNumber) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(roundNum)
}

// targetSequenceLocked maps a round number to the highest sequence a fully
// synced node should have written. Once a sync is under way the in-flight
// round's own tip is excluded, per §4.6 step 4.
func (s *Synchronizer) targetSequenceLocked(roundNum types.RoundNumber) types.Sequence {
	if s.started && roundNum > 0 {
		return types.Sequence(roundNum - 1)
	}
	return types.Sequence(roundNum)
}

// ProcessingSync evaluates whether a sync round should start, continue or
// stop, following §4.6's numbered decision sequence.
func (s *Synchronizer) ProcessingSync(roundNum types.RoundNumber, isBigBang bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.neighbors) == 0 {
		return
	}

	last := s.storage.LastSequence()
	if uint64(last) >= uint64(roundNum) {
		s.emitProgressLocked(roundNum)
		if s.remainingLocked(roundNum) == 0 {
			s.finishLocked()
		}
		return
	}

	if !s.started && uint64(roundNum) < uint64(last)+s.cfg.RoundDifferenceForSync {
		return
	}

	needsTimer := s.cfg.SequencesVerifyFrequency > 1 || isBigBang
	if needsTimer && s.timer == nil {
		s.timer = s.scheduler.Every(sequenceVerifyPeriod(s.cfg.SequencesVerifyFrequency), func() {
			s.ProcessingSync(roundNum, false)
		})
	} else if !needsTimer && s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}

	if !s.started {
		s.started = true
		s.refreshNeighborsLocked()
		s.requestFromAllLocked(roundNum)
		return
	}

	if s.cfg.RequestRepeatRoundCount > 0 {
		s.reRequestStaleLocked(roundNum)
	}
}

func (s *Synchronizer) remainingLocked(roundNum types.RoundNumber) int {
	last := s.storage.LastSequence()
	target := s.targetSequenceLocked(roundNum)
	if target <= last {
		return 0
	}
	return int(target - last)
}

func (s *Synchronizer) emitProgressLocked(roundNum types.RoundNumber) {
	s.logger.Debug("sync progress", "last_written", s.storage.LastSequence(), "remaining", s.remainingLocked(roundNum))
}

func (s *Synchronizer) finishLocked() {
	s.started = false
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
	s.requested = make(map[types.Sequence]int)
	if s.Finished != nil {
		s.Finished()
	}
}

func (s *Synchronizer) requestFromAllLocked(target types.RoundNumber) {
	for i := range s.neighbors {
		seqs := s.getNeededSequencesLocked(i, target)
		s.sendBlockRequestLocked(i, target, seqs)
	}
}

func (s *Synchronizer) reRequestStaleLocked(target types.RoundNumber) {
	for i := range s.neighbors {
		n := &s.neighbors[i]
		n.RoundCounter++
		if int(n.RoundCounter) < s.cfg.RequestRepeatRoundCount {
			continue
		}
		seqs := s.getNeededSequencesLocked(i, target)
		s.sendBlockRequestLocked(i, target, seqs)
	}
}

func (s *Synchronizer) sendBlockRequestLocked(neighborIdx int, round types.RoundNumber, seqs []types.Sequence) {
	if len(seqs) == 0 {
		return
	}
	peer, ok := s.transport.NeighborByIndex(int(s.neighbors[neighborIdx].Index))
	if !ok {
		return
	}
	payload, err := json.Marshal(seqs)
	if err != nil {
		s.logger.Error("failed to encode block request", "err", err)
		return
	}
	frame := interfaces.Frame{Kind: interfaces.KindBlockRequest, Round: round, Payload: payload}
	if err := s.transport.Send(frame, peer); err != nil {
		s.logger.Warn("block request send failed", "peer", peer.String(), "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.SyncRequests.Inc()
	}
}

func sequenceVerifyPeriod(frequency int) time.Duration {
	if frequency <= 1 {
		return syncTickBase
	}
	return time.Duration(frequency) * syncTickBase
}
