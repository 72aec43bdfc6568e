package wire

import (
	"testing"

	"github.com/ledgercore/node/pkg/interfaces"
)

func TestPolicyBigBang(t *testing.T) {
	if got := Policy(interfaces.KindBigBang, 10, 5, 5); got != ActionProcess {
		t.Fatalf("BigBang above local head: got %v, want Process", got)
	}
	if got := Policy(interfaces.KindBigBang, 4, 5, 5); got != ActionDrop {
		t.Fatalf("BigBang at or below local head: got %v, want Drop", got)
	}
}

func TestPolicyRoundTable(t *testing.T) {
	if got := Policy(interfaces.KindRoundTable, 6, 5, 0); got != ActionProcess {
		t.Fatalf("RoundTable for a future round: got %v, want Process", got)
	}
	if got := Policy(interfaces.KindRoundTable, 5, 5, 0); got != ActionDrop {
		t.Fatalf("RoundTable for the current round: got %v, want Drop", got)
	}
}

func TestPolicyRoundTableRequest(t *testing.T) {
	if got := Policy(interfaces.KindRoundTableRequest, 4, 5, 0); got != ActionProcess {
		t.Fatalf("RoundTableRequest for a past round: got %v, want Process", got)
	}
	if got := Policy(interfaces.KindRoundTableRequest, 5, 5, 0); got != ActionDrop {
		t.Fatalf("RoundTableRequest for the current round: got %v, want Drop", got)
	}
}

func TestPolicyBlockRequestAndRequestedBlock(t *testing.T) {
	for _, kind := range []interfaces.MessageKind{interfaces.KindBlockRequest, interfaces.KindRequestedBlock} {
		if got := Policy(kind, 5, 5, 0); got != ActionProcess {
			t.Fatalf("%v at current round: got %v, want Process", kind, got)
		}
		if got := Policy(kind, 6, 5, 0); got != ActionDrop {
			t.Fatalf("%v for a future round: got %v, want Drop", kind, got)
		}
	}
}

func TestPolicyNewBlock(t *testing.T) {
	if got := Policy(interfaces.KindNewBlock, 4, 5, 0); got != ActionProcess {
		t.Fatalf("NewBlock behind current round: got %v, want Process", got)
	}
	if got := Policy(interfaces.KindNewBlock, 5, 5, 0); got != ActionProcess {
		t.Fatalf("NewBlock at current round: got %v, want Process", got)
	}
	if got := Policy(interfaces.KindNewBlock, 6, 5, 0); got != ActionPostpone {
		t.Fatalf("NewBlock ahead of current round: got %v, want Postpone", got)
	}
}

func TestPolicyGenericRule(t *testing.T) {
	if got := Policy(interfaces.KindFirstStage, 5, 5, 0); got != ActionProcess {
		t.Fatalf("generic at current round: got %v, want Process", got)
	}
	if got := Policy(interfaces.KindFirstStage, 6, 5, 0); got != ActionPostpone {
		t.Fatalf("generic ahead of current round: got %v, want Postpone", got)
	}
	if got := Policy(interfaces.KindFirstStage, 4, 5, 0); got != ActionDrop {
		t.Fatalf("generic behind current round: got %v, want Drop", got)
	}
}

func TestRouterPostponeAndReplay(t *testing.T) {
	var handled []interfaces.Frame
	r := NewRouter(func(f interfaces.Frame) { handled = append(handled, f) })

	postponeCount := 0
	r.SetPostponeHook(func() { postponeCount++ })

	future := interfaces.Frame{Kind: interfaces.KindFirstStage, Round: 12}
	r.Dispatch(future, 11, 0)
	if len(handled) != 0 {
		t.Fatal("a future-round frame must not be dispatched immediately")
	}
	if postponeCount != 1 {
		t.Fatalf("postpone hook fired %d times, want 1", postponeCount)
	}

	r.ReplayRound(12)
	if len(handled) != 1 || handled[0].Round != 12 {
		t.Fatal("entering round 12 must replay the postponed frame")
	}

	// A second replay of the same round finds nothing left to drain.
	r.ReplayRound(12)
	if len(handled) != 1 {
		t.Fatal("replaying an already-drained round must not re-dispatch")
	}
}

func TestRouterDropsPastRoundFrames(t *testing.T) {
	var handled []interfaces.Frame
	r := NewRouter(func(f interfaces.Frame) { handled = append(handled, f) })

	stale := interfaces.Frame{Kind: interfaces.KindFirstStage, Round: 3}
	r.Dispatch(stale, 5, 0)
	if len(handled) != 0 {
		t.Fatal("a stale frame must be dropped, not dispatched")
	}
}

func TestRouterOnBigBangClearsPostponed(t *testing.T) {
	var handled []interfaces.Frame
	r := NewRouter(func(f interfaces.Frame) { handled = append(handled, f) })

	r.Dispatch(interfaces.Frame{Kind: interfaces.KindFirstStage, Round: 20}, 10, 0)
	r.OnBigBang()
	r.ReplayRound(20)
	if len(handled) != 0 {
		t.Fatal("BigBang must drop postponed frames, per the conservative choice in §9")
	}
}

func TestPostponedQueueOrdersByArrival(t *testing.T) {
	q := NewPostponedQueue()
	first := interfaces.Frame{ID: 1, Round: 7}
	second := interfaces.Frame{ID: 2, Round: 7}
	q.Add(first)
	q.Add(second)

	drained := q.Drain(7)
	if len(drained) != 2 || drained[0].ID != 1 || drained[1].ID != 2 {
		t.Fatalf("drained out of arrival order: %+v", drained)
	}
	if got := q.Drain(7); len(got) != 0 {
		t.Fatal("draining twice must return nothing the second time")
	}
}
