package types

import "testing"

// TestTailBoundary follows §8 scenario 5: tail=[5,6,7,8] (min=5, max=8).
func TestTailBoundary(t *testing.T) {
	var tail TransactionsTail
	for _, id := range []int64{5, 6, 7, 8} {
		if !tail.IsAllowed(id) {
			t.Fatalf("id %d should be allowed while building the tail", id)
		}
		tail.Push(id)
	}

	if !tail.IsAllowed(9) {
		t.Fatal("id above max must be allowed")
	}
	tail.Push(9)
	if got, _ := tail.Max(); got != 9 {
		t.Fatalf("max = %d, want 9", got)
	}

	if tail.IsAllowed(7) {
		t.Fatal("id already present within the window must be rejected")
	}

	if !tail.IsAllowed(10000) {
		t.Fatal("id far above max must be allowed")
	}
}

func TestTailEmptyAllowsAnything(t *testing.T) {
	var tail TransactionsTail
	if !tail.IsAllowed(0) || !tail.IsAllowed(-5) || !tail.IsAllowed(1<<40) {
		t.Fatal("an empty tail must allow any id")
	}
}

func TestTailWindowSlideEvictsOldIDs(t *testing.T) {
	var tail TransactionsTail
	tail.Push(0)
	tail.Push(TailWindow) // slides the window forward by exactly its width
	if tail.IsAllowed(0) {
		t.Fatal("id 0 fell below the window's min and must now be rejected")
	}
	if !tail.IsAllowed(TailWindow + 1) {
		t.Fatal("id above the new max must be allowed")
	}
}

func TestTailRejectsBelowMin(t *testing.T) {
	var tail TransactionsTail
	tail.Push(100)
	if tail.IsAllowed(100 - TailWindow) {
		t.Fatal("id below min must be rejected")
	}
}

func TestTailJSONRoundTrip(t *testing.T) {
	var tail TransactionsTail
	for _, id := range []int64{1, 2, 3, 40} {
		tail.Push(id)
	}

	raw, err := tail.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored TransactionsTail
	if err := restored.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.Window() != tail.Window() {
		t.Fatalf("window = %#x, want %#x", restored.Window(), tail.Window())
	}
	gotMax, gotHas := restored.Max()
	wantMax, wantHas := tail.Max()
	if gotMax != wantMax || gotHas != wantHas {
		t.Fatalf("max = (%d, %v), want (%d, %v)", gotMax, gotHas, wantMax, wantHas)
	}
}
