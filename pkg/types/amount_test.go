package types

import "testing"

func TestAmountAddSub(t *testing.T) {
	a := NewAmount(10, 500_000, false) // 10.5
	b := NewAmount(2, 250_000, false)  // 2.25

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.String() != "12.750000" {
		t.Fatalf("sum = %s, want 12.750000", sum.String())
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if diff.String() != "8.250000" {
		t.Fatalf("diff = %s, want 8.250000", diff.String())
	}
}

func TestAmountSubNegativeResult(t *testing.T) {
	a := NewAmount(1, 0, false)
	b := NewAmount(2, 0, false)

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if !diff.IsNegative() {
		t.Fatal("1 - 2 must be negative")
	}
	if diff.String() != "-1.000000" {
		t.Fatalf("diff = %s, want -1.000000", diff.String())
	}
}

func TestAmountOverflowIsNotSaturated(t *testing.T) {
	huge := NewAmount(1<<62, 0, false)
	_, err := huge.Add(huge)
	if err != ErrAmountOverflow {
		t.Fatalf("err = %v, want ErrAmountOverflow", err)
	}
}

func TestAmountCmp(t *testing.T) {
	small := NewAmount(1, 0, false)
	large := NewAmount(2, 0, false)
	neg := NewAmount(1, 0, true)

	if small.Cmp(large) != -1 {
		t.Fatal("1 should compare less than 2")
	}
	if large.Cmp(small) != 1 {
		t.Fatal("2 should compare greater than 1")
	}
	if small.Cmp(small) != 0 {
		t.Fatal("equal amounts should compare equal")
	}
	if neg.Cmp(small) != -1 {
		t.Fatal("-1 should compare less than 1")
	}
}

func TestAmountJSONRoundTrip(t *testing.T) {
	a := NewAmount(42, 123_456, true)

	raw, err := a.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored Amount
	if err := restored.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.String() != a.String() {
		t.Fatalf("restored = %s, want %s", restored.String(), a.String())
	}
}

func TestAmountZeroIsNeverNegative(t *testing.T) {
	z := Zero()
	if z.IsNegative() {
		t.Fatal("zero must not report as negative regardless of sign bit")
	}
}
