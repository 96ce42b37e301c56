package scheduling

import "testing"

func TestPartitionRanges_UnevenTail(t *testing.T) {
	got := PartitionRanges(237, 50)
	want := []Range{{1, 50}, {51, 100}, {101, 150}, {151, 200}, {201, 237}}
	if len(got) != len(want) {
		t.Fatalf("range count: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("range %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPartitionRanges_ExactMultiple(t *testing.T) {
	got := PartitionRanges(100, 50)
	if len(got) != 2 || got[0] != (Range{1, 50}) || got[1] != (Range{51, 100}) {
		t.Fatalf("got %+v", got)
	}
}

func TestPartitionRanges_SmallerThanOneRange(t *testing.T) {
	got := PartitionRanges(7, 50)
	if len(got) != 1 || got[0] != (Range{1, 7}) {
		t.Fatalf("got %+v", got)
	}
}

func TestPartitionRanges_ZeroTotal(t *testing.T) {
	if got := PartitionRanges(0, 50); got != nil {
		t.Fatalf("expected nil for zero total, got %+v", got)
	}
	if got := PartitionRanges(-3, 50); got != nil {
		t.Fatalf("expected nil for negative total, got %+v", got)
	}
}

func TestPartitionRanges_FullCoverage(t *testing.T) {
	total := 1234
	parts := PartitionRanges(total, 50)
	next := 1
	for _, p := range parts {
		if p.Start != next {
			t.Fatalf("gap or overlap at %d: got start %d", next, p.Start)
		}
		if p.End < p.Start {
			t.Fatalf("inverted range %+v", p)
		}
		next = p.End + 1
	}
	if next != total+1 {
		t.Fatalf("coverage ends at %d, want %d", next-1, total)
	}
}
