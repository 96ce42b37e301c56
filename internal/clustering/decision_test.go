package clustering

import (
	"math"
	"testing"
)

func TestEvaluatePair_HybridMatch(t *testing.T) {
	p := baselineProfile()
	method, final, accepted := evaluatePair(p, 0.8, 0.7)
	if method != MethodHybridMatch {
		t.Fatalf("method: got %s, want %s", method, MethodHybridMatch)
	}
	if !accepted {
		t.Fatalf("expected accepted")
	}
	want := 0.6*0.8 + 0.4*0.7
	if math.Abs(final-want) > 1e-9 {
		t.Fatalf("final: got %v, want %v", final, want)
	}
}

func TestEvaluatePair_VisualRescue(t *testing.T) {
	// Blended score fails the hybrid threshold but the raw visual score is
	// near-identical, so the rescue fires and boosts the final score.
	p := baselineProfile()
	method, final, accepted := evaluatePair(p, 0.93, 0.1)
	if method != MethodVisualRescue {
		t.Fatalf("method: got %s, want %s", method, MethodVisualRescue)
	}
	if !accepted {
		t.Fatalf("expected accepted")
	}
	if math.Abs(final-0.93) > 1e-9 {
		t.Fatalf("final should be boosted to the visual score: got %v", final)
	}
}

func TestEvaluatePair_HybridTakesPrecedenceOverRescue(t *testing.T) {
	p := baselineProfile()
	method, _, _ := evaluatePair(p, 0.95, 0.9)
	if method != MethodHybridMatch {
		t.Fatalf("method: got %s, want %s (hybrid checked first)", method, MethodHybridMatch)
	}
}

func TestEvaluatePair_TextRescue(t *testing.T) {
	p := Profile{
		WeightVisual:          0.9,
		WeightText:            0.1,
		ThresholdHybrid:       0.8,
		ThresholdVisualRescue: 0.99,
		ThresholdTextRescue:   0.95,
	}
	method, final, accepted := evaluatePair(p, 0.65, 0.96)
	if method != MethodTextRescue {
		t.Fatalf("method: got %s, want %s", method, MethodTextRescue)
	}
	if !accepted {
		t.Fatalf("expected accepted")
	}
	if math.Abs(final-0.96) > 1e-9 {
		t.Fatalf("final should be boosted to the text score: got %v", final)
	}
}

func TestEvaluatePair_TextRescueBlockedByVisualFloor(t *testing.T) {
	// Identical titles on visually unrelated listings must not merge.
	p := Profile{
		WeightVisual:          0.9,
		WeightText:            0.1,
		ThresholdHybrid:       0.8,
		ThresholdVisualRescue: 0.99,
		ThresholdTextRescue:   0.95,
	}
	method, _, accepted := evaluatePair(p, 0.5, 0.99)
	if method != MethodRejected || accepted {
		t.Fatalf("got method=%s accepted=%v, want rejection", method, accepted)
	}
}

func TestEvaluatePair_Rejected(t *testing.T) {
	p := baselineProfile()
	method, final, accepted := evaluatePair(p, 0.3, 0.3)
	if method != MethodRejected || accepted {
		t.Fatalf("got method=%s accepted=%v, want rejection", method, accepted)
	}
	if math.Abs(final-0.3) > 1e-9 {
		t.Fatalf("final: got %v, want 0.3", final)
	}
}
