package clustering

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/types"
)

type fakeWeightProfileRepo struct {
	rows  []*types.ConceptWeightProfile
	err   error
	calls int
}

func (f *fakeWeightProfileRepo) GetByConcepts(ctx context.Context, tx *gorm.DB, concepts []string) ([]*types.ConceptWeightProfile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.ConceptWeightProfile
	for _, row := range f.rows {
		for _, c := range concepts {
			if row.Concept == c {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func TestWeightStore_ExactConceptWins(t *testing.T) {
	repo := &fakeWeightProfileRepo{rows: []*types.ConceptWeightProfile{
		{Concept: "DEFAULT", WeightVisual: 0.5, WeightText: 0.5, ThresholdHybrid: 0.7, ThresholdVisualRescue: 0.9, ThresholdTextRescue: 0.9},
		{Concept: "earbuds", WeightVisual: 0.8, WeightText: 0.2, ThresholdHybrid: 0.75, ThresholdVisualRescue: 0.95, ThresholdTextRescue: 0.97},
	}}
	store := NewWeightStore(repo, testLogger(t))

	p := store.Resolve(context.Background(), "earbuds")
	if p.WeightVisual != 0.8 || p.ThresholdHybrid != 0.75 {
		t.Fatalf("expected exact concept profile, got %+v", p)
	}
}

func TestWeightStore_FallsBackToDefaultRow(t *testing.T) {
	repo := &fakeWeightProfileRepo{rows: []*types.ConceptWeightProfile{
		{Concept: "DEFAULT", WeightVisual: 0.5, WeightText: 0.5, ThresholdHybrid: 0.7, ThresholdVisualRescue: 0.9, ThresholdTextRescue: 0.9},
	}}
	store := NewWeightStore(repo, testLogger(t))

	p := store.Resolve(context.Background(), "unknown-concept")
	if p.WeightVisual != 0.5 || p.ThresholdHybrid != 0.7 {
		t.Fatalf("expected DEFAULT row profile, got %+v", p)
	}
}

func TestWeightStore_BaselineOnRepoError(t *testing.T) {
	repo := &fakeWeightProfileRepo{err: fmt.Errorf("db down")}
	store := NewWeightStore(repo, testLogger(t))

	p := store.Resolve(context.Background(), "earbuds")
	if p != baselineProfile() {
		t.Fatalf("expected baseline profile on error, got %+v", p)
	}
}

func TestWeightStore_CachesWithinCycle(t *testing.T) {
	repo := &fakeWeightProfileRepo{}
	store := NewWeightStore(repo, testLogger(t))

	store.Resolve(context.Background(), "earbuds")
	store.Resolve(context.Background(), "earbuds")
	if repo.calls != 1 {
		t.Fatalf("expected 1 repo call within a cycle, got %d", repo.calls)
	}

	store.ResetCycle()
	store.Resolve(context.Background(), "earbuds")
	if repo.calls != 2 {
		t.Fatalf("expected fresh lookup after ResetCycle, got %d calls", repo.calls)
	}
}

func TestWeightStore_EmptyConceptUsesDefault(t *testing.T) {
	repo := &fakeWeightProfileRepo{rows: []*types.ConceptWeightProfile{
		{Concept: "DEFAULT", WeightVisual: 0.45, WeightText: 0.55, ThresholdHybrid: 0.66, ThresholdVisualRescue: 0.9, ThresholdTextRescue: 0.9},
	}}
	store := NewWeightStore(repo, testLogger(t))

	p := store.Resolve(context.Background(), "  ")
	if p.WeightVisual != 0.45 {
		t.Fatalf("expected DEFAULT profile for blank concept, got %+v", p)
	}
}
