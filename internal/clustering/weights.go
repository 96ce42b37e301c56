package clustering

import (
	"context"
	"strings"
	"sync"

	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
)

// DefaultConcept is the sentinel row backing every concept without its own
// profile.
const DefaultConcept = "DEFAULT"

// Profile holds the per-concept matcher tuning. Visual and text weights are
// expected to sum to ~1 but that is not enforced anywhere.
type Profile struct {
	WeightVisual          float64 `json:"weight_visual"`
	WeightText            float64 `json:"weight_text"`
	ThresholdHybrid       float64 `json:"threshold_hybrid"`
	ThresholdVisualRescue float64 `json:"threshold_visual_rescue"`
	ThresholdTextRescue   float64 `json:"threshold_text_rescue"`
}

func baselineProfile() Profile {
	return Profile{
		WeightVisual:          0.6,
		WeightText:            0.4,
		ThresholdHybrid:       0.68,
		ThresholdVisualRescue: 0.92,
		ThresholdTextRescue:   0.95,
	}
}

// WeightStore resolves a concept to a usable profile. Resolution never fails:
// exact concept row, then the DEFAULT row, then hardcoded baseline constants.
// Resolved profiles are cached until ResetCycle, which the engine calls at the
// top of every batch so operator edits are picked up between cycles.
type WeightStore struct {
	repo  repos.WeightProfileRepo
	log   *logger.Logger
	mu    sync.Mutex
	cache map[string]Profile
}

func NewWeightStore(repo repos.WeightProfileRepo, baseLog *logger.Logger) *WeightStore {
	return &WeightStore{
		repo:  repo,
		log:   baseLog.With("component", "WeightStore"),
		cache: map[string]Profile{},
	}
}

func (s *WeightStore) ResetCycle() {
	s.mu.Lock()
	s.cache = map[string]Profile{}
	s.mu.Unlock()
}

func (s *WeightStore) Resolve(ctx context.Context, concept string) Profile {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		concept = DefaultConcept
	}

	s.mu.Lock()
	if p, ok := s.cache[concept]; ok {
		s.mu.Unlock()
		return p
	}
	s.mu.Unlock()

	resolved := baselineProfile()
	if s.repo != nil {
		rows, err := s.repo.GetByConcepts(ctx, nil, []string{concept, DefaultConcept})
		if err != nil {
			s.log.Warn("Weight profile lookup failed, using baseline", "concept", concept, "error", err)
		} else {
			foundExact := false
			for _, row := range rows {
				if row == nil {
					continue
				}
				p := Profile{
					WeightVisual:          row.WeightVisual,
					WeightText:            row.WeightText,
					ThresholdHybrid:       row.ThresholdHybrid,
					ThresholdVisualRescue: row.ThresholdVisualRescue,
					ThresholdTextRescue:   row.ThresholdTextRescue,
				}
				if row.Concept == concept {
					resolved = p
					foundExact = true
				} else if row.Concept == DefaultConcept && !foundExact {
					resolved = p
				}
			}
		}
	}

	s.mu.Lock()
	s.cache[concept] = resolved
	s.mu.Unlock()
	return resolved
}
