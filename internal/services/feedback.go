package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
	"github.com/ssebasarias/droptools/internal/types"
)

const (
	FeedbackLabelCorrect   = "correct"
	FeedbackLabelIncorrect = "incorrect"
)

// FeedbackService records human verdicts on clustering decisions. Rows are
// write-only here; threshold tuning consumes them elsewhere.
type FeedbackService struct {
	log      *logger.Logger
	feedback repos.FeedbackRepo
}

func NewFeedbackService(baseLog *logger.Logger, feedback repos.FeedbackRepo) *FeedbackService {
	return &FeedbackService{
		log:      baseLog.With("service", "FeedbackService"),
		feedback: feedback,
	}
}

type FeedbackInput struct {
	ProductID   uuid.UUID `json:"product_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	Decision    string    `json:"decision"`
	Label       string    `json:"label"`
	VisualScore float64   `json:"visual_score"`
	TextScore   float64   `json:"text_score"`
	FinalScore  float64   `json:"final_score"`
}

func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (*types.MatchFeedback, error) {
	if in.ProductID == uuid.Nil || in.CandidateID == uuid.Nil {
		return nil, fmt.Errorf("product_id and candidate_id required")
	}
	if in.Label != FeedbackLabelCorrect && in.Label != FeedbackLabelIncorrect {
		return nil, fmt.Errorf("label must be %q or %q", FeedbackLabelCorrect, FeedbackLabelIncorrect)
	}
	snapshot, _ := json.Marshal(map[string]float64{
		"visual_score": in.VisualScore,
		"text_score":   in.TextScore,
		"final_score":  in.FinalScore,
	})
	row, err := s.feedback.Create(ctx, nil, &types.MatchFeedback{
		ProductID:      in.ProductID,
		CandidateID:    in.CandidateID,
		Decision:       in.Decision,
		FeedbackLabel:  in.Label,
		ScoresSnapshot: datatypes.JSON(snapshot),
	})
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	s.log.Info("Feedback recorded",
		"product_id", in.ProductID,
		"candidate_id", in.CandidateID,
		"label", in.Label)
	return row, nil
}
