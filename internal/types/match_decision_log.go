package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// MatchDecisionLog is append-only. Rows are written once per serious scoring
// attempt and never updated; the admin audit tooling reads them as-is.
type MatchDecisionLog struct {
  ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ProductID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
  CandidateID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"candidate_id"`
  ProductTitle    string          `gorm:"column:product_title" json:"product_title,omitempty"`
  CandidateTitle  string          `gorm:"column:candidate_title" json:"candidate_title,omitempty"`
  ProductImage    string          `gorm:"column:product_image" json:"product_image,omitempty"`
  CandidateImage  string          `gorm:"column:candidate_image" json:"candidate_image,omitempty"`
  VisualScore     float64         `gorm:"column:visual_score;not null;default:0" json:"visual_score"`
  TextScore       float64         `gorm:"column:text_score;not null;default:0" json:"text_score"`
  FinalScore      float64         `gorm:"column:final_score;not null;default:0" json:"final_score"`
  Accepted        bool            `gorm:"column:accepted;not null;default:false" json:"accepted"`
  MatchMethod     string          `gorm:"column:match_method;not null" json:"match_method"`
  ProfileSnapshot datatypes.JSON  `gorm:"type:jsonb;column:profile_snapshot" json:"profile_snapshot,omitempty"`
  CreatedAt       time.Time       `gorm:"not null;default:now();index" json:"created_at"`
}

func (MatchDecisionLog) TableName() string {
  return "match_decision_log"
}

// MatchFeedback rows come back from the human audit tooling and feed future
// threshold tuning. Consumed outside this service.
type MatchFeedback struct {
  ID             uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ProductID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
  CandidateID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"candidate_id"`
  Decision       string          `gorm:"column:decision;not null" json:"decision"`
  FeedbackLabel  string          `gorm:"column:feedback_label;not null" json:"feedback_label"`
  ScoresSnapshot datatypes.JSON  `gorm:"type:jsonb;column:scores_snapshot" json:"scores_snapshot,omitempty"`
  CreatedAt      time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (MatchFeedback) TableName() string {
  return "match_feedback"
}
