package types

import (
  "time"
  "github.com/google/uuid"
)

// ConceptWeightProfile tunes the hybrid matcher per taxonomy concept. The row
// keyed by concept "DEFAULT" backs every concept without its own row. Rows are
// edited by operators through the admin surface, never by the engine.
type ConceptWeightProfile struct {
  ID                   uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Concept              string     `gorm:"column:concept;not null;uniqueIndex" json:"concept"`
  WeightVisual         float64    `gorm:"column:weight_visual;not null;default:0.6" json:"weight_visual"`
  WeightText           float64    `gorm:"column:weight_text;not null;default:0.4" json:"weight_text"`
  ThresholdHybrid      float64    `gorm:"column:threshold_hybrid;not null;default:0.68" json:"threshold_hybrid"`
  ThresholdVisualRescue float64   `gorm:"column:threshold_visual_rescue;not null;default:0.92" json:"threshold_visual_rescue"`
  ThresholdTextRescue  float64    `gorm:"column:threshold_text_rescue;not null;default:0.95" json:"threshold_text_rescue"`
  CreatedAt            time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt            time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ConceptWeightProfile) TableName() string {
  return "concept_weight_profile"
}
