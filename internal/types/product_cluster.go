package types

import (
  "time"
  "github.com/google/uuid"
)

type ProductCluster struct {
  ID               uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  RepresentativeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"representative_id"`
  Concept          string     `gorm:"column:concept;index" json:"concept,omitempty"`
  // Advanced only by membership writes, so the running average-price update
  // stays exact from the first member on.
  TotalCompetitors int        `gorm:"column:total_competitors;not null;default:0" json:"total_competitors"`
  AveragePrice     float64    `gorm:"column:average_price;not null;default:0" json:"average_price"`
  SaturationScore  float64    `gorm:"column:saturation_score;not null;default:0" json:"saturation_score"`
  CreatedAt        time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt        time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProductCluster) TableName() string {
  return "product_cluster"
}

type ClusterMembership struct {
  ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ProductID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"product_id"`
  ClusterID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"cluster_id"`
  MatchConfidence float64    `gorm:"column:match_confidence;not null;default:0" json:"match_confidence"`
  MatchMethod     string     `gorm:"column:match_method;not null" json:"match_method"`
  CreatedAt       time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (ClusterMembership) TableName() string {
  return "cluster_membership"
}
