package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type Product struct {
  ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  SupplierID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
  ExternalRef     string          `gorm:"column:external_ref;index" json:"external_ref,omitempty"`
  Title           string          `gorm:"column:title;not null" json:"title"`
  Price           float64         `gorm:"column:price;not null;default:0" json:"price"`
  Concept         string          `gorm:"column:concept;index" json:"concept,omitempty"`
  Industry        string          `gorm:"column:industry;index" json:"industry,omitempty"`
  ImageURL        string          `gorm:"column:image_url" json:"image_url,omitempty"`
  Embedding       datatypes.JSON  `gorm:"type:jsonb;column:embedding" json:"embedding,omitempty"`
  Clustered       bool            `gorm:"column:clustered;not null;default:false;index" json:"clustered"`
  CreatedAt       time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt       time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Product) TableName() string {
  return "product"
}
