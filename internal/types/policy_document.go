package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PolicyDocument records the originating upload for a synced policy, for
// audit and provenance. ExtractionData holds the canonical document payload
// the sync ran from.
type PolicyDocument struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"policy_id"`
	Policy     *Policy    `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`
	CustomerID *uuid.UUID `gorm:"type:uuid;index" json:"customer_id,omitempty"`

	OriginalName   string         `gorm:"column:original_name;not null" json:"original_name"`
	StorageKey     string         `gorm:"column:storage_key" json:"storage_key"`
	FileURL        string         `gorm:"column:file_url" json:"file_url"`
	MimeType       string         `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes      int64          `gorm:"column:size_bytes" json:"size_bytes"`
	DocumentType   string         `gorm:"column:document_type;not null;default:'policy'" json:"document_type"`
	ExtractionData datatypes.JSON `gorm:"column:extraction_data;type:jsonb" json:"extraction_data,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PolicyDocument) TableName() string { return "policy_document" }
