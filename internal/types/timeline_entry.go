package types

import (
	"time"

	"github.com/google/uuid"
)

// TimelineEntry is an append-only activity record on a customer.
type TimelineEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer   *Customer  `gorm:"constraint:OnDelete:CASCADE;foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	PolicyID   *uuid.UUID `gorm:"type:uuid;index" json:"policy_id,omitempty"`
	ActorID    *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`

	EntryType   string `gorm:"column:entry_type;not null" json:"entry_type"`
	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description" json:"description"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (TimelineEntry) TableName() string { return "customer_timeline_entry" }
