package types

import (
	"time"

	"github.com/google/uuid"
)

// PolicyBeneficiary links a policy to a contact. Allocations sharing the
// same (policy_id, beneficiary_type) must not sum past 100.
type PolicyBeneficiary struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_policy_contact" json:"policy_id"`
	Policy    *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`
	ContactID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_policy_contact" json:"contact_id"`
	Contact   *Contact  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ContactID;references:ID" json:"contact,omitempty"`

	BeneficiaryType      string  `gorm:"column:beneficiary_type;not null;default:'primary';index" json:"beneficiary_type"`
	AllocationPercentage float64 `gorm:"column:allocation_percentage;not null" json:"allocation_percentage"`
	IsRevocable          bool    `gorm:"column:is_revocable;not null;default:true" json:"is_revocable"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PolicyBeneficiary) TableName() string { return "policy_beneficiary" }
