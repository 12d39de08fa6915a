package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Policy is globally unique by policy_number and owned by one customer.
// Detail holds the type-specific sub-object (vehicle/property/life) and
// ACORDData the form/endorsement/exclusion metadata, both as jsonb.
type Policy struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer   *Customer `gorm:"constraint:OnDelete:CASCADE;foreignKey:CustomerID;references:ID" json:"customer,omitempty"`

	PolicyNumber string `gorm:"uniqueIndex;not null;column:policy_number" json:"policy_number"`
	Insurer      string `gorm:"column:insurer" json:"insurer"`
	PolicyType   string `gorm:"column:policy_type;not null;default:'other'" json:"policy_type"`
	Status       string `gorm:"column:status;not null;default:'active'" json:"status"`

	EffectiveDate  *time.Time `gorm:"column:effective_date" json:"effective_date,omitempty"`
	ExpirationDate *time.Time `gorm:"column:expiration_date" json:"expiration_date,omitempty"`
	IssueDate      *time.Time `gorm:"column:issue_date" json:"issue_date,omitempty"`

	PremiumAmount    float64 `gorm:"column:premium_amount" json:"premium_amount"`
	PremiumFrequency string  `gorm:"column:premium_frequency;not null;default:'annual'" json:"premium_frequency"`
	Deductible       float64 `gorm:"column:deductible" json:"deductible"`
	CoverageAmount   float64 `gorm:"column:coverage_amount" json:"coverage_amount"`

	Detail    datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	ACORDData datatypes.JSON `gorm:"column:acord_data;type:jsonb" json:"acord_data,omitempty"`

	Coverages []*PolicyCoverage `gorm:"foreignKey:PolicyID;references:ID" json:"coverages,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Policy) TableName() string { return "policy" }
