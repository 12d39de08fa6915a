package types

import (
	"time"

	"github.com/google/uuid"
)

// PolicyCoverage rows are replaced wholesale on every policy sync.
type PolicyCoverage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyID uuid.UUID `gorm:"type:uuid;not null;index" json:"policy_id"`
	Policy   *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	CoverageType  string  `gorm:"column:coverage_type" json:"coverage_type"`
	CoverageCode  string  `gorm:"column:coverage_code" json:"coverage_code"`
	CoverageLimit float64 `gorm:"column:coverage_limit" json:"coverage_limit"`
	Deductible    float64 `gorm:"column:deductible" json:"deductible"`
	Premium       float64 `gorm:"column:premium" json:"premium"`
	Description   string  `gorm:"column:description" json:"description"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PolicyCoverage) TableName() string { return "policy_coverage" }
