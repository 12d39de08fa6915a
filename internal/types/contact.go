package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contact is a person related to a customer, today always a beneficiary.
// Deduped per customer by (first_name, last_name, relationship).
type Contact struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index:idx_contact_dedup" json:"customer_id"`
	Customer   *Customer `gorm:"constraint:OnDelete:CASCADE;foreignKey:CustomerID;references:ID" json:"customer,omitempty"`

	FirstName    string     `gorm:"column:first_name;index:idx_contact_dedup" json:"first_name"`
	LastName     string     `gorm:"column:last_name;index:idx_contact_dedup" json:"last_name"`
	Relationship string     `gorm:"column:relationship;index:idx_contact_dedup" json:"relationship"`
	ContactType  string     `gorm:"column:contact_type;not null;default:'beneficiary'" json:"contact_type"`
	DateOfBirth  *time.Time `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	SSNLast4     string     `gorm:"column:ssn_last4" json:"ssn_last4"`

	AddressLine1 string `gorm:"column:address_line1" json:"address_line1"`
	City         string `gorm:"column:city" json:"city"`
	State        string `gorm:"column:state" json:"state"`
	ZipCode      string `gorm:"column:zip_code" json:"zip_code"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Contact) TableName() string { return "contact" }
