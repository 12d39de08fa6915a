package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a policy holder. Natural dedup key is email first, then
// (first_name, last_name, date_of_birth).
type Customer struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AgencyID        *uuid.UUID `gorm:"type:uuid;index" json:"agency_id,omitempty"`
	AssignedAgentID *uuid.UUID `gorm:"type:uuid;index;column:assigned_agent_id" json:"assigned_agent_id,omitempty"`
	AssignedAgent   *User      `gorm:"foreignKey:AssignedAgentID;references:ID" json:"assigned_agent,omitempty"`

	FirstName   string     `gorm:"column:first_name;index:idx_customer_name_dob" json:"first_name"`
	MiddleName  string     `gorm:"column:middle_name" json:"middle_name"`
	LastName    string     `gorm:"not null;column:last_name;index:idx_customer_name_dob" json:"last_name"`
	Email       string     `gorm:"column:email;index" json:"email"`
	Phone       string     `gorm:"column:phone" json:"phone"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth;index:idx_customer_name_dob" json:"date_of_birth,omitempty"`
	SSNLast4    string     `gorm:"column:ssn_last4" json:"ssn_last4"`

	AddressLine1 string `gorm:"column:address_line1" json:"address_line1"`
	AddressLine2 string `gorm:"column:address_line2" json:"address_line2"`
	City         string `gorm:"column:city" json:"city"`
	State        string `gorm:"column:state" json:"state"`
	ZipCode      string `gorm:"column:zip_code" json:"zip_code"`

	Occupation    string `gorm:"column:occupation" json:"occupation"`
	MaritalStatus string `gorm:"column:marital_status" json:"marital_status"`

	Status        string     `gorm:"column:status;not null;default:'active'" json:"status"`
	CustomerSince *time.Time `gorm:"column:customer_since" json:"customer_since,omitempty"`

	Policies []*Policy  `gorm:"foreignKey:CustomerID;references:ID" json:"policies,omitempty"`
	Contacts []*Contact `gorm:"foreignKey:CustomerID;references:ID" json:"contacts,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Customer) TableName() string { return "customer" }
