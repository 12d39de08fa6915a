package extraction

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CanonicalPolicyDocument is the normalized output of one extraction run.
// It is transient: the synchronizer consumes it, the persisted shape lives
// in internal/types. String fields use "" for null, dates are ISO-8601.
type CanonicalPolicyDocument struct {
	PolicyHolder  PolicyHolder         `json:"policyHolder"`
	Policy        PolicyInfo           `json:"policy"`
	Beneficiaries []Beneficiary        `json:"beneficiaries"`
	Coverages     []Coverage           `json:"coverages"`
	Vehicle       *VehicleDetail       `json:"vehicle"`
	Property      *PropertyDetail      `json:"property"`
	LifeInsurance *LifeInsuranceDetail `json:"lifeInsurance"`
	ACORDData     ACORDData            `json:"acordData"`
	Metadata      Metadata             `json:"metadata"`
}

type PolicyHolder struct {
	FirstName     string `json:"firstName"`
	MiddleName    string `json:"middleName"`
	LastName      string `json:"lastName"`
	DateOfBirth   string `json:"dateOfBirth"`
	SSNLast4      string `json:"ssnLast4"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"addressLine1"`
	AddressLine2  string `json:"addressLine2"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zipCode"`
	Occupation    string `json:"occupation"`
	MaritalStatus string `json:"maritalStatus"`
}

type PolicyInfo struct {
	PolicyNumber     string  `json:"policyNumber"`
	Insurer          string  `json:"insurer"`
	PolicyType       string  `json:"policyType"`
	Status           string  `json:"status"`
	EffectiveDate    string  `json:"effectiveDate"`
	ExpirationDate   string  `json:"expirationDate"`
	IssueDate        string  `json:"issueDate"`
	PremiumAmount    float64 `json:"premiumAmount"`
	PremiumFrequency string  `json:"premiumFrequency"`
	Deductible       float64 `json:"deductible"`
	CoverageAmount   float64 `json:"coverageAmount"`
}

type Beneficiary struct {
	FirstName            string  `json:"firstName"`
	LastName             string  `json:"lastName"`
	Relationship         string  `json:"relationship"`
	BeneficiaryType      string  `json:"beneficiaryType"`
	AllocationPercentage float64 `json:"allocationPercentage"`
	DateOfBirth          string  `json:"dateOfBirth"`
	SSNLast4             string  `json:"ssnLast4"`
	AddressLine1         string  `json:"addressLine1"`
	City                 string  `json:"city"`
	State                string  `json:"state"`
	ZipCode              string  `json:"zipCode"`
	IsRevocable          bool    `json:"isRevocable"`
}

type Coverage struct {
	Type        string  `json:"type"`
	Code        string  `json:"code"`
	Limit       float64 `json:"limit"`
	Deductible  float64 `json:"deductible"`
	Premium     float64 `json:"premium"`
	Description string  `json:"description"`
}

type VehicleDetail struct {
	Make          string  `json:"make"`
	Model         string  `json:"model"`
	Year          int     `json:"year"`
	VIN           string  `json:"vin"`
	LicensePlate  string  `json:"licensePlate"`
	Usage         string  `json:"usage"`
	AnnualMileage float64 `json:"annualMileage"`
}

type PropertyDetail struct {
	AddressLine1     string  `json:"addressLine1"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	ZipCode          string  `json:"zipCode"`
	YearBuilt        int     `json:"yearBuilt"`
	SquareFootage    float64 `json:"squareFootage"`
	ConstructionType string  `json:"constructionType"`
	RoofType         string  `json:"roofType"`
}

type LifeInsuranceDetail struct {
	Category   string  `json:"category"`
	TermYears  int     `json:"termYears"`
	FaceAmount float64 `json:"faceAmount"`
	CashValue  float64 `json:"cashValue"`
}

type ACORDData struct {
	FormNumbers  []string `json:"formNumbers"`
	Endorsements []string `json:"endorsements"`
	Exclusions   []string `json:"exclusions"`
}

type Metadata struct {
	OriginalFileName string    `json:"originalFileName"`
	SizeBytes        int64     `json:"sizeBytes"`
	MimeType         string    `json:"mimeType"`
	ExtractedAt      time.Time `json:"extractedAt"`
	ExtractorVersion string    `json:"extractorVersion"`
}

// PolicyDetail is the closed set of type-specific policy sub-objects. The
// sealed interface forces an exhaustive switch wherever detail is handled.
type PolicyDetail interface {
	isPolicyDetail()
	DetailKind() string
}

func (*VehicleDetail) isPolicyDetail()       {}
func (*PropertyDetail) isPolicyDetail()      {}
func (*LifeInsuranceDetail) isPolicyDetail() {}

func (*VehicleDetail) DetailKind() string       { return "vehicle" }
func (*PropertyDetail) DetailKind() string      { return "property" }
func (*LifeInsuranceDetail) DetailKind() string { return "life_insurance" }

// Detail returns the document's type-specific sub-object, or nil when the
// extraction found none. Vehicle wins over property wins over life when the
// model filled more than one, matching the policyType precedence order.
func (d *CanonicalPolicyDocument) Detail() PolicyDetail {
	switch {
	case d.Vehicle != nil:
		return d.Vehicle
	case d.Property != nil:
		return d.Property
	case d.LifeInsurance != nil:
		return d.LifeInsurance
	}
	return nil
}

type detailEnvelope struct {
	Kind   string          `json:"kind"`
	Detail json.RawMessage `json:"detail"`
}

// MarshalDetail serializes a PolicyDetail into the jsonb policy column,
// tagged with its kind. A nil detail marshals to JSON null.
func MarshalDetail(d PolicyDetail) (datatypes.JSON, error) {
	if d == nil {
		return datatypes.JSON("null"), nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(detailEnvelope{Kind: d.DetailKind(), Detail: raw})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

// UnmarshalDetail is the inverse of MarshalDetail.
func UnmarshalDetail(data datatypes.JSON) (PolicyDetail, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env detailEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "vehicle":
		var v VehicleDetail
		if err := json.Unmarshal(env.Detail, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case "property":
		var p PropertyDetail
		if err := json.Unmarshal(env.Detail, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "life_insurance":
		var l LifeInsuranceDetail
		if err := json.Unmarshal(env.Detail, &l); err != nil {
			return nil, err
		}
		return &l, nil
	}
	return nil, nil
}
