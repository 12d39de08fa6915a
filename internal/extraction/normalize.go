package extraction

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Closed enum defaults. Unrecognized values fall back instead of failing:
// the model output is untrusted and a bad enum must not sink the document.
const (
	DefaultPolicyType       = "other"
	DefaultPolicyStatus     = "active"
	DefaultBeneficiaryType  = "primary"
	DefaultPremiumFrequency = "annual"
)

var policyTypeAliases = map[string]string{
	"auto": "auto", "automobile": "auto", "car": "auto", "vehicle": "auto",
	"motor": "auto", "personalauto": "auto", "autoinsurance": "auto",
	"home": "home", "homeowners": "home", "homeowner": "home",
	"dwelling": "home", "house": "home", "fire": "home", "ho3": "home",
	"property": "home",
	"life":     "life", "lifeinsurance": "life", "term": "life",
	"termlife": "life", "wholelife": "life", "universallife": "life",
	"health": "health", "medical": "health", "healthinsurance": "health",
	"commercial": "commercial", "business": "commercial",
	"commercialproperty": "commercial", "generalliability": "commercial",
	"bop":      "commercial",
	"umbrella": "umbrella", "personalumbrella": "umbrella", "excess": "umbrella",
	"renters": "renters", "renter": "renters", "tenant": "renters",
	"rental": "renters",
	"other":  "other",
}

var policyStatusAliases = map[string]string{
	"active": "active", "inforce": "active", "current": "active",
	"pending": "pending", "pendingreview": "pending", "submitted": "pending",
	"expired": "expired", "lapsed": "expired",
	"cancelled": "cancelled", "canceled": "cancelled",
	"terminated": "cancelled", "void": "cancelled",
}

var beneficiaryTypeAliases = map[string]string{
	"primary":    "primary",
	"contingent": "contingent", "secondary": "contingent", "backup": "contingent",
}

var premiumFrequencyAliases = map[string]string{
	"monthly": "monthly", "permonth": "monthly", "month": "monthly",
	"quarterly": "quarterly", "quarter": "quarterly",
	"semiannual": "semi_annual", "semiannually": "semi_annual",
	"biannual": "semi_annual", "twiceayear": "semi_annual",
	"annual": "annual", "annually": "annual", "yearly": "annual",
	"peryear": "annual", "year": "annual",
}

// canonKey folds case and strips underscores, hyphens and whitespace so
// "Semi-Annual", "semi_annual" and "SEMI ANNUAL" all hit the same entry.
func canonKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case '_', '-', ' ', '\t', '\n':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lookupAlias(table map[string]string, s, fallback string) string {
	if v, ok := table[canonKey(s)]; ok {
		return v
	}
	return fallback
}

func NormalizePolicyType(s string) string {
	return lookupAlias(policyTypeAliases, s, DefaultPolicyType)
}

func NormalizePolicyStatus(s string) string {
	return lookupAlias(policyStatusAliases, s, DefaultPolicyStatus)
}

func NormalizeBeneficiaryType(s string) string {
	return lookupAlias(beneficiaryTypeAliases, s, DefaultBeneficiaryType)
}

func NormalizePremiumFrequency(s string) string {
	return lookupAlias(premiumFrequencyAliases, s, DefaultPremiumFrequency)
}

// Num coerces any JSON value to a float64, defaulting to 0 for missing,
// non-numeric or NaN input.
func Num(v any) float64 {
	switch n := v.(type) {
	case float64:
		if n != n { // NaN
			return 0
		}
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		cleaned := strings.TrimSpace(strings.NewReplacer("$", "", ",", "", "%", "").Replace(n))
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || f != f {
			return 0
		}
		return f
	}
	return 0
}

// Str coerces any JSON value to a trimmed string; nil and non-strings
// become "".
func Str(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// Bool coerces truthy JSON values; default defaultVal for missing/unknown.
func Bool(v any, defaultVal bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true
		case "false", "no", "n", "0":
			return false
		}
	}
	return defaultVal
}

// ISODate validates a value as a YYYY-MM-DD date and returns it in that
// form, or "" when it cannot be read as a date. Timestamps are truncated.
func ISODate(v any) string {
	s := Str(v)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "01/02/2006", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// StrList coerces a JSON value into a string slice, defaulting to empty.
func StrList(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if s := Str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getMap(raw map[string]any, key string) map[string]any {
	if m, ok := raw[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func getList(raw map[string]any, key string) []any {
	if l, ok := raw[key].([]any); ok {
		return l
	}
	return nil
}

// NormalizeDocument runs the full normalization pass over the parsed model
// output: enum alias lookup, numeric coercion, array defaults and the
// conditional inclusion of the type-specific sub-objects.
func NormalizeDocument(raw map[string]any) *CanonicalPolicyDocument {
	holder := getMap(raw, "policyHolder")
	pol := getMap(raw, "policy")

	doc := &CanonicalPolicyDocument{
		PolicyHolder: PolicyHolder{
			FirstName:     Str(holder["firstName"]),
			MiddleName:    Str(holder["middleName"]),
			LastName:      Str(holder["lastName"]),
			DateOfBirth:   ISODate(holder["dateOfBirth"]),
			SSNLast4:      Str(holder["ssnLast4"]),
			Email:         strings.ToLower(Str(holder["email"])),
			Phone:         Str(holder["phone"]),
			AddressLine1:  Str(holder["addressLine1"]),
			AddressLine2:  Str(holder["addressLine2"]),
			City:          Str(holder["city"]),
			State:         Str(holder["state"]),
			ZipCode:       Str(holder["zipCode"]),
			Occupation:    Str(holder["occupation"]),
			MaritalStatus: Str(holder["maritalStatus"]),
		},
		Policy: PolicyInfo{
			PolicyNumber:     Str(pol["policyNumber"]),
			Insurer:          Str(pol["insurer"]),
			PolicyType:       NormalizePolicyType(Str(pol["policyType"])),
			Status:           NormalizePolicyStatus(Str(pol["status"])),
			EffectiveDate:    ISODate(pol["effectiveDate"]),
			ExpirationDate:   ISODate(pol["expirationDate"]),
			IssueDate:        ISODate(pol["issueDate"]),
			PremiumAmount:    Num(pol["premiumAmount"]),
			PremiumFrequency: NormalizePremiumFrequency(Str(pol["premiumFrequency"])),
			Deductible:       Num(pol["deductible"]),
			CoverageAmount:   Num(pol["coverageAmount"]),
		},
		Beneficiaries: []Beneficiary{},
		Coverages:     []Coverage{},
	}

	for _, item := range getList(raw, "beneficiaries") {
		b, ok := item.(map[string]any)
		if !ok {
			continue
		}
		doc.Beneficiaries = append(doc.Beneficiaries, Beneficiary{
			FirstName:            Str(b["firstName"]),
			LastName:             Str(b["lastName"]),
			Relationship:         Str(b["relationship"]),
			BeneficiaryType:      NormalizeBeneficiaryType(Str(b["beneficiaryType"])),
			AllocationPercentage: Num(b["allocationPercentage"]),
			DateOfBirth:          ISODate(b["dateOfBirth"]),
			SSNLast4:             Str(b["ssnLast4"]),
			AddressLine1:         Str(b["addressLine1"]),
			City:                 Str(b["city"]),
			State:                Str(b["state"]),
			ZipCode:              Str(b["zipCode"]),
			IsRevocable:          Bool(b["isRevocable"], true),
		})
	}

	for _, item := range getList(raw, "coverages") {
		c, ok := item.(map[string]any)
		if !ok {
			continue
		}
		doc.Coverages = append(doc.Coverages, Coverage{
			Type:        Str(c["type"]),
			Code:        Str(c["code"]),
			Limit:       Num(c["limit"]),
			Deductible:  Num(c["deductible"]),
			Premium:     Num(c["premium"]),
			Description: Str(c["description"]),
		})
	}

	if v := getMap(raw, "vehicle"); hasAny(v, "make", "model", "vin", "year") {
		doc.Vehicle = &VehicleDetail{
			Make:          Str(v["make"]),
			Model:         Str(v["model"]),
			Year:          int(Num(v["year"])),
			VIN:           Str(v["vin"]),
			LicensePlate:  Str(v["licensePlate"]),
			Usage:         Str(v["usage"]),
			AnnualMileage: Num(v["annualMileage"]),
		}
	}

	if p := getMap(raw, "property"); hasAny(p, "addressLine1", "yearBuilt", "constructionType", "squareFootage") {
		doc.Property = &PropertyDetail{
			AddressLine1:     Str(p["addressLine1"]),
			City:             Str(p["city"]),
			State:            Str(p["state"]),
			ZipCode:          Str(p["zipCode"]),
			YearBuilt:        int(Num(p["yearBuilt"])),
			SquareFootage:    Num(p["squareFootage"]),
			ConstructionType: Str(p["constructionType"]),
			RoofType:         Str(p["roofType"]),
		}
	}

	if l := getMap(raw, "lifeInsurance"); hasAny(l, "faceAmount", "cashValue", "termYears", "category") {
		doc.LifeInsurance = &LifeInsuranceDetail{
			Category:   Str(l["category"]),
			TermYears:  int(Num(l["termYears"])),
			FaceAmount: Num(l["faceAmount"]),
			CashValue:  Num(l["cashValue"]),
		}
	}

	acord := getMap(raw, "acordData")
	doc.ACORDData = ACORDData{
		FormNumbers:  StrList(acord["formNumbers"]),
		Endorsements: StrList(acord["endorsements"]),
		Exclusions:   StrList(acord["exclusions"]),
	}

	return doc
}

// hasAny reports whether at least one of the named fields carries a usable
// value. Sub-objects with no defining field stay nil on the document.
func hasAny(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}
