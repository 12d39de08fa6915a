package extraction

import "testing"

func TestNormalizePolicyType(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "canonical", in: "auto", want: "auto"},
		{name: "alias_automobile", in: "Automobile", want: "auto"},
		{name: "alias_car_with_spaces", in: "CAR ", want: "auto"},
		{name: "alias_vehicle", in: "vehicle", want: "auto"},
		{name: "alias_homeowners", in: "HomeOwners", want: "home"},
		{name: "alias_ho3", in: "HO-3", want: "home"},
		{name: "alias_term_life", in: "Term_Life", want: "life"},
		{name: "alias_bop", in: "BOP", want: "commercial"},
		{name: "alias_tenant", in: "tenant", want: "renters"},
		{name: "unknown_falls_back", in: "pet insurance", want: "other"},
		{name: "empty_falls_back", in: "", want: "other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePolicyType(tc.in); got != tc.want {
				t.Fatalf("NormalizePolicyType(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizePolicyStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"In-Force", "active"},
		{"CANCELED", "cancelled"},
		{"cancelled", "cancelled"},
		{"lapsed", "expired"},
		{"Pending Review", "pending"},
		{"who knows", "active"},
		{"", "active"},
	}
	for _, tc := range cases {
		if got := NormalizePolicyStatus(tc.in); got != tc.want {
			t.Fatalf("NormalizePolicyStatus(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeBeneficiaryType(t *testing.T) {
	if got := NormalizeBeneficiaryType("Secondary"); got != "contingent" {
		t.Fatalf("got %q, want contingent", got)
	}
	if got := NormalizeBeneficiaryType("something else"); got != "primary" {
		t.Fatalf("got %q, want primary default", got)
	}
}

func TestNormalizePremiumFrequency(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Semi-Annual", "semi_annual"},
		{"semi_annual", "semi_annual"},
		{"SEMI ANNUAL", "semi_annual"},
		{"Monthly", "monthly"},
		{"yearly", "annual"},
		{"", "annual"},
	}
	for _, tc := range cases {
		if got := NormalizePremiumFrequency(tc.in); got != tc.want {
			t.Fatalf("NormalizePremiumFrequency(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNum(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{name: "float", in: 12.5, want: 12.5},
		{name: "string_number", in: "1200.50", want: 1200.5},
		{name: "currency_string", in: "$1,200.50", want: 1200.5},
		{name: "percent_string", in: "60%", want: 60},
		{name: "garbage", in: "a lot", want: 0},
		{name: "nil", in: nil, want: 0},
		{name: "bool", in: true, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Num(tc.in); got != tc.want {
				t.Fatalf("Num(%v)=%v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestISODate(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"1984-07-21", "1984-07-21"},
		{"07/21/1984", "1984-07-21"},
		{"1984-07-21T00:00:00Z", "1984-07-21"},
		{"not a date", ""},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := ISODate(tc.in); got != tc.want {
			t.Fatalf("ISODate(%v)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDocumentSubObjects(t *testing.T) {
	raw := map[string]any{
		"policy": map[string]any{
			"policyNumber": "AP-1001",
			"policyType":   "Automobile",
			"status":       "in force",
		},
		"vehicle": map[string]any{
			"make":  "Honda",
			"model": "Civic",
			"year":  float64(2021),
		},
		"property":      map[string]any{"addressLine1": nil, "yearBuilt": nil},
		"lifeInsurance": map[string]any{},
	}
	doc := NormalizeDocument(raw)

	if doc.Policy.PolicyType != "auto" {
		t.Fatalf("policyType=%q, want auto", doc.Policy.PolicyType)
	}
	if doc.Policy.Status != "active" {
		t.Fatalf("status=%q, want active", doc.Policy.Status)
	}
	if doc.Vehicle == nil {
		t.Fatal("vehicle sub-object should be present")
	}
	if doc.Vehicle.Year != 2021 {
		t.Fatalf("vehicle year=%d, want 2021", doc.Vehicle.Year)
	}
	if doc.Property != nil {
		t.Fatal("property sub-object with only null fields should be nil")
	}
	if doc.LifeInsurance != nil {
		t.Fatal("empty lifeInsurance sub-object should be nil")
	}

	if doc.Beneficiaries == nil || doc.Coverages == nil {
		t.Fatal("array fields must default to empty, not nil")
	}
	if len(doc.ACORDData.FormNumbers) != 0 {
		t.Fatalf("formNumbers should default empty, got %v", doc.ACORDData.FormNumbers)
	}
}

func TestNormalizeDocumentNumericCoercion(t *testing.T) {
	raw := map[string]any{
		"policy": map[string]any{
			"policyNumber":  "HP-2",
			"premiumAmount": "$2,400",
			"deductible":    nil,
		},
		"coverages": []any{
			map[string]any{"type": "dwelling", "limit": "350000"},
			"garbage entry",
		},
	}
	doc := NormalizeDocument(raw)
	if doc.Policy.PremiumAmount != 2400 {
		t.Fatalf("premiumAmount=%v, want 2400", doc.Policy.PremiumAmount)
	}
	if doc.Policy.Deductible != 0 {
		t.Fatalf("deductible=%v, want 0 default", doc.Policy.Deductible)
	}
	if len(doc.Coverages) != 1 {
		t.Fatalf("coverages=%d, want 1 (non-object entries skipped)", len(doc.Coverages))
	}
	if doc.Coverages[0].Limit != 350000 {
		t.Fatalf("limit=%v, want 350000", doc.Coverages[0].Limit)
	}
}

func TestDetailUnion(t *testing.T) {
	doc := &CanonicalPolicyDocument{Vehicle: &VehicleDetail{Make: "Honda"}}
	detail := doc.Detail()
	if detail == nil || detail.DetailKind() != "vehicle" {
		t.Fatalf("expected vehicle detail, got %v", detail)
	}

	data, err := MarshalDetail(detail)
	if err != nil {
		t.Fatalf("MarshalDetail: %v", err)
	}
	back, err := UnmarshalDetail(data)
	if err != nil {
		t.Fatalf("UnmarshalDetail: %v", err)
	}
	v, ok := back.(*VehicleDetail)
	if !ok {
		t.Fatalf("round trip produced %T, want *VehicleDetail", back)
	}
	if v.Make != "Honda" {
		t.Fatalf("make=%q, want Honda", v.Make)
	}

	empty, err := MarshalDetail(nil)
	if err != nil {
		t.Fatalf("MarshalDetail(nil): %v", err)
	}
	if got, err := UnmarshalDetail(empty); err != nil || got != nil {
		t.Fatalf("nil detail should round trip to nil, got %v err %v", got, err)
	}
}
