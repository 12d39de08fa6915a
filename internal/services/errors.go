package services

import "fmt"

// ValidationError rejects a sync before any writes: the canonical document
// is missing a natural-key component. Message is operator-facing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func missingField(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AllocationError rejects one beneficiary link whose allocation would push
// the (policy, beneficiaryType) sum past 100.
type AllocationError struct {
	BeneficiaryName string
	BeneficiaryType string
	Existing        float64
	Requested       float64
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("beneficiary %s: %s allocation %.1f%% would exceed 100%% (%.1f%% already allocated)",
		e.BeneficiaryName, e.BeneficiaryType, e.Requested, e.Existing)
}
