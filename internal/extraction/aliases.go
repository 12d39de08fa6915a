package extraction

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AliasOverrides is the shape of the optional alias override file. Each map
// adds alias -> canonical entries on top of the built-in tables, so new
// carrier vocabulary can be absorbed without a release.
type AliasOverrides struct {
	PolicyType       map[string]string `yaml:"policy_type"`
	PolicyStatus     map[string]string `yaml:"policy_status"`
	BeneficiaryType  map[string]string `yaml:"beneficiary_type"`
	PremiumFrequency map[string]string `yaml:"premium_frequency"`
}

// MergeAliasFile loads an override YAML file into the in-process alias
// tables. Keys are canonicalized the same way lookups are.
func MergeAliasFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read alias overrides: %w", err)
	}
	var o AliasOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parse alias overrides: %w", err)
	}
	merge := func(dst map[string]string, src map[string]string) {
		for alias, canonical := range src {
			dst[canonKey(alias)] = canonical
		}
	}
	merge(policyTypeAliases, o.PolicyType)
	merge(policyStatusAliases, o.PolicyStatus)
	merge(beneficiaryTypeAliases, o.BeneficiaryType)
	merge(premiumFrequencyAliases, o.PremiumFrequency)
	return nil
}
