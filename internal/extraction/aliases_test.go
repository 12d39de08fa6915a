package extraction

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMergeAliasFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	content := "policy_type:\n  \"Motorcycle\": auto\npolicy_status:\n  \"suspended\": cancelled\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := MergeAliasFile(path); err != nil {
		t.Fatalf("MergeAliasFile: %v", err)
	}
	defer func() {
		delete(policyTypeAliases, "motorcycle")
		delete(policyStatusAliases, "suspended")
	}()

	if got := NormalizePolicyType("MOTOR-CYCLE"); got != "auto" {
		t.Fatalf("override not canonicalized: got %q", got)
	}
	if got := NormalizePolicyStatus("Suspended"); got != "cancelled" {
		t.Fatalf("status override missed: got %q", got)
	}
	// Built-ins stay intact.
	if got := NormalizePolicyType("homeowners"); got != "home" {
		t.Fatalf("built-in alias lost: got %q", got)
	}
}

func TestMergeAliasFileMissing(t *testing.T) {
	if err := MergeAliasFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
