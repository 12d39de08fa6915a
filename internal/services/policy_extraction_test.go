package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/extraction"
	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/repos"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

type fakeAIClient struct {
	response string
	err      error
	calls    int
	lastMime string
}

func (f *fakeAIClient) GenerateWithFile(ctx context.Context, prompt string, file []byte, mimeType string) (string, *TokenUsage, error) {
	f.calls++
	f.lastMime = mimeType
	if f.err != nil {
		return "", nil, f.err
	}
	return f.response, &TokenUsage{PromptTokens: 1200, ResponseTokens: 310, TotalTokens: 1510}, nil
}

func (f *fakeAIClient) Model() string { return "fake-extraction-model" }

func newExtractionTestEnv(t *testing.T, client AIClient) (PolicyExtractionService, repos.AICallLogRepo) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.AICallLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	log := logger.NewNop()
	callLogRepo := repos.NewAICallLogRepo(db, log)
	return NewPolicyExtractionService(db, log, client, callLogRepo, nil), callLogRepo
}

func writeUpload(t *testing.T, name string) FileUpload {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("%PDF-1.4 test payload"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return FileUpload{Path: path, OriginalName: name, SizeBytes: 21}
}

func TestExtractSuccess(t *testing.T) {
	client := &fakeAIClient{response: "```json\n" + `{
		"policyHolder": {"firstName": "Maria", "lastName": "Santos", "email": "Maria.Santos@Example.com"},
		"policy": {"policyNumber": "AP-77-431", "policyType": "Automobile", "status": "In Force", "premiumAmount": "$1,480.00"},
		"vehicle": {"make": "Honda", "model": "Civic", "year": 2021}
	}` + "\n```"}
	svc, callLogRepo := newExtractionTestEnv(t, client)

	doc, err := svc.Extract(context.Background(), writeUpload(t, "santos-auto.pdf"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if doc.Policy.PolicyType != "auto" {
		t.Fatalf("policyType=%q, want auto", doc.Policy.PolicyType)
	}
	if doc.Policy.PremiumAmount != 1480 {
		t.Fatalf("premiumAmount=%v, want 1480", doc.Policy.PremiumAmount)
	}
	if doc.PolicyHolder.Email != "maria.santos@example.com" {
		t.Fatalf("email not lowercased: %q", doc.PolicyHolder.Email)
	}
	if doc.Vehicle == nil || doc.Vehicle.Make != "Honda" {
		t.Fatalf("vehicle detail missing: %+v", doc.Vehicle)
	}
	if doc.Metadata.MimeType != "application/pdf" {
		t.Fatalf("mime not resolved from extension: %q", doc.Metadata.MimeType)
	}
	if doc.Metadata.ExtractorVersion == "" || doc.Metadata.ExtractedAt.IsZero() {
		t.Fatalf("metadata not stamped: %+v", doc.Metadata)
	}

	logs, err := callLogRepo.ListRecent(context.Background(), nil, 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one audit row, got %d (%v)", len(logs), err)
	}
	if !logs[0].Success || logs[0].Model != "fake-extraction-model" {
		t.Fatalf("audit row wrong: %+v", logs[0])
	}
	var usage TokenUsage
	if err := json.Unmarshal(logs[0].Usage, &usage); err != nil || usage.TotalTokens != 1510 {
		t.Fatalf("token usage not recorded on audit row: %s (%v)", logs[0].Usage, err)
	}
}

func TestExtractNotPolicyDocument(t *testing.T) {
	client := &fakeAIClient{response: `{"error": "This appears to be a restaurant menu"}`}
	svc, callLogRepo := newExtractionTestEnv(t, client)

	_, err := svc.Extract(context.Background(), writeUpload(t, "menu.pdf"))
	if !errors.Is(err, extraction.ErrNotPolicyDocument) {
		t.Fatalf("want ErrNotPolicyDocument, got %v", err)
	}

	logs, _ := callLogRepo.ListRecent(context.Background(), nil, 10)
	if len(logs) != 1 || logs[0].Success {
		t.Fatalf("refusal must still be audited as failure: %+v", logs)
	}
}

func TestExtractUnparseableResponse(t *testing.T) {
	client := &fakeAIClient{response: "I found a policy for Maria Santos covering..."}
	svc, _ := newExtractionTestEnv(t, client)

	_, err := svc.Extract(context.Background(), writeUpload(t, "scan.pdf"))
	var pe *extraction.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
}

func TestExtractClientError(t *testing.T) {
	client := &fakeAIClient{err: errors.New("model endpoint returned status 503")}
	svc, callLogRepo := newExtractionTestEnv(t, client)

	_, err := svc.Extract(context.Background(), writeUpload(t, "scan.pdf"))
	if err == nil {
		t.Fatal("expected error from failing client")
	}
	logs, _ := callLogRepo.ListRecent(context.Background(), nil, 10)
	if len(logs) != 1 || logs[0].Success || logs[0].Error == "" {
		t.Fatalf("client failure must be audited with its error: %+v", logs)
	}
}

func TestExtractMissingFile(t *testing.T) {
	svc, _ := newExtractionTestEnv(t, &fakeAIClient{})
	_, err := svc.Extract(context.Background(), FileUpload{Path: "/nonexistent/upload.pdf", OriginalName: "upload.pdf"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolveMimeType(t *testing.T) {
	cases := []struct {
		declared string
		name     string
		want     string
	}{
		{"application/pdf", "x.bin", "application/pdf"},
		{"", "scan.PNG", "image/png"},
		{"application/octet-stream", "photo.jpeg", "image/jpeg"},
		{"", "mystery.bin", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := resolveMimeType(tc.declared, tc.name); got != tc.want {
			t.Fatalf("resolveMimeType(%q, %q)=%q, want %q", tc.declared, tc.name, got, tc.want)
		}
	}
}

func TestExtractPassesResolvedMime(t *testing.T) {
	client := &fakeAIClient{response: `{"policy": {"policyNumber": "X-1"}}`}
	svc, _ := newExtractionTestEnv(t, client)

	upload := writeUpload(t, "scan.png")
	if _, err := svc.Extract(context.Background(), upload); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if client.lastMime != "image/png" {
		t.Fatalf("client got mime %q, want image/png", client.lastMime)
	}
	if client.calls != 1 {
		t.Fatalf("client called %d times, want 1", client.calls)
	}
}
