package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/extraction"
	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/repos"
	"github.com/coverbridge/coverbridge-backend/internal/requestdata"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

const extractorVersion = "extractor/v1"

// FileUpload describes one uploaded document on disk. The caller owns the
// file's lifecycle; this service only reads it.
type FileUpload struct {
	Path         string
	OriginalName string
	DeclaredMime string
	SizeBytes    int64
}

type PolicyExtractionService interface {
	Extract(ctx context.Context, upload FileUpload) (*extraction.CanonicalPolicyDocument, error)
}

type policyExtractionService struct {
	db            *gorm.DB
	log           *logger.Logger
	aiClient      AIClient
	aiCallLogRepo repos.AICallLogRepo
	cache         *ExtractionCache
}

func NewPolicyExtractionService(
	db *gorm.DB,
	log *logger.Logger,
	aiClient AIClient,
	aiCallLogRepo repos.AICallLogRepo,
	cache *ExtractionCache,
) PolicyExtractionService {
	return &policyExtractionService{
		db:            db,
		log:           log.With("service", "PolicyExtractionService"),
		aiClient:      aiClient,
		aiCallLogRepo: aiCallLogRepo,
		cache:         cache,
	}
}

var extensionMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tiff": "image/tiff",
}

func resolveMimeType(declared, fileName string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if mime, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mime
	}
	return "application/octet-stream"
}

func (s *policyExtractionService) Extract(ctx context.Context, upload FileUpload) (*extraction.CanonicalPolicyDocument, error) {
	data, err := os.ReadFile(upload.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	mimeType := resolveMimeType(upload.DeclaredMime, upload.OriginalName)

	sum := sha256.Sum256(data)
	fileSHA := hex.EncodeToString(sum[:])
	if cached, ok := s.cache.Get(ctx, fileSHA); ok {
		s.log.Info("Extraction cache hit", "file", upload.OriginalName, "sha", fileSHA)
		cached.Metadata.OriginalFileName = upload.OriginalName
		cached.Metadata.SizeBytes = int64(len(data))
		cached.Metadata.MimeType = mimeType
		return cached, nil
	}

	text, usage, err := s.aiClient.GenerateWithFile(ctx, extractionPrompt, data, mimeType)
	if err != nil {
		s.audit(ctx, upload, mimeType, "", nil, false, err)
		return nil, fmt.Errorf("document extraction failed: %w", err)
	}

	raw, err := extraction.ParseModelResponse(text)
	if err != nil {
		var parseErr *extraction.ParseError
		if errors.As(err, &parseErr) {
			s.log.Error("Model response was not valid JSON", "file", upload.OriginalName, "raw", truncateForLog(parseErr.Raw, 2000))
		}
		s.audit(ctx, upload, mimeType, text, usage, false, err)
		return nil, err
	}

	doc := extraction.NormalizeDocument(raw)
	doc.Metadata = extraction.Metadata{
		OriginalFileName: upload.OriginalName,
		SizeBytes:        int64(len(data)),
		MimeType:         mimeType,
		ExtractedAt:      time.Now().UTC(),
		ExtractorVersion: extractorVersion,
	}

	s.audit(ctx, upload, mimeType, text, usage, true, nil)
	s.cache.Set(ctx, fileSHA, doc)

	s.log.Info("Document extracted",
		"file", upload.OriginalName,
		"policy_number", doc.Policy.PolicyNumber,
		"policy_type", doc.Policy.PolicyType,
		"coverages", len(doc.Coverages),
		"beneficiaries", len(doc.Beneficiaries))
	return doc, nil
}

// audit writes the AICallLog row outside any caller transaction: the audit
// trail must survive even when the surrounding request fails.
func (s *policyExtractionService) audit(ctx context.Context, upload FileUpload, mimeType, response string, usage *TokenUsage, success bool, callErr error) {
	entry := &types.AICallLog{
		CallType: "policy_extraction",
		Model:    s.aiClient.Model(),
		FileName: upload.OriginalName,
		MimeType: mimeType,
		Response: truncateForLog(response, 10000),
		Success:  success,
	}
	if usage != nil {
		if raw, err := json.Marshal(usage); err == nil {
			entry.Usage = datatypes.JSON(raw)
		}
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil {
		userID := rd.UserID
		entry.UserID = &userID
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if _, err := s.aiCallLogRepo.Create(ctx, nil, entry); err != nil {
		s.log.Warn("Failed to write AI call audit row", "error", err)
	}
}
