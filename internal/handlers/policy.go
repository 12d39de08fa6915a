package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coverbridge/coverbridge-backend/internal/extraction"
	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/services"
)

type PolicyHandler struct {
	log               *logger.Logger
	extractionService services.PolicyExtractionService
	syncService       services.PolicySyncService
	customerService   services.CustomerService
	documentStore     services.DocumentStore
	maxUploadBytes    int64
}

func NewPolicyHandler(
	log *logger.Logger,
	extractionService services.PolicyExtractionService,
	syncService services.PolicySyncService,
	customerService services.CustomerService,
	documentStore services.DocumentStore,
	maxUploadBytes int64,
) *PolicyHandler {
	return &PolicyHandler{
		log:               log.With("handler", "PolicyHandler"),
		extractionService: extractionService,
		syncService:       syncService,
		customerService:   customerService,
		documentStore:     documentStore,
		maxUploadBytes:    maxUploadBytes,
	}
}

var allowedUploadExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true,
	".jpeg": true, ".tiff": true, ".webp": true,
}

// POST /api/policy-documents/extract
// Multipart upload (field "policyDocument") -> canonical extracted document.
// Persists nothing beyond the audit log and the stored audit copy.
func (h *PolicyHandler) ExtractDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("policyDocument")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("no policy document uploaded"))
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedUploadExtensions[ext] {
		RespondError(c, http.StatusBadRequest, "unsupported_file_type",
			fmt.Errorf("unsupported file type %q, expected pdf, png, jpg, jpeg, tiff or webp", ext))
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("file exceeds the %d byte upload limit", h.maxUploadBytes))
		return
	}

	tmpPath := filepath.Join(os.TempDir(), uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		h.log.Error("Could not store upload", "file", fileHeader.Filename, "error", err)
		RespondError(c, http.StatusInternalServerError, "upload_failed", fmt.Errorf("could not store upload"))
		return
	}
	// Fire-and-forget: a failed cleanup only leaks one temp file.
	defer func() { _ = os.Remove(tmpPath) }()

	doc, err := h.extractionService.Extract(c.Request.Context(), services.FileUpload{
		Path:         tmpPath,
		OriginalName: fileHeader.Filename,
		DeclaredMime: fileHeader.Header.Get("Content-Type"),
		SizeBytes:    fileHeader.Size,
	})
	if err != nil {
		var parseErr *extraction.ParseError
		switch {
		case errors.Is(err, extraction.ErrNotPolicyDocument):
			RespondError(c, http.StatusUnprocessableEntity, "not_policy_document", err)
		case errors.As(err, &parseErr):
			RespondError(c, http.StatusBadGateway, "extraction_failed", fmt.Errorf("document extraction failed"))
		default:
			h.log.Error("Extraction failed", "file", fileHeader.Filename, "error", err)
			RespondError(c, http.StatusBadGateway, "extraction_failed", fmt.Errorf("document extraction failed"))
		}
		return
	}

	descriptor := h.storeAuditCopy(c, tmpPath, fileHeader.Filename, doc)

	RespondOK(c, gin.H{
		"success":  true,
		"data":     doc,
		"document": descriptor,
	})
}

// storeAuditCopy keeps the original upload for provenance. Failure to store
// is logged and tolerated: extraction already succeeded.
func (h *PolicyHandler) storeAuditCopy(c *gin.Context, tmpPath, originalName string, doc *extraction.CanonicalPolicyDocument) *services.DocumentDescriptor {
	f, err := os.Open(tmpPath)
	if err != nil {
		h.log.Warn("Could not reopen upload for audit copy", "error", err)
		return nil
	}
	defer f.Close()
	key := fmt.Sprintf("policy-documents/%s-%s", uuid.NewString(), filepath.Base(originalName))
	if err := h.documentStore.Upload(c.Request.Context(), key, f); err != nil {
		h.log.Warn("Could not store audit copy", "key", key, "error", err)
		return nil
	}
	return &services.DocumentDescriptor{
		OriginalName: originalName,
		StorageKey:   key,
		FileURL:      h.documentStore.PublicURL(key),
		MimeType:     doc.Metadata.MimeType,
		SizeBytes:    doc.Metadata.SizeBytes,
	}
}

type syncRequest struct {
	Document       *extraction.CanonicalPolicyDocument `json:"document" binding:"required"`
	DocumentRecord *services.DocumentDescriptor        `json:"document_record"`
}

// POST /api/policies/sync
// Canonical document -> customer/policy/coverages/beneficiaries upsert.
func (h *PolicyHandler) SyncPolicy(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.syncService.Sync(c.Request.Context(), req.Document, services.SyncOptions{
		Document: req.DocumentRecord,
	})
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			RespondError(c, http.StatusBadRequest, "validation_failed", err)
			return
		}
		h.log.Error("Policy sync failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "sync_failed", fmt.Errorf("policy sync failed"))
		return
	}

	RespondCreated(c, gin.H{
		"success":            true,
		"customer_id":        result.CustomerID,
		"policy_id":          result.PolicyID,
		"policy":             result.Policy,
		"policy_created":     result.PolicyCreated,
		"customer_created":   result.CustomerCreated,
		"beneficiary_errors": result.BeneficiaryErrors,
	})
}

// GET /api/policies/:id
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid policy id"))
		return
	}
	view, err := h.customerService.GetPolicy(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, gin.H{"success": true, "data": view})
}
