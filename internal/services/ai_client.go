package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/utils"
)

// AIClient is the single boundary to the external generative model. One
// request carries the instruction text plus the document bytes; the reply
// is freeform text expected to contain JSON.
type AIClient interface {
	GenerateWithFile(ctx context.Context, prompt string, file []byte, mimeType string) (string, *TokenUsage, error)
	Model() string
}

// TokenUsage is the provider-reported token accounting for one call, kept
// on the audit row for cost tracking.
type TokenUsage struct {
	PromptTokens   int `json:"prompt_tokens"`
	ResponseTokens int `json:"response_tokens"`
	TotalTokens    int `json:"total_tokens"`
}

type aiClient struct {
	httpClient *http.Client
	log        *logger.Logger
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
}

func NewAIClient(log *logger.Logger) (AIClient, error) {
	serviceLog := log.With("service", "AIClient")
	apiKey := strings.TrimSpace(utils.GetEnv("AI_API_KEY", "", log))
	if apiKey == "" {
		return nil, fmt.Errorf("AI_API_KEY is not set")
	}
	baseURL := strings.TrimRight(utils.GetEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com", log), "/")
	model := utils.GetEnv("AI_MODEL", "gemini-2.0-flash", log)
	timeoutSec := utils.GetEnvAsInt("AI_TIMEOUT_SECONDS", 120, log)
	maxRetries := utils.GetEnvAsInt("AI_MAX_RETRIES", 3, log)
	return &aiClient{
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		log:        serviceLog,
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		maxRetries: maxRetries,
	}, nil
}

func (c *aiClient) Model() string { return c.model }

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *generateInline `json:"inline_data,omitempty"`
}

type generateInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *aiClient) GenerateWithFile(ctx context.Context, prompt string, file []byte, mimeType string) (string, *TokenUsage, error) {
	var req generateRequest
	req.Contents = make([]struct {
		Parts []generatePart `json:"parts"`
	}, 1)
	req.Contents[0].Parts = []generatePart{
		{Text: prompt},
		{InlineData: &generateInline{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(file),
		}},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			c.log.Warn("Retrying model call", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", nil, ctx.Err()
			}
		}
		text, usage, retryable, callErr := c.doGenerate(ctx, url, body)
		if callErr == nil {
			return text, usage, nil
		}
		lastErr = callErr
		if !retryable {
			break
		}
	}
	return "", nil, fmt.Errorf("model call failed: %w", lastErr)
}

func (c *aiClient) doGenerate(ctx context.Context, url string, body []byte) (string, *TokenUsage, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", nil, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", nil, true, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", nil, true, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", nil, true, fmt.Errorf("model API status %d: %s", resp.StatusCode, truncateForLog(string(respBody), 300))
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, false, fmt.Errorf("model API status %d: %s", resp.StatusCode, truncateForLog(string(respBody), 300))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, false, fmt.Errorf("decode model response: %w", err)
	}
	if parsed.Error != nil {
		return "", nil, false, fmt.Errorf("model API error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return "", nil, false, fmt.Errorf("model returned no candidates")
	}
	var usage *TokenUsage
	if um := parsed.UsageMetadata; um != nil {
		usage = &TokenUsage{
			PromptTokens:   um.PromptTokenCount,
			ResponseTokens: um.CandidatesTokenCount,
			TotalTokens:    um.TotalTokenCount,
		}
	}
	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), usage, false, nil
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
