package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"support-bot/config"
	"support-bot/models"
)

// Classifier turns free customer text into a structured intent. Any failure
// (network, timeout, non-2xx, malformed JSON) is returned as an error so the
// caller escalates instead of answering wrong.
type Classifier interface {
	Classify(ctx context.Context, text, knowledge string) (*models.ClassificationResult, error)
}

// OpenAIClassifier calls an OpenAI-compatible chat completions endpoint.
type OpenAIClassifier struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	limiter *RateLimiter
}

func NewOpenAIClassifier(cfg *config.Config, limiter *RateLimiter) *OpenAIClassifier {
	return &OpenAIClassifier{
		apiKey:  cfg.ClassifierAPIKey,
		baseURL: strings.TrimRight(cfg.ClassifierBaseURL, "/"),
		model:   cfg.ClassifierModel,
		client:  &http.Client{Timeout: cfg.ClassifyTimeout},
		limiter: limiter,
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// classifierAnalysis is the JSON contract from config.SystemInstruction.
// commerce_id sometimes comes back as a bare number and confidence is
// occasionally omitted, so both are decoded loosely.
type classifierAnalysis struct {
	QueryType    string      `json:"query_type"`
	ResponseText string      `json:"response_text"`
	CompanyName  string      `json:"company_name"`
	CommerceID   interface{} `json:"commerce_id"`
	Confidence   *float64    `json:"confidence"`
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text, knowledge string) (*models.ClassificationResult, error) {
	// Test mode: if API key is "TEST_MODE", return a mock classification
	if c.apiKey == "TEST_MODE" {
		slog.Info("Classifier running in TEST_MODE - returning mock result")
		return &models.ClassificationResult{
			Intent:       models.IntentGeneral,
			Confidence:   1.0,
			ResponseText: fmt.Sprintf("TEST RESPONSE: I received your message: '%s'.", text),
		}, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("classifier rate limit wait: %w", err)
		}
	}

	system := config.SystemInstruction + "\n\n" + fmt.Sprintf(config.KnowledgeTemplate, knowledge)
	requestBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: text},
		},
		Temperature: 0.1,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("Classifier request failed", "error", err)
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("classifier response read: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Classifier returned error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("classifier status %d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("classifier envelope decode: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	var analysis classifierAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		slog.Error("Classifier returned malformed JSON", "content", content)
		return nil, fmt.Errorf("classifier content decode: %w", err)
	}

	result := &models.ClassificationResult{
		Intent:       normalizeIntent(analysis.QueryType),
		CompanyName:  strings.TrimSpace(analysis.CompanyName),
		CommerceID:   coerceID(analysis.CommerceID),
		ResponseText: analysis.ResponseText,
		Confidence:   1.0,
	}
	if analysis.Confidence != nil {
		result.Confidence = *analysis.Confidence
	}

	slog.Info("Query classified",
		"intent", string(result.Intent),
		"confidence", result.Confidence,
		"companyName", result.CompanyName,
		"commerceID", result.CommerceID,
	)

	return result, nil
}

func normalizeIntent(queryType string) models.Intent {
	switch strings.ToUpper(strings.TrimSpace(queryType)) {
	case "STORE_STATUS":
		return models.IntentStoreStatus
	case "STORE_STATUS_MISSING":
		return models.IntentStoreStatusMissing
	case "ESCALATE":
		return models.IntentEscalate
	default:
		return models.IntentGeneral
	}
}

// coerceID accepts string or numeric commerce ids from the model.
func coerceID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return fmt.Sprintf("%.0f", id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
