package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"support-bot/config"
	"support-bot/models"
)

// Sender delivers replies to the customer. Transient failures are retried
// internally; an error means retries were exhausted.
type Sender interface {
	Send(ctx context.Context, waID, message string) (*models.DeliveryReceipt, error)
}

// WasapiSender posts messages to the wasapi WhatsApp gateway with bounded
// exponential backoff.
type WasapiSender struct {
	apiKey     string
	baseURL    string
	maxRetries int
	client     *http.Client
}

func NewWasapiSender(cfg *config.Config) *WasapiSender {
	maxRetries := cfg.SendMaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &WasapiSender{
		apiKey:     cfg.WasapiAPIKey,
		baseURL:    cfg.WasapiBaseURL,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: cfg.SendTimeout},
	}
}

func (s *WasapiSender) Send(ctx context.Context, waID, message string) (*models.DeliveryReceipt, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.post(ctx, waID, message)
		if err == nil {
			return &models.DeliveryReceipt{
				ReceiptID: uuid.NewString(),
				WaID:      waID,
				Attempts:  attempt,
				SentAt:    time.Now(),
			}, nil
		}
		lastErr = err

		if !isTransientSendError(err) {
			slog.Error("WhatsApp send failed permanently",
				"error", err,
				"waID", waID,
				"attempt", attempt,
			)
			return nil, err
		}

		slog.Warn("WhatsApp send failed, retrying",
			"error", err,
			"waID", waID,
			"attempt", attempt,
		)

		if attempt < s.maxRetries {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("send to %s exhausted %d attempts: %w", waID, s.maxRetries, lastErr)
}

// transientError marks failures worth retrying (network errors, 429, 5xx).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransientSendError(err error) bool {
	_, ok := err.(*transientError)
	return ok
}

func (s *WasapiSender) post(ctx context.Context, waID, message string) error {
	payload := map[string]string{
		"message": message,
		"wa_id":   waID,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := s.baseURL + "/whatsapp-messages"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	slog.Error("Failed to send WhatsApp message",
		"status", resp.StatusCode,
		"body", string(body),
		"waID", waID,
	)

	sendErr := fmt.Errorf("send message: status %d", resp.StatusCode)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &transientError{err: sendErr}
	}
	return sendErr
}
