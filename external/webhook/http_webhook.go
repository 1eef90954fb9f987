package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shafin2/skillsphere-backend/internal/webhook"
)

const (
	maxErrorBodyBytes     = 512
	defaultRequestTimeout = 10 * time.Second
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
)

type HTTPSenderConfig struct {
	URL string
	// RequestTimeout bounds a single delivery attempt.
	RequestTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// HTTPSender posts transcript exports as JSON. Transport errors, 429 and
// 5xx responses are retried with exponential backoff; other statuses fail
// immediately.
type HTTPSender struct {
	url            string
	client         *http.Client
	maxAttempts    int
	initialBackoff time.Duration
}

func NewHTTPSender(cfg HTTPSenderConfig) *HTTPSender {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	return &HTTPSender{
		url:            cfg.URL,
		client:         &http.Client{Timeout: cfg.RequestTimeout},
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
	}
}

func (s *HTTPSender) SendTranscript(ctx context.Context, payload webhook.TranscriptExportPayload) error {
	if s.url == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode transcript payload: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initialBackoff
	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := s.deliver(ctx, payload, body)
		if err != nil {
			slog.Warn("transcript export attempt failed", "transcript_id", payload.TranscriptID, "attempt", attempt, "error", err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(s.maxAttempts)))
	if err != nil {
		return err
	}
	slog.Debug("transcript exported", "transcript_id", payload.TranscriptID, "segments", payload.SegmentCount, "attempts", attempt)
	return nil
}

func (s *HTTPSender) deliver(ctx context.Context, payload webhook.TranscriptExportPayload, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Transcript-Schema-Version", payload.SchemaVersion)
	// Receivers dedupe retried deliveries on this key.
	req.Header.Set("Idempotency-Key", payload.TranscriptID)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	err = fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	if !isRetryableStatus(resp.StatusCode) {
		return backoff.Permanent(err)
	}
	return err
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}
