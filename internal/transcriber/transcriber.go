package transcriber

import (
	"context"
	"errors"
)

var (
	ErrJobNotFound = errors.New("transcription job not found")
	ErrDisabled    = errors.New("speech transcription is disabled")
)

// WebhookSecretHeader carries the shared secret on completion callbacks.
const WebhookSecretHeader = "X-Speech-Webhook-Secret"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// CompletionNotice is the body POSTed to the completion webhook.
type CompletionNotice struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

type Utterance struct {
	// Speaker is the provider's diarization label, e.g. "1" or "A".
	Speaker    string
	Text       string
	StartMs    int64
	EndMs      int64
	Confidence float64
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type Result struct {
	Status     JobStatus
	Error      string
	Utterances []Utterance
	// Highlights are key phrases ordered by relevance.
	Highlights []string
	Entities   []string
	Sentiments []Sentiment
	DurationMs int64
}

type Provider interface {
	// Upload stores the audio and returns a reference usable by StartJob.
	Upload(ctx context.Context, audio []byte, filename string) (string, error)
	// StartJob begins diarized transcription; completion is reported to webhookURL.
	StartJob(ctx context.Context, audioRef, webhookURL string) (string, error)
	FetchResult(ctx context.Context, jobID string) (Result, error)
}
