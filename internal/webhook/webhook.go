package webhook

import "context"

const TranscriptExportSchemaVersion = "1"

type TranscriptExportParticipant struct {
	Role   string `json:"role"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type TranscriptExportSegment struct {
	Index      int     `json:"index"`
	Speaker    string  `json:"speaker"`
	Elapsed    string  `json:"elapsed"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
}

type TranscriptExportSummary struct {
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	Topics      []string `json:"topics"`
	Sentiment   string   `json:"sentiment"`
}

type TranscriptExportPayload struct {
	SchemaVersion   string                        `json:"schema_version"`
	TranscriptID    string                        `json:"transcript_id"`
	BookingID       string                        `json:"booking_id"`
	SessionID       string                        `json:"session_id"`
	StartAt         string                        `json:"start_at"`
	EndAt           string                        `json:"end_at"`
	Timezone        string                        `json:"timezone"`
	DurationSeconds int                           `json:"duration_seconds"`
	Participants    []TranscriptExportParticipant `json:"participants"`
	SegmentCount    int                           `json:"segment_count"`
	Segments        []TranscriptExportSegment     `json:"segments"`
	Summary         TranscriptExportSummary       `json:"summary"`
	// Document is the human-readable rendering with header and timestamped lines.
	Document string `json:"document"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptExportPayload) error
}
