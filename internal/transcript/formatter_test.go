package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/webhook"
)

func sampleTranscript(startedAt time.Time) *repository.Transcript {
	endedAt := startedAt.Add(2 * time.Minute)
	return &repository.Transcript{
		ID:        "transcript-1",
		BookingID: "b1",
		SessionID: "session-1",
		Learner:   repository.TranscriptParticipant{UserID: "learner-1", Name: "Lena"},
		Mentor:    repository.TranscriptParticipant{UserID: "mentor-1"},
		Segments: []repository.TranscriptSegment{
			{Speaker: repository.SpeakerLearner, Text: "Hi there", StartTimeMs: 15000, EndTimeMs: 17000, Confidence: 0.9},
			{Speaker: repository.SpeakerMentor, Text: "Welcome", StartTimeMs: 75000, EndTimeMs: 76400, Confidence: 0.8},
		},
		DurationSeconds:  76,
		SessionStartTime: startedAt,
		SessionEndTime:   &endedAt,
		Summary:          repository.TranscriptSummary{Sentiment: "neutral", Topics: []string{"go"}},
	}
}

func TestFullText(t *testing.T) {
	got := FullText(sampleTranscript(time.Now()).Segments)
	want := "[learner]: Hi there\n[mentor]: Welcome"
	if got != want {
		t.Fatalf("unexpected full text: %q", got)
	}
	if FullText(nil) != "" {
		t.Fatal("expected empty full text for no segments")
	}
}

func TestDurationSeconds(t *testing.T) {
	if got := durationSeconds(sampleTranscript(time.Now()).Segments); got != 76 {
		t.Fatalf("expected 76 seconds, got %d", got)
	}
	if got := durationSeconds(nil); got != 0 {
		t.Fatalf("expected 0 seconds, got %d", got)
	}
}

func TestBuildTranscriptDocument(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	startedAt := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)

	body := buildTranscriptDocument(sampleTranscript(startedAt), "Asia/Tokyo", loc)

	for _, want := range []string{
		"Booking: b1",
		"Session period: 2026-02-28 21:00:00 ~ 2026-02-28 21:02:00 (Asia/Tokyo)",
		"Participants: Lena (learner), mentor-1 (mentor)",
		"00:00:15 [learner] Hi there",
		"00:01:15 [mentor] Welcome",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("%q not found in body: %s", want, body)
		}
	}
}

func TestBuildExportPayload(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	startedAt := time.Date(2026, 2, 28, 19, 0, 0, 0, loc)
	tr := sampleTranscript(startedAt)

	payload := buildExportPayload(tr, "Asia/Tokyo", loc)

	if payload.SchemaVersion != webhook.TranscriptExportSchemaVersion {
		t.Fatalf("unexpected schema version: %s", payload.SchemaVersion)
	}
	if payload.TranscriptID != "transcript-1" || payload.BookingID != "b1" || payload.SessionID != "session-1" {
		t.Fatalf("unexpected identifiers: %+v", payload)
	}
	if payload.StartAt != "2026-02-28T19:00:00+09:00" {
		t.Fatalf("unexpected start_at: %s", payload.StartAt)
	}
	if payload.EndAt != "2026-02-28T19:02:00+09:00" {
		t.Fatalf("unexpected end_at: %s", payload.EndAt)
	}
	if payload.SegmentCount != 2 || len(payload.Segments) != 2 {
		t.Fatalf("unexpected segment count: %d", payload.SegmentCount)
	}
	if payload.Segments[1].Index != 1 || payload.Segments[1].Elapsed != "00:01:15" || payload.Segments[1].Speaker != "mentor" {
		t.Fatalf("unexpected second segment: %+v", payload.Segments[1])
	}
	if len(payload.Participants) != 2 || payload.Participants[1].Name != "mentor-1" {
		t.Fatalf("unexpected participants: %+v", payload.Participants)
	}
	if payload.Summary.KeyPoints == nil || payload.Summary.ActionItems == nil {
		t.Fatal("expected summary lists to be non-nil")
	}
	if !strings.Contains(payload.Document, "Booking: b1") {
		t.Fatalf("document missing header: %s", payload.Document)
	}
}

func TestBuildExportPayload_EndFallsBackToDuration(t *testing.T) {
	startedAt := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)
	tr := sampleTranscript(startedAt)
	tr.SessionEndTime = nil

	payload := buildExportPayload(tr, "UTC", nil)

	if payload.EndAt != "2026-02-28T10:01:16Z" {
		t.Fatalf("unexpected end_at: %s", payload.EndAt)
	}
}

func TestFormatElapsedHMS(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{in: -time.Second, want: "00:00:00"},
		{in: 0, want: "00:00:00"},
		{in: 59 * time.Second, want: "00:00:59"},
		{in: time.Hour + 2*time.Minute + 3*time.Second, want: "01:02:03"},
	}
	for _, tc := range cases {
		if got := formatElapsedHMS(tc.in); got != tc.want {
			t.Fatalf("formatElapsedHMS(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
