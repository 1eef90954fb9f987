package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/webhook"
)

const transcriptTimeLayout = "2006-01-02 15:04:05"

// FullText renders segments as "[speaker]: text" lines in order.
func FullText(segments []repository.TranscriptSegment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%s]: %s", seg.Speaker, seg.Text))
	}
	return strings.Join(lines, "\n")
}

func durationSeconds(segments []repository.TranscriptSegment) int {
	var end int64
	for _, seg := range segments {
		end = max(end, seg.EndTimeMs)
	}
	return int((end + 500) / 1000)
}

func sessionWindow(t *repository.Transcript) (time.Time, time.Time) {
	startedAt := t.SessionStartTime
	endedAt := startedAt.Add(time.Duration(t.DurationSeconds) * time.Second)
	if t.SessionEndTime != nil && t.SessionEndTime.After(startedAt) {
		endedAt = *t.SessionEndTime
	}
	return startedAt, endedAt
}

func buildTranscriptDocument(t *repository.Transcript, timezone string, loc *time.Location) string {
	startedAt, endedAt := sessionWindow(t)
	lines := []string{
		fmt.Sprintf("Booking: %s", t.BookingID),
		fmt.Sprintf("Session period: %s ~ %s (%s)",
			startedAt.In(safeLocation(loc)).Format(transcriptTimeLayout),
			endedAt.In(safeLocation(loc)).Format(transcriptTimeLayout),
			timezone),
		fmt.Sprintf("Participants: %s (learner), %s (mentor)", participantName(t.Learner), participantName(t.Mentor)),
		"",
	}
	for _, seg := range t.Segments {
		elapsed := time.Duration(seg.StartTimeMs) * time.Millisecond
		lines = append(lines, fmt.Sprintf("%s [%s] %s", formatElapsedHMS(elapsed), seg.Speaker, seg.Text))
	}
	return strings.Join(lines, "\n")
}

func buildExportPayload(t *repository.Transcript, timezone string, loc *time.Location) webhook.TranscriptExportPayload {
	loc = safeLocation(loc)
	startedAt, endedAt := sessionWindow(t)

	segments := make([]webhook.TranscriptExportSegment, 0, len(t.Segments))
	for i, seg := range t.Segments {
		segments = append(segments, webhook.TranscriptExportSegment{
			Index:      i,
			Speaker:    string(seg.Speaker),
			Elapsed:    formatElapsedHMS(time.Duration(seg.StartTimeMs) * time.Millisecond),
			StartMs:    seg.StartTimeMs,
			EndMs:      seg.EndTimeMs,
			Confidence: seg.Confidence,
			Text:       seg.Text,
		})
	}

	return webhook.TranscriptExportPayload{
		SchemaVersion:   webhook.TranscriptExportSchemaVersion,
		TranscriptID:    t.ID,
		BookingID:       t.BookingID,
		SessionID:       t.SessionID,
		StartAt:         startedAt.In(loc).Format(time.RFC3339),
		EndAt:           endedAt.In(loc).Format(time.RFC3339),
		Timezone:        timezone,
		DurationSeconds: t.DurationSeconds,
		Participants: []webhook.TranscriptExportParticipant{
			{Role: string(repository.SpeakerLearner), UserID: t.Learner.UserID, Name: participantName(t.Learner)},
			{Role: string(repository.SpeakerMentor), UserID: t.Mentor.UserID, Name: participantName(t.Mentor)},
		},
		SegmentCount: len(segments),
		Segments:     segments,
		Summary: webhook.TranscriptExportSummary{
			KeyPoints:   nonNil(t.Summary.KeyPoints),
			ActionItems: nonNil(t.Summary.ActionItems),
			Topics:      nonNil(t.Summary.Topics),
			Sentiment:   t.Summary.Sentiment,
		},
		Document: buildTranscriptDocument(t, timezone, loc),
	}
}

func participantName(p repository.TranscriptParticipant) string {
	if strings.TrimSpace(p.Name) == "" {
		return p.UserID
	}
	return p.Name
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func formatElapsedHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
