package transcript

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/transcriber"
	"github.com/shafin2/skillsphere-backend/internal/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxEntryLength         = 5000
	maxContentSaveAttempts = 3
	defaultProviderTimeout = 15 * time.Second
)

var tracer = otel.Tracer("github.com/shafin2/skillsphere-backend/internal/transcript")

type Options struct {
	// WebhookURL receives provider completion callbacks.
	WebhookURL      string
	ProviderTimeout time.Duration
	Timezone        string
	Location        *time.Location
}

type AppendInput struct {
	SpeakerName string
	Text        string
	// Timestamp defaults to now when nil.
	Timestamp *time.Time
}

type Manager struct {
	repo     repository.Repository
	speech   transcriber.Provider
	exporter webhook.Sender
	policy   SpeakerPolicy

	webhookURL string
	timeout    time.Duration
	timezone   string
	location   *time.Location
	now        func() time.Time
}

func NewManager(repo repository.Repository, speech transcriber.Provider, exporter webhook.Sender, policy SpeakerPolicy, opts Options) *Manager {
	if policy == nil {
		policy = AppearanceOrderPolicy{}
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = defaultProviderTimeout
	}
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	}
	return &Manager{
		repo:       repo,
		speech:     speech,
		exporter:   exporter,
		policy:     policy,
		webhookURL: opts.WebhookURL,
		timeout:    opts.ProviderTimeout,
		timezone:   opts.Timezone,
		location:   safeLocation(opts.Location),
		now:        time.Now,
	}
}

func (m *Manager) Start(ctx context.Context, bookingID string, caller identity.Caller) (*repository.Transcript, error) {
	b, err := m.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal("failed to load booking", err)
	}
	if b == nil {
		return nil, apperr.NotFound("Booking not found")
	}
	if !b.IsParticipant(caller.ID) {
		return nil, apperr.Forbidden("You are not a participant of this booking")
	}
	existing, err := m.repo.GetTranscriptByBooking(ctx, b.ID)
	if err != nil {
		return nil, apperr.Internal("failed to load transcript", err)
	}
	if existing != nil {
		return existing, nil
	}
	if b.Status != repository.BookingStatusConfirmed {
		return nil, apperr.Conflict("Transcripts can only be started for confirmed bookings")
	}

	sessionID := "booking_" + b.ID
	startedAt := m.now()
	sess, err := m.repo.GetSessionByBooking(ctx, b.ID)
	if err != nil {
		return nil, apperr.Internal("failed to load session", err)
	}
	if sess != nil {
		sessionID = sess.ID
		if sess.StartedAt != nil {
			startedAt = *sess.StartedAt
		}
	}

	t, err := m.repo.CreateTranscript(ctx, repository.CreateTranscriptInput{
		BookingID:        b.ID,
		SessionID:        sessionID,
		Learner:          m.participant(ctx, b.LearnerID),
		Mentor:           m.participant(ctx, b.MentorID),
		SessionStartTime: startedAt,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		t, err = m.repo.GetTranscriptByBooking(ctx, b.ID)
		if err == nil && t == nil {
			err = repository.ErrAlreadyExists
		}
	}
	if err != nil {
		return nil, apperr.Internal("failed to create transcript", err)
	}
	slog.Info("transcript started", "booking_id", b.ID, "session_id", sessionID, "transcript_id", t.ID)
	return t, nil
}

func (m *Manager) participant(ctx context.Context, userID string) repository.TranscriptParticipant {
	p := repository.TranscriptParticipant{UserID: userID}
	u, err := m.repo.GetUser(ctx, userID)
	if err != nil {
		slog.Warn("failed to load transcript participant", "user_id", userID, "error", err)
		return p
	}
	if u != nil {
		p.Name = u.Name
	}
	return p
}

// load returns the transcript for sessionID if the caller participates in it.
func (m *Manager) load(ctx context.Context, sessionID string, caller identity.Caller) (*repository.Transcript, error) {
	t, err := m.repo.GetTranscriptBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal("failed to load transcript", err)
	}
	return m.authorize(t, caller)
}

func (m *Manager) authorize(t *repository.Transcript, caller identity.Caller) (*repository.Transcript, error) {
	if t == nil {
		return nil, apperr.NotFound("Transcript not found")
	}
	if !t.IsParticipant(caller.ID) {
		return nil, apperr.Forbidden("You are not a participant of this transcript")
	}
	return t, nil
}

func (m *Manager) AttachAudio(ctx context.Context, sessionID string, caller identity.Caller, audio []byte, filename string) (*repository.Transcript, error) {
	if len(audio) == 0 {
		return nil, apperr.Validation("Audio file is required")
	}
	t, err := m.load(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	if t.ExternalJobState != repository.TranscriptJobQueued {
		return nil, apperr.Conflict("Audio has already been submitted for this transcript")
	}

	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ref, err := m.speech.Upload(pctx, audio, filename)
	if err != nil {
		return nil, apperr.External("Failed to upload audio", err)
	}
	jobID, err := m.speech.StartJob(pctx, ref, m.webhookURL)
	if err != nil {
		return nil, apperr.External("Failed to start transcription", err)
	}

	updated, err := m.repo.MarkTranscriptProcessing(ctx, repository.MarkTranscriptProcessingInput{
		TranscriptID: t.ID,
		Audio:        repository.TranscriptAudio{Reference: ref, Filename: filename, SizeBytes: int64(len(audio))},
		JobID:        jobID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, apperr.Conflict("Audio has already been submitted for this transcript")
		}
		return nil, apperr.Internal("failed to update transcript", err)
	}
	slog.Info("transcription job started", "session_id", sessionID, "transcript_id", t.ID, "job_id", jobID, "size_bytes", len(audio))

	// The provider may have called back before the job id was stored, in
	// which case the callback found no transcript and was dropped.
	result, err := m.speech.FetchResult(pctx, jobID)
	if err != nil {
		slog.Warn("failed to check transcription job after start", "job_id", jobID, "error", err)
		return updated, nil
	}
	if result.Status != transcriber.JobStatusCompleted && result.Status != transcriber.JobStatusError {
		return updated, nil
	}
	slog.Info("transcription job finished before it was recorded", "job_id", jobID, "status", result.Status)
	return m.applyResult(ctx, updated, result)
}

// OnProviderCompletion applies a provider callback. Replays for transcripts
// already in a terminal state return the stored record unchanged.
func (m *Manager) OnProviderCompletion(ctx context.Context, jobID string, status transcriber.JobStatus) (t *repository.Transcript, err error) {
	ctx, span := tracer.Start(ctx, "transcript.OnProviderCompletion", trace.WithAttributes(
		attribute.String("transcript.job_id", jobID),
		attribute.String("transcript.job_status", string(status)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}()

	t, err = m.repo.GetTranscriptByJobID(ctx, jobID)
	if err != nil {
		return nil, apperr.Internal("failed to load transcript", err)
	}
	if t == nil {
		return nil, apperr.NotFound("Transcript not found")
	}
	if t.ExternalJobState.IsTerminal() {
		slog.Info("ignoring replayed transcription callback", "job_id", jobID, "state", t.ExternalJobState)
		return t, nil
	}

	switch status {
	case transcriber.JobStatusError:
		return m.fail(ctx, t, "provider reported error")
	case transcriber.JobStatusCompleted:
	default:
		slog.Debug("ignoring non-terminal transcription callback", "job_id", jobID, "status", status)
		return t, nil
	}

	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	result, err := m.speech.FetchResult(pctx, jobID)
	if err != nil {
		slog.Error("failed to fetch transcription result", "job_id", jobID, "error", err)
		if _, failErr := m.fail(ctx, t, "fetch failed"); failErr != nil {
			return nil, failErr
		}
		return nil, apperr.External("Failed to fetch transcription result", err)
	}
	completed, err := m.applyResult(ctx, t, result)
	if err == nil && completed.ExternalJobState == repository.TranscriptJobCompleted {
		span.SetAttributes(attribute.Int("transcript.segments", len(completed.Segments)))
	}
	return completed, err
}

// applyResult stores a finished provider result on a processing transcript.
func (m *Manager) applyResult(ctx context.Context, t *repository.Transcript, result transcriber.Result) (*repository.Transcript, error) {
	if result.Status == transcriber.JobStatusError {
		return m.fail(ctx, t, result.Error)
	}

	segments := m.buildSegments(t, result)
	duration := int((result.DurationMs + 500) / 1000)
	if duration == 0 {
		duration = durationSeconds(segments)
	}
	completed, err := m.repo.CompleteTranscript(ctx, repository.CompleteTranscriptInput{
		TranscriptID:    t.ID,
		Segments:        segments,
		FullText:        FullText(segments),
		DurationSeconds: duration,
		Summary:         BuildSummary(result),
		CompletedAt:     m.now(),
	})
	if errors.Is(err, repository.ErrConditionFailed) {
		// A concurrent callback finished first.
		current, getErr := m.repo.GetTranscriptBySessionID(ctx, t.SessionID)
		if getErr != nil || current == nil {
			return nil, apperr.Internal("failed to load transcript", errors.Join(err, getErr))
		}
		return current, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to complete transcript", err)
	}
	slog.Info("transcription completed", "transcript_id", completed.ID, "booking_id", completed.BookingID, "segments", len(segments), "duration_seconds", duration)

	m.export(ctx, completed)
	return completed, nil
}

func (m *Manager) fail(ctx context.Context, t *repository.Transcript, reason string) (*repository.Transcript, error) {
	failed, err := m.repo.FailTranscript(ctx, t.ID)
	if errors.Is(err, repository.ErrConditionFailed) {
		current, getErr := m.repo.GetTranscriptBySessionID(ctx, t.SessionID)
		if getErr != nil || current == nil {
			return nil, apperr.Internal("failed to load transcript", errors.Join(err, getErr))
		}
		return current, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to mark transcript failed", err)
	}
	slog.Warn("transcription failed", "transcript_id", t.ID, "job_id", t.ExternalJobID, "reason", reason)
	return failed, nil
}

func (m *Manager) buildSegments(t *repository.Transcript, result transcriber.Result) []repository.TranscriptSegment {
	labels := make([]string, 0, len(result.Utterances))
	for _, u := range result.Utterances {
		labels = append(labels, u.Speaker)
	}
	speakers := resolveSpeakers(m.policy, labels, t.SpeakerMapping)

	segments := make([]repository.TranscriptSegment, 0, len(result.Utterances))
	for _, u := range result.Utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		speaker, ok := speakers[u.Speaker]
		if !ok {
			speaker = repository.SpeakerUnknown
		}
		segments = append(segments, repository.TranscriptSegment{
			Speaker:     speaker,
			Text:        text,
			StartTimeMs: u.StartMs,
			EndTimeMs:   u.EndMs,
			Confidence:  min(max(u.Confidence, 0), 1),
		})
	}
	return segments
}

func (m *Manager) export(ctx context.Context, t *repository.Transcript) {
	ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()
	if err := m.exporter.SendTranscript(ectx, buildExportPayload(t, m.timezone, m.location)); err != nil {
		slog.Warn("failed to export transcript", "transcript_id", t.ID, "error", err)
	}
}

func (m *Manager) AppendEntry(ctx context.Context, sessionID string, caller identity.Caller, input AppendInput) (*repository.Transcript, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, apperr.Validation("Text is required")
	}
	if len([]rune(text)) > maxEntryLength {
		return nil, apperr.Validation("Text must be 5000 characters or fewer")
	}
	at := m.now()
	if input.Timestamp != nil {
		at = *input.Timestamp
	}

	for attempt := 1; ; attempt++ {
		t, err := m.load(ctx, sessionID, caller)
		if err != nil {
			return nil, err
		}
		offset := max(at.Sub(t.SessionStartTime).Milliseconds(), 0)
		segments := append(t.Segments, repository.TranscriptSegment{
			Speaker:     speakerForName(t, input.SpeakerName),
			Text:        text,
			StartTimeMs: offset,
			EndTimeMs:   offset,
			Confidence:  1,
		})
		updated, err := m.repo.SaveTranscriptContent(ctx, repository.SaveTranscriptContentInput{
			TranscriptID:    t.ID,
			ExpectedVersion: t.Version,
			Segments:        segments,
			FullText:        FullText(segments),
			DurationSeconds: max(t.DurationSeconds, durationSeconds(segments)),
		})
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, repository.ErrConditionFailed) {
			return nil, apperr.Internal("failed to append transcript entry", err)
		}
		if attempt == maxContentSaveAttempts {
			return nil, apperr.Conflict("Transcript was modified concurrently, please retry")
		}
	}
}

func (m *Manager) Get(ctx context.Context, sessionID string, caller identity.Caller) (*repository.Transcript, error) {
	return m.load(ctx, sessionID, caller)
}

func (m *Manager) GetByBooking(ctx context.Context, bookingID string, caller identity.Caller) (*repository.Transcript, error) {
	t, err := m.repo.GetTranscriptByBooking(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal("failed to load transcript", err)
	}
	return m.authorize(t, caller)
}

func (m *Manager) ListMine(ctx context.Context, caller identity.Caller) ([]repository.Transcript, error) {
	list, err := m.repo.ListTranscriptsByParticipant(ctx, caller.ID)
	if err != nil {
		return nil, apperr.Internal("failed to list transcripts", err)
	}
	if list == nil {
		list = []repository.Transcript{}
	}
	return list, nil
}

func (m *Manager) Delete(ctx context.Context, sessionID string, caller identity.Caller) error {
	t, err := m.load(ctx, sessionID, caller)
	if err != nil {
		return err
	}
	deleted, err := m.repo.DeleteTranscript(ctx, t.ID)
	if err != nil {
		return apperr.Internal("failed to delete transcript", err)
	}
	if !deleted {
		return apperr.NotFound("Transcript not found")
	}
	slog.Info("transcript deleted", "transcript_id", t.ID, "session_id", sessionID, "user_id", caller.ID)
	return nil
}

func (m *Manager) Stop(ctx context.Context, sessionID string, caller identity.Caller) (*repository.Transcript, error) {
	t, err := m.load(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	updated, err := m.repo.StopTranscript(ctx, t.ID, m.now())
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, apperr.NotFound("Transcript not found")
		}
		return nil, apperr.Internal("failed to stop transcript", err)
	}
	return updated, nil
}

// SetSpeakerMapping stores an explicit provider-label to role mapping used
// when the provider result is applied.
func (m *Manager) SetSpeakerMapping(ctx context.Context, sessionID string, caller identity.Caller, mapping map[string]string) (*repository.Transcript, error) {
	if len(mapping) == 0 {
		return nil, apperr.Validation("Speaker mapping is required")
	}
	parsed := make(map[string]repository.Speaker, len(mapping))
	for label, raw := range mapping {
		label = strings.TrimSpace(label)
		speaker, ok := ParseSpeaker(raw)
		if label == "" || !ok {
			return nil, apperr.Validation("Speaker mapping values must be learner, mentor or unknown")
		}
		parsed[label] = speaker
	}
	t, err := m.load(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	updated, err := m.repo.SetTranscriptSpeakerMapping(ctx, t.ID, parsed)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, apperr.NotFound("Transcript not found")
		}
		return nil, apperr.Internal("failed to update speaker mapping", err)
	}
	return updated, nil
}
