package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

const transcriptColumns = `id, booking_id, session_id, learner_id, learner_name, mentor_id, mentor_name,
	segments, full_text, duration_seconds, audio_reference, audio_filename, audio_size_bytes,
	external_job_id, external_job_state, webhook_received, speaker_mapping, summary,
	session_start_time, session_end_time, version, created_at, updated_at`

func scanTranscript(row pgx.Row) (*repository.Transcript, error) {
	var t repository.Transcript
	var state string
	var segments, mapping, summary []byte
	err := row.Scan(&t.ID, &t.BookingID, &t.SessionID,
		&t.Learner.UserID, &t.Learner.Name, &t.Mentor.UserID, &t.Mentor.Name,
		&segments, &t.FullText, &t.DurationSeconds,
		&t.Audio.Reference, &t.Audio.Filename, &t.Audio.SizeBytes,
		&t.ExternalJobID, &state, &t.WebhookReceived, &mapping, &summary,
		&t.SessionStartTime, &t.SessionEndTime, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.ExternalJobState = repository.TranscriptJobState(state)
	if err := json.Unmarshal(segments, &t.Segments); err != nil {
		return nil, fmt.Errorf("failed to decode transcript segments: %w", err)
	}
	if err := json.Unmarshal(mapping, &t.SpeakerMapping); err != nil {
		return nil, fmt.Errorf("failed to decode speaker mapping: %w", err)
	}
	if err := json.Unmarshal(summary, &t.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode transcript summary: %w", err)
	}
	return &t, nil
}

func encodeSegments(segments []repository.TranscriptSegment) ([]byte, error) {
	if segments == nil {
		segments = []repository.TranscriptSegment{}
	}
	return json.Marshal(segments)
}

func (r *PostgresRepository) CreateTranscript(ctx context.Context, input repository.CreateTranscriptInput) (*repository.Transcript, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transcripts (id, booking_id, session_id, learner_id, learner_name, mentor_id, mentor_name, session_start_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+transcriptColumns,
		uuid.NewString(), input.BookingID, input.SessionID,
		input.Learner.UserID, input.Learner.Name, input.Mentor.UserID, input.Mentor.Name,
		input.SessionStartTime)
	t, err := scanTranscript(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrAlreadyExists
		}
		return nil, err
	}
	return t, nil
}

func (r *PostgresRepository) getTranscriptBy(ctx context.Context, column, value string) (*repository.Transcript, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE `+column+` = $1`, value)
	t, err := scanTranscript(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *PostgresRepository) GetTranscriptBySessionID(ctx context.Context, sessionID string) (*repository.Transcript, error) {
	return r.getTranscriptBy(ctx, "session_id", sessionID)
}

func (r *PostgresRepository) GetTranscriptByBooking(ctx context.Context, bookingID string) (*repository.Transcript, error) {
	return r.getTranscriptBy(ctx, "booking_id", bookingID)
}

func (r *PostgresRepository) GetTranscriptByJobID(ctx context.Context, jobID string) (*repository.Transcript, error) {
	if jobID == "" {
		return nil, nil
	}
	return r.getTranscriptBy(ctx, "external_job_id", jobID)
}

func (r *PostgresRepository) ListTranscriptsByParticipant(ctx context.Context, userID string) ([]repository.Transcript, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transcriptColumns+` FROM transcripts
		 WHERE learner_id = $1 OR mentor_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) updateTranscript(ctx context.Context, query string, args ...any) (*repository.Transcript, error) {
	t, err := scanTranscript(r.pool.QueryRow(ctx, query+` RETURNING `+transcriptColumns, args...))
	if err != nil {
		return nil, conditional(err)
	}
	return t, nil
}

func (r *PostgresRepository) MarkTranscriptProcessing(ctx context.Context, input repository.MarkTranscriptProcessingInput) (*repository.Transcript, error) {
	return r.updateTranscript(ctx,
		`UPDATE transcripts SET
			audio_reference = $2, audio_filename = $3, audio_size_bytes = $4,
			external_job_id = $5, external_job_state = 'processing',
			version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND external_job_state = 'queued'`,
		input.TranscriptID, input.Audio.Reference, input.Audio.Filename, input.Audio.SizeBytes, input.JobID)
}

func (r *PostgresRepository) SaveTranscriptContent(ctx context.Context, input repository.SaveTranscriptContentInput) (*repository.Transcript, error) {
	segments, err := encodeSegments(input.Segments)
	if err != nil {
		return nil, err
	}
	return r.updateTranscript(ctx,
		`UPDATE transcripts SET
			segments = $3, full_text = $4, duration_seconds = $5,
			version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2`,
		input.TranscriptID, input.ExpectedVersion, segments, input.FullText, input.DurationSeconds)
}

func (r *PostgresRepository) CompleteTranscript(ctx context.Context, input repository.CompleteTranscriptInput) (*repository.Transcript, error) {
	segments, err := encodeSegments(input.Segments)
	if err != nil {
		return nil, err
	}
	summary, err := json.Marshal(input.Summary)
	if err != nil {
		return nil, err
	}
	return r.updateTranscript(ctx,
		`UPDATE transcripts SET
			segments = $2, full_text = $3, duration_seconds = $4, summary = $5,
			external_job_state = 'completed', webhook_received = TRUE,
			session_end_time = COALESCE(session_end_time, $6),
			version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND external_job_state = 'processing'`,
		input.TranscriptID, segments, input.FullText, input.DurationSeconds, summary, input.CompletedAt)
}

func (r *PostgresRepository) FailTranscript(ctx context.Context, transcriptID string) (*repository.Transcript, error) {
	return r.updateTranscript(ctx,
		`UPDATE transcripts SET
			external_job_state = 'error', webhook_received = TRUE,
			version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND external_job_state IN ('queued', 'processing')`,
		transcriptID)
}

func (r *PostgresRepository) SetTranscriptSpeakerMapping(ctx context.Context, transcriptID string, mapping map[string]repository.Speaker) (*repository.Transcript, error) {
	if mapping == nil {
		mapping = map[string]repository.Speaker{}
	}
	encoded, err := json.Marshal(mapping)
	if err != nil {
		return nil, err
	}
	return r.updateTranscript(ctx,
		`UPDATE transcripts SET speaker_mapping = $2, version = version + 1, updated_at = NOW() WHERE id = $1`,
		transcriptID, encoded)
}

func (r *PostgresRepository) StopTranscript(ctx context.Context, transcriptID string, endedAt time.Time) (*repository.Transcript, error) {
	return r.updateTranscript(ctx,
		`UPDATE transcripts SET session_end_time = $2, version = version + 1, updated_at = NOW() WHERE id = $1`,
		transcriptID, endedAt)
}

func (r *PostgresRepository) DeleteTranscript(ctx context.Context, transcriptID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transcripts WHERE id = $1`, transcriptID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
