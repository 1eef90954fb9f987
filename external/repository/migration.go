package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		avatar TEXT NOT NULL DEFAULT '',
		roles TEXT[] NOT NULL DEFAULT '{learner}',
		is_approved BOOLEAN NOT NULL DEFAULT FALSE,
		is_profile_complete BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		mentor_id TEXT NOT NULL REFERENCES users(id),
		learner_id TEXT NOT NULL REFERENCES users(id),
		date DATE NOT NULL,
		time TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_learner ON bookings (learner_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_mentor ON bookings (mentor_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_mentor_slot ON bookings (mentor_id, date) WHERE status IN ('pending', 'confirmed')`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL UNIQUE REFERENCES bookings(id),
		mentor_id TEXT NOT NULL,
		learner_id TEXT NOT NULL,
		chat_room_id TEXT NOT NULL,
		video_room_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'upcoming'
			CHECK (status IN ('upcoming', 'in_progress', 'completed')),
		mentor_joined_at TIMESTAMPTZ,
		learner_joined_at TIMESTAMPTZ,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_mentor ON sessions (mentor_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_learner ON sessions (learner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		booking_id TEXT NOT NULL REFERENCES bookings(id),
		message TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		mentor_name TEXT NOT NULL DEFAULT '',
		learner_name TEXT NOT NULL DEFAULT '',
		booking_date DATE,
		booking_time TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL UNIQUE REFERENCES bookings(id),
		session_id TEXT NOT NULL UNIQUE,
		learner_id TEXT NOT NULL,
		learner_name TEXT NOT NULL DEFAULT '',
		mentor_id TEXT NOT NULL,
		mentor_name TEXT NOT NULL DEFAULT '',
		segments JSONB NOT NULL DEFAULT '[]',
		full_text TEXT NOT NULL DEFAULT '',
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		audio_reference TEXT NOT NULL DEFAULT '',
		audio_filename TEXT NOT NULL DEFAULT '',
		audio_size_bytes BIGINT NOT NULL DEFAULT 0,
		external_job_id TEXT NOT NULL DEFAULT '',
		external_job_state TEXT NOT NULL DEFAULT 'queued'
			CHECK (external_job_state IN ('queued', 'processing', 'completed', 'error')),
		webhook_received BOOLEAN NOT NULL DEFAULT FALSE,
		speaker_mapping JSONB NOT NULL DEFAULT '{}',
		summary JSONB NOT NULL DEFAULT '{}',
		session_start_time TIMESTAMPTZ NOT NULL,
		session_end_time TIMESTAMPTZ,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transcripts_job ON transcripts (external_job_id) WHERE external_job_id <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_transcripts_learner ON transcripts (learner_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transcripts_mentor ON transcripts (mentor_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL UNIQUE REFERENCES bookings(id),
		mentor_id TEXT NOT NULL,
		learner_id TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		is_anonymous BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_mentor ON feedback (mentor_id, created_at DESC)`,
}

// migrationLockKey serialises schema setup across instances starting together.
const migrationLockKey int64 = 0x536b696c6c53

// RunMigration applies every statement in one transaction under an advisory lock.
func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	for i, s := range migrationStatements {
		if _, err := tx.Exec(ctx, s); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return tx.Commit(ctx)
}
