package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

// Shutdown closes the pool when the injector shuts down.
func (r *PostgresRepository) Shutdown() {
	r.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// conditional maps the no-row outcome of a guarded UPDATE ... RETURNING.
func conditional(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrConditionFailed
	}
	return err
}

func (r *PostgresRepository) GetUser(ctx context.Context, userID string) (*repository.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, avatar, roles, is_approved, is_profile_complete
		 FROM users WHERE id = $1`,
		userID)
	var u repository.User
	var roles []string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar, &roles, &u.IsApproved, &u.IsProfileComplete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	for _, role := range roles {
		u.Roles = append(u.Roles, repository.Role(role))
	}
	return &u, nil
}

const bookingColumns = `id, mentor_id, learner_id, date, time, message, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*repository.Booking, error) {
	var b repository.Booking
	var status string
	if err := row.Scan(&b.ID, &b.MentorID, &b.LearnerID, &b.Date, &b.Time, &b.Message, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = repository.BookingStatus(status)
	return &b, nil
}

func (r *PostgresRepository) CreateBooking(ctx context.Context, input repository.CreateBookingInput) (*repository.Booking, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO bookings (id, mentor_id, learner_id, date, time, message, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		 RETURNING `+bookingColumns,
		uuid.NewString(), input.MentorID, input.LearnerID, input.Date, input.Time, input.Message)
	return scanBooking(row)
}

func (r *PostgresRepository) GetBooking(ctx context.Context, bookingID string) (*repository.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (r *PostgresRepository) listBookings(ctx context.Context, query string, args ...any) ([]repository.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) ListBookingsByLearner(ctx context.Context, learnerID string) ([]repository.Booking, error) {
	return r.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE learner_id = $1 ORDER BY created_at DESC`,
		learnerID)
}

func (r *PostgresRepository) ListBookingsByMentor(ctx context.Context, mentorID string) ([]repository.Booking, error) {
	return r.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE mentor_id = $1 ORDER BY created_at DESC`,
		mentorID)
}

func (r *PostgresRepository) ListActiveBookingTimes(ctx context.Context, mentorID string, date time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT time FROM bookings
		 WHERE mentor_id = $1 AND date = $2 AND status IN ('pending', 'confirmed')
		 ORDER BY time ASC`,
		mentorID, date)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostgresRepository) TransitionBookingStatus(ctx context.Context, input repository.TransitionBookingInput) (*repository.Booking, error) {
	from := make([]string, 0, len(input.From))
	for _, s := range input.From {
		from = append(from, string(s))
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE bookings SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($2)
		 RETURNING `+bookingColumns,
		input.BookingID, from, string(input.To))
	b, err := scanBooking(row)
	if err != nil {
		return nil, conditional(err)
	}
	return b, nil
}

const sessionColumns = `id, booking_id, mentor_id, learner_id, chat_room_id, video_room_id, status,
	mentor_joined_at, learner_joined_at, started_at, ended_at, duration_minutes, notes, created_at, updated_at`

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	var status string
	err := row.Scan(&s.ID, &s.BookingID, &s.MentorID, &s.LearnerID, &s.ChatRoomID, &s.VideoRoomID, &status,
		&s.MentorJoinedAt, &s.LearnerJoinedAt, &s.StartedAt, &s.EndedAt, &s.DurationMinutes, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = repository.SessionStatus(status)
	return &s, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, booking_id, mentor_id, learner_id, chat_room_id, video_room_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'upcoming')
		 RETURNING `+sessionColumns,
		uuid.NewString(), input.BookingID, input.MentorID, input.LearnerID, input.ChatRoomID, input.VideoRoomID)
	s, err := scanSession(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrAlreadyExists
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) getSessionBy(ctx context.Context, column, value string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE `+column+` = $1`, value)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*repository.Session, error) {
	return r.getSessionBy(ctx, "id", sessionID)
}

func (r *PostgresRepository) GetSessionByBooking(ctx context.Context, bookingID string) (*repository.Session, error) {
	return r.getSessionBy(ctx, "booking_id", bookingID)
}

func (r *PostgresRepository) ListSessionsByParticipant(ctx context.Context, userID string) ([]repository.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE mentor_id = $1 OR learner_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) MarkSessionJoined(ctx context.Context, input repository.MarkSessionJoinedInput) (*repository.Session, error) {
	// Right-hand expressions see the pre-update row, so the first joiner starts the session.
	row := r.pool.QueryRow(ctx,
		`UPDATE sessions SET
			status = CASE WHEN mentor_joined_at IS NULL AND learner_joined_at IS NULL THEN 'in_progress' ELSE status END,
			started_at = CASE WHEN mentor_joined_at IS NULL AND learner_joined_at IS NULL THEN $3::timestamptz ELSE started_at END,
			mentor_joined_at = CASE WHEN $2::text = 'mentor' THEN $3::timestamptz ELSE mentor_joined_at END,
			learner_joined_at = CASE WHEN $2::text = 'learner' THEN $3::timestamptz ELSE learner_joined_at END,
			updated_at = NOW()
		 WHERE id = $1 AND status <> 'completed'
		 RETURNING `+sessionColumns,
		input.SessionID, string(input.Role), input.JoinedAt)
	s, err := scanSession(row)
	if err != nil {
		return nil, conditional(err)
	}
	return s, nil
}

func (r *PostgresRepository) CompleteSession(ctx context.Context, input repository.CompleteSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE sessions SET status = 'completed', ended_at = $2, duration_minutes = $3, updated_at = NOW()
		 WHERE id = $1 AND status <> 'completed'
		 RETURNING `+sessionColumns,
		input.SessionID, input.EndedAt, input.DurationMinutes)
	s, err := scanSession(row)
	if err != nil {
		return nil, conditional(err)
	}
	return s, nil
}

func (r *PostgresRepository) UpdateSessionNotes(ctx context.Context, sessionID, notes string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE sessions SET notes = $2, updated_at = NOW() WHERE id = $1 RETURNING `+sessionColumns,
		sessionID, notes)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

const notificationColumns = `id, user_id, type, booking_id, message, read, mentor_name, learner_name,
	booking_date, booking_time, created_at`

func scanNotification(row pgx.Row) (*repository.Notification, error) {
	var n repository.Notification
	var typ string
	var bookingDate *time.Time
	err := row.Scan(&n.ID, &n.UserID, &typ, &n.BookingID, &n.Message, &n.Read, &n.MentorName, &n.LearnerName,
		&bookingDate, &n.BookingTime, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Type = repository.NotificationType(typ)
	if bookingDate != nil {
		n.BookingDate = *bookingDate
	}
	return &n, nil
}

func (r *PostgresRepository) CreateNotification(ctx context.Context, input repository.CreateNotificationInput) (*repository.Notification, error) {
	var bookingDate *time.Time
	if !input.BookingDate.IsZero() {
		bookingDate = &input.BookingDate
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, user_id, type, booking_id, message, mentor_name, learner_name, booking_date, booking_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+notificationColumns,
		uuid.NewString(), input.UserID, string(input.Type), input.BookingID, input.Message,
		input.MentorName, input.LearnerName, bookingDate, input.BookingTime)
	return scanNotification(row)
}

func (r *PostgresRepository) ListNotificationsByUser(ctx context.Context, userID string, limit int) ([]repository.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		userID).Scan(&count)
	return count, err
}

func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`,
		userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

const feedbackColumns = `id, booking_id, mentor_id, learner_id, rating, comment, is_anonymous, created_at`

func scanFeedback(row pgx.Row) (*repository.Feedback, error) {
	var f repository.Feedback
	err := row.Scan(&f.ID, &f.BookingID, &f.MentorID, &f.LearnerID, &f.Rating, &f.Comment, &f.IsAnonymous, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PostgresRepository) CreateFeedback(ctx context.Context, input repository.CreateFeedbackInput) (*repository.Feedback, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO feedback (id, booking_id, mentor_id, learner_id, rating, comment, is_anonymous)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+feedbackColumns,
		uuid.NewString(), input.BookingID, input.MentorID, input.LearnerID, input.Rating, input.Comment, input.IsAnonymous)
	f, err := scanFeedback(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrAlreadyExists
		}
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) ListFeedbackByMentor(ctx context.Context, mentorID string, limit, offset int) ([]repository.Feedback, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM feedback WHERE mentor_id = $1`, mentorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+feedbackColumns+` FROM feedback
		 WHERE mentor_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		mentorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []repository.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *f)
	}
	return list, total, rows.Err()
}

func (r *PostgresRepository) GetMentorRatingStats(ctx context.Context, mentorID string) (repository.MentorRatingStats, error) {
	var stats repository.MentorRatingStats
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*) FROM feedback WHERE mentor_id = $1`,
		mentorID).Scan(&stats.AverageRating, &stats.TotalReviews)
	return stats, err
}
