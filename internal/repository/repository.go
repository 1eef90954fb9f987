package repository

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConditionFailed reports that a conditional write matched no row because
	// the stored state no longer satisfies the expected precondition.
	ErrConditionFailed = errors.New("repository: conditional write did not match")
	// ErrAlreadyExists reports a unique constraint violation.
	ErrAlreadyExists = errors.New("repository: record already exists")
)

type CreateBookingInput struct {
	MentorID  string
	LearnerID string
	Date      time.Time
	Time      string
	Message   string
}

type TransitionBookingInput struct {
	BookingID string
	From      []BookingStatus
	To        BookingStatus
}

type CreateSessionInput struct {
	BookingID   string
	MentorID    string
	LearnerID   string
	ChatRoomID  string
	VideoRoomID string
}

type MarkSessionJoinedInput struct {
	SessionID string
	Role      Role
	JoinedAt  time.Time
}

type CompleteSessionInput struct {
	SessionID       string
	EndedAt         time.Time
	DurationMinutes int
}

type CreateNotificationInput struct {
	UserID      string
	Type        NotificationType
	BookingID   string
	Message     string
	MentorName  string
	LearnerName string
	BookingDate time.Time
	BookingTime string
}

type CreateTranscriptInput struct {
	BookingID        string
	SessionID        string
	Learner          TranscriptParticipant
	Mentor           TranscriptParticipant
	SessionStartTime time.Time
}

type MarkTranscriptProcessingInput struct {
	TranscriptID string
	Audio        TranscriptAudio
	JobID        string
}

type SaveTranscriptContentInput struct {
	TranscriptID    string
	ExpectedVersion int
	Segments        []TranscriptSegment
	FullText        string
	DurationSeconds int
}

type CompleteTranscriptInput struct {
	TranscriptID    string
	Segments        []TranscriptSegment
	FullText        string
	DurationSeconds int
	Summary         TranscriptSummary
	CompletedAt     time.Time
}

type CreateFeedbackInput struct {
	BookingID   string
	MentorID    string
	LearnerID   string
	Rating      int
	Comment     string
	IsAnonymous bool
}

type MentorRatingStats struct {
	AverageRating float64
	TotalReviews  int
}

// Finders return (nil, nil) when the record does not exist.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*Booking, error)
	ListBookingsByLearner(ctx context.Context, learnerID string) ([]Booking, error)
	ListBookingsByMentor(ctx context.Context, mentorID string) ([]Booking, error)
	// ListActiveBookingTimes returns slot labels held by pending or confirmed bookings.
	ListActiveBookingTimes(ctx context.Context, mentorID string, date time.Time) ([]string, error)
	// TransitionBookingStatus applies the update only while the stored status is one of From.
	TransitionBookingStatus(ctx context.Context, input TransitionBookingInput) (*Booking, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	GetSessionByBooking(ctx context.Context, bookingID string) (*Session, error)
	ListSessionsByParticipant(ctx context.Context, userID string) ([]Session, error)
	MarkSessionJoined(ctx context.Context, input MarkSessionJoinedInput) (*Session, error)
	CompleteSession(ctx context.Context, input CompleteSessionInput) (*Session, error)
	UpdateSessionNotes(ctx context.Context, sessionID, notes string) (*Session, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, input CreateNotificationInput) (*Notification, error)
	ListNotificationsByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	// MarkNotificationRead reports false when no notification with that id belongs to userID.
	MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
}

type TranscriptRepository interface {
	CreateTranscript(ctx context.Context, input CreateTranscriptInput) (*Transcript, error)
	GetTranscriptBySessionID(ctx context.Context, sessionID string) (*Transcript, error)
	GetTranscriptByBooking(ctx context.Context, bookingID string) (*Transcript, error)
	GetTranscriptByJobID(ctx context.Context, jobID string) (*Transcript, error)
	ListTranscriptsByParticipant(ctx context.Context, userID string) ([]Transcript, error)
	MarkTranscriptProcessing(ctx context.Context, input MarkTranscriptProcessingInput) (*Transcript, error)
	SaveTranscriptContent(ctx context.Context, input SaveTranscriptContentInput) (*Transcript, error)
	CompleteTranscript(ctx context.Context, input CompleteTranscriptInput) (*Transcript, error)
	FailTranscript(ctx context.Context, transcriptID string) (*Transcript, error)
	SetTranscriptSpeakerMapping(ctx context.Context, transcriptID string, mapping map[string]Speaker) (*Transcript, error)
	StopTranscript(ctx context.Context, transcriptID string, endedAt time.Time) (*Transcript, error)
	DeleteTranscript(ctx context.Context, transcriptID string) (bool, error)
}

type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, input CreateFeedbackInput) (*Feedback, error)
	ListFeedbackByMentor(ctx context.Context, mentorID string, limit, offset int) ([]Feedback, int, error)
	GetMentorRatingStats(ctx context.Context, mentorID string) (MentorRatingStats, error)
}

type Repository interface {
	UserRepository
	BookingRepository
	SessionRepository
	NotificationRepository
	TranscriptRepository
	FeedbackRepository
}
