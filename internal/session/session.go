package session

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/shafin2/skillsphere-backend/internal/activity"
	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/chat"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/video"
)

const maxNotesLength = 10000

type Counterpart struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Role   repository.Role `json:"role"`
	Avatar string          `json:"avatar,omitempty"`
}

type BookingSummary struct {
	ID      string                   `json:"id"`
	Date    string                   `json:"date"`
	Time    string                   `json:"time"`
	Status  repository.BookingStatus `json:"status"`
	Message string                   `json:"message"`
}

type Conversation struct {
	SessionID    string                   `json:"sessionId"`
	ChatRoomID   string                   `json:"chatRoomId"`
	VideoRoomID  string                   `json:"videoRoomId"`
	Status       repository.SessionStatus `json:"status"`
	Counterpart  Counterpart              `json:"otherUser"`
	Booking      BookingSummary           `json:"booking"`
	LastActivity time.Time                `json:"lastActivity"`
}

type ChatCredentials struct {
	Token  string `json:"token"`
	APIKey string `json:"apiKey"`
	UserID string `json:"userId"`
}

type Channel struct {
	ChatRoomID string              `json:"channelId"`
	Session    *repository.Session `json:"session"`
}

type Service struct {
	repo        repository.Repository
	chat        chat.Provider
	video       video.TokenIssuer
	provisioner *Provisioner
	activity    activity.Publisher
	chatAPIKey  string
	videoTTL    time.Duration
	timeout     time.Duration
	now         func() time.Time
}

type Options struct {
	ChatAPIKey      string
	VideoTokenTTL   time.Duration
	ProviderTimeout time.Duration
}

func NewService(repo repository.Repository, chatProvider chat.Provider, videoIssuer video.TokenIssuer, provisioner *Provisioner, feed activity.Publisher, opts Options) *Service {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = defaultProviderTimeout
	}
	if opts.VideoTokenTTL <= 0 {
		opts.VideoTokenTTL = time.Hour
	}
	return &Service{
		repo:        repo,
		chat:        chatProvider,
		video:       videoIssuer,
		provisioner: provisioner,
		activity:    feed,
		chatAPIKey:  opts.ChatAPIKey,
		videoTTL:    opts.VideoTokenTTL,
		timeout:     opts.ProviderTimeout,
		now:         time.Now,
	}
}

func (s *Service) Get(ctx context.Context, bookingID string, caller identity.Caller) (*repository.Session, error) {
	sess, err := s.repo.GetSessionByBooking(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal("failed to load session", err)
	}
	if sess == nil {
		return nil, apperr.NotFound("Session not found")
	}
	if !sess.IsParticipant(caller.ID) {
		return nil, apperr.Forbidden("You are not a participant of this session")
	}
	return sess, nil
}

func (s *Service) ListConversations(ctx context.Context, caller identity.Caller) ([]Conversation, error) {
	sessions, err := s.repo.ListSessionsByParticipant(ctx, caller.ID)
	if err != nil {
		return nil, apperr.Internal("failed to list sessions", err)
	}
	conversations := make([]Conversation, 0, len(sessions))
	for _, sess := range sessions {
		c := Conversation{
			SessionID:    sess.ID,
			ChatRoomID:   sess.ChatRoomID,
			VideoRoomID:  sess.VideoRoomID,
			Status:       sess.Status,
			Booking:      BookingSummary{ID: sess.BookingID},
			LastActivity: sess.UpdatedAt,
		}
		otherID, otherRole := sess.MentorID, repository.RoleMentor
		if caller.ID == sess.MentorID {
			otherID, otherRole = sess.LearnerID, repository.RoleLearner
		}
		c.Counterpart = Counterpart{ID: otherID, Role: otherRole}
		if u, err := s.repo.GetUser(ctx, otherID); err != nil {
			slog.Warn("failed to load conversation counterpart", "session_id", sess.ID, "error", err)
		} else if u != nil {
			c.Counterpart.Name = u.Name
			c.Counterpart.Avatar = u.Avatar
		}
		if b, err := s.repo.GetBooking(ctx, sess.BookingID); err != nil {
			slog.Warn("failed to load conversation booking", "session_id", sess.ID, "error", err)
		} else if b != nil {
			c.Booking = BookingSummary{
				ID:      b.ID,
				Date:    b.Date.Format(dateLayout),
				Time:    b.Time,
				Status:  b.Status,
				Message: b.Message,
			}
		}
		conversations = append(conversations, c)
	}
	return conversations, nil
}

// participantSession loads the session and resolves the caller's role in it.
func (s *Service) participantSession(ctx context.Context, sessionID string, caller identity.Caller) (*repository.Session, repository.Role, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, "", apperr.Internal("failed to load session", err)
	}
	if sess == nil {
		return nil, "", apperr.NotFound("Session not found")
	}
	role := sess.RoleOf(caller.ID)
	if role == "" {
		return nil, "", apperr.Forbidden("You are not a participant of this session")
	}
	return sess, role, nil
}

func (s *Service) Join(ctx context.Context, sessionID string, caller identity.Caller) (*repository.Session, error) {
	sess, role, err := s.participantSession(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	if sess.Status == repository.SessionStatusCompleted {
		return nil, apperr.Conflict("Session has already ended")
	}
	updated, err := s.repo.MarkSessionJoined(ctx, repository.MarkSessionJoinedInput{
		SessionID: sess.ID,
		Role:      role,
		JoinedAt:  s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, apperr.Conflict("Session has already ended")
		}
		return nil, apperr.Internal("failed to join session", err)
	}
	slog.Info("session joined", "session_id", sess.ID, "user_id", caller.ID, "role", role)
	return updated, nil
}

// DurationMinutes floors the elapsed time between start and end; an unstarted
// session lasts zero minutes.
func DurationMinutes(startedAt *time.Time, endedAt time.Time) int {
	if startedAt == nil || endedAt.Before(*startedAt) {
		return 0
	}
	return int(endedAt.Sub(*startedAt) / time.Minute)
}

func (s *Service) Leave(ctx context.Context, sessionID string, caller identity.Caller) (*repository.Session, error) {
	sess, _, err := s.participantSession(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	if sess.Status == repository.SessionStatusCompleted {
		return nil, apperr.Conflict("Session has already ended")
	}
	endedAt := s.now()
	updated, err := s.repo.CompleteSession(ctx, repository.CompleteSessionInput{
		SessionID:       sess.ID,
		EndedAt:         endedAt,
		DurationMinutes: DurationMinutes(sess.StartedAt, endedAt),
	})
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, apperr.Conflict("Session has already ended")
		}
		return nil, apperr.Internal("failed to end session", err)
	}
	slog.Info("session ended", "session_id", sess.ID, "user_id", caller.ID, "duration_minutes", updated.DurationMinutes)

	b, err := s.repo.TransitionBookingStatus(ctx, repository.TransitionBookingInput{
		BookingID: sess.BookingID,
		From:      []repository.BookingStatus{repository.BookingStatusConfirmed},
		To:        repository.BookingStatusCompleted,
	})
	switch {
	case errors.Is(err, repository.ErrConditionFailed):
		slog.Info("booking not completed after session end", "booking_id", sess.BookingID, "reason", "status changed")
	case err != nil:
		slog.Warn("failed to complete booking after session end", "booking_id", sess.BookingID, "error", err)
	default:
		if pubErr := s.activity.Publish(ctx, activity.Event{
			Kind:      activity.EventSessionCompleted,
			BookingID: b.ID,
			Date:      b.Date,
			Time:      b.Time,
		}); pubErr != nil {
			slog.Warn("failed to publish session activity", "booking_id", b.ID, "error", pubErr)
		}
	}
	return updated, nil
}

func (s *Service) UpdateNotes(ctx context.Context, sessionID string, caller identity.Caller, notes string) (*repository.Session, error) {
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, apperr.Validation("Notes must be 10000 characters or fewer")
	}
	sess, _, err := s.participantSession(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateSessionNotes(ctx, sess.ID, notes)
	if err != nil {
		return nil, apperr.Internal("failed to update notes", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("Session not found")
	}
	return updated, nil
}

func (s *Service) ChatToken(ctx context.Context, caller identity.Caller) (ChatCredentials, error) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	participant := chat.Participant{ID: caller.ID, Name: caller.Name, Email: caller.Email, Role: string(caller.PrimaryRole())}
	if u, err := s.repo.GetUser(ctx, caller.ID); err == nil && u != nil {
		participant.Name = u.Name
		participant.Image = u.Avatar
	}
	if err := s.chat.UpsertParticipants(pctx, []chat.Participant{participant}); err != nil {
		return ChatCredentials{}, apperr.External("Failed to register chat user", err)
	}
	token, err := s.chat.IssueUserToken(caller.ID)
	if err != nil {
		return ChatCredentials{}, apperr.External("Failed to issue chat token", err)
	}
	return ChatCredentials{Token: token, APIKey: s.chatAPIKey, UserID: caller.ID}, nil
}

// confirmedBooking loads a confirmed booking the caller participates in.
func (s *Service) confirmedBooking(ctx context.Context, bookingID string, caller identity.Caller) (*repository.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal("failed to load booking", err)
	}
	if b == nil {
		return nil, apperr.NotFound("Booking not found")
	}
	if !b.IsParticipant(caller.ID) {
		return nil, apperr.Forbidden("You are not a participant of this booking")
	}
	if b.Status != repository.BookingStatusConfirmed {
		return nil, apperr.Conflict("Booking must be confirmed")
	}
	return b, nil
}

func (s *Service) VideoToken(ctx context.Context, bookingID string, caller identity.Caller) (video.Token, error) {
	b, err := s.confirmedBooking(ctx, bookingID, caller)
	if err != nil {
		return video.Token{}, err
	}
	room := ChatRoomID(b.ID)
	sess, err := s.repo.GetSessionByBooking(ctx, b.ID)
	if err != nil {
		return video.Token{}, apperr.Internal("failed to load session", err)
	}
	if sess != nil && sess.VideoRoomID != "" {
		room = sess.VideoRoomID
	}
	token, err := s.video.IssueRoomToken(room, caller.ID, video.RolePublisher, s.videoTTL)
	if err != nil {
		return video.Token{}, apperr.External("Failed to generate call token", err)
	}
	return token, nil
}

func (s *Service) OpenChannel(ctx context.Context, bookingID string, caller identity.Caller) (Channel, error) {
	b, err := s.confirmedBooking(ctx, bookingID, caller)
	if err != nil {
		return Channel{}, err
	}
	sess, err := s.provisioner.Provision(ctx, b)
	if err != nil {
		return Channel{}, err
	}
	return Channel{ChatRoomID: sess.ChatRoomID, Session: sess}, nil
}
