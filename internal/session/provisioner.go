package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/chat"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/shafin2/skillsphere-backend/internal/session")

const (
	dateLayout             = "2006-01-02"
	defaultProviderTimeout = 15 * time.Second
)

func ChatRoomID(bookingID string) string {
	return "booking_" + bookingID
}

func VideoRoomID(bookingID string, at time.Time) string {
	return fmt.Sprintf("session_%s_%d", bookingID, at.UnixMilli())
}

// Provisioner creates the chat room and session record for a confirmed
// booking. Concurrent calls for the same booking share one execution.
type Provisioner struct {
	repo    repository.Repository
	chat    chat.Provider
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group
}

func NewProvisioner(repo repository.Repository, chatProvider chat.Provider, timeout time.Duration) *Provisioner {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Provisioner{
		repo:    repo,
		chat:    chatProvider,
		timeout: timeout,
		now:     time.Now,
	}
}

func (p *Provisioner) Provision(ctx context.Context, b *repository.Booking) (s *repository.Session, err error) {
	ctx, span := tracer.Start(ctx, "session.Provision", trace.WithAttributes(attribute.String("booking.id", b.ID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}()

	if b.Status != repository.BookingStatusConfirmed {
		return nil, apperr.Conflict("Session can only be created for confirmed bookings")
	}
	// Callers sharing a flight must not inherit the first caller's cancellation.
	sctx := context.WithoutCancel(ctx)
	v, err, shared := p.group.Do(b.ID, func() (any, error) {
		return p.provision(sctx, b)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("session.shared", shared))
	return v.(*repository.Session), nil
}

func (p *Provisioner) provision(ctx context.Context, b *repository.Booking) (*repository.Session, error) {
	existing, err := p.repo.GetSessionByBooking(ctx, b.ID)
	if err != nil {
		return nil, apperr.Internal("failed to load session", err)
	}
	if existing != nil {
		return existing, nil
	}

	mentor := p.participant(ctx, b.MentorID, repository.RoleMentor)
	learner := p.participant(ctx, b.LearnerID, repository.RoleLearner)
	chatRoomID := ChatRoomID(b.ID)
	videoRoomID := VideoRoomID(b.ID, p.now())

	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.chat.UpsertParticipants(pctx, []chat.Participant{mentor, learner}); err != nil {
		return nil, apperr.External("Failed to register chat participants", err)
	}
	err = p.chat.CreateOrGetRoom(pctx, chatRoomID, []string{mentor.ID, learner.ID}, chat.RoomMetadata{
		Name:        fmt.Sprintf("Session: %s & %s", mentor.Name, learner.Name),
		BookingID:   b.ID,
		SessionDate: b.Date.Format(dateLayout),
		SessionTime: b.Time,
		CreatedBy:   mentor.ID,
	})
	if err != nil {
		return nil, apperr.External("Failed to create chat room", err)
	}

	s, err := p.repo.CreateSession(ctx, repository.CreateSessionInput{
		BookingID:   b.ID,
		MentorID:    b.MentorID,
		LearnerID:   b.LearnerID,
		ChatRoomID:  chatRoomID,
		VideoRoomID: videoRoomID,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Another process won the insert; return its row.
		winner, getErr := p.repo.GetSessionByBooking(ctx, b.ID)
		if getErr != nil || winner == nil {
			return nil, apperr.Internal("failed to load session", errors.Join(err, getErr))
		}
		return winner, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to create session", err)
	}
	slog.Info("session provisioned", "booking_id", b.ID, "session_id", s.ID, "chat_room_id", chatRoomID, "video_room_id", videoRoomID)
	return s, nil
}

func (p *Provisioner) participant(ctx context.Context, userID string, role repository.Role) chat.Participant {
	participant := chat.Participant{ID: userID, Name: userID, Role: string(role)}
	u, err := p.repo.GetUser(ctx, userID)
	if err != nil {
		slog.Warn("failed to load chat participant", "user_id", userID, "error", err)
		return participant
	}
	if u != nil {
		participant.Name = u.Name
		participant.Email = u.Email
		participant.Image = u.Avatar
	}
	return participant
}
