package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	DateLayout = "2006-01-02"
)

type EmitInput struct {
	UserID      string
	Type        repository.NotificationType
	BookingID   string
	MentorName  string
	LearnerName string
	// ActorName is the participant who triggered a cancellation.
	ActorName   string
	BookingDate time.Time
	BookingTime string
}

type ListResult struct {
	Notifications []repository.Notification
	UnreadCount   int
}

type Service struct {
	repo repository.NotificationRepository
}

func NewService(repo repository.NotificationRepository) *Service {
	return &Service{repo: repo}
}

// Emit persists a notification for a booking lifecycle event. Failures are
// logged and never reach the caller.
func (s *Service) Emit(ctx context.Context, input EmitInput) {
	message, err := renderMessage(input)
	if err != nil {
		slog.Error("failed to render notification", "booking_id", input.BookingID, "type", input.Type, "error", err)
		return
	}
	_, err = s.repo.CreateNotification(ctx, repository.CreateNotificationInput{
		UserID:      input.UserID,
		Type:        input.Type,
		BookingID:   input.BookingID,
		Message:     message,
		MentorName:  input.MentorName,
		LearnerName: input.LearnerName,
		BookingDate: input.BookingDate,
		BookingTime: input.BookingTime,
	})
	if err != nil {
		slog.Error("failed to create notification", "booking_id", input.BookingID, "user_id", input.UserID, "type", input.Type, "error", err)
		return
	}
	slog.Debug("notification created", "booking_id", input.BookingID, "user_id", input.UserID, "type", input.Type)
}

func renderMessage(input EmitInput) (string, error) {
	date := input.BookingDate.Format(DateLayout)
	switch input.Type {
	case repository.NotificationNewBookingRequest:
		return fmt.Sprintf("%s requested a session on %s at %s", displayName(input.LearnerName), date, input.BookingTime), nil
	case repository.NotificationBookingConfirmed:
		return fmt.Sprintf("%s confirmed your session on %s at %s", displayName(input.MentorName), date, input.BookingTime), nil
	case repository.NotificationBookingRejected:
		return fmt.Sprintf("%s declined your session request for %s at %s", displayName(input.MentorName), date, input.BookingTime), nil
	case repository.NotificationBookingCancelled:
		return fmt.Sprintf("%s cancelled the session on %s at %s", displayName(input.ActorName), date, input.BookingTime), nil
	default:
		return "", fmt.Errorf("unknown notification type %q", input.Type)
	}
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Someone"
	}
	return name
}

func (s *Service) List(ctx context.Context, userID string, limit int) (ListResult, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	list, err := s.repo.ListNotificationsByUser(ctx, userID, limit)
	if err != nil {
		return ListResult{}, apperr.Internal("failed to list notifications", err)
	}
	unread, err := s.repo.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return ListResult{}, apperr.Internal("failed to count notifications", err)
	}
	if list == nil {
		list = []repository.Notification{}
	}
	return ListResult{Notifications: list, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) error {
	ok, err := s.repo.MarkNotificationRead(ctx, notificationID, userID)
	if err != nil {
		return apperr.Internal("failed to mark notification read", err)
	}
	if !ok {
		return apperr.NotFound("Notification not found")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("failed to mark notifications read", err)
	}
	return count, nil
}
