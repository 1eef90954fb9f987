package booking

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shafin2/skillsphere-backend/internal/activity"
	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/notification"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxMessageLength = 500

var (
	tracer      = otel.Tracer("github.com/shafin2/skillsphere-backend/internal/booking")
	slotPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

type Notifier interface {
	Emit(ctx context.Context, input notification.EmitInput)
}

// Provisioner creates the session resources for a confirmed booking.
type Provisioner interface {
	Provision(ctx context.Context, booking *repository.Booking) (*repository.Session, error)
}

type Party struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// View is a booking enriched with participant names.
type View struct {
	*repository.Booking
	Mentor  Party
	Learner Party
}

type CreateInput struct {
	MentorID string
	Date     string
	Time     string
	Message  string
}

type ConfirmResult struct {
	Booking *repository.Booking
	Session *repository.Session
	// Warning is set when the booking was confirmed but session setup failed.
	Warning string
}

type Service struct {
	repo        repository.Repository
	notifier    Notifier
	provisioner Provisioner
	activity    activity.Publisher
	location    *time.Location
	now         func() time.Time
}

func NewService(repo repository.Repository, notifier Notifier, provisioner Provisioner, feed activity.Publisher, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:        repo,
		notifier:    notifier,
		provisioner: provisioner,
		activity:    feed,
		location:    location,
		now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, caller identity.Caller, input CreateInput) (*View, error) {
	if !caller.HasRole(repository.RoleLearner) {
		return nil, apperr.Forbidden("Only learners can create bookings")
	}
	mentorID := strings.TrimSpace(input.MentorID)
	slot := strings.TrimSpace(input.Time)
	if mentorID == "" || strings.TrimSpace(input.Date) == "" || slot == "" {
		return nil, apperr.Validation("Mentor, date, and time are required")
	}
	if mentorID == caller.ID {
		return nil, apperr.Validation("You cannot book a session with yourself")
	}
	if !slotPattern.MatchString(slot) {
		return nil, apperr.Validation("Time must be formatted as HH:MM")
	}
	message := strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, apperr.Validation("Message must be 500 characters or fewer")
	}
	date, err := ParseDate(input.Date)
	if err != nil {
		return nil, err
	}
	if !s.slotStart(date, slot).After(s.now()) {
		return nil, apperr.Validation("Booking date must be in the future")
	}

	mentor, err := s.repo.GetUser(ctx, mentorID)
	if err != nil {
		return nil, apperr.Internal("failed to load mentor", err)
	}
	if mentor == nil || !mentor.IsBookableMentor() {
		return nil, apperr.Validation("Mentor not found or not available for booking")
	}

	b, err := s.repo.CreateBooking(ctx, repository.CreateBookingInput{
		MentorID:  mentor.ID,
		LearnerID: caller.ID,
		Date:      date,
		Time:      slot,
		Message:   message,
	})
	if err != nil {
		return nil, apperr.Internal("failed to create booking", err)
	}
	slog.Info("booking created", "booking_id", b.ID, "mentor_id", b.MentorID, "learner_id", b.LearnerID)

	learnerName := caller.Name
	if learner, err := s.repo.GetUser(ctx, caller.ID); err == nil && learner != nil {
		learnerName = learner.Name
	}
	s.notifier.Emit(ctx, notification.EmitInput{
		UserID:      mentor.ID,
		Type:        repository.NotificationNewBookingRequest,
		BookingID:   b.ID,
		MentorName:  mentor.Name,
		LearnerName: learnerName,
		BookingDate: b.Date,
		BookingTime: b.Time,
	})
	s.publish(ctx, activity.EventBookingRequested, b, mentor.Name, learnerName, "")

	return &View{
		Booking: b,
		Mentor:  Party{ID: mentor.ID, Name: mentor.Name, Avatar: mentor.Avatar},
		Learner: Party{ID: caller.ID, Name: learnerName},
	}, nil
}

// slotStart is the wall-clock start of the slot in the booking timezone.
func (s *Service) slotStart(date time.Time, slot string) time.Time {
	t, _ := time.Parse("15:04", slot)
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, s.location)
}

func (s *Service) ListMine(ctx context.Context, caller identity.Caller) ([]View, error) {
	var (
		list []repository.Booking
		err  error
	)
	switch {
	case caller.HasRole(repository.RoleLearner):
		list, err = s.repo.ListBookingsByLearner(ctx, caller.ID)
	case caller.HasRole(repository.RoleMentor):
		list, err = s.repo.ListBookingsByMentor(ctx, caller.ID)
	default:
		return nil, apperr.Forbidden("Access denied")
	}
	if err != nil {
		return nil, apperr.Internal("failed to list bookings", err)
	}

	users := map[string]*repository.User{}
	party := func(userID string) Party {
		u, ok := users[userID]
		if !ok {
			var lookupErr error
			u, lookupErr = s.repo.GetUser(ctx, userID)
			if lookupErr != nil {
				slog.Warn("failed to load booking participant", "user_id", userID, "error", lookupErr)
			}
			users[userID] = u
		}
		if u == nil {
			return Party{ID: userID}
		}
		return Party{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
	}

	views := make([]View, 0, len(list))
	for i := range list {
		b := &list[i]
		views = append(views, View{Booking: b, Mentor: party(b.MentorID), Learner: party(b.LearnerID)})
	}
	return views, nil
}

// load fetches the booking or returns a not-found error.
func (s *Service) load(ctx context.Context, bookingID string) (*repository.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal("failed to load booking", err)
	}
	if b == nil {
		return nil, apperr.NotFound("Booking not found")
	}
	return b, nil
}

func (s *Service) transition(ctx context.Context, b *repository.Booking, from []repository.BookingStatus, to repository.BookingStatus) (*repository.Booking, error) {
	updated, err := s.repo.TransitionBookingStatus(ctx, repository.TransitionBookingInput{
		BookingID: b.ID,
		From:      from,
		To:        to,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, apperr.Conflict("Booking status has already changed")
		}
		return nil, apperr.Internal("failed to update booking", err)
	}
	slog.Info("booking status changed", "booking_id", b.ID, "from", b.Status, "to", to)
	return updated, nil
}

func startSpan(ctx context.Context, name, bookingID, actorID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("booking.id", bookingID),
		attribute.String("actor.id", actorID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	span.End()
}

func (s *Service) Confirm(ctx context.Context, bookingID, actorID string) (res *ConfirmResult, err error) {
	ctx, span := startSpan(ctx, "booking.Confirm", bookingID, actorID)
	defer func() { endSpan(span, err) }()

	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.MentorID != actorID {
		return nil, apperr.Forbidden("You can only confirm your own bookings")
	}
	if b.Status != repository.BookingStatusPending {
		return nil, apperr.Conflict("Only pending bookings can be confirmed")
	}
	updated, err := s.transition(ctx, b, []repository.BookingStatus{repository.BookingStatusPending}, repository.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}

	res = &ConfirmResult{Booking: updated}
	session, provisionErr := s.provisioner.Provision(ctx, updated)
	if provisionErr != nil {
		slog.Error("failed to provision session after confirmation", "booking_id", updated.ID, "error", provisionErr)
		res.Warning = "Booking confirmed but session setup failed: " + apperr.MessageOf(provisionErr)
		span.AddEvent("provision_failed")
	} else {
		res.Session = session
	}

	mentorName, learnerName := s.names(ctx, updated)
	s.notifier.Emit(ctx, notification.EmitInput{
		UserID:      updated.LearnerID,
		Type:        repository.NotificationBookingConfirmed,
		BookingID:   updated.ID,
		MentorName:  mentorName,
		LearnerName: learnerName,
		BookingDate: updated.Date,
		BookingTime: updated.Time,
	})
	s.publish(ctx, activity.EventBookingConfirmed, updated, mentorName, learnerName, res.Warning)
	return res, nil
}

func (s *Service) Reject(ctx context.Context, bookingID, actorID string) (b *repository.Booking, err error) {
	ctx, span := startSpan(ctx, "booking.Reject", bookingID, actorID)
	defer func() { endSpan(span, err) }()

	b, err = s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.MentorID != actorID {
		return nil, apperr.Forbidden("You can only reject your own bookings")
	}
	if b.Status != repository.BookingStatusPending {
		return nil, apperr.Conflict("Only pending bookings can be rejected")
	}
	updated, err := s.transition(ctx, b, []repository.BookingStatus{repository.BookingStatusPending}, repository.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	mentorName, learnerName := s.names(ctx, updated)
	s.notifier.Emit(ctx, notification.EmitInput{
		UserID:      updated.LearnerID,
		Type:        repository.NotificationBookingRejected,
		BookingID:   updated.ID,
		MentorName:  mentorName,
		LearnerName: learnerName,
		BookingDate: updated.Date,
		BookingTime: updated.Time,
	})
	s.publish(ctx, activity.EventBookingRejected, updated, mentorName, learnerName, "")
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, bookingID, actorID string) (b *repository.Booking, err error) {
	ctx, span := startSpan(ctx, "booking.Cancel", bookingID, actorID)
	defer func() { endSpan(span, err) }()

	b, err = s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParticipant(actorID) {
		return nil, apperr.Forbidden("You can only cancel your own bookings")
	}
	if b.Status.IsTerminal() {
		return nil, apperr.Conflict("Cannot cancel completed or already cancelled bookings")
	}
	from := []repository.BookingStatus{repository.BookingStatusPending, repository.BookingStatusConfirmed}
	if actorID == b.LearnerID {
		if b.Status == repository.BookingStatusConfirmed {
			return nil, apperr.Forbidden("Confirmed bookings can only be cancelled by the mentor")
		}
		from = []repository.BookingStatus{repository.BookingStatusPending}
	}
	updated, err := s.transition(ctx, b, from, repository.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	mentorName, learnerName := s.names(ctx, updated)
	actorName := learnerName
	if actorID == updated.MentorID {
		actorName = mentorName
	}
	s.notifier.Emit(ctx, notification.EmitInput{
		UserID:      updated.Counterpart(actorID),
		Type:        repository.NotificationBookingCancelled,
		BookingID:   updated.ID,
		MentorName:  mentorName,
		LearnerName: learnerName,
		ActorName:   actorName,
		BookingDate: updated.Date,
		BookingTime: updated.Time,
	})
	s.publish(ctx, activity.EventBookingCancelled, updated, mentorName, learnerName, "")
	return updated, nil
}

func (s *Service) Complete(ctx context.Context, bookingID, actorID string) (b *repository.Booking, err error) {
	ctx, span := startSpan(ctx, "booking.Complete", bookingID, actorID)
	defer func() { endSpan(span, err) }()

	b, err = s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParticipant(actorID) {
		return nil, apperr.Forbidden("You can only complete your own bookings")
	}
	if b.Status != repository.BookingStatusConfirmed {
		return nil, apperr.Conflict("Only confirmed bookings can be completed")
	}
	updated, err := s.transition(ctx, b, []repository.BookingStatus{repository.BookingStatusConfirmed}, repository.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}
	mentorName, learnerName := s.names(ctx, updated)
	s.publish(ctx, activity.EventBookingCompleted, updated, mentorName, learnerName, "")
	return updated, nil
}

// names snapshots participant display names; lookup failures yield empty names.
func (s *Service) names(ctx context.Context, b *repository.Booking) (mentorName, learnerName string) {
	if u, err := s.repo.GetUser(ctx, b.MentorID); err != nil {
		slog.Warn("failed to load mentor name", "booking_id", b.ID, "error", err)
	} else if u != nil {
		mentorName = u.Name
	}
	if u, err := s.repo.GetUser(ctx, b.LearnerID); err != nil {
		slog.Warn("failed to load learner name", "booking_id", b.ID, "error", err)
	} else if u != nil {
		learnerName = u.Name
	}
	return mentorName, learnerName
}

func (s *Service) publish(ctx context.Context, kind activity.EventKind, b *repository.Booking, mentorName, learnerName, warning string) {
	err := s.activity.Publish(ctx, activity.Event{
		Kind:        kind,
		BookingID:   b.ID,
		MentorName:  mentorName,
		LearnerName: learnerName,
		Date:        b.Date,
		Time:        b.Time,
		Warning:     warning,
	})
	if err != nil {
		slog.Warn("failed to publish booking activity", "booking_id", b.ID, "kind", kind, "error", err)
	}
}
