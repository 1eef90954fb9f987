package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/activity"
	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/chat"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/notification"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/repository/repotest"
	"github.com/shafin2/skillsphere-backend/internal/session"
)

type mockChat struct {
	mu          sync.Mutex
	upsertCalls int
	rooms       []string
	roomErr     error
}

func (m *mockChat) UpsertParticipants(_ context.Context, _ []chat.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	return nil
}

func (m *mockChat) CreateOrGetRoom(_ context.Context, roomID string, _ []string, _ chat.RoomMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roomErr != nil {
		return m.roomErr
	}
	m.rooms = append(m.rooms, roomID)
	return nil
}

func (m *mockChat) IssueUserToken(userID string) (string, error) {
	return "token-" + userID, nil
}

type mockActivity struct {
	mu     sync.Mutex
	events []activity.Event
}

func (m *mockActivity) Publish(_ context.Context, event activity.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

var (
	fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	mentor   = identity.Caller{ID: "mentor-1", Name: "Mina", Roles: []repository.Role{repository.RoleMentor}}
	learner  = identity.Caller{ID: "learner-1", Name: "Leo", Roles: []repository.Role{repository.RoleLearner}}
)

type fixture struct {
	repo  *repotest.Memory
	chat  *mockChat
	feed  *mockActivity
	svc   *Service
	prov  *session.Provisioner
	notes *notification.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repotest.NewMemory()
	repo.PutUser(repository.User{ID: mentor.ID, Name: mentor.Name, Roles: mentor.Roles, IsApproved: true, IsProfileComplete: true})
	repo.PutUser(repository.User{ID: learner.ID, Name: learner.Name, Roles: learner.Roles})
	repo.PutUser(repository.User{ID: "mentor-pending", Name: "Pat", Roles: []repository.Role{repository.RoleMentor}, IsProfileComplete: true})

	cp := &mockChat{}
	feed := &mockActivity{}
	notes := notification.NewService(repo)
	prov := session.NewProvisioner(repo, cp, time.Second)
	svc := NewService(repo, notes, prov, feed, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{repo: repo, chat: cp, feed: feed, svc: svc, prov: prov, notes: notes}
}

func (f *fixture) createBooking(t *testing.T, slot string) *repository.Booking {
	t.Helper()
	view, err := f.svc.Create(context.Background(), learner, CreateInput{
		MentorID: mentor.ID,
		Date:     "2026-10-05",
		Time:     slot,
		Message:  "  intro to Go  ",
	})
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}
	return view.Booking
}

func notificationsFor(repo *repotest.Memory, userID string, typ repository.NotificationType) []repository.Notification {
	var out []repository.Notification
	for _, n := range repo.Notifications() {
		if n.UserID == userID && n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func TestCreate_PersistsPendingAndNotifiesMentor(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "10:00")

	if b.Status != repository.BookingStatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	if b.Message != "intro to Go" {
		t.Fatalf("expected trimmed message, got %q", b.Message)
	}
	got := notificationsFor(f.repo, mentor.ID, repository.NotificationNewBookingRequest)
	if len(got) != 1 {
		t.Fatalf("expected one new_booking_request notification, got %d", len(got))
	}
	if got[0].LearnerName != "Leo" || got[0].MentorName != "Mina" {
		t.Fatalf("unexpected name snapshot: %+v", got[0])
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name   string
		caller identity.Caller
		input  CreateInput
		kind   apperr.Kind
	}{
		{"mentor caller", mentor, CreateInput{MentorID: mentor.ID, Date: "2026-10-05", Time: "10:00"}, apperr.KindForbidden},
		{"missing time", learner, CreateInput{MentorID: mentor.ID, Date: "2026-10-05"}, apperr.KindValidation},
		{"missing mentor", learner, CreateInput{Date: "2026-10-05", Time: "10:00"}, apperr.KindValidation},
		{"bad time label", learner, CreateInput{MentorID: mentor.ID, Date: "2026-10-05", Time: "10am"}, apperr.KindValidation},
		{"bad date", learner, CreateInput{MentorID: mentor.ID, Date: "05/10/2026", Time: "10:00"}, apperr.KindValidation},
		{"past slot", learner, CreateInput{MentorID: mentor.ID, Date: "2026-10-01", Time: "11:00"}, apperr.KindValidation},
		{"long message", learner, CreateInput{MentorID: mentor.ID, Date: "2026-10-05", Time: "10:00", Message: strings.Repeat("x", 501)}, apperr.KindValidation},
		{"unapproved mentor", learner, CreateInput{MentorID: "mentor-pending", Date: "2026-10-05", Time: "10:00"}, apperr.KindValidation},
		{"unknown mentor", learner, CreateInput{MentorID: "ghost", Date: "2026-10-05", Time: "10:00"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		_, err := f.svc.Create(ctx, tt.caller, tt.input)
		if apperr.KindOf(err) != tt.kind {
			t.Fatalf("%s: expected %s, got %v", tt.name, tt.kind, err)
		}
	}
	if n := f.repo.Calls["CreateBooking"]; n != 0 {
		t.Fatalf("expected no bookings to be written, got %d", n)
	}
}

func TestCreate_SameDayLaterSlotIsFuture(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), learner, CreateInput{MentorID: mentor.ID, Date: "2026-10-01", Time: "13:00"})
	if err != nil {
		t.Fatalf("expected later slot today to be accepted, got %v", err)
	}
}

func TestConfirm_ProvisionsSessionOnce(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "10:00")
	ctx := context.Background()

	res, err := f.svc.Confirm(ctx, b.ID, mentor.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Booking.Status != repository.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", res.Booking.Status)
	}
	if res.Warning != "" || res.Session == nil {
		t.Fatalf("expected provisioned session, got warning %q", res.Warning)
	}
	if res.Session.ChatRoomID != "booking_"+b.ID {
		t.Fatalf("unexpected chat room id: %s", res.Session.ChatRoomID)
	}
	if !strings.HasPrefix(res.Session.VideoRoomID, "session_"+b.ID+"_") {
		t.Fatalf("unexpected video room id: %s", res.Session.VideoRoomID)
	}

	_, err = f.svc.Confirm(ctx, b.ID, mentor.ID)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict on second confirm, got %v", err)
	}
	if f.repo.SessionCount() != 1 {
		t.Fatalf("expected exactly one session, got %d", f.repo.SessionCount())
	}
	if len(f.chat.rooms) != 1 {
		t.Fatalf("expected one room creation, got %d", len(f.chat.rooms))
	}
	if len(notificationsFor(f.repo, learner.ID, repository.NotificationBookingConfirmed)) != 1 {
		t.Fatal("expected one booking_confirmed notification")
	}
}

func TestConfirm_Guards(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "10:00")
	ctx := context.Background()

	if _, err := f.svc.Confirm(ctx, "missing", mentor.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Confirm(ctx, b.ID, learner.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestConfirm_LostRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "10:00")
	f.repo.FailNext["TransitionBookingStatus"] = repository.ErrConditionFailed

	_, err := f.svc.Confirm(context.Background(), b.ID, mentor.ID)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.repo.SessionCount() != 0 {
		t.Fatal("expected no session after lost race")
	}
}

func TestConfirm_ProvisionFailureKeepsBookingConfirmed(t *testing.T) {
	f := newFixture(t)
	f.chat.roomErr = errors.New("chat unavailable")
	b := f.createBooking(t, "10:00")
	ctx := context.Background()

	res, err := f.svc.Confirm(ctx, b.ID, mentor.ID)
	if err != nil {
		t.Fatalf("expected confirmation to succeed, got %v", err)
	}
	if res.Warning == "" {
		t.Fatal("expected warning for failed provisioning")
	}
	stored, _ := f.repo.GetBooking(ctx, b.ID)
	if stored.Status != repository.BookingStatusConfirmed {
		t.Fatalf("expected booking to stay confirmed, got %s", stored.Status)
	}
	if f.repo.SessionCount() != 0 {
		t.Fatal("expected no session to be written")
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "10:00")
	ctx := context.Background()

	updated, err := f.svc.Reject(ctx, b.ID, mentor.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != repository.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	if len(notificationsFor(f.repo, learner.ID, repository.NotificationBookingRejected)) != 1 {
		t.Fatal("expected one booking_rejected notification")
	}
	if _, err := f.svc.Reject(ctx, b.ID, mentor.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict on second reject, got %v", err)
	}
}

func TestCancel_LearnerCannotCancelConfirmed(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "10:00")
	ctx := context.Background()
	if _, err := f.svc.Confirm(ctx, b.ID, mentor.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, b.ID, learner.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for learner, got %v", err)
	}
	updated, err := f.svc.Cancel(ctx, b.ID, mentor.ID)
	if err != nil {
		t.Fatalf("expected mentor cancel to succeed, got %v", err)
	}
	if updated.Status != repository.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	got := notificationsFor(f.repo, learner.ID, repository.NotificationBookingCancelled)
	if len(got) != 1 {
		t.Fatalf("expected one cancellation notice to learner, got %d", len(got))
	}
	if !strings.HasPrefix(got[0].Message, "Mina cancelled") {
		t.Fatalf("unexpected message: %s", got[0].Message)
	}
	if len(notificationsFor(f.repo, mentor.ID, repository.NotificationBookingCancelled)) != 0 {
		t.Fatal("canceller must not be notified")
	}
}

func TestCancel_LearnerCancelsPending(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "10:00")
	ctx := context.Background()

	if _, err := f.svc.Cancel(ctx, b.ID, "stranger"); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, b.ID, learner.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notificationsFor(f.repo, mentor.ID, repository.NotificationBookingCancelled)) != 1 {
		t.Fatal("expected mentor to be notified")
	}
	if _, err := f.svc.Cancel(ctx, b.ID, learner.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for terminal booking, got %v", err)
	}
}

func TestComplete_RequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "10:00")
	ctx := context.Background()

	if _, err := f.svc.Complete(ctx, b.ID, learner.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for pending booking, got %v", err)
	}
	if _, err := f.svc.Confirm(ctx, b.ID, mentor.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	updated, err := f.svc.Complete(ctx, b.ID, learner.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != repository.BookingStatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
	if _, err := f.svc.Cancel(ctx, b.ID, mentor.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected completed booking to be terminal, got %v", err)
	}
}

func TestAvailableSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createBooking(t, "10:00")
	rejected := f.createBooking(t, "11:00")
	if _, err := f.svc.Reject(ctx, rejected.ID, mentor.ID); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	got, err := f.svc.AvailableSlots(ctx, mentor.ID, "2026-10-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalSlots != 13 || got.AvailableCount != 12 {
		t.Fatalf("unexpected counts: total=%d available=%d", got.TotalSlots, got.AvailableCount)
	}
	if len(got.BookedSlots) != 1 || got.BookedSlots[0] != "10:00" {
		t.Fatalf("unexpected booked slots: %v", got.BookedSlots)
	}
	if got.AvailableSlots[0] != "09:00" || got.AvailableSlots[len(got.AvailableSlots)-1] != "21:00" {
		t.Fatalf("unexpected slot grid: %v", got.AvailableSlots)
	}

	if _, err := f.svc.AvailableSlots(ctx, mentor.ID, ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createBooking(t, "10:00")
	f.createBooking(t, "12:00")

	views, err := f.svc.ListMine(ctx, learner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(views))
	}
	if views[0].Time != "12:00" {
		t.Fatalf("expected newest first, got %s", views[0].Time)
	}
	if views[0].Mentor.Name != "Mina" || views[0].Learner.Name != "Leo" {
		t.Fatalf("expected enriched names, got %+v %+v", views[0].Mentor, views[0].Learner)
	}

	mentorViews, err := f.svc.ListMine(ctx, mentor)
	if err != nil || len(mentorViews) != 2 {
		t.Fatalf("expected mentor to see 2 bookings, got %d (%v)", len(mentorViews), err)
	}
	if _, err := f.svc.ListMine(ctx, identity.Caller{ID: "admin", Roles: []repository.Role{repository.RoleAdmin}}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for admin-only caller, got %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBooking(t, "15:00")

	res, err := f.svc.Confirm(ctx, b.ID, mentor.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	again, err := f.prov.Provision(ctx, res.Booking)
	if err != nil {
		t.Fatalf("re-provision failed: %v", err)
	}
	if again.ID != res.Session.ID || len(f.chat.rooms) != 1 {
		t.Fatal("expected re-provisioning to return the existing session without a new room")
	}
	if _, err := f.svc.Complete(ctx, b.ID, mentor.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	terminal := []struct {
		name string
		call func() error
	}{
		{"confirm", func() error { _, err := f.svc.Confirm(ctx, b.ID, mentor.ID); return err }},
		{"reject", func() error { _, err := f.svc.Reject(ctx, b.ID, mentor.ID); return err }},
		{"complete", func() error { _, err := f.svc.Complete(ctx, b.ID, mentor.ID); return err }},
		{"mentor cancel", func() error { _, err := f.svc.Cancel(ctx, b.ID, mentor.ID); return err }},
		{"learner cancel", func() error { _, err := f.svc.Cancel(ctx, b.ID, learner.ID); return err }},
	}
	for _, tc := range terminal {
		if err := tc.call(); apperr.KindOf(err) != apperr.KindConflict {
			t.Fatalf("%s on a completed booking: expected conflict, got %v", tc.name, err)
		}
	}
	stored, err := f.repo.GetBooking(ctx, b.ID)
	if err != nil || stored.Status != repository.BookingStatusCompleted {
		t.Fatalf("expected booking to stay completed, got %+v (%v)", stored, err)
	}

	kinds := make([]activity.EventKind, 0, len(f.feed.events))
	for _, e := range f.feed.events {
		kinds = append(kinds, e.Kind)
	}
	want := []activity.EventKind{activity.EventBookingRequested, activity.EventBookingConfirmed, activity.EventBookingCompleted}
	if len(kinds) != len(want) {
		t.Fatalf("unexpected activity events: %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("unexpected activity events: %v", kinds)
		}
	}
}
