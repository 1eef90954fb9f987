package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/activity"
	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/chat"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/repository/repotest"
	"github.com/shafin2/skillsphere-backend/internal/video"
)

type mockChat struct {
	mu           sync.Mutex
	participants []chat.Participant
	rooms        []string
	meta         []chat.RoomMetadata
	upsertErr    error
	roomDelay    time.Duration
}

func (m *mockChat) UpsertParticipants(_ context.Context, participants []chat.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.participants = append(m.participants, participants...)
	return nil
}

func (m *mockChat) CreateOrGetRoom(ctx context.Context, roomID string, _ []string, meta chat.RoomMetadata) error {
	if m.roomDelay > 0 {
		select {
		case <-time.After(m.roomDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms = append(m.rooms, roomID)
	m.meta = append(m.meta, meta)
	return nil
}

func (m *mockChat) IssueUserToken(userID string) (string, error) {
	return "chat-token-" + userID, nil
}

func (m *mockChat) roomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

type mockVideo struct {
	rooms []string
	roles []video.Role
	ttls  []time.Duration
}

func (m *mockVideo) IssueRoomToken(roomName, userID string, role video.Role, ttl time.Duration) (video.Token, error) {
	m.rooms = append(m.rooms, roomName)
	m.roles = append(m.roles, role)
	m.ttls = append(m.ttls, ttl)
	return video.Token{Token: "video-token", RoomName: roomName, UserID: userID}, nil
}

type mockActivity struct {
	events []activity.Event
}

func (m *mockActivity) Publish(_ context.Context, event activity.Event) error {
	m.events = append(m.events, event)
	return nil
}

var (
	mentor  = identity.Caller{ID: "mentor-1", Name: "Mina", Roles: []repository.Role{repository.RoleMentor}}
	learner = identity.Caller{ID: "learner-1", Name: "Leo", Roles: []repository.Role{repository.RoleLearner}}
	outside = identity.Caller{ID: "other-1", Name: "Otto", Roles: []repository.Role{repository.RoleLearner}}
)

type fixture struct {
	repo  *repotest.Memory
	chat  *mockChat
	video *mockVideo
	feed  *mockActivity
	prov  *Provisioner
	svc   *Service
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repotest.NewMemory()
	repo.PutUser(repository.User{ID: mentor.ID, Name: mentor.Name, Roles: mentor.Roles, IsApproved: true, IsProfileComplete: true})
	repo.PutUser(repository.User{ID: learner.ID, Name: learner.Name, Roles: learner.Roles})
	f := &fixture{
		repo:  repo,
		chat:  &mockChat{},
		video: &mockVideo{},
		feed:  &mockActivity{},
		clock: time.Date(2026, 10, 5, 10, 0, 0, 0, time.UTC),
	}
	f.prov = NewProvisioner(repo, f.chat, time.Second)
	f.prov.now = func() time.Time { return f.clock }
	f.svc = NewService(repo, f.chat, f.video, f.prov, f.feed, Options{ChatAPIKey: "stream-key", VideoTokenTTL: time.Hour, ProviderTimeout: time.Second})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) putBooking(id string, status repository.BookingStatus) *repository.Booking {
	b := repository.Booking{
		ID:        id,
		MentorID:  mentor.ID,
		LearnerID: learner.ID,
		Date:      time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		Time:      "10:00",
		Status:    status,
	}
	f.repo.PutBooking(b)
	return &b
}

func TestProvision_CreatesRoomAndSession(t *testing.T) {
	f := newFixture(t)
	b := f.putBooking("b1", repository.BookingStatusConfirmed)

	s, err := f.prov.Provision(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ChatRoomID != "booking_b1" {
		t.Fatalf("unexpected chat room id: %s", s.ChatRoomID)
	}
	if want := "session_b1_" + "1791194400000"; s.VideoRoomID != want {
		t.Fatalf("unexpected video room id: %s (want %s)", s.VideoRoomID, want)
	}
	if s.Status != repository.SessionStatusUpcoming {
		t.Fatalf("expected upcoming, got %s", s.Status)
	}
	if len(f.chat.participants) != 2 || f.chat.participants[0].Role != "mentor" || f.chat.participants[1].Role != "learner" {
		t.Fatalf("unexpected participants: %+v", f.chat.participants)
	}
	if f.chat.meta[0].Name != "Session: Mina & Leo" || f.chat.meta[0].CreatedBy != mentor.ID {
		t.Fatalf("unexpected room metadata: %+v", f.chat.meta[0])
	}
}

func TestProvision_RejectsUnconfirmedBooking(t *testing.T) {
	f := newFixture(t)
	b := f.putBooking("b1", repository.BookingStatusPending)
	if _, err := f.prov.Provision(context.Background(), b); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestProvision_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.putBooking("b1", repository.BookingStatusConfirmed)
	ctx := context.Background()

	first, err := f.prov.Provision(ctx, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.prov.Provision(ctx, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same session, got %s and %s", first.ID, second.ID)
	}
	if f.chat.roomCount() != 1 {
		t.Fatalf("expected one room creation, got %d", f.chat.roomCount())
	}
}

func TestProvision_ConcurrentCallsShareOneSession(t *testing.T) {
	f := newFixture(t)
	f.chat.roomDelay = 20 * time.Millisecond
	b := f.putBooking("b1", repository.BookingStatusConfirmed)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.prov.Provision(context.Background(), b)
			errs[i] = err
			if s != nil {
				ids[i] = s.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("call %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("expected all calls to return %s, got %s", ids[0], ids[i])
		}
	}
	if f.repo.SessionCount() != 1 {
		t.Fatalf("expected one session, got %d", f.repo.SessionCount())
	}
}

func TestProvision_SharedCallSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.chat.roomDelay = 50 * time.Millisecond
	b := f.putBooking("b1", repository.BookingStatusConfirmed)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := f.prov.Provision(ctx, b)
		first <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	s, err := f.prov.Provision(context.Background(), b)
	if err != nil {
		t.Fatalf("second caller failed: %v", err)
	}
	if err := <-first; err != nil {
		t.Fatalf("cancelled caller failed: %v", err)
	}
	if s == nil || f.repo.SessionCount() != 1 {
		t.Fatalf("expected one session, got %d", f.repo.SessionCount())
	}
}

func TestProvision_ProviderFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.chat.upsertErr = errors.New("stream down")
	b := f.putBooking("b1", repository.BookingStatusConfirmed)

	_, err := f.prov.Provision(context.Background(), b)
	if apperr.KindOf(err) != apperr.KindExternalService {
		t.Fatalf("expected external service error, got %v", err)
	}
	if f.repo.SessionCount() != 0 {
		t.Fatal("expected no session to be written")
	}
}

// racingRepo hides the existing session from the first lookup so the insert
// loses against a row written by another process.
type racingRepo struct {
	*repotest.Memory
	lookups int
}

func (r *racingRepo) GetSessionByBooking(ctx context.Context, bookingID string) (*repository.Session, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.Memory.GetSessionByBooking(ctx, bookingID)
}

func TestProvision_LostInsertReturnsWinner(t *testing.T) {
	f := newFixture(t)
	b := f.putBooking("b1", repository.BookingStatusConfirmed)
	ctx := context.Background()
	winner, err := f.repo.CreateSession(ctx, repository.CreateSessionInput{BookingID: b.ID, MentorID: b.MentorID, LearnerID: b.LearnerID, ChatRoomID: "booking_b1", VideoRoomID: "session_b1_1"})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	p := NewProvisioner(&racingRepo{Memory: f.repo}, f.chat, time.Second)
	got, err := p.Provision(ctx, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("expected winner session %s, got %s", winner.ID, got.ID)
	}
	if f.repo.SessionCount() != 1 {
		t.Fatalf("expected one session, got %d", f.repo.SessionCount())
	}
}

func TestJoinAndLeave(t *testing.T) {
	f := newFixture(t)
	b := f.putBooking("b1", repository.BookingStatusConfirmed)
	ctx := context.Background()
	s, err := f.prov.Provision(ctx, b)
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	if _, err := f.svc.Join(ctx, s.ID, outside); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	joined, err := f.svc.Join(ctx, s.ID, learner)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if joined.Status != repository.SessionStatusInProgress || joined.StartedAt == nil || joined.LearnerJoinedAt == nil {
		t.Fatalf("unexpected session after join: %+v", joined)
	}
	startedAt := *joined.StartedAt

	f.clock = f.clock.Add(5 * time.Minute)
	joined, err = f.svc.Join(ctx, s.ID, mentor)
	if err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if !joined.StartedAt.Equal(startedAt) || joined.MentorJoinedAt == nil {
		t.Fatalf("second join must keep startedAt: %+v", joined)
	}

	f.clock = f.clock.Add(42*time.Minute + 59*time.Second)
	left, err := f.svc.Leave(ctx, s.ID, mentor)
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if left.Status != repository.SessionStatusCompleted || left.DurationMinutes != 47 {
		t.Fatalf("unexpected session after leave: status=%s duration=%d", left.Status, left.DurationMinutes)
	}
	stored, _ := f.repo.GetBooking(ctx, b.ID)
	if stored.Status != repository.BookingStatusCompleted {
		t.Fatalf("expected booking completed, got %s", stored.Status)
	}
	if len(f.feed.events) != 1 || f.feed.events[0].Kind != activity.EventSessionCompleted {
		t.Fatalf("unexpected activity events: %+v", f.feed.events)
	}

	if _, err := f.svc.Join(ctx, s.ID, learner); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict joining completed session, got %v", err)
	}
	if _, err := f.svc.Leave(ctx, s.ID, learner); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict leaving completed session, got %v", err)
	}
}

func TestLeave_WithoutJoinHasZeroDuration(t *testing.T) {
	f := newFixture(t)
	b := f.putBooking("b1", repository.BookingStatusCancelled)
	ctx := context.Background()
	s, err := f.repo.CreateSession(ctx, repository.CreateSessionInput{BookingID: b.ID, MentorID: b.MentorID, LearnerID: b.LearnerID})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	left, err := f.svc.Leave(ctx, s.ID, learner)
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if left.DurationMinutes != 0 {
		t.Fatalf("expected zero duration, got %d", left.DurationMinutes)
	}
	stored, _ := f.repo.GetBooking(ctx, b.ID)
	if stored.Status != repository.BookingStatusCancelled {
		t.Fatalf("cancelled booking must not change, got %s", stored.Status)
	}
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := DurationMinutes(nil, start); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := DurationMinutes(&start, start.Add(59*time.Second)); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := DurationMinutes(&start, start.Add(61*time.Minute)); got != 61 {
		t.Fatalf("expected 61, got %d", got)
	}
}

func TestUpdateNotesAndGet(t *testing.T) {
	f := newFixture(t)
	b := f.putBooking("b1", repository.BookingStatusConfirmed)
	ctx := context.Background()
	s, err := f.prov.Provision(ctx, b)
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	if _, err := f.svc.UpdateNotes(ctx, s.ID, outside, "x"); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	updated, err := f.svc.UpdateNotes(ctx, s.ID, learner, "review goroutines")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Notes != "review goroutines" {
		t.Fatalf("unexpected notes: %s", updated.Notes)
	}

	got, err := f.svc.Get(ctx, b.ID, mentor)
	if err != nil || got.ID != s.ID {
		t.Fatalf("expected session %s, got %v (%v)", s.ID, got, err)
	}
	if _, err := f.svc.Get(ctx, b.ID, outside); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.Get(ctx, "missing", mentor); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.prov.Provision(ctx, f.putBooking("b1", repository.BookingStatusConfirmed)); err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	list, err := f.svc.ListConversations(ctx, learner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one conversation, got %d", len(list))
	}
	c := list[0]
	if c.Counterpart.ID != mentor.ID || c.Counterpart.Name != "Mina" || c.Counterpart.Role != repository.RoleMentor {
		t.Fatalf("unexpected counterpart: %+v", c.Counterpart)
	}
	if c.Booking.Date != "2026-10-05" || c.Booking.Status != repository.BookingStatusConfirmed {
		t.Fatalf("unexpected booking summary: %+v", c.Booking)
	}
}

func TestVideoToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.putBooking("b1", repository.BookingStatusConfirmed)
	f.putBooking("b2", repository.BookingStatusPending)

	tok, err := f.svc.VideoToken(ctx, b.ID, learner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.RoomName != "booking_b1" {
		t.Fatalf("expected fallback room before provisioning, got %s", tok.RoomName)
	}
	s, err := f.prov.Provision(ctx, b)
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	tok, err = f.svc.VideoToken(ctx, b.ID, mentor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.RoomName != s.VideoRoomID {
		t.Fatalf("expected session video room, got %s", tok.RoomName)
	}
	if f.video.roles[1] != video.RolePublisher || f.video.ttls[1] != time.Hour {
		t.Fatalf("unexpected token grant: role=%s ttl=%s", f.video.roles[1], f.video.ttls[1])
	}

	if _, err := f.svc.VideoToken(ctx, "b2", learner); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for pending booking, got %v", err)
	}
	if _, err := f.svc.VideoToken(ctx, b.ID, outside); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestChatTokenAndOpenChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creds, err := f.svc.ChatToken(ctx, learner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Token != "chat-token-learner-1" || creds.APIKey != "stream-key" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}

	b := f.putBooking("b1", repository.BookingStatusConfirmed)
	ch, err := f.svc.OpenChannel(ctx, b.ID, mentor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.ChatRoomID != "booking_b1" || ch.Session == nil {
		t.Fatalf("unexpected channel: %+v", ch)
	}
	if _, err := f.svc.OpenChannel(ctx, b.ID, mentor); err != nil {
		t.Fatalf("unexpected error on reopen: %v", err)
	}
	if f.chat.roomCount() != 1 {
		t.Fatalf("expected one room creation, got %d", f.chat.roomCount())
	}
}
