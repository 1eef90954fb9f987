// Package repotest provides an in-memory Repository with the same conditional
// write semantics as the Postgres implementation, for use in tests.
package repotest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/repository"
)

type Memory struct {
	mu  sync.Mutex
	now func() time.Time
	seq int

	users         map[string]repository.User
	bookings      map[string]repository.Booking
	sessions      map[string]repository.Session
	notifications map[string]repository.Notification
	transcripts   map[string]repository.Transcript
	feedback      map[string]repository.Feedback

	// Calls counts write operations by method name.
	Calls map[string]int
	// FailNext makes the next call of the named method return the error.
	FailNext map[string]error
}

var _ repository.Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		now:           time.Now,
		users:         make(map[string]repository.User),
		bookings:      make(map[string]repository.Booking),
		sessions:      make(map[string]repository.Session),
		notifications: make(map[string]repository.Notification),
		transcripts:   make(map[string]repository.Transcript),
		feedback:      make(map[string]repository.Feedback),
		Calls:         make(map[string]int),
		FailNext:      make(map[string]error),
	}
}

// SetClock replaces the timestamp source used for CreatedAt/UpdatedAt.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) PutUser(u repository.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) PutBooking(b repository.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = m.tick()
	}
	m.bookings[b.ID] = b
}

func (m *Memory) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Memory) Notifications() []repository.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := slices.Collect(maps.Values(m.notifications))
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// tick returns a strictly increasing timestamp so ordering by CreatedAt is stable.
func (m *Memory) tick() time.Time {
	m.seq++
	return m.now().Add(time.Duration(m.seq) * time.Microsecond)
}

func (m *Memory) enter(method string) error {
	m.Calls[method]++
	if err, ok := m.FailNext[method]; ok {
		delete(m.FailNext, method)
		return err
	}
	return nil
}

func (m *Memory) GetUser(_ context.Context, userID string) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetUser"); err != nil {
		return nil, err
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	u.Roles = slices.Clone(u.Roles)
	return &u, nil
}

func (m *Memory) CreateBooking(_ context.Context, input repository.CreateBookingInput) (*repository.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateBooking"); err != nil {
		return nil, err
	}
	now := m.tick()
	b := repository.Booking{
		ID:        m.nextID("booking"),
		MentorID:  input.MentorID,
		LearnerID: input.LearnerID,
		Date:      input.Date,
		Time:      input.Time,
		Message:   input.Message,
		Status:    repository.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.bookings[b.ID] = b
	return &b, nil
}

func (m *Memory) GetBooking(_ context.Context, bookingID string) (*repository.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetBooking"); err != nil {
		return nil, err
	}
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) ListBookingsByLearner(_ context.Context, learnerID string) ([]repository.Booking, error) {
	return m.listBookings(func(b repository.Booking) bool { return b.LearnerID == learnerID }), nil
}

func (m *Memory) ListBookingsByMentor(_ context.Context, mentorID string) ([]repository.Booking, error) {
	return m.listBookings(func(b repository.Booking) bool { return b.MentorID == mentorID }), nil
}

func (m *Memory) listBookings(match func(repository.Booking) bool) []repository.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []repository.Booking
	for _, b := range m.bookings {
		if match(b) {
			list = append(list, b)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func (m *Memory) ListActiveBookingTimes(_ context.Context, mentorID string, date time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var times []string
	for _, b := range m.bookings {
		if b.MentorID != mentorID || !sameDay(b.Date, date) {
			continue
		}
		if b.Status == repository.BookingStatusPending || b.Status == repository.BookingStatusConfirmed {
			times = append(times, b.Time)
		}
	}
	sort.Strings(times)
	return times, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (m *Memory) TransitionBookingStatus(_ context.Context, input repository.TransitionBookingInput) (*repository.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("TransitionBookingStatus"); err != nil {
		return nil, err
	}
	b, ok := m.bookings[input.BookingID]
	if !ok || !slices.Contains(input.From, b.Status) {
		return nil, repository.ErrConditionFailed
	}
	b.Status = input.To
	b.UpdatedAt = m.tick()
	m.bookings[b.ID] = b
	return &b, nil
}

func (m *Memory) CreateSession(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateSession"); err != nil {
		return nil, err
	}
	for _, s := range m.sessions {
		if s.BookingID == input.BookingID {
			return nil, repository.ErrAlreadyExists
		}
	}
	now := m.tick()
	s := repository.Session{
		ID:          m.nextID("session"),
		BookingID:   input.BookingID,
		MentorID:    input.MentorID,
		LearnerID:   input.LearnerID,
		ChatRoomID:  input.ChatRoomID,
		VideoRoomID: input.VideoRoomID,
		Status:      repository.SessionStatusUpcoming,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.sessions[s.ID] = s
	return &s, nil
}

func (m *Memory) GetSession(_ context.Context, sessionID string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) GetSessionByBooking(_ context.Context, bookingID string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetSessionByBooking"); err != nil {
		return nil, err
	}
	for _, s := range m.sessions {
		if s.BookingID == bookingID {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListSessionsByParticipant(_ context.Context, userID string) ([]repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []repository.Session
	for _, s := range m.sessions {
		if s.IsParticipant(userID) {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *Memory) MarkSessionJoined(_ context.Context, input repository.MarkSessionJoinedInput) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[input.SessionID]
	if !ok || s.Status == repository.SessionStatusCompleted {
		return nil, repository.ErrConditionFailed
	}
	at := input.JoinedAt
	if s.MentorJoinedAt == nil && s.LearnerJoinedAt == nil {
		s.Status = repository.SessionStatusInProgress
		s.StartedAt = &at
	}
	switch input.Role {
	case repository.RoleMentor:
		s.MentorJoinedAt = &at
	case repository.RoleLearner:
		s.LearnerJoinedAt = &at
	}
	s.UpdatedAt = m.tick()
	m.sessions[s.ID] = s
	return &s, nil
}

func (m *Memory) CompleteSession(_ context.Context, input repository.CompleteSessionInput) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[input.SessionID]
	if !ok || s.Status == repository.SessionStatusCompleted {
		return nil, repository.ErrConditionFailed
	}
	endedAt := input.EndedAt
	s.Status = repository.SessionStatusCompleted
	s.EndedAt = &endedAt
	s.DurationMinutes = input.DurationMinutes
	s.UpdatedAt = m.tick()
	m.sessions[s.ID] = s
	return &s, nil
}

func (m *Memory) UpdateSessionNotes(_ context.Context, sessionID, notes string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	s.Notes = notes
	s.UpdatedAt = m.tick()
	m.sessions[s.ID] = s
	return &s, nil
}

func (m *Memory) CreateNotification(_ context.Context, input repository.CreateNotificationInput) (*repository.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateNotification"); err != nil {
		return nil, err
	}
	n := repository.Notification{
		ID:          m.nextID("notification"),
		UserID:      input.UserID,
		Type:        input.Type,
		BookingID:   input.BookingID,
		Message:     input.Message,
		MentorName:  input.MentorName,
		LearnerName: input.LearnerName,
		BookingDate: input.BookingDate,
		BookingTime: input.BookingTime,
		CreatedAt:   m.tick(),
	}
	m.notifications[n.ID] = n
	return &n, nil
}

func (m *Memory) ListNotificationsByUser(_ context.Context, userID string, limit int) ([]repository.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []repository.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *Memory) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, notificationID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[notificationID]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Read = true
	m.notifications[n.ID] = n
	return true, nil
}

func (m *Memory) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			m.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func cloneTranscript(t repository.Transcript) *repository.Transcript {
	t.Segments = slices.Clone(t.Segments)
	t.SpeakerMapping = maps.Clone(t.SpeakerMapping)
	t.Summary.KeyPoints = slices.Clone(t.Summary.KeyPoints)
	t.Summary.ActionItems = slices.Clone(t.Summary.ActionItems)
	t.Summary.Topics = slices.Clone(t.Summary.Topics)
	return &t
}

func (m *Memory) CreateTranscript(_ context.Context, input repository.CreateTranscriptInput) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateTranscript"); err != nil {
		return nil, err
	}
	for _, t := range m.transcripts {
		if t.BookingID == input.BookingID || t.SessionID == input.SessionID {
			return nil, repository.ErrAlreadyExists
		}
	}
	now := m.tick()
	t := repository.Transcript{
		ID:               m.nextID("transcript"),
		BookingID:        input.BookingID,
		SessionID:        input.SessionID,
		Learner:          input.Learner,
		Mentor:           input.Mentor,
		ExternalJobState: repository.TranscriptJobQueued,
		SessionStartTime: input.SessionStartTime,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.transcripts[t.ID] = t
	return cloneTranscript(t), nil
}

func (m *Memory) findTranscript(match func(repository.Transcript) bool) *repository.Transcript {
	for _, t := range m.transcripts {
		if match(t) {
			return cloneTranscript(t)
		}
	}
	return nil
}

func (m *Memory) GetTranscriptBySessionID(_ context.Context, sessionID string) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTranscript(func(t repository.Transcript) bool { return t.SessionID == sessionID }), nil
}

func (m *Memory) GetTranscriptByBooking(_ context.Context, bookingID string) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTranscript(func(t repository.Transcript) bool { return t.BookingID == bookingID }), nil
}

func (m *Memory) GetTranscriptByJobID(_ context.Context, jobID string) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTranscript(func(t repository.Transcript) bool { return jobID != "" && t.ExternalJobID == jobID }), nil
}

func (m *Memory) ListTranscriptsByParticipant(_ context.Context, userID string) ([]repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []repository.Transcript
	for _, t := range m.transcripts {
		if t.IsParticipant(userID) {
			list = append(list, *cloneTranscript(t))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *Memory) updateTranscript(id string, guard func(repository.Transcript) bool, apply func(*repository.Transcript)) (*repository.Transcript, error) {
	t, ok := m.transcripts[id]
	if !ok || !guard(t) {
		return nil, repository.ErrConditionFailed
	}
	apply(&t)
	t.Version++
	t.UpdatedAt = m.tick()
	m.transcripts[id] = t
	return cloneTranscript(t), nil
}

func (m *Memory) MarkTranscriptProcessing(_ context.Context, input repository.MarkTranscriptProcessingInput) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateTranscript(input.TranscriptID,
		func(t repository.Transcript) bool { return t.ExternalJobState == repository.TranscriptJobQueued },
		func(t *repository.Transcript) {
			t.Audio = input.Audio
			t.ExternalJobID = input.JobID
			t.ExternalJobState = repository.TranscriptJobProcessing
		})
}

func (m *Memory) SaveTranscriptContent(_ context.Context, input repository.SaveTranscriptContentInput) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["SaveTranscriptContent"]++
	return m.updateTranscript(input.TranscriptID,
		func(t repository.Transcript) bool { return t.Version == input.ExpectedVersion },
		func(t *repository.Transcript) {
			t.Segments = slices.Clone(input.Segments)
			t.FullText = input.FullText
			t.DurationSeconds = input.DurationSeconds
		})
}

func (m *Memory) CompleteTranscript(_ context.Context, input repository.CompleteTranscriptInput) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["CompleteTranscript"]++
	return m.updateTranscript(input.TranscriptID,
		func(t repository.Transcript) bool { return t.ExternalJobState == repository.TranscriptJobProcessing },
		func(t *repository.Transcript) {
			completedAt := input.CompletedAt
			t.Segments = slices.Clone(input.Segments)
			t.FullText = input.FullText
			t.DurationSeconds = input.DurationSeconds
			t.Summary = input.Summary
			t.ExternalJobState = repository.TranscriptJobCompleted
			t.WebhookReceived = true
			if t.SessionEndTime == nil {
				t.SessionEndTime = &completedAt
			}
		})
}

func (m *Memory) FailTranscript(_ context.Context, transcriptID string) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateTranscript(transcriptID,
		func(t repository.Transcript) bool { return !t.ExternalJobState.IsTerminal() },
		func(t *repository.Transcript) {
			t.ExternalJobState = repository.TranscriptJobError
			t.WebhookReceived = true
		})
}

func (m *Memory) SetTranscriptSpeakerMapping(_ context.Context, transcriptID string, mapping map[string]repository.Speaker) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateTranscript(transcriptID,
		func(repository.Transcript) bool { return true },
		func(t *repository.Transcript) { t.SpeakerMapping = maps.Clone(mapping) })
}

func (m *Memory) StopTranscript(_ context.Context, transcriptID string, endedAt time.Time) (*repository.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateTranscript(transcriptID,
		func(repository.Transcript) bool { return true },
		func(t *repository.Transcript) { t.SessionEndTime = &endedAt })
}

func (m *Memory) DeleteTranscript(_ context.Context, transcriptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transcripts[transcriptID]; !ok {
		return false, nil
	}
	delete(m.transcripts, transcriptID)
	return true, nil
}

func (m *Memory) CreateFeedback(_ context.Context, input repository.CreateFeedbackInput) (*repository.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.feedback {
		if f.BookingID == input.BookingID {
			return nil, repository.ErrAlreadyExists
		}
	}
	f := repository.Feedback{
		ID:          m.nextID("feedback"),
		BookingID:   input.BookingID,
		MentorID:    input.MentorID,
		LearnerID:   input.LearnerID,
		Rating:      input.Rating,
		Comment:     input.Comment,
		IsAnonymous: input.IsAnonymous,
		CreatedAt:   m.tick(),
	}
	m.feedback[f.ID] = f
	return &f, nil
}

func (m *Memory) ListFeedbackByMentor(_ context.Context, mentorID string, limit, offset int) ([]repository.Feedback, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []repository.Feedback
	for _, f := range m.feedback {
		if f.MentorID == mentorID {
			list = append(list, f)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	total := len(list)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return list[offset:end], total, nil
}

func (m *Memory) GetMentorRatingStats(_ context.Context, mentorID string) (repository.MentorRatingStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats repository.MentorRatingStats
	sum := 0
	for _, f := range m.feedback {
		if f.MentorID == mentorID {
			sum += f.Rating
			stats.TotalReviews++
		}
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalReviews)
	}
	return stats, nil
}
