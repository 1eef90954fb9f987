package httpapi

import (
	"time"

	"github.com/shafin2/skillsphere-backend/internal/booking"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

const dateLayout = "2006-01-02"

type bookingResponse struct {
	ID        string                   `json:"id"`
	MentorID  string                   `json:"mentorId"`
	LearnerID string                   `json:"learnerId"`
	Date      string                   `json:"date"`
	Time      string                   `json:"time"`
	Message   string                   `json:"message"`
	Status    repository.BookingStatus `json:"status"`
	Mentor    *booking.Party           `json:"mentor,omitempty"`
	Learner   *booking.Party           `json:"learner,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

func presentBooking(b *repository.Booking) *bookingResponse {
	if b == nil {
		return nil
	}
	return &bookingResponse{
		ID:        b.ID,
		MentorID:  b.MentorID,
		LearnerID: b.LearnerID,
		Date:      b.Date.Format(dateLayout),
		Time:      b.Time,
		Message:   b.Message,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func presentBookingView(v booking.View) *bookingResponse {
	r := presentBooking(v.Booking)
	if r == nil {
		return nil
	}
	r.Mentor = &v.Mentor
	r.Learner = &v.Learner
	return r
}

type sessionResponse struct {
	ID              string                   `json:"id"`
	BookingID       string                   `json:"bookingId"`
	MentorID        string                   `json:"mentorId"`
	LearnerID       string                   `json:"learnerId"`
	ChatRoomID      string                   `json:"chatRoomId"`
	VideoRoomID     string                   `json:"videoRoomId"`
	Status          repository.SessionStatus `json:"status"`
	MentorJoinedAt  *time.Time               `json:"mentorJoinedAt,omitempty"`
	LearnerJoinedAt *time.Time               `json:"learnerJoinedAt,omitempty"`
	StartedAt       *time.Time               `json:"startedAt,omitempty"`
	EndedAt         *time.Time               `json:"endedAt,omitempty"`
	DurationMinutes int                      `json:"duration"`
	Notes           string                   `json:"notes"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

func presentSession(s *repository.Session) *sessionResponse {
	if s == nil {
		return nil
	}
	return &sessionResponse{
		ID:              s.ID,
		BookingID:       s.BookingID,
		MentorID:        s.MentorID,
		LearnerID:       s.LearnerID,
		ChatRoomID:      s.ChatRoomID,
		VideoRoomID:     s.VideoRoomID,
		Status:          s.Status,
		MentorJoinedAt:  s.MentorJoinedAt,
		LearnerJoinedAt: s.LearnerJoinedAt,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		DurationMinutes: s.DurationMinutes,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type notificationResponse struct {
	ID          string                      `json:"id"`
	Type        repository.NotificationType `json:"type"`
	BookingID   string                      `json:"bookingId"`
	Message     string                      `json:"message"`
	Read        bool                        `json:"read"`
	MentorName  string                      `json:"mentorName"`
	LearnerName string                      `json:"learnerName"`
	BookingDate string                      `json:"bookingDate"`
	BookingTime string                      `json:"bookingTime"`
	CreatedAt   time.Time                   `json:"createdAt"`
}

func presentNotifications(ns []repository.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationResponse{
			ID:          n.ID,
			Type:        n.Type,
			BookingID:   n.BookingID,
			Message:     n.Message,
			Read:        n.Read,
			MentorName:  n.MentorName,
			LearnerName: n.LearnerName,
			BookingDate: n.BookingDate.Format(dateLayout),
			BookingTime: n.BookingTime,
			CreatedAt:   n.CreatedAt,
		})
	}
	return out
}

type transcriptResponse struct {
	ID               string                           `json:"id"`
	BookingID        string                           `json:"bookingId"`
	SessionID        string                           `json:"sessionId"`
	Learner          repository.TranscriptParticipant `json:"learner"`
	Mentor           repository.TranscriptParticipant `json:"mentor"`
	Segments         []repository.TranscriptSegment   `json:"transcript"`
	FullText         string                           `json:"fullText"`
	DurationSeconds  int                              `json:"duration"`
	JobState         repository.TranscriptJobState    `json:"jobStatus,omitempty"`
	SpeakerMapping   map[string]repository.Speaker    `json:"speakerMapping,omitempty"`
	Summary          repository.TranscriptSummary     `json:"summary"`
	SessionStartTime time.Time                        `json:"sessionStartTime"`
	SessionEndTime   *time.Time                       `json:"sessionEndTime,omitempty"`
	CreatedAt        time.Time                        `json:"createdAt"`
	UpdatedAt        time.Time                        `json:"updatedAt"`
}

func presentTranscript(t *repository.Transcript) *transcriptResponse {
	if t == nil {
		return nil
	}
	segments := t.Segments
	if segments == nil {
		segments = []repository.TranscriptSegment{}
	}
	return &transcriptResponse{
		ID:               t.ID,
		BookingID:        t.BookingID,
		SessionID:        t.SessionID,
		Learner:          t.Learner,
		Mentor:           t.Mentor,
		Segments:         segments,
		FullText:         t.FullText,
		DurationSeconds:  t.DurationSeconds,
		JobState:         t.ExternalJobState,
		SpeakerMapping:   t.SpeakerMapping,
		Summary:          t.Summary,
		SessionStartTime: t.SessionStartTime,
		SessionEndTime:   t.SessionEndTime,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

type feedbackResponse struct {
	ID        string    `json:"id"`
	BookingID string    `json:"bookingId"`
	MentorID  string    `json:"mentorId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func presentFeedback(f *repository.Feedback) *feedbackResponse {
	if f == nil {
		return nil
	}
	return &feedbackResponse{
		ID:        f.ID,
		BookingID: f.BookingID,
		MentorID:  f.MentorID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		CreatedAt: f.CreatedAt,
	}
}
