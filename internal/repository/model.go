package repository

import (
	"slices"
	"time"
)

type Role string

const (
	RoleLearner Role = "learner"
	RoleMentor  Role = "mentor"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID                string
	Name              string
	Email             string
	Avatar            string
	Roles             []Role
	IsApproved        bool
	IsProfileComplete bool
}

func (u *User) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// IsBookableMentor reports whether learners may request sessions with this user.
func (u *User) IsBookableMentor() bool {
	return u.HasRole(RoleMentor) && u.IsApproved && u.IsProfileComplete
}

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

type Booking struct {
	ID        string
	MentorID  string
	LearnerID string
	// Date is the calendar day at midnight UTC.
	Date      time.Time
	Time      string
	Message   string
	Status    BookingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Booking) IsParticipant(userID string) bool {
	return userID != "" && (b.MentorID == userID || b.LearnerID == userID)
}

// Counterpart returns the other participant of the booking.
func (b *Booking) Counterpart(userID string) string {
	if b.MentorID == userID {
		return b.LearnerID
	}
	return b.MentorID
}

type SessionStatus string

const (
	SessionStatusUpcoming   SessionStatus = "upcoming"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

type Session struct {
	ID              string
	BookingID       string
	MentorID        string
	LearnerID       string
	ChatRoomID      string
	VideoRoomID     string
	Status          SessionStatus
	MentorJoinedAt  *time.Time
	LearnerJoinedAt *time.Time
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationMinutes int
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Session) IsParticipant(userID string) bool {
	return userID != "" && (s.MentorID == userID || s.LearnerID == userID)
}

// RoleOf returns the role userID plays in the session, or "" for outsiders.
func (s *Session) RoleOf(userID string) Role {
	switch userID {
	case "":
		return ""
	case s.MentorID:
		return RoleMentor
	case s.LearnerID:
		return RoleLearner
	default:
		return ""
	}
}

type NotificationType string

const (
	NotificationNewBookingRequest NotificationType = "new_booking_request"
	NotificationBookingConfirmed  NotificationType = "booking_confirmed"
	NotificationBookingRejected   NotificationType = "booking_rejected"
	NotificationBookingCancelled  NotificationType = "booking_cancelled"
)

type Notification struct {
	ID          string
	UserID      string
	Type        NotificationType
	BookingID   string
	Message     string
	Read        bool
	MentorName  string
	LearnerName string
	BookingDate time.Time
	BookingTime string
	CreatedAt   time.Time
}

type Speaker string

const (
	SpeakerLearner Speaker = "learner"
	SpeakerMentor  Speaker = "mentor"
	SpeakerUnknown Speaker = "unknown"
)

type TranscriptSegment struct {
	Speaker     Speaker `json:"speaker"`
	Text        string  `json:"text"`
	StartTimeMs int64   `json:"startTime"`
	EndTimeMs   int64   `json:"endTime"`
	Confidence  float64 `json:"confidence"`
}

type TranscriptJobState string

const (
	TranscriptJobQueued     TranscriptJobState = "queued"
	TranscriptJobProcessing TranscriptJobState = "processing"
	TranscriptJobCompleted  TranscriptJobState = "completed"
	TranscriptJobError      TranscriptJobState = "error"
)

func (s TranscriptJobState) IsTerminal() bool {
	return s == TranscriptJobCompleted || s == TranscriptJobError
}

type TranscriptParticipant struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type TranscriptSummary struct {
	KeyPoints   []string `json:"keyPoints"`
	ActionItems []string `json:"actionItems"`
	Topics      []string `json:"topics"`
	Sentiment   string   `json:"sentiment"`
}

type TranscriptAudio struct {
	Reference string
	Filename  string
	SizeBytes int64
}

type Transcript struct {
	ID               string
	BookingID        string
	SessionID        string
	Learner          TranscriptParticipant
	Mentor           TranscriptParticipant
	Segments         []TranscriptSegment
	FullText         string
	DurationSeconds  int
	Audio            TranscriptAudio
	ExternalJobID    string
	ExternalJobState TranscriptJobState
	WebhookReceived  bool
	// SpeakerMapping overrides the default label heuristic, keyed by provider speaker label.
	SpeakerMapping   map[string]Speaker
	Summary          TranscriptSummary
	SessionStartTime time.Time
	SessionEndTime   *time.Time
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t *Transcript) IsParticipant(userID string) bool {
	return userID != "" && (t.Learner.UserID == userID || t.Mentor.UserID == userID)
}

type Feedback struct {
	ID          string
	BookingID   string
	MentorID    string
	LearnerID   string
	Rating      int
	Comment     string
	IsAnonymous bool
	CreatedAt   time.Time
}
