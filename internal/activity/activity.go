package activity

import (
	"context"
	"time"
)

type EventKind string

const (
	EventBookingRequested EventKind = "booking_requested"
	EventBookingConfirmed EventKind = "booking_confirmed"
	EventBookingRejected  EventKind = "booking_rejected"
	EventBookingCancelled EventKind = "booking_cancelled"
	EventBookingCompleted EventKind = "booking_completed"
	EventSessionCompleted EventKind = "session_completed"
)

type Event struct {
	Kind        EventKind
	BookingID   string
	MentorName  string
	LearnerName string
	Date        time.Time
	Time        string
	Warning     string
}

// Publisher mirrors booking lifecycle events to an operations feed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
