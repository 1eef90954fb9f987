package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shafin2/skillsphere-backend/internal/apperr"
)

const (
	firstSlotHour = 9
	lastSlotHour  = 21

	DateLayout = "2006-01-02"
)

type Availability struct {
	Date           string   `json:"date"`
	AvailableSlots []string `json:"availableSlots"`
	BookedSlots    []string `json:"bookedSlots"`
	TotalSlots     int      `json:"totalSlots"`
	AvailableCount int      `json:"availableCount"`
}

// slotGrid returns the hourly labels from 09:00 through 21:00 inclusive.
func slotGrid() []string {
	grid := make([]string, 0, lastSlotHour-firstSlotHour+1)
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		grid = append(grid, fmt.Sprintf("%02d:00", h))
	}
	return grid
}

// ParseDate accepts "YYYY-MM-DD" or an RFC 3339 timestamp and returns the
// calendar day at midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperr.Validation("Date is required")
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, raw)
		if tsErr != nil {
			return time.Time{}, apperr.Validation("Date must be formatted as YYYY-MM-DD")
		}
		d = ts
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
}

func (s *Service) AvailableSlots(ctx context.Context, mentorID, rawDate string) (Availability, error) {
	date, err := ParseDate(rawDate)
	if err != nil {
		return Availability{}, err
	}
	booked, err := s.repo.ListActiveBookingTimes(ctx, mentorID, date)
	if err != nil {
		return Availability{}, apperr.Internal("failed to load booked slots", err)
	}
	grid := slotGrid()
	available := make([]string, 0, len(grid))
	for _, slot := range grid {
		if !slices.Contains(booked, slot) {
			available = append(available, slot)
		}
	}
	if booked == nil {
		booked = []string{}
	}
	return Availability{
		Date:           date.Format(DateLayout),
		AvailableSlots: available,
		BookedSlots:    booked,
		TotalSlots:     len(grid),
		AvailableCount: len(available),
	}, nil
}
