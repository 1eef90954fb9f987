package feedback

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

const (
	maxCommentLength = 1000
	defaultPageSize  = 10
	maxPageSize      = 50
)

type SubmitInput struct {
	BookingID string
	Rating    int
	Comment   string
}

// Entry is a single review as shown publicly; the learner is never exposed.
type Entry struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

type Page struct {
	Feedbacks  []Entry    `json:"feedbacks"`
	Pagination Pagination `json:"pagination"`
}

type Stats struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

type Service struct {
	repo repository.Repository
}

func NewService(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Submit(ctx context.Context, caller identity.Caller, input SubmitInput) (*repository.Feedback, error) {
	if strings.TrimSpace(input.BookingID) == "" {
		return nil, apperr.Validation("Booking ID is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, apperr.Validation("Comment must be 1000 characters or fewer")
	}

	b, err := s.repo.GetBooking(ctx, input.BookingID)
	if err != nil {
		return nil, apperr.Internal("failed to load booking", err)
	}
	if b == nil {
		return nil, apperr.NotFound("Booking not found")
	}
	if b.LearnerID != caller.ID {
		return nil, apperr.Forbidden("Only the learner can give feedback for this booking")
	}
	if b.Status != repository.BookingStatusCompleted {
		return nil, apperr.Conflict("Booking must be completed to give feedback")
	}

	f, err := s.repo.CreateFeedback(ctx, repository.CreateFeedbackInput{
		BookingID:   b.ID,
		MentorID:    b.MentorID,
		LearnerID:   caller.ID,
		Rating:      input.Rating,
		Comment:     comment,
		IsAnonymous: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperr.Conflict("Feedback already submitted for this booking")
		}
		return nil, apperr.Internal("failed to save feedback", err)
	}
	slog.Info("feedback submitted", "booking_id", b.ID, "mentor_id", b.MentorID, "rating", input.Rating)
	return f, nil
}

func (s *Service) mentorExists(ctx context.Context, mentorID string) error {
	u, err := s.repo.GetUser(ctx, mentorID)
	if err != nil {
		return apperr.Internal("failed to load mentor", err)
	}
	if u == nil || !u.HasRole(repository.RoleMentor) {
		return apperr.NotFound("Mentor not found")
	}
	return nil
}

func (s *Service) MentorFeedback(ctx context.Context, mentorID string, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	if err := s.mentorExists(ctx, mentorID); err != nil {
		return Page{}, err
	}

	list, total, err := s.repo.ListFeedbackByMentor(ctx, mentorID, limit, (page-1)*limit)
	if err != nil {
		return Page{}, apperr.Internal("failed to list feedback", err)
	}
	entries := make([]Entry, 0, len(list))
	for _, f := range list {
		entries = append(entries, Entry{Rating: f.Rating, Comment: f.Comment, CreatedAt: f.CreatedAt})
	}
	totalPages := (total + limit - 1) / limit
	return Page{
		Feedbacks: entries,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalCount:  total,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	}, nil
}

func (s *Service) MentorStats(ctx context.Context, mentorID string) (Stats, error) {
	if err := s.mentorExists(ctx, mentorID); err != nil {
		return Stats{}, err
	}
	stats, err := s.repo.GetMentorRatingStats(ctx, mentorID)
	if err != nil {
		return Stats{}, apperr.Internal("failed to load rating stats", err)
	}
	return Stats{
		AverageRating: math.Round(stats.AverageRating*10) / 10,
		TotalReviews:  stats.TotalReviews,
	}, nil
}
