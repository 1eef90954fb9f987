package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shafin2/skillsphere-backend/internal/feedback"
)

type submitFeedbackRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment"`
}

func (s *Server) submitFeedback(c *fiber.Ctx) error {
	var req submitFeedbackRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	f, err := s.svc.Feedback.Submit(c.UserContext(), callerFrom(c), feedback.SubmitInput{
		BookingID: req.BookingID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"message":  "Feedback submitted successfully",
		"feedback": presentFeedback(f),
	})
}

func (s *Server) mentorFeedback(c *fiber.Ctx) error {
	page, err := s.svc.Feedback.MentorFeedback(c.UserContext(), c.Params("mentorId"), c.QueryInt("page", 1), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "feedbacks": page.Feedbacks, "pagination": page.Pagination})
}

func (s *Server) mentorStats(c *fiber.Ctx) error {
	stats, err := s.svc.Feedback.MentorStats(c.UserContext(), c.Params("mentorId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "averageRating": stats.AverageRating, "totalReviews": stats.TotalReviews})
}
