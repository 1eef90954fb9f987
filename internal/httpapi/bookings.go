package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shafin2/skillsphere-backend/internal/booking"
)

type createBookingRequest struct {
	MentorID string `json:"mentorId" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Time     string `json:"time" validate:"required"`
	Message  string `json:"message" validate:"max=500"`
}

func (s *Server) createBooking(c *fiber.Ctx) error {
	var req createBookingRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	view, err := s.svc.Bookings.Create(c.UserContext(), callerFrom(c), booking.CreateInput{
		MentorID: req.MentorID,
		Date:     req.Date,
		Time:     req.Time,
		Message:  req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Booking created successfully",
		"booking": presentBookingView(*view),
	})
}

func (s *Server) listBookings(c *fiber.Ctx) error {
	views, err := s.svc.Bookings.ListMine(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	out := make([]*bookingResponse, 0, len(views))
	for _, v := range views {
		out = append(out, presentBookingView(v))
	}
	return c.JSON(fiber.Map{"success": true, "bookings": out})
}

func (s *Server) confirmBooking(c *fiber.Ctx) error {
	res, err := s.svc.Bookings.Confirm(c.UserContext(), c.Params("id"), callerFrom(c).ID)
	if err != nil {
		return err
	}
	body := fiber.Map{
		"success": true,
		"message": "Booking confirmed successfully",
		"booking": presentBooking(res.Booking),
		"session": presentSession(res.Session),
	}
	if res.Warning != "" {
		body["warning"] = res.Warning
	}
	return c.JSON(body)
}

func (s *Server) rejectBooking(c *fiber.Ctx) error {
	b, err := s.svc.Bookings.Reject(c.UserContext(), c.Params("id"), callerFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Booking rejected successfully", "booking": presentBooking(b)})
}

func (s *Server) completeBooking(c *fiber.Ctx) error {
	b, err := s.svc.Bookings.Complete(c.UserContext(), c.Params("id"), callerFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Booking marked as completed", "booking": presentBooking(b)})
}

func (s *Server) cancelBooking(c *fiber.Ctx) error {
	b, err := s.svc.Bookings.Cancel(c.UserContext(), c.Params("id"), callerFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Booking cancelled successfully", "booking": presentBooking(b)})
}

func (s *Server) availableSlots(c *fiber.Ctx) error {
	a, err := s.svc.Bookings.AvailableSlots(c.UserContext(), c.Params("mentorId"), c.Query("date"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"date":           a.Date,
		"availableSlots": a.AvailableSlots,
		"bookedSlots":    a.BookedSlots,
		"totalSlots":     a.TotalSlots,
		"availableCount": a.AvailableCount,
	})
}

func (s *Server) listNotifications(c *fiber.Ctx) error {
	res, err := s.svc.Notifications.List(c.UserContext(), callerFrom(c).ID, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"notifications": presentNotifications(res.Notifications),
		"unreadCount":   res.UnreadCount,
	})
}

func (s *Server) markNotificationRead(c *fiber.Ctx) error {
	if err := s.svc.Notifications.MarkRead(c.UserContext(), c.Params("id"), callerFrom(c).ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Notification marked as read"})
}

func (s *Server) markAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.svc.Notifications.MarkAllRead(c.UserContext(), callerFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "All notifications marked as read", "updated": n})
}
