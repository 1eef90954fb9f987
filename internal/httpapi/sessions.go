package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

type updateNotesRequest struct {
	Notes string `json:"notes" validate:"max=10000"`
}

type videoTokenRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
}

func (s *Server) myConversations(c *fiber.Ctx) error {
	conversations, err := s.svc.Sessions.ListConversations(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "conversations": conversations})
}

func (s *Server) getSession(c *fiber.Ctx) error {
	sess, err := s.svc.Sessions.Get(c.UserContext(), c.Params("bookingId"), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "session": presentSession(sess)})
}

func (s *Server) joinSession(c *fiber.Ctx) error {
	sess, err := s.svc.Sessions.Join(c.UserContext(), c.Params("sessionId"), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Joined session successfully", "session": presentSession(sess)})
}

func (s *Server) leaveSession(c *fiber.Ctx) error {
	sess, err := s.svc.Sessions.Leave(c.UserContext(), c.Params("sessionId"), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Left session successfully", "session": presentSession(sess)})
}

func (s *Server) updateNotes(c *fiber.Ctx) error {
	var req updateNotesRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	sess, err := s.svc.Sessions.UpdateNotes(c.UserContext(), c.Params("sessionId"), callerFrom(c), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Notes updated successfully", "session": presentSession(sess)})
}

func (s *Server) chatToken(c *fiber.Ctx) error {
	creds, err := s.svc.Sessions.ChatToken(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"token":   creds.Token,
		"apiKey":  creds.APIKey,
		"userId":  creds.UserID,
	})
}

func (s *Server) openChannel(c *fiber.Ctx) error {
	ch, err := s.svc.Sessions.OpenChannel(c.UserContext(), c.Params("bookingId"), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"channelId": ch.ChatRoomID,
		"session":   presentSession(ch.Session),
	})
}

func (s *Server) videoToken(c *fiber.Ctx) error {
	var req videoTokenRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	tok, err := s.svc.Sessions.VideoToken(c.UserContext(), req.BookingID, callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"token":       tok.Token,
		"appId":       tok.AppID,
		"channelName": tok.RoomName,
		"uid":         tok.UserID,
		"expiresAt":   tok.ExpiresAt,
	})
}
