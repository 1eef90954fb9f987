package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shafin2/skillsphere-backend/internal/assistant"
)

type askRequest struct {
	Message            string           `json:"message" validate:"required"`
	ChatHistory        []assistant.Turn `json:"chatHistory"`
	MentorType         string           `json:"mentorType"`
	CustomSystemPrompt string           `json:"customSystemPrompt"`
}

type summarizeRequest struct {
	Transcript string `json:"transcript" validate:"required"`
}

func (s *Server) welcome(c *fiber.Ctx) error {
	w := s.svc.Assistant.Welcome(callerFrom(c))
	return c.JSON(fiber.Map{
		"success":            true,
		"welcome":            w.Welcome,
		"suggestedQuestions": w.SuggestedQuestions,
	})
}

func (s *Server) ask(c *fiber.Ctx) error {
	var req askRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	answer, err := s.svc.Assistant.Ask(c.UserContext(), callerFrom(c), assistant.AskInput{
		Message:      req.Message,
		History:      req.ChatHistory,
		MentorType:   req.MentorType,
		SystemPrompt: req.CustomSystemPrompt,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "response": answer.Response, "isAI": answer.IsAI})
}

func (s *Server) summarizeSession(c *fiber.Ctx) error {
	var req summarizeRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	sum, err := s.svc.Assistant.SummarizeSession(c.UserContext(), req.Transcript)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"summary":   sum.Summary,
		"resources": sum.Resources,
		"isAI":      sum.IsAI,
	})
}
