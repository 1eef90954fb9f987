package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/identity"
)

const callerLocalKey = "caller"

func (s *Server) requireAuth(c *fiber.Ctx) error {
	token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return apperr.Auth("Not authorized, no token")
	}
	caller, err := s.svc.Verifier.VerifyCaller(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(callerLocalKey, caller)
	return c.Next()
}

func callerFrom(c *fiber.Ctx) identity.Caller {
	caller, _ := c.Locals(callerLocalKey).(identity.Caller)
	return caller
}
