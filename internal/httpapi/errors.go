package httpapi

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shafin2/skillsphere-backend/internal/apperr"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindAuth:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindExternalService:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
	}

	kind := apperr.KindOf(err)
	status := statusFor(kind)
	body := fiber.Map{"success": false, "message": apperr.MessageOf(err)}
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		if s.opts.Development {
			body["detail"] = err.Error()
		}
	}
	return c.Status(status).JSON(body)
}

// bind decodes the JSON body into req and runs struct validation.
func (s *Server) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperr.Validation("Request body is not valid JSON")
	}
	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("Request is invalid")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation(fmt.Sprintf("%s is required", fe.Field()))
	case "min", "gte":
		return apperr.Validation(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
	case "max", "lte":
		return apperr.Validation(fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
	default:
		return apperr.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
