package httpapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shafin2/skillsphere-backend/internal/assistant"
	"github.com/shafin2/skillsphere-backend/internal/booking"
	"github.com/shafin2/skillsphere-backend/internal/feedback"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/notification"
	"github.com/shafin2/skillsphere-backend/internal/session"
	"github.com/shafin2/skillsphere-backend/internal/transcript"
)

const (
	maxBodyBytes      = 100 << 20
	assistantRequests = 30
)

type Services struct {
	Verifier      identity.Verifier
	Bookings      *booking.Service
	Sessions      *session.Service
	Notifications *notification.Service
	Transcripts   *transcript.Manager
	Assistant     *assistant.Service
	Feedback      *feedback.Service
}

type Options struct {
	Development bool
	// AllowOrigins is a comma separated CORS origin list.
	AllowOrigins string
	// SpeechWebhookSecret must match the secret header on provider callbacks when set.
	SpeechWebhookSecret string
	// DisableRequestLog turns off the per-request access log.
	DisableRequestLog bool
}

type Server struct {
	svc      Services
	opts     Options
	validate *validator.Validate
}

// NewApp builds the fiber application with every route mounted under /api.
func NewApp(svc Services, opts Options) *fiber.App {
	s := &Server{svc: svc, opts: opts, validate: newValidator()}

	app := fiber.New(fiber.Config{
		AppName:               "skillsphere-backend",
		BodyLimit:             maxBodyBytes,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	if !opts.DisableRequestLog {
		app.Use(logger.New())
	}
	allowOrigins := opts.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api := app.Group("/api")
	api.Get("/health", s.health)
	api.Post("/transcripts/webhooks/speech", s.speechWebhook)

	auth := api.Group("", s.requireAuth)
	s.mountBookings(auth)
	s.mountSessions(auth)
	s.mountTranscripts(auth)
	s.mountAssistant(auth)
	s.mountFeedback(auth)
	return app
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "SkillSphere API is running",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) mountBookings(r fiber.Router) {
	r.Post("/bookings", s.createBooking)
	r.Get("/bookings", s.listBookings)
	r.Get("/bookings/available-slots/:mentorId", s.availableSlots)
	r.Get("/bookings/notifications", s.listNotifications)
	r.Put("/bookings/notifications/read-all", s.markAllNotificationsRead)
	r.Put("/bookings/notifications/:id/read", s.markNotificationRead)
	r.Put("/bookings/:id/confirm", s.confirmBooking)
	r.Put("/bookings/:id/reject", s.rejectBooking)
	r.Put("/bookings/:id/complete", s.completeBooking)
	r.Delete("/bookings/:id", s.cancelBooking)
}

func (s *Server) mountSessions(r fiber.Router) {
	r.Get("/sessions/my-conversations", s.myConversations)
	r.Get("/sessions/:bookingId", s.getSession)
	r.Post("/sessions/:sessionId/join", s.joinSession)
	r.Post("/sessions/:sessionId/leave", s.leaveSession)
	r.Put("/sessions/:sessionId/notes", s.updateNotes)
	r.Get("/chat/token", s.chatToken)
	r.Post("/chat/channel/:bookingId", s.openChannel)
	r.Post("/call/generate-token", s.videoToken)
}

func (s *Server) mountTranscripts(r fiber.Router) {
	r.Post("/transcripts/start", s.startTranscript)
	r.Get("/transcripts", s.listTranscripts)
	r.Get("/transcripts/booking/:bookingId", s.transcriptByBooking)
	r.Get("/transcripts/:sessionId", s.getTranscript)
	r.Post("/transcripts/:sessionId/audio", s.uploadAudio)
	r.Post("/transcripts/:sessionId/entries", s.appendEntry)
	r.Post("/transcripts/:sessionId/stop", s.stopTranscript)
	r.Put("/transcripts/:sessionId/speakers", s.setSpeakers)
	r.Delete("/transcripts/:sessionId", s.deleteTranscript)
}

func (s *Server) mountAssistant(r fiber.Router) {
	ai := r.Group("/ai", limiter.New(limiter.Config{
		Max:        assistantRequests,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return callerFrom(c).ID
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many assistant requests, please slow down",
			})
		},
	}))
	ai.Get("/welcome", s.welcome)
	ai.Post("/ask", s.ask)
	ai.Post("/summarize-session", s.summarizeSession)
}

func (s *Server) mountFeedback(r fiber.Router) {
	r.Post("/feedback", s.submitFeedback)
	r.Get("/feedback/mentor/:mentorId", s.mentorFeedback)
	r.Get("/feedback/mentor/:mentorId/stats", s.mentorStats)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
