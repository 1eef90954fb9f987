package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/assistant"
	"github.com/shafin2/skillsphere-backend/internal/booking"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/feedback"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/notification"
	"github.com/shafin2/skillsphere-backend/internal/session"
	"github.com/shafin2/skillsphere-backend/internal/transcript"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*fiber.App, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewApp(Services{
			Verifier:      do.MustInvoke[identity.Verifier](i),
			Bookings:      do.MustInvoke[*booking.Service](i),
			Sessions:      do.MustInvoke[*session.Service](i),
			Notifications: do.MustInvoke[*notification.Service](i),
			Transcripts:   do.MustInvoke[*transcript.Manager](i),
			Assistant:     do.MustInvoke[*assistant.Service](i),
			Feedback:      do.MustInvoke[*feedback.Service](i),
		}, Options{
			Development:         cfg.IsDevelopment(),
			AllowOrigins:        cfg.CORSAllowOrigins,
			SpeechWebhookSecret: cfg.SpeechWebhookSecret,
		}), nil
	})
}
