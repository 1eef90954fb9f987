package webhook

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (webhook.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPSender(HTTPSenderConfig{
			URL:            c.TranscriptWebhookURL,
			RequestTimeout: c.ProviderTimeout,
			MaxAttempts:    c.TranscriptWebhookAttempts,
		}), nil
	})
}
