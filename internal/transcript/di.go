package transcript

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/transcriber"
	"github.com/shafin2/skillsphere-backend/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		speech := do.MustInvoke[transcriber.Provider](i)
		exporter := do.MustInvoke[webhook.Sender](i)
		return NewManager(repo, speech, exporter, AppearanceOrderPolicy{}, Options{
			WebhookURL:      cfg.SpeechWebhookURL(),
			ProviderTimeout: cfg.ProviderTimeout,
			Timezone:        cfg.TranscriptTimezone,
			Location:        cfg.TranscriptLocation(),
		}), nil
	})
}
