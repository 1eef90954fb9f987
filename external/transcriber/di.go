package transcriber

import (
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/transcriber"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Provider, error) {
		c := do.MustInvoke[*config.Config](i)
		if !c.SpeechEnabled() {
			slog.Warn("cloud speech is not configured; audio transcription is disabled")
			return DisabledProvider{}, nil
		}
		return NewCloudSpeechProvider(CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Language:        c.DefaultTranscribeLanguage,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
			WebhookSecret:   c.SpeechWebhookSecret,
		}), nil
	})
}
