package generative

import (
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/generative"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (generative.Generator, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.GeminiAPIKey == "" {
			slog.Warn("gemini api key is not set; the assistant will answer with fallbacks")
			return DisabledGenerator{}, nil
		}
		return NewGeminiGenerator(c.GeminiAPIKey, c.GeminiModel), nil
	})
}
