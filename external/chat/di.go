package chat

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/chat"
	"github.com/shafin2/skillsphere-backend/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (chat.Provider, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewStreamClient(StreamConfig{
			APIKey:    c.StreamAPIKey,
			APISecret: c.StreamAPISecret,
			BaseURL:   c.StreamBaseURL,
		}), nil
	})
}
