package activity

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/activity"
	"github.com/shafin2/skillsphere-backend/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (activity.Publisher, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.DiscordBotToken == "" {
			return NoopPublisher{}, nil
		}
		return NewDiscordPublisher(c.DiscordBotToken, c.DiscordActivityChannelID)
	})
}
