package session

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/activity"
	"github.com/shafin2/skillsphere-backend/internal/chat"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/video"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Provisioner, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		cp := do.MustInvoke[chat.Provider](i)
		return NewProvisioner(repo, cp, cfg.ProviderTimeout), nil
	})
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		cp := do.MustInvoke[chat.Provider](i)
		vi := do.MustInvoke[video.TokenIssuer](i)
		p := do.MustInvoke[*Provisioner](i)
		feed := do.MustInvoke[activity.Publisher](i)
		return NewService(repo, cp, vi, p, feed, Options{
			ChatAPIKey:      cfg.StreamAPIKey,
			VideoTokenTTL:   cfg.VideoTokenTTL,
			ProviderTimeout: cfg.ProviderTimeout,
		}), nil
	})
}
