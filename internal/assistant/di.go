package assistant

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/generative"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		generator := do.MustInvoke[generative.Generator](i)
		return NewService(generator, 2*cfg.ProviderTimeout), nil
	})
}
