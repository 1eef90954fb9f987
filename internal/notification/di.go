package notification

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		repo := do.MustInvoke[repository.Repository](i)
		return NewService(repo), nil
	})
}
