package identity

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/identity"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (identity.Verifier, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewJWTVerifier(c.JWTAccessSecret), nil
	})
}
