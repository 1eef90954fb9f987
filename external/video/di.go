package video

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/video"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (video.TokenIssuer, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewRoomTokenIssuer(c.VideoAppID, c.VideoAppCertificate), nil
	})
}
