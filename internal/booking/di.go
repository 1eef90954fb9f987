package booking

import (
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/activity"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/notification"
	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/session"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		notifier := do.MustInvoke[*notification.Service](i)
		provisioner := do.MustInvoke[*session.Provisioner](i)
		feed := do.MustInvoke[activity.Publisher](i)
		return NewService(repo, notifier, provisioner, feed, cfg.BookingLocation()), nil
	})
}
