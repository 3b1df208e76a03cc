package sponsor

import (
	"github.com/sponsorbase/sponsord/internal/sponsor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sponsor.service",
	fx.Provide(service.NewService),
)
