package enrollment

import (
	"github.com/novabiz/paydesk/internal/enrollment/repository"
	"github.com/novabiz/paydesk/internal/enrollment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
