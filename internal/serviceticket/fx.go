package serviceticket

import (
	"github.com/novabiz/paydesk/internal/serviceticket/repository"
	"github.com/novabiz/paydesk/internal/serviceticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("serviceticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
