package dispatch

import (
	"go.uber.org/fx"

	"github.com/novabiz/paydesk/internal/dispatch/service"
)

var Module = fx.Module("dispatch.service",
	fx.Provide(service.New),
)
