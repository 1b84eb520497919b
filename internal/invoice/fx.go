package invoice

import (
	"github.com/novabiz/paydesk/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(service.New),
)
