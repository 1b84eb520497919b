package sale

import (
	"go.uber.org/fx"

	"github.com/novabiz/paydesk/internal/sale/repository"
	"github.com/novabiz/paydesk/internal/sale/service"
)

var Module = fx.Module("sale.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
