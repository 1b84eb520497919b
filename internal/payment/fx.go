package payment

import (
	"go.uber.org/fx"

	"github.com/novabiz/paydesk/internal/payment/repository"
	"github.com/novabiz/paydesk/internal/payment/service"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
