package product

import (
	"github.com/novabiz/paydesk/internal/product/repository"
	"github.com/novabiz/paydesk/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
