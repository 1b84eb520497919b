package approval

import (
	"go.uber.org/fx"

	"github.com/novabiz/paydesk/internal/approval/service"
)

var Module = fx.Module("approval.service",
	fx.Provide(service.New),
)
