package observability

import (
	"github.com/novabiz/paydesk/internal/observability/logger"
	"github.com/novabiz/paydesk/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		logger.New,
		metrics.NewProvider,
		metrics.New,
	),
)
