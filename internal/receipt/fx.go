package receipt

import "go.uber.org/fx"

var Module = fx.Module("receipt.builder",
	fx.Provide(New),
)
