package outbound

import "go.uber.org/fx"

var Module = fx.Module("outbound",
	fx.Provide(Provide),
)
