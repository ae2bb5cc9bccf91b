package proxy

import "go.uber.org/fx"

// Module provides the egress rotator for fx DI
var Module = fx.Module("proxy",
	fx.Provide(NewRotator),
)
