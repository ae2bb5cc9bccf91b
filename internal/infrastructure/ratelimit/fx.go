package ratelimit

import (
	"go.uber.org/fx"

	"github.com/supersunho/senseinfo/internal/domain"
)

// Module provides the rate limiter for fx DI
var Module = fx.Module("ratelimit",
	fx.Provide(
		NewSlidingWindow,
		func(l *SlidingWindow) domain.RateLimiter { return l },
	),
)
