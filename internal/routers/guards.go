package routers

import (
	"net/http"

	"github.com/Ayuu1305/squad-quest-sub001/internal/config"
	"github.com/Ayuu1305/squad-quest-sub001/internal/middleware"

	"go.uber.org/zap"
)

// Guards are the middleware stacks placed in front of the API routes.
type Guards struct {
	Auth      func(http.Handler) http.Handler
	Global    func(http.Handler) http.Handler
	VibeCheck func(http.Handler) http.Handler
	JoinLeave func(http.Handler) http.Handler
	Bounty    func(http.Handler) http.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

// NewGuards builds the auth and rate limit middleware from config. A nil
// limiter or disabled rate limits leave only authentication in place.
func NewGuards(cfg *config.Config, limiter middleware.Limiter, logger *zap.Logger) Guards {
	g := Guards{
		Auth:      middleware.Auth(cfg.JWTSecret, logger),
		Global:    passthrough,
		VibeCheck: passthrough,
		JoinLeave: passthrough,
		Bounty:    passthrough,
	}
	if limiter == nil || !cfg.RateLimits.Enabled {
		return g
	}
	limit := func(name string, rl config.RateLimit) func(http.Handler) http.Handler {
		return middleware.RateLimit(name, limiter, middleware.NewLimit(rl.Requests, rl.Period), logger)
	}
	g.Global = limit("global", cfg.RateLimits.Global)
	g.VibeCheck = limit("vibe_check", cfg.RateLimits.VibeCheck)
	g.JoinLeave = limit("join_leave", cfg.RateLimits.JoinLeave)
	g.Bounty = limit("bounty", cfg.RateLimits.Bounty)
	return g
}

func (g Guards) orDefault() Guards {
	for _, mw := range []*func(http.Handler) http.Handler{&g.Auth, &g.Global, &g.VibeCheck, &g.JoinLeave, &g.Bounty} {
		if *mw == nil {
			*mw = passthrough
		}
	}
	return g
}
