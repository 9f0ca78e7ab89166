package routers

import (
	"github.com/Ayuu1305/squad-quest-sub001/internal/handlers"

	"github.com/go-chi/chi/v5"
)

func RewardRoutes(r *chi.Mux, rewardHandler *handlers.RewardHandler, leaderboardHandler *handlers.LeaderboardHandler, guards Guards) {
	guards = guards.orDefault()
	r.Group(func(r chi.Router) {
		r.Use(guards.Global, guards.Auth)

		r.With(guards.Bounty).Post("/api/bounty/claim", rewardHandler.ClaimBountyHandler)
		r.Post("/api/user/sync", rewardHandler.SyncUserHandler)
		r.Get("/api/leaderboard/weekly", leaderboardHandler.WeeklyLeaderboardHandler)
		r.Get("/api/activity/recent", leaderboardHandler.RecentActivityHandler)
	})
}
