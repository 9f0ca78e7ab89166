package routers

import (
	"github.com/Ayuu1305/squad-quest-sub001/internal/handlers"
	"github.com/Ayuu1305/squad-quest-sub001/internal/middleware"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"

	"github.com/go-chi/chi/v5"
)

func QuestRoutes(r *chi.Mux, questHandler *handlers.QuestHandler, rewardHandler *handlers.RewardHandler, guards Guards) {
	guards = guards.orDefault()
	r.Group(func(r chi.Router) {
		r.Use(guards.Global, guards.Auth)

		r.With(middleware.ValidateRequest[*models.CreateQuestRequest]()).Post("/api/quest", questHandler.CreateQuestHandler)
		r.Get("/api/quest/{questId}", questHandler.GetQuestHandler)
		r.With(middleware.ValidateRequest[*models.FinalizeQuestRequest]()).Post("/api/quest/finalize", questHandler.FinalizeQuestHandler)
		r.With(middleware.ValidateRequest[*models.TransitionQuestRequest]()).Post("/api/quest/status", questHandler.TransitionQuestHandler)

		r.With(guards.JoinLeave, middleware.ValidateRequest[*models.JoinQuestRequest]()).Post("/api/quest/join", questHandler.JoinQuestHandler)
		r.With(guards.JoinLeave, middleware.ValidateRequest[*models.LeaveQuestRequest]()).Post("/api/quest/leave", questHandler.LeaveQuestHandler)

		r.With(guards.VibeCheck, middleware.ValidateRequest[*models.VibeCheckRequest]()).Post("/api/quest/vibe-check", rewardHandler.VibeCheckHandler)
	})
}
