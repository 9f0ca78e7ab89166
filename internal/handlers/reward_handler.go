package handlers

import (
	"net/http"

	"github.com/Ayuu1305/squad-quest-sub001/internal/middleware"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	"go.uber.org/zap"
)

type RewardHandler struct {
	service RewardService
	logger  *zap.Logger
}

func NewRewardHandler(service RewardService, logger *zap.Logger) *RewardHandler {
	return &RewardHandler{service: service, logger: logger}
}

// POST /api/quest/vibe-check
func (handler *RewardHandler) VibeCheckHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	req := middleware.GetValidatedRequest[*models.VibeCheckRequest](request)
	resp, err := handler.service.SubmitVibeCheck(request.Context(), userID, req)
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, resp)
}

// POST /api/bounty/claim
func (handler *RewardHandler) ClaimBountyHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	resp, err := handler.service.ClaimBounty(request.Context(), userID)
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, resp)
}

// POST /api/user/sync
func (handler *RewardHandler) SyncUserHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	resp, err := handler.service.SyncUser(request.Context(), userID, middleware.DisplayNameFromContext(request.Context()))
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, resp)
}
