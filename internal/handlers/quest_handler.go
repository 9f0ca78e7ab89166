package handlers

import (
	"net/http"
	"strings"

	"github.com/Ayuu1305/squad-quest-sub001/internal/middleware"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type QuestHandler struct {
	service QuestService
	logger  *zap.Logger
}

func NewQuestHandler(service QuestService, logger *zap.Logger) *QuestHandler {
	return &QuestHandler{service: service, logger: logger}
}

// POST /api/quest
func (handler *QuestHandler) CreateQuestHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	req := middleware.GetValidatedRequest[*models.CreateQuestRequest](request)
	quest, err := handler.service.Create(request.Context(), userID, req)
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusCreated, quest)
}

// GET /api/quest/{questId}
func (handler *QuestHandler) GetQuestHandler(writer http.ResponseWriter, request *http.Request) {
	questID := strings.TrimSpace(chi.URLParam(request, "questId"))
	if questID == "" {
		utils.JSON(writer, http.StatusBadRequest, models.ErrorResponse{Code: "invalid_id", Message: "questId is required"})
		return
	}
	quest, err := handler.service.Get(request.Context(), questID)
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, quest)
}

// POST /api/quest/join
func (handler *QuestHandler) JoinQuestHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	req := middleware.GetValidatedRequest[*models.JoinQuestRequest](request)
	resp, err := handler.service.Join(request.Context(), req.QuestID, userID, req.Code)
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, resp)
}

// POST /api/quest/leave
func (handler *QuestHandler) LeaveQuestHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	req := middleware.GetValidatedRequest[*models.LeaveQuestRequest](request)
	resp, err := handler.service.Leave(request.Context(), req.QuestID, userID)
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, resp)
}

// POST /api/quest/finalize
func (handler *QuestHandler) FinalizeQuestHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	req := middleware.GetValidatedRequest[*models.FinalizeQuestRequest](request)
	resp, err := handler.service.Finalize(request.Context(), req.QuestID, userID, req.Proof())
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, resp)
}

// POST /api/quest/status
func (handler *QuestHandler) TransitionQuestHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	req := middleware.GetValidatedRequest[*models.TransitionQuestRequest](request)
	quest, err := handler.service.Transition(request.Context(), req.QuestID, userID, req.Status)
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, quest)
}
