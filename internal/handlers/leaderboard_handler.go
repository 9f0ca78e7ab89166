package handlers

import (
	"net/http"
	"strconv"

	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	"go.uber.org/zap"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

type LeaderboardHandler struct {
	leaderboard LeaderboardReader
	activity    ActivityReader
	logger      *zap.Logger
}

func NewLeaderboardHandler(leaderboard LeaderboardReader, activity ActivityReader, logger *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, activity: activity, logger: logger}
}

// GET /api/leaderboard/weekly
func (handler *LeaderboardHandler) WeeklyLeaderboardHandler(writer http.ResponseWriter, request *http.Request) {
	userID, ok := currentUser(writer, request)
	if !ok {
		return
	}
	entries, err := handler.leaderboard.Weekly(request.Context())
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	resp := models.LeaderboardResponse{Entries: entries}
	for i := range entries {
		if entries[i].UserID == userID {
			resp.Me = &entries[i]
			break
		}
	}
	utils.JSON(writer, http.StatusOK, resp)
}

// GET /api/activity/recent?limit=n
func (handler *LeaderboardHandler) RecentActivityHandler(writer http.ResponseWriter, request *http.Request) {
	limit := defaultActivityLimit
	if limitStr := request.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 || l > maxActivityLimit {
			utils.JSON(writer, http.StatusBadRequest, models.ErrorResponse{
				Code:    "invalid_limit",
				Message: "limit must be between 1 and " + strconv.Itoa(maxActivityLimit),
			})
			return
		}
		limit = l
	}
	items, err := handler.activity.Recent(request.Context(), limit)
	if err != nil {
		writeError(writer, request, handler.logger, err)
		return
	}
	utils.JSON(writer, http.StatusOK, models.ActivityResponse{Items: items})
}
