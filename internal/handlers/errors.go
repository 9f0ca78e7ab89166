package handlers

import (
	"errors"
	"net/http"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/middleware"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	"go.uber.org/zap"
)

type errorKind struct {
	target error
	status int
	code   string
}

var errorKinds = []errorKind{
	{models.ErrQuestNotFound, http.StatusNotFound, "quest_not_found"},
	{models.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{models.ErrQuestArchived, http.StatusGone, "quest_archived"},
	{models.ErrQuestFull, http.StatusConflict, "quest_full"},
	{models.ErrQuestNotJoinable, http.StatusConflict, "quest_not_joinable"},
	{models.ErrQuestClosed, http.StatusConflict, "quest_closed"},
	{models.ErrQuestNotStarted, http.StatusConflict, "quest_not_started"},
	{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{models.ErrNotVerified, http.StatusConflict, "not_verified"},
	{models.ErrInvalidCode, http.StatusForbidden, "invalid_code"},
	{models.ErrNotMember, http.StatusForbidden, "not_member"},
	{models.ErrNotHost, http.StatusForbidden, "not_host"},
	{models.ErrHostCannotLeave, http.StatusForbidden, "host_cannot_leave"},
	{models.ErrMissingProof, http.StatusBadRequest, "missing_proof"},
}

// retryAfterSeconds is advertised when the store gave up on a transaction.
const retryAfterSeconds = "2"

// writeError maps a service error onto the HTTP error taxonomy. Store
// details are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var errResp *models.ErrorResponse
	if errors.As(err, &errResp) {
		utils.JSON(w, http.StatusBadRequest, *errResp)
		return
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind.target) {
			utils.JSON(w, kind.status, models.ErrorResponse{Code: kind.code, Message: kind.target.Error()})
			return
		}
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	if docstore.Retriable(err) {
		logger.Warn("transient store failure", zap.String("path", r.URL.Path), zap.String("user_id", userID), zap.Error(err))
		w.Header().Set("Retry-After", retryAfterSeconds)
		utils.JSON(w, http.StatusServiceUnavailable, models.ErrorResponse{
			Code:    "temporarily_unavailable",
			Message: "The service is busy, please try again",
		})
		return
	}
	logger.Error("request failed", zap.String("path", r.URL.Path), zap.String("user_id", userID), zap.Error(err))
	utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
		Code:    "internal_error",
		Message: "Something went wrong",
	})
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
			Code:    "unauthorized",
			Message: "A valid bearer token is required",
		})
	}
	return userID, ok
}
