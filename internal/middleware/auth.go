package middleware

import (
	"context"
	"net/http"

	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	"go.uber.org/zap"
)

// Auth verifies the bearer token and puts the caller's user id in the context.
func Auth(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := utils.VerifyToken(r, secret)
			if err != nil {
				logger.Debug("rejected request", zap.String("path", r.URL.Path), zap.Error(err))
				utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
					Code:    "unauthorized",
					Message: "A valid bearer token is required",
				})
				return
			}
			userID, err := utils.GetUserIDFromClaims(claims)
			if err != nil {
				utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
					Code:    "unauthorized",
					Message: "Token has no subject",
				})
				return
			}
			ctx := WithUserID(r.Context(), userID)
			ctx = context.WithValue(ctx, displayNameKey, utils.GetDisplayNameFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns a context carrying an authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// DisplayNameFromContext returns the "name" claim of the caller's token.
func DisplayNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(displayNameKey).(string)
	return name
}
