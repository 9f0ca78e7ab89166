package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	validatedRequestKey contextKey = "validated_request"
	userIDKey           contextKey = "user_id"
	displayNameKey      contextKey = "display_name"
)

// maxBodyBytes bounds request bodies; the largest payload is a 20 user vibe check.
const maxBodyBytes = 64 << 10

// request models implement this interface
type Validator interface {
	Validate() error
}

// ValidateRequest decodes the JSON body into T, runs its Validate method and
// stores the result in the request context for GetValidatedRequest.
func ValidateRequest[T Validator]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req T
			reqType := reflect.TypeOf(req)
			if reqType.Kind() == reflect.Ptr {
				req = reflect.New(reqType.Elem()).Interface().(T)
			} else {
				req = reflect.New(reqType).Interface().(T)
			}

			body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := json.NewDecoder(body).Decode(req); err != nil {
				utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
					Code:    "invalid_json",
					Message: "Invalid JSON in request body",
				})
				return
			}

			if err := req.Validate(); err != nil {
				var errResp *models.ErrorResponse
				if errors.As(err, &errResp) {
					utils.JSON(w, http.StatusBadRequest, *errResp)
				} else {
					utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
						Code:    "validation_error",
						Message: err.Error(),
					})
				}
				return
			}

			ctx := context.WithValue(r.Context(), validatedRequestKey, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetValidatedRequest retrieves the validated request from context
func GetValidatedRequest[T any](r *http.Request) T {
	return r.Context().Value(validatedRequestKey).(T)
}
