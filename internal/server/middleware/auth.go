package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/plantit/plantit/internal/server/handlers"
	"github.com/plantit/plantit/internal/server/jwt"
	"github.com/plantit/plantit/pkg/api"
)

// Auth создает middleware для проверки JWT токена.
// Токен ожидается в заголовке Authorization в формате "Bearer <token>".
// user_id и username из claims кладутся в контекст запроса.
func Auth(logger *slog.Logger, tokens *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("missing Authorization header", "path", r.URL.Path)
				unauthorized(w, logger, "missing token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("invalid Authorization header format")
				unauthorized(w, logger, "invalid token format")
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				logger.Warn("invalid access token", "error", err)
				unauthorized(w, logger, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), handlers.UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, handlers.UsernameKey, claims.Username)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, logger *slog.Logger, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	resp := api.ErrorResponse{Error: api.ErrorDetail{
		Code:    api.ErrCodeUnauthorized,
		Message: message,
	}}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}
