package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/plantit/plantit/pkg/api"
)

// Recovery создает middleware для восстановления после паники.
// Перехватывает panic, логирует стек вызовов и возвращает
// envelope ошибки с 500 Internal Server Error.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"remote_addr", r.RemoteAddr,
						"stack", string(debug.Stack()),
					)

					// Детали паники клиенту не раскрываем
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					resp := api.ErrorResponse{Error: api.ErrorDetail{
						Code:    api.ErrCodeInternal,
						Message: "internal server error",
					}}
					if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
						logger.Error("failed to encode error response", "error", encErr)
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
