package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-Id"

// Correlation создает middleware, проставляющее correlation id запроса.
// Пришедший от клиента заголовок возвращается как есть,
// при его отсутствии генерируется новый UUID.
func Correlation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationHeader)
			if id == "" {
				id = uuid.New().String()
				r.Header.Set(correlationHeader, id)
			}
			w.Header().Set(correlationHeader, id)

			next.ServeHTTP(w, r)
		})
	}
}
