// requestid.go — middleware сквозного идентификатора запроса.
// Берёт X-Request-Id из входящего запроса (проставляется API Gateway)
// или генерирует новый UUID. Идентификатор попадает в контекст,
// заголовок ответа и записи лога запросов.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader — заголовок сквозного идентификатора запроса.
const requestIDHeader = "X-Request-Id"

// ContextKeyRequestID — ключ идентификатора запроса в контексте.
const ContextKeyRequestID contextKey = "request_id"

// RequestID возвращает middleware, обеспечивающий каждому запросу
// сквозной идентификатор.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, id)
			ctx := context.WithValue(r.Context(), ContextKeyRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext извлекает идентификатор запроса из контекста.
// Возвращает пустую строку, если идентификатор отсутствует.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}
