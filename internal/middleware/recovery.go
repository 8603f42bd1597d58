package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"platepick/pkg/logging/logging"
)

// Recoverer recovers from handler panics, logs the stack and returns 500.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec != nil {
					logger := logging.L(r.Context())
					logger.Error("panic recovered",
						zap.Any("error", rec),
						zap.ByteString("stack", debug.Stack()),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal server error","status":"error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
