package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/attec/attec-api/internal/apperr"
)

// Recoverer is a middleware that recovers from panics.
// It logs the panic and returns the uniform internal error response.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}

					logger.Error("panic recovered",
						slog.String("request_id", GetRequestID(r.Context())),
						slog.Any("panic", rvr),
						slog.String("stack", string(debug.Stack())),
					)

					apperr.Write(w, apperr.Internal(fmt.Errorf("panic: %v", rvr)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
