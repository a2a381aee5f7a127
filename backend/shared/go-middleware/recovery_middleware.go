package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// RecoveryMiddleware turns a handler panic into a 500 with a correlation id.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				utils.Logger.WithField("request_id", RequestIDFromContext(r.Context())).
					Errorf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, p, debug.Stack())
				utils.RespondErrorWithCode(
					w, http.StatusInternalServerError, utils.ErrCodeInternal,
					"An unexpected error occurred", nil, fmt.Errorf("panic: %v", p),
				)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
