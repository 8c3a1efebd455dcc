package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/wsrelay/core/logger"
)

// Readiness answers "READY" when every check passes and 503 otherwise.
func Readiness(log *slog.Logger, fn ...func(context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, f := range fn {
			if err := f(ctx); err != nil {
				log.WarnContext(ctx, "readiness check failed",
					logger.Component("health"),
					logger.Error(err),
				)
				writeText(w, http.StatusServiceUnavailable, "NOT READY")
				return
			}
		}

		writeText(w, http.StatusOK, "READY")
	})
}
