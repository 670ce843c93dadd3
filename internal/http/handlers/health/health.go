// Package health serves the liveness and readiness probe.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// Check handles GET /healthz. It answers 503 when the database is unreachable.
func Check(db Pinger, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("health check failed")
			response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.Status(response.StatusOK))
	}
}
