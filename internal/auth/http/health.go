package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
)

const readinessTimeout = 2 * time.Second

// Pinger is the part of the store readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	StartTime time.Time
	Version   string

	// Store is pinged by /readyz.
	Store Pinger

	// ChallengeStore names the driver holding outstanding codes.
	ChallengeStore string
}

func (h *HealthHandler) response(status string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.StartTime).Round(time.Second).String(),
		Version: h.Version,
	}
}

// HandleLivez godoc
//
//	@Summary		Liveness probe
//	@Description	Returns 200 while the process is serving requests
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Router			/livez [get]
func (h *HealthHandler) HandleLivez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.response("ok"))
}

// HandleReadyz godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the principal database; reports where challenges are kept
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Failure		503	{object}	authsdk.HealthResponse
//	@Router			/readyz [get]
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := h.response("ok")
	resp.Checks = &authsdk.HealthChecks{
		Database:       "ok",
		ChallengeStore: h.ChallengeStore,
	}

	code := http.StatusOK
	if err := h.Store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks.Database = "error: " + err.Error()
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, resp)
}
