package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/liftlog/internal/auth/service"
	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"
)

type MeHandler struct {
	PrincipalService *service.PrincipalService
}

// ServeHTTP godoc
//
//	@Summary		Get the authenticated principal
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse	"subjectId, identity, name"
//	@Failure		401	{object}	authsdk.APIError	"token_missing"
//	@Failure		403	{object}	authsdk.APIError	"token_invalid, token_expired"
//	@Failure		404	{object}	authsdk.APIError	"not_found"
//	@Router			/auth/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject := httpx.SubjectFromContext(ctx)
	if subject == "" {
		authsdk.ErrTokenMissing.WriteError(w)
		return
	}

	p, err := h.PrincipalService.GetPrincipal(ctx, subject)
	if err != nil {
		if !errors.Is(err, service.ErrPrincipalNotFound) {
			slogx.FromContext(ctx).Warn("failed to load principal", "err", err)
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		SubjectID: p.ID,
		Identity:  p.Identity,
		Name:      p.Name,
	})
}
