package auth

import (
	"context"
	"net/http"
	"time"

	"bloodbank/logging"
	"bloodbank/middleware"
	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

// Revoker records logged-out tokens.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type Handler struct {
	svc     *Service
	tokens  *middleware.Tokens
	revoker Revoker
}

func NewHandler(svc *Service, tokens *middleware.Tokens, revoker Revoker) *Handler {
	return &Handler{svc: svc, tokens: tokens, revoker: revoker}
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in RegisterInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	sess, err := h.svc.Register(r.Context(), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	msg := "Registration successful"
	if sess.Token == "" {
		msg = "Registration submitted, awaiting admin approval"
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"message": msg,
		"token":   sess.Token,
		"role":    sess.Role,
		"user":    sess.User,
	})
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in LoginInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	sess, err := h.svc.Login(r.Context(), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"token":   sess.Token,
		"role":    sess.Role,
		"user":    sess.User,
	})
}

// GET /api/auth/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.svc.Profile(r.Context(), utils.GetUserIDFromRequest(r), utils.GetRoleFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "user": user})
}

// POST /api/auth/logout revokes the presented token for the rest of its lifetime.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, err := h.tokens.ValidateJWT(r.Header.Get("Authorization"))
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}
	if claims.ID != "" && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if err := h.revoker.Revoke(r.Context(), claims.ID, ttl); err != nil {
			logging.FromContext(r.Context()).Error().Err(err).Msg("revoke token")
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to invalidate session")
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Logged out successfully"})
}
