package certificate

import (
	"net/http"
	"strconv"

	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Download serves GET /api/donor/registrations/:id/certificate.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	regID := ps.ByName("id")
	pdf, err := h.svc.Render(r.Context(), utils.GetUserIDFromRequest(r), regID)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=certificate-"+utils.SanitizeFilename(regID)+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// Verify serves GET /api/certificates/verify?code=...
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := h.svc.Verify(r.URL.Query().Get("code"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "valid": true, "certificate": p})
}
