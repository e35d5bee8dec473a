package registrations

import (
	"net/http"

	"bloodbank/models"
	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func actorFrom(r *http.Request) Actor {
	return Actor{ID: utils.GetUserIDFromRequest(r), Role: utils.GetRoleFromRequest(r)}
}

// POST /api/donor/camps/:id/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in RegisterInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	reg, err := h.svc.Register(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("id"), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success":      true,
		"message":      "Successfully registered for camp",
		"registration": reg,
	})
}

// GET /api/donor/registrations?status=
func (h *Handler) MyRegistrations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := models.RegistrationStatus(r.URL.Query().Get("status"))
	regs, err := h.svc.ListForDonor(r.Context(), utils.GetUserIDFromRequest(r), status)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "registrations": regs})
}

// GET /api/blood-lab/camps/:id/registrations
func (h *Handler) CampRegistrations(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	regs, err := h.svc.ListForCamp(r.Context(), actorFrom(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "registrations": regs})
}

// PUT /api/blood-lab/camps/registrations/:id/status and /api/admin/registrations/:id/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in StatusInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	reg, err := h.svc.UpdateStatus(r.Context(), actorFrom(r), ps.ByName("id"), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":      true,
		"message":      "Registration status updated",
		"registration": reg,
	})
}

// POST /api/admin/camps/reconcile?camp=
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	results, err := h.svc.Reconcile(r.Context(), r.URL.Query().Get("camp"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "camps": results})
}
