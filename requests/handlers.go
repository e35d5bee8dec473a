package requests

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

// POST /api/hospital/requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in CreateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	req, err := h.svc.Create(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "message": "Blood request sent", "request": req})
}

// GET /api/hospital/requests
func (h *Handler) ListForHospital(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	out, err := h.svc.ListForHospital(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "requests": out})
}

// GET /api/blood-lab/requests?status=
func (h *Handler) ListForLab(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := models.RequestStatus(r.URL.Query().Get("status"))
	out, err := h.svc.ListForLab(r.Context(), utils.GetUserIDFromRequest(r), status)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "requests": out})
}

// PUT /api/blood-lab/requests/:id/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status models.RequestStatus `json:"status"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	req, err := h.svc.UpdateStatus(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("id"), body.Status)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "request": req})
}
