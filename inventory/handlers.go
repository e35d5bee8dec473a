package inventory

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

func ownerFrom(r *http.Request) Owner {
	return Owner{
		ID:   utils.GetUserIDFromRequest(r),
		Type: models.FacilityType(utils.GetFacilityTypeFromRequest(r)),
	}
}

// POST /api/{blood-lab,hospital}/inventory
func (h *Handler) Add(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in AddInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	b, err := h.svc.Add(r.Context(), ownerFrom(r), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "blood": b})
}

// GET /api/{blood-lab,hospital}/inventory?bloodGroup=&expired=
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	records, err := h.svc.List(r.Context(), ownerFrom(r), q.Get("bloodGroup"), q.Get("expired"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "inventory": records})
}

// GET /api/{blood-lab,hospital}/inventory/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sum, err := h.svc.Summary(r.Context(), ownerFrom(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "summary": sum})
}

// PUT /api/{blood-lab,hospital}/inventory/:id
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in UpdateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	b, err := h.svc.Update(r.Context(), ownerFrom(r), ps.ByName("id"), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "blood": b})
}

// DELETE /api/{blood-lab,hospital}/inventory/:id
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), ownerFrom(r), ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Blood record deleted"})
}
