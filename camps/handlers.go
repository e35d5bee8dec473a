package camps

import (
	"net/http"

	"bloodbank/models"
	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

// DefaultBrowseLimit matches the donor camp grid.
const DefaultBrowseLimit = 9

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /api/hospital/camps and /api/blood-lab/camps
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	camp, err := h.svc.Create(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "camp": camp})
}

// GET /api/hospital/camps?status=
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	camps, err := h.svc.ListOwn(r.Context(), utils.GetUserIDFromRequest(r), models.CampStatus(r.URL.Query().Get("status")))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "camps": camps})
}

// GET /api/hospital/camps/:id and /api/donor/camps/:id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	camp, err := h.svc.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "camp": camp})
}

// PUT /api/hospital/camps/:id
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	camp, err := h.svc.Update(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("id"), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "camp": camp})
}

// PUT /api/hospital/camps/:id/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status models.CampStatus `json:"status"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	camp, err := h.svc.UpdateStatus(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("id"), body.Status)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "camp": camp})
}

// GET /api/donor/camps?status=&q=&page=&limit=
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := h.svc.Browse(r.Context(), utils.ParseQueryOptions(r, DefaultBrowseLimit))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "data": page})
}
