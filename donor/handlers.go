package donor

import (
	"net/http"

	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GET /api/donor/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	d, err := h.svc.Profile(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "donor": d})
}

// PUT /api/donor/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p ProfileUpdate
	if err := utils.DecodeJSON(r, &p); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	d, err := h.svc.UpdateProfile(r.Context(), utils.GetUserIDFromRequest(r), p)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "donor": d})
}

// GET /api/donor/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	regs, err := h.svc.History(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "history": regs})
}

// GET /api/donor/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := h.svc.Stats(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "stats": st})
}

// GET /api/admin/donors?q=&page=&limit=
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := utils.ParseQueryOptions(r, 20)
	donors, total, err := h.svc.List(r.Context(), q)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"donors":  donors,
		"pagination": utils.M{
			"total":       total,
			"totalPages":  q.TotalPages(total),
			"currentPage": q.Page,
			"limit":       q.Limit,
		},
	})
}
