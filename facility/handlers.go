package facility

import (
	"net/http"

	"bloodbank/apperr"
	"bloodbank/models"
	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

// maxLogoBytes caps the multipart body for logo uploads.
const maxLogoBytes = 5 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GET /api/facility/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	f, err := h.svc.Profile(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "facility": f})
}

// PUT /api/facility/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p ProfileUpdate
	if err := utils.DecodeJSON(r, &p); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	f, err := h.svc.UpdateProfile(r.Context(), utils.GetUserIDFromRequest(r), p)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "facility": f})
}

// POST /api/facility/logo (multipart field "logo")
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		utils.RespondWithAppError(w, r, apperr.Validation("Logo upload is too large or malformed"))
		return
	}
	file, _, err := r.FormFile("logo")
	if err != nil {
		utils.RespondWithAppError(w, r, apperr.Validation("Missing logo file"))
		return
	}
	defer file.Close()

	path, err := h.svc.SaveLogo(r.Context(), utils.GetUserIDFromRequest(r), file)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "logo": path})
}

func (h *Handler) listApproved(ft models.FacilityType, key string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		out, err := h.svc.Approved(r.Context(), ft)
		if err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, key: out})
	}
}

// GET /api/facility/labs
func (h *Handler) Labs() httprouter.Handle { return h.listApproved(models.FacilityBloodLab, "labs") }

// GET /api/facility/hospitals
func (h *Handler) Hospitals() httprouter.Handle {
	return h.listApproved(models.FacilityHospital, "hospitals")
}

// GET /api/admin/facilities?type=&status=
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	out, err := h.svc.List(r.Context(), models.FacilityType(q.Get("type")), models.FacilityStatus(q.Get("status")))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "facilities": out})
}

// PUT /api/admin/facilities/:id/status
func (h *Handler) Review(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status models.FacilityStatus `json:"status"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	f, err := h.svc.Review(r.Context(), ps.ByName("id"), body.Status)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "facility": f})
}
