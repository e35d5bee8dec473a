package admin

import (
	"net/http"

	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

// GetStats serves GET /api/admin/stats.
func GetStats(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "stats": st})
	}
}
