package maps

import (
	"net/http"

	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

// GetMapData serves GET /api/auth/map-data.
func GetMapData(svc *Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := svc.Data(r.Context())
		if err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "data": data})
	}
}
