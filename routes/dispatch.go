package routes

import (
	"net/http"
	"strings"

	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
)

// campPut routes PUT /:id/*rest under a camps prefix. "/<camp>/status" goes to
// campStatus and "/registrations/<reg>/status" goes to regStatus, each with
// the matching id as the "id" param.
func campPut(campStatus, regStatus httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		rest := strings.Split(strings.Trim(ps.ByName("rest"), "/"), "/")

		switch {
		case len(rest) == 1 && rest[0] == "status":
			campStatus(w, r, httprouter.Params{{Key: "id", Value: id}})
		case id == "registrations" && len(rest) == 2 && rest[0] != "" && rest[1] == "status":
			regStatus(w, r, httprouter.Params{{Key: "id", Value: rest[0]}})
		default:
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
		}
	}
}
