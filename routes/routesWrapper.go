package routes

import (
	"github.com/julienschmidt/httprouter"
)

// RoutesWrapper builds the full route table.
func RoutesWrapper(d Deps) *httprouter.Router {
	router := httprouter.New()
	AddStaticRoutes(router, d)
	AddAuthRoutes(router, d)
	AddDonorRoutes(router, d)
	AddFacilityRoutes(router, d)
	AddCampRoutes(router, d)
	AddInventoryRoutes(router, d)
	AddRequestRoutes(router, d)
	AddAdminRoutes(router, d)
	return router
}
