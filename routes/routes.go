package routes

import (
	"fmt"
	"net/http"

	"bloodbank/admin"
	"bloodbank/auth"
	"bloodbank/camps"
	"bloodbank/certificate"
	"bloodbank/donor"
	"bloodbank/facility"
	"bloodbank/inventory"
	"bloodbank/live"
	"bloodbank/maps"
	"bloodbank/middleware"
	"bloodbank/models"
	"bloodbank/ratelim"
	"bloodbank/registrations"
	"bloodbank/requests"

	"github.com/julienschmidt/httprouter"
)

// Deps carries everything the route table needs.
type Deps struct {
	Tokens      *middleware.Tokens
	RateLimiter *ratelim.RateLimiter
	StaticDir   string

	Auth          *auth.Handler
	Donors        *donor.Handler
	Facilities    *facility.Handler
	FacilitySvc   *facility.Service
	Camps         *camps.Handler
	Registrations *registrations.Handler
	Inventory     *inventory.Handler
	Requests      *requests.Handler
	Certificates  *certificate.Handler
	Maps          *maps.Service
	Admin         *admin.Service
	Hub           *live.Hub
}

var (
	hospital = string(models.FacilityHospital)
	bloodLab = string(models.FacilityBloodLab)
)

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddStaticRoutes(router *httprouter.Router, d Deps) {
	router.GET("/health", Index)
	router.ServeFiles("/static/*filepath", http.Dir(d.StaticDir))
}

func AddAuthRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/auth/register", d.RateLimiter.Limit(d.Auth.Register))
	router.POST("/api/auth/login", d.RateLimiter.Limit(d.Auth.Login))
	router.GET("/api/auth/profile", d.Tokens.Authenticate(d.Auth.Profile))
	router.POST("/api/auth/logout", d.Tokens.Authenticate(d.Auth.Logout))
	router.GET("/api/auth/map-data", maps.GetMapData(d.Maps))
}

func AddDonorRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/donor/profile", d.Tokens.Donor(d.Donors.GetProfile))
	router.PUT("/api/donor/profile", d.Tokens.Donor(d.Donors.UpdateProfile))
	router.GET("/api/donor/history", d.Tokens.Donor(d.Donors.History))
	router.GET("/api/donor/stats", d.Tokens.Donor(d.Donors.Stats))

	router.GET("/api/donor/camps", d.Tokens.Authenticate(d.Camps.Browse))
	router.GET("/api/donor/camps/:id", d.Tokens.Authenticate(d.Camps.Get))
	router.POST("/api/donor/camps/:id/register", d.Tokens.Donor(d.Registrations.Register))

	router.GET("/api/donor/registrations", d.Tokens.Donor(d.Registrations.MyRegistrations))
	router.GET("/api/donor/registrations/:id/certificate", d.Tokens.Donor(d.Certificates.Download))
}

func AddFacilityRoutes(router *httprouter.Router, d Deps) {
	anyFacility := d.Tokens.Facility(d.FacilitySvc.IsApproved)

	router.GET("/api/facility/profile", anyFacility(d.Facilities.GetProfile))
	router.PUT("/api/facility/profile", anyFacility(d.Facilities.UpdateProfile))
	router.POST("/api/facility/logo", anyFacility(d.Facilities.UploadLogo))
	router.GET("/api/facility/labs", d.Tokens.Authenticate(d.Facilities.Labs()))
	router.GET("/api/facility/hospitals", d.Tokens.Authenticate(d.Facilities.Hospitals()))
}

// AddCampRoutes wires camp management and the registration lifecycle.
// Hospitals and blood labs both host camps under their own prefix; registration
// management is checked against camp ownership in the service.
func AddCampRoutes(router *httprouter.Router, d Deps) {
	anyFacility := d.Tokens.Facility(d.FacilitySvc.IsApproved)

	for _, ft := range []string{hospital, bloodLab} {
		guard := d.Tokens.Facility(d.FacilitySvc.IsApproved, ft)
		base := "/api/" + ft + "/camps"
		router.POST(base, guard(d.Camps.Create))
		router.GET(base, guard(d.Camps.ListOwn))
		router.GET(base+"/:id", guard(d.Camps.Get))
		router.PUT(base+"/:id", guard(d.Camps.Update))
	}

	router.PUT("/api/hospital/camps/:id/status", d.Tokens.Facility(d.FacilitySvc.IsApproved, hospital)(d.Camps.UpdateStatus))
	router.GET("/api/hospital/camps/:id/registrations", anyFacility(d.Registrations.CampRegistrations))
	router.PUT("/api/hospital/registrations/:id/status", anyFacility(d.Registrations.UpdateStatus))

	router.GET("/api/blood-lab/camps/:id/registrations", anyFacility(d.Registrations.CampRegistrations))
	// PUT /api/blood-lab/camps/:id/status and /api/blood-lab/camps/registrations/:id/status
	// share one wildcard position, so they are split by campPut.
	router.PUT("/api/blood-lab/camps/:id/*rest", campPut(
		d.Tokens.Facility(d.FacilitySvc.IsApproved, bloodLab)(d.Camps.UpdateStatus),
		anyFacility(d.Registrations.UpdateStatus),
	))

	router.GET("/api/camps/:id/live", d.Hub.ServeCamp)
	router.GET("/api/certificates/verify", d.Certificates.Verify)
}

func AddInventoryRoutes(router *httprouter.Router, d Deps) {
	for _, ft := range []string{bloodLab, hospital} {
		guard := d.Tokens.Facility(d.FacilitySvc.IsApproved, ft)
		base := "/api/" + ft + "/inventory"
		router.GET(base, guard(d.Inventory.List))
		router.POST(base, guard(d.Inventory.Add))
		router.GET(base+"/summary", guard(d.Inventory.Summary))
		router.PUT(base+"/:id", guard(d.Inventory.Update))
		router.DELETE(base+"/:id", guard(d.Inventory.Delete))
	}
}

func AddRequestRoutes(router *httprouter.Router, d Deps) {
	hospitals := d.Tokens.Facility(d.FacilitySvc.IsApproved, hospital)
	labs := d.Tokens.Facility(d.FacilitySvc.IsApproved, bloodLab)

	router.POST("/api/hospital/requests", hospitals(d.Requests.Create))
	router.POST("/api/hospital/blood/request", hospitals(d.Requests.Create))
	router.GET("/api/hospital/requests", hospitals(d.Requests.ListForHospital))
	router.GET("/api/blood-lab/requests", labs(d.Requests.ListForLab))
	router.PUT("/api/blood-lab/requests/:id/status", labs(d.Requests.UpdateStatus))
}

func AddAdminRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/admin/facilities", d.Tokens.Admin(d.Facilities.AdminList))
	router.PUT("/api/admin/facilities/:id/status", d.Tokens.Admin(d.Facilities.Review))
	router.GET("/api/admin/donors", d.Tokens.Admin(d.Donors.AdminList))
	router.GET("/api/admin/stats", d.Tokens.Admin(admin.GetStats(d.Admin)))
	router.GET("/api/admin/camps/:id/registrations", d.Tokens.Admin(d.Registrations.CampRegistrations))
	router.PUT("/api/admin/registrations/:id/status", d.Tokens.Admin(d.Registrations.UpdateStatus))
	router.POST("/api/admin/camps/reconcile", d.Tokens.Admin(d.Registrations.Reconcile))
}
