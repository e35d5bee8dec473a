package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloodbank/live"
	"bloodbank/middleware"
	"bloodbank/ratelim"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T) Deps {
	return Deps{
		Tokens:      middleware.NewTokens([]byte("secret"), time.Hour),
		RateLimiter: ratelim.NewRateLimiter(60, 5),
		StaticDir:   t.TempDir(),
		Hub:         live.NewHub(nil),
	}
}

func TestRouteTableBuilds(t *testing.T) {
	require.NotPanics(t, func() { RoutesWrapper(testDeps(t)) })
}

func TestHealth(t *testing.T) {
	router := RoutesWrapper(testDeps(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200", rec.Body.String())
}

func TestGuardedRoutesNeedToken(t *testing.T) {
	router := RoutesWrapper(testDeps(t))
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/donor/registrations"},
		{http.MethodPost, "/api/donor/camps/c1/register"},
		{http.MethodGet, "/api/blood-lab/camps/c1/registrations"},
		{http.MethodPut, "/api/blood-lab/camps/registrations/r1/status"},
		{http.MethodGet, "/api/hospital/inventory/summary"},
		{http.MethodGet, "/api/admin/stats"},
		{http.MethodPost, "/api/blood-lab/camps"},
		{http.MethodPut, "/api/blood-lab/camps/c1"},
		{http.MethodPut, "/api/blood-lab/camps/c1/status"},
		{http.MethodPost, "/api/hospital/blood/request"},
		{http.MethodPut, "/api/admin/registrations/r1/status"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
}

func TestDonorTokenCannotReachFacilityRoutes(t *testing.T) {
	d := testDeps(t)
	router := RoutesWrapper(d)
	token, err := d.Tokens.Issue("donor-1", "donor", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/blood-lab/camps/c1/registrations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCampPutSplitsStatusPaths(t *testing.T) {
	var hit, gotID string
	mark := func(name string) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			hit, gotID = name, ps.ByName("id")
			w.WriteHeader(http.StatusNoContent)
		}
	}
	router := httprouter.New()
	router.PUT("/camps/:id", mark("update"))
	router.PUT("/camps/:id/*rest", campPut(mark("camp"), mark("registration")))

	for _, tc := range []struct{ path, hit, id string }{
		{"/camps/c1", "update", "c1"},
		{"/camps/c1/status", "camp", "c1"},
		{"/camps/registrations/r9/status", "registration", "r9"},
		{"/camps/registrations/status", "camp", "registrations"},
	} {
		hit, gotID = "", ""
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, tc.path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, tc.path)
		assert.Equal(t, tc.hit, hit, tc.path)
		assert.Equal(t, tc.id, gotID, tc.path)
	}

	for _, path := range []string{"/camps/c1/other", "/camps/c1/registrations/r9/status", "/camps/registrations/r9"} {
		hit = ""
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Empty(t, hit, path)
	}
}
