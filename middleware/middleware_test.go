package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloodbank/globals"
	"bloodbank/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"userId": utils.GetUserIDFromRequest(r),
		"role":   utils.GetRoleFromRequest(r),
	})
}

func call(h httprouter.Handle, header string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h(rec, r, nil)
	return rec
}

func TestIssueAndValidate(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)

	tok, err := tokens.Issue("d1", globals.RoleDonor, "")
	require.NoError(t, err)

	claims, err := tokens.ValidateJWT("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "d1", claims.UserID)
	assert.Equal(t, globals.RoleDonor, claims.Role)

	_, err = tokens.ValidateJWT(tok)
	assert.Error(t, err, "missing Bearer prefix")

	other := NewTokens([]byte("other"), time.Hour)
	_, err = other.ValidateJWT("Bearer " + tok)
	assert.Error(t, err, "wrong secret")
}

func TestExpiredToken(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := tokens.Issue("d1", globals.RoleDonor, "")
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.ValidateJWT("Bearer " + tok)
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)
	tok, _ := tokens.Issue("d1", globals.RoleDonor, "")

	rec := call(tokens.Authenticate(okHandler), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(tokens.Authenticate(okHandler), "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(tokens.Authenticate(okHandler), "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"d1","role":"donor"}`, rec.Body.String())
}

func TestRoleGuards(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)
	donorTok, _ := tokens.Issue("d1", globals.RoleDonor, "")
	adminTok, _ := tokens.Issue("a1", globals.RoleAdmin, "")

	assert.Equal(t, http.StatusOK, call(tokens.Donor(okHandler), "Bearer "+donorTok).Code)
	assert.Equal(t, http.StatusForbidden, call(tokens.Donor(okHandler), "Bearer "+adminTok).Code)
	assert.Equal(t, http.StatusOK, call(tokens.Admin(okHandler), "Bearer "+adminTok).Code)
	assert.Equal(t, http.StatusForbidden, call(tokens.Admin(okHandler), "Bearer "+donorTok).Code)
}

func TestFacilityGuard(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)
	labTok, _ := tokens.Issue("lab1", globals.RoleFacility, "blood-lab")
	hospTok, _ := tokens.Issue("h1", globals.RoleFacility, "hospital")
	donorTok, _ := tokens.Issue("d1", globals.RoleDonor, "")

	approved := map[string]bool{"lab1": true}
	status := func(_ context.Context, id string) (bool, error) {
		if id == "broken" {
			return false, errors.New("db down")
		}
		return approved[id], nil
	}

	labOnly := tokens.Facility(status, "blood-lab")
	assert.Equal(t, http.StatusOK, call(labOnly(okHandler), "Bearer "+labTok).Code)
	assert.Equal(t, http.StatusForbidden, call(labOnly(okHandler), "Bearer "+hospTok).Code)
	assert.Equal(t, http.StatusForbidden, call(labOnly(okHandler), "Bearer "+donorTok).Code)

	anyFacility := tokens.Facility(status)
	rec := call(anyFacility(okHandler), "Bearer "+hospTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not approved")

	brokenTok, _ := tokens.Issue("broken", globals.RoleFacility, "hospital")
	assert.Equal(t, http.StatusInternalServerError, call(anyFacility(okHandler), "Bearer "+brokenTok).Code)
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal Server Error"}`, rec.Body.String())
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging(SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

type revokedSet map[string]bool

func (s revokedSet) Revoked(_ context.Context, id string) (bool, error) {
	return s[id], nil
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	revoked := revokedSet{}
	tokens := NewTokens([]byte("secret"), time.Hour).WithRevocations(revoked)
	tok, _ := tokens.Issue("d1", globals.RoleDonor, "")
	claims, err := tokens.ValidateJWT("Bearer " + tok)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	assert.Equal(t, http.StatusOK, call(tokens.Authenticate(okHandler), "Bearer "+tok).Code)

	revoked[claims.ID] = true
	rec := call(tokens.Authenticate(okHandler), "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not authorized, token revoked"}`, rec.Body.String())
}
