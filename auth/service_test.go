package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bloodbank/apperr"
	"bloodbank/globals"
	"bloodbank/middleware"
	"bloodbank/models"
	"bloodbank/rdx"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memAccounts struct {
	mu         sync.Mutex
	donors     map[string]*models.Donor
	facilities map[string]*models.Facility
	admins     map[string]*models.Admin
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		donors:     map[string]*models.Donor{},
		facilities: map[string]*models.Facility{},
		admins:     map[string]*models.Admin{},
	}
}

func byEmail[T any](m map[string]*T, email string, get func(*T) string) (*T, error) {
	for _, v := range m {
		if get(v) == email {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAccounts) DonorByEmail(_ context.Context, email string) (*models.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return byEmail(m.donors, email, func(d *models.Donor) string { return d.Email })
}

func (m *memAccounts) FacilityByEmail(_ context.Context, email string) (*models.Facility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return byEmail(m.facilities, email, func(f *models.Facility) string { return f.Email })
}

func (m *memAccounts) AdminByEmail(_ context.Context, email string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return byEmail(m.admins, email, func(a *models.Admin) string { return a.Email })
}

func byID[T any](m map[string]*T, id string) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memAccounts) DonorByID(_ context.Context, id string) (*models.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return byID(m.donors, id)
}

func (m *memAccounts) FacilityByID(_ context.Context, id string) (*models.Facility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return byID(m.facilities, id)
}

func (m *memAccounts) AdminByID(_ context.Context, id string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return byID(m.admins, id)
}

func (m *memAccounts) InsertDonor(ctx context.Context, d *models.Donor) error {
	if _, err := m.DonorByEmail(ctx, d.Email); err == nil {
		return ErrEmailTaken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donors[d.ID] = d
	return nil
}

func (m *memAccounts) InsertFacility(ctx context.Context, f *models.Facility) error {
	if _, err := m.FacilityByEmail(ctx, f.Email); err == nil {
		return ErrEmailTaken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facilities[f.ID] = f
	return nil
}

func (m *memAccounts) InsertAdmin(ctx context.Context, a *models.Admin) error {
	if _, err := m.AdminByEmail(ctx, a.Email); err == nil {
		return ErrEmailTaken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[a.ID] = a
	return nil
}

func newService(t *testing.T) (*Service, *memAccounts, *middleware.Tokens) {
	t.Helper()
	accounts := newMemAccounts()
	tokens := middleware.NewTokens([]byte("test-secret"), time.Hour)
	svc := NewService(accounts, tokens)
	svc.cost = bcrypt.MinCost
	return svc, accounts, tokens
}

func donorInput() RegisterInput {
	return RegisterInput{
		Role:       globals.RoleDonor,
		Email:      " Asha@Example.com ",
		Password:   "secret123",
		FullName:   "Asha Rao",
		BloodGroup: "o+",
		Address:    models.Address{City: "Pune", State: "MH"},
	}
}

func facilityInput() RegisterInput {
	return RegisterInput{
		Role:         globals.RoleFacility,
		Email:        "lab@example.com",
		Password:     "secret123",
		Name:         "Central Lab",
		FacilityType: models.FacilityBloodLab,
		Address:      models.Address{City: "Pune", State: "MH"},
	}
}

func TestRegisterDonorIssuesToken(t *testing.T) {
	svc, accounts, tokens := newService(t)

	sess, err := svc.Register(context.Background(), donorInput())
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	claims, err := tokens.ValidateJWT("Bearer " + sess.Token)
	require.NoError(t, err)
	assert.Equal(t, globals.RoleDonor, claims.Role)

	d := accounts.donors[claims.UserID]
	require.NotNil(t, d)
	assert.Equal(t, "asha@example.com", d.Email)
	assert.Equal(t, models.BloodGroup("O+"), d.BloodGroup)
	assert.NotEqual(t, "secret123", d.PasswordHash)

	_, err = svc.Register(context.Background(), donorInput())
	assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(err))
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newService(t)
	tests := []struct {
		mutate func(*RegisterInput)
		msg    string
	}{
		{func(in *RegisterInput) { in.Email = "nope" }, "A valid email is required"},
		{func(in *RegisterInput) { in.Password = "123" }, "Password must be at least 6 characters"},
		{func(in *RegisterInput) { in.BloodGroup = "Z" }, "Invalid blood group"},
		{func(in *RegisterInput) { in.Role = "admin" }, "Role must be donor or facility"},
	}
	for _, tt := range tests {
		in := donorInput()
		tt.mutate(&in)
		_, err := svc.Register(context.Background(), in)
		assert.Equal(t, tt.msg, apperr.PublicMessage(err))
	}

	in := facilityInput()
	in.FacilityType = "clinic"
	_, err := svc.Register(context.Background(), in)
	assert.Equal(t, "Facility type must be hospital or blood-lab", apperr.PublicMessage(err))
}

func TestFacilityLoginRequiresApproval(t *testing.T) {
	svc, accounts, tokens := newService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, facilityInput())
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
	f := sess.User.(*models.Facility)
	assert.Equal(t, models.FacilityPending, f.Status)

	login := LoginInput{Email: "lab@example.com", Password: "secret123", Role: globals.RoleFacility}
	_, err = svc.Login(ctx, login)
	assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(err))
	assert.Equal(t, "Facility account is pending approval", apperr.PublicMessage(err))

	accounts.facilities[f.ID].Status = models.FacilityRejected
	_, err = svc.Login(ctx, login)
	assert.Equal(t, "Facility account is rejected for approval", apperr.PublicMessage(err))

	accounts.facilities[f.ID].Status = models.FacilityApproved
	sess, err = svc.Login(ctx, login)
	require.NoError(t, err)
	claims, err := tokens.ValidateJWT("Bearer " + sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "blood-lab", claims.FacilityType)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, donorInput())
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))

	_, err = svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret123"})
	assert.Equal(t, "Invalid email or password", apperr.PublicMessage(err))

	sess, err := svc.Login(ctx, LoginInput{Email: "ASHA@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, globals.RoleDonor, sess.Role)
}

func TestCreateAdminAndProfile(t *testing.T) {
	svc, _, tokens := newService(t)
	ctx := context.Background()

	a, err := svc.CreateAdmin(ctx, "", "root@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Administrator", a.Name)

	sess, err := svc.Login(ctx, LoginInput{Email: "root@example.com", Password: "secret123", Role: globals.RoleAdmin})
	require.NoError(t, err)
	claims, err := tokens.ValidateJWT("Bearer " + sess.Token)
	require.NoError(t, err)

	user, err := svc.Profile(ctx, claims.UserID, claims.Role)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", user.(*models.Admin).Email)

	_, err = svc.Profile(ctx, "missing", globals.RoleDonor)
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, tokens := newService(t)
	deny := rdx.NewMemoryDenylist()
	tokens.WithRevocations(deny)
	h := NewHandler(svc, tokens, deny)

	sess, err := svc.Register(context.Background(), donorInput())
	require.NoError(t, err)

	router := httprouter.New()
	router.POST("/api/auth/logout", h.Logout)
	router.GET("/api/auth/profile", tokens.Authenticate(h.Profile))

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		req.Header.Set("Authorization", "Bearer "+sess.Token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	require.Equal(t, http.StatusOK, get().Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, get().Code)
}

func TestRegisterHandlerFacilityMessage(t *testing.T) {
	svc, _, tokens := newService(t)
	h := NewHandler(svc, tokens, rdx.NewMemoryDenylist())

	body, _ := json.Marshal(facilityInput())
	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(string(body))), nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Registration submitted, awaiting admin approval", out["message"])
	assert.Equal(t, "", out["token"])
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}
