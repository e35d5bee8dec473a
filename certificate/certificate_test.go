package certificate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bloodbank/apperr"
	"bloodbank/globals"
	"bloodbank/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegs map[string]models.RegistrationView

func (f fakeRegs) GetForDonor(_ context.Context, donorID, regID string) (*models.RegistrationView, error) {
	reg, ok := f[regID]
	if !ok || reg.Donor.ID != donorID {
		return nil, apperr.NotFound("Registration not found")
	}
	return &reg, nil
}

type fakeDonors struct{}

func (fakeDonors) FindDonor(_ context.Context, id string) (*models.Donor, error) {
	return &models.Donor{ID: id, FullName: "Asha Rao", BloodGroup: "B+"}, nil
}

func registration(id string, status models.RegistrationStatus) models.RegistrationView {
	return models.RegistrationView{
		CampRegistration: models.CampRegistration{
			ID:           id,
			QuantityML:   450,
			DonationDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			Status:       status,
		},
		Donor: models.DonorRef{ID: "donor-1"},
		Camp: models.CampRef{
			ID:           "camp-1",
			Title:        "Spring Drive",
			Location:     models.CampLocation{Venue: "Town Hall", City: "Pune"},
			HospitalName: "City Hospital",
		},
	}
}

func newService() *Service {
	regs := fakeRegs{
		"reg-done": registration("reg-done", models.RegistrationDonated),
		"reg-open": registration("reg-open", models.RegistrationRegistered),
	}
	return NewService(regs, fakeDonors{}, []byte("test-secret"))
}

func TestSignAndVerify(t *testing.T) {
	svc := newService()
	code := svc.Sign(Payload{RegistrationID: "r1", CampID: "c1", DonorID: "d1"})
	assert.True(t, strings.HasPrefix(code, "r1|c1|d1|"))

	p, err := svc.Verify(code)
	require.NoError(t, err)
	assert.Equal(t, "c1", p.CampID)

	_, err = svc.Verify("r1|c2|d1|" + strings.Split(code, "|")[3])
	assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(err))

	_, err = svc.Verify("garbage")
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))

	other := NewService(nil, nil, []byte("another-secret"))
	_, err = other.Verify(code)
	assert.Error(t, err)
}

func TestRenderDonated(t *testing.T) {
	pdf, err := newService().Render(context.Background(), "donor-1", "reg-done")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestRenderRequiresDonated(t *testing.T) {
	_, err := newService().Render(context.Background(), "donor-1", "reg-open")
	assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(err))
}

func TestRenderOtherDonor(t *testing.T) {
	_, err := newService().Render(context.Background(), "donor-2", "reg-done")
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
}

func withDonor(id string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), globals.UserIDKey, id)
		next(w, r.WithContext(ctx), ps)
	}
}

func TestDownloadHandler(t *testing.T) {
	h := NewHandler(newService())
	router := httprouter.New()
	router.GET("/api/donor/registrations/:id/certificate", withDonor("donor-1", h.Download))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/donor/registrations/reg-done/certificate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "certificate-reg-done.pdf")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/donor/registrations/reg-open/certificate", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyHandler(t *testing.T) {
	svc := newService()
	h := NewHandler(svc)
	code := svc.Sign(Payload{RegistrationID: "r1", CampID: "c1", DonorID: "d1"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/certificates/verify", nil)
	q := req.URL.Query()
	q.Set("code", code)
	req.URL.RawQuery = q.Encode()
	h.Verify(rec, req, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["valid"])
}
