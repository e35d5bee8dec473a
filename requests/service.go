package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bloodbank/apperr"
	"bloodbank/logging"
	"bloodbank/models"
	"bloodbank/utils"
)

var (
	ErrNotFound = errors.New("blood request not found")
	ErrStale    = errors.New("blood request changed concurrently")
)

const (
	UrgencyNormal = "normal"
	UrgencyUrgent = "urgent"
)

// MaxUnits caps a single request.
const MaxUnits = 100

type Store interface {
	Insert(ctx context.Context, req *models.BloodRequest) error
	Find(ctx context.Context, id string) (*models.BloodRequest, error)
	ListByHospital(ctx context.Context, hospitalID string) ([]models.BloodRequest, error)
	ListByLab(ctx context.Context, labID string, status models.RequestStatus) ([]models.BloodRequest, error)
	SetStatus(ctx context.Context, id string, from, to models.RequestStatus, at time.Time) (*models.BloodRequest, error)
}

// Directory answers facility questions for request routing and display.
type Directory interface {
	IsApproved(ctx context.Context, id string) (bool, error)
	FacilityType(ctx context.Context, id string) (models.FacilityType, error)
	Names(ctx context.Context, ids ...string) map[string]string
}

// Stock moves inventory between facilities.
type Stock interface {
	Transfer(ctx context.Context, labID, hospitalID string, group models.BloodGroup, units int) (*models.Blood, error)
}

type Service struct {
	store     Store
	directory Directory
	stock     Stock
	now       func() time.Time
}

func NewService(store Store, directory Directory, stock Stock) *Service {
	return &Service{store: store, directory: directory, stock: stock, now: func() time.Time { return time.Now().UTC() }}
}

type CreateInput struct {
	BloodLab   string            `json:"bloodLab"`
	BloodGroup models.BloodGroup `json:"bloodGroup"`
	Units      int               `json:"units"`
	Urgency    string            `json:"urgency"`
	Notes      string            `json:"notes"`
}

// Create files a hospital's request with an approved blood lab.
func (s *Service) Create(ctx context.Context, hospitalID string, in CreateInput) (*models.BloodRequest, error) {
	in.BloodGroup = models.BloodGroup(strings.ToUpper(strings.TrimSpace(string(in.BloodGroup))))
	switch {
	case in.BloodLab == "":
		return nil, apperr.Validation("Blood lab is required")
	case !in.BloodGroup.Valid():
		return nil, apperr.Validation("Invalid blood group")
	case in.Units <= 0:
		return nil, apperr.Validation("Units must be greater than zero")
	case in.Units > MaxUnits:
		return nil, apperr.Validationf("At most %d units can be requested at once", MaxUnits)
	}
	if in.Urgency == "" {
		in.Urgency = UrgencyNormal
	}
	if in.Urgency != UrgencyNormal && in.Urgency != UrgencyUrgent {
		return nil, apperr.Validation("Urgency must be normal or urgent")
	}

	ft, err := s.directory.FacilityType(ctx, in.BloodLab)
	if err != nil || ft != models.FacilityBloodLab {
		return nil, apperr.NotFound("Blood lab not found")
	}
	approved, err := s.directory.IsApproved(ctx, in.BloodLab)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, apperr.Conflict("Blood lab is not accepting requests")
	}

	now := s.now()
	req := &models.BloodRequest{
		ID:         utils.NewID(),
		Hospital:   hospitalID,
		BloodLab:   in.BloodLab,
		BloodGroup: in.BloodGroup,
		Units:      in.Units,
		Urgency:    in.Urgency,
		Notes:      strings.TrimSpace(in.Notes),
		Status:     models.RequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Insert(ctx, req); err != nil {
		return nil, apperr.Internal("insert blood request", err)
	}
	return req, nil
}

func (s *Service) named(ctx context.Context, reqs []models.BloodRequest) []models.BloodRequest {
	ids := make([]string, 0, 2*len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.Hospital, r.BloodLab)
	}
	names := s.directory.Names(ctx, ids...)
	for i := range reqs {
		reqs[i].HospitalName = names[reqs[i].Hospital]
		reqs[i].BloodLabName = names[reqs[i].BloodLab]
	}
	return reqs
}

func (s *Service) ListForHospital(ctx context.Context, hospitalID string) ([]models.BloodRequest, error) {
	out, err := s.store.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, apperr.Internal("list blood requests", err)
	}
	return s.named(ctx, out), nil
}

func (s *Service) ListForLab(ctx context.Context, labID string, status models.RequestStatus) ([]models.BloodRequest, error) {
	out, err := s.store.ListByLab(ctx, labID, status)
	if err != nil {
		return nil, apperr.Internal("list blood requests", err)
	}
	return s.named(ctx, out), nil
}

// UpdateStatus lets the addressed lab accept, reject or fulfil a request.
// Fulfilment claims the request first and rolls the status back if stock cannot be drawn.
func (s *Service) UpdateStatus(ctx context.Context, labID, id string, next models.RequestStatus) (*models.BloodRequest, error) {
	req, err := s.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Blood request not found")
	}
	if err != nil {
		return nil, apperr.Internal("find blood request", err)
	}
	if req.BloodLab != labID {
		return nil, apperr.Forbidden("This request was sent to another blood lab")
	}
	if !req.Status.CanTransition(next) {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot change request from %s to %s", req.Status, next))
	}

	updated, err := s.store.SetStatus(ctx, id, req.Status, next, s.now())
	if errors.Is(err, ErrStale) {
		return nil, apperr.Conflict("Request status was already updated")
	}
	if err != nil {
		return nil, apperr.Internal("set blood request status", err)
	}

	if next == models.RequestFulfilled {
		if _, err := s.stock.Transfer(ctx, labID, req.Hospital, req.BloodGroup, req.Units); err != nil {
			if _, rerr := s.store.SetStatus(ctx, id, next, req.Status, s.now()); rerr != nil {
				logging.FromContext(ctx).Error().Err(rerr).Str("requestId", id).Msg("roll back fulfilment status")
			}
			return nil, err
		}
	}
	return updated, nil
}
