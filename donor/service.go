package donor

import (
	"context"
	"errors"
	"strings"
	"time"

	"bloodbank/apperr"
	"bloodbank/models"
	"bloodbank/utils"
)

var ErrNotFound = errors.New("donor not found")

// ProfileUpdate carries the fields a donor may change.
type ProfileUpdate struct {
	FullName    *string         `json:"fullName"`
	Phone       *string         `json:"phone"`
	Gender      *string         `json:"gender"`
	DateOfBirth *string         `json:"dateOfBirth"`
	Address     *models.Address `json:"address"`
}

type Store interface {
	Find(ctx context.Context, id string) (*models.Donor, error)
	Update(ctx context.Context, id string, set map[string]any, at time.Time) (*models.Donor, error)
	// MarkDonated raises lastDonationDate to at, never lowering it.
	MarkDonated(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, search string, skip, limit int64) ([]models.Donor, int64, error)
}

// Registrations is the read side of the camp registration lifecycle.
type Registrations interface {
	ListForDonor(ctx context.Context, donorID string, status models.RegistrationStatus) ([]models.RegistrationView, error)
}

type Service struct {
	store Store
	regs  Registrations
	now   func() time.Time
}

func NewService(store Store, regs Registrations) *Service {
	return &Service{store: store, regs: regs, now: func() time.Time { return time.Now().UTC() }}
}

// SetRegistrations closes the construction cycle with the registration service.
func (s *Service) SetRegistrations(regs Registrations) {
	s.regs = regs
}

// FindDonor and MarkDonated let the registration lifecycle use the donor directory.
func (s *Service) FindDonor(ctx context.Context, id string) (*models.Donor, error) {
	return s.store.Find(ctx, id)
}

func (s *Service) MarkDonated(ctx context.Context, id string, at time.Time) error {
	return s.store.MarkDonated(ctx, id, at)
}

func (s *Service) Profile(ctx context.Context, id string) (*models.Donor, error) {
	d, err := s.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Donor not found")
	}
	if err != nil {
		return nil, apperr.Internal("find donor", err)
	}
	return d, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*models.Donor, error) {
	set := map[string]any{}
	if p.FullName != nil {
		name := strings.TrimSpace(*p.FullName)
		if name == "" {
			return nil, apperr.Validation("Full name cannot be empty")
		}
		set["fullName"] = name
	}
	if p.Phone != nil {
		set["phone"] = strings.TrimSpace(*p.Phone)
	}
	if p.Gender != nil {
		set["gender"] = strings.TrimSpace(*p.Gender)
	}
	if p.DateOfBirth != nil {
		d, ok := utils.ParseDate(*p.DateOfBirth)
		if !ok || d.After(s.now()) {
			return nil, apperr.Validation("Invalid date of birth")
		}
		set["dateOfBirth"] = d
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if len(set) == 0 {
		return nil, apperr.Validation("Nothing to update")
	}

	d, err := s.store.Update(ctx, id, set, s.now())
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Donor not found")
	}
	if err != nil {
		return nil, apperr.Internal("update donor", err)
	}
	return d, nil
}

// History is the donor's completed donations.
func (s *Service) History(ctx context.Context, id string) ([]models.RegistrationView, error) {
	return s.regs.ListForDonor(ctx, id, models.RegistrationDonated)
}

type Stats struct {
	TotalDonations        int        `json:"totalDonations"`
	TotalML               int        `json:"totalML"`
	LastDonationDate      *time.Time `json:"lastDonationDate"`
	UpcomingRegistrations int        `json:"upcomingRegistrations"`
	NoShows               int        `json:"noShows"`
}

func (s *Service) Stats(ctx context.Context, id string) (*Stats, error) {
	regs, err := s.regs.ListForDonor(ctx, id, "")
	if err != nil {
		return nil, err
	}
	st := &Stats{}
	for _, r := range regs {
		switch r.Status {
		case models.RegistrationDonated:
			st.TotalDonations++
			st.TotalML += r.QuantityML
			if st.LastDonationDate == nil || r.DonationDate.After(*st.LastDonationDate) {
				d := r.DonationDate
				st.LastDonationDate = &d
			}
		case models.RegistrationRegistered:
			st.UpcomingRegistrations++
		case models.RegistrationNoShow:
			st.NoShows++
		}
	}
	return st, nil
}

// List is the admin donor directory.
func (s *Service) List(ctx context.Context, q utils.QueryOptions) ([]models.Donor, int64, error) {
	out, total, err := s.store.List(ctx, q.Search, q.Skip(), int64(q.Limit))
	if err != nil {
		return nil, 0, apperr.Internal("list donors", err)
	}
	return out, total, nil
}
