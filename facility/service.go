package facility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"bloodbank/apperr"
	"bloodbank/models"
	"bloodbank/utils"

	"github.com/disintegration/imaging"
)

var ErrNotFound = errors.New("facility not found")

// LogoSize bounds both sides of a stored logo.
const LogoSize = 256

// ProfileUpdate carries the fields a facility may edit about itself.
type ProfileUpdate struct {
	Name           *string         `json:"name"`
	Phone          *string         `json:"phone"`
	Address        *models.Address `json:"address"`
	OperatingHours *string         `json:"operatingHours"`
}

type Store interface {
	Find(ctx context.Context, id string) (*models.Facility, error)
	Update(ctx context.Context, id string, p ProfileUpdate, at time.Time) (*models.Facility, error)
	List(ctx context.Context, ft models.FacilityType, status models.FacilityStatus) ([]models.Facility, error)
	SetStatus(ctx context.Context, id string, status models.FacilityStatus, at time.Time) (*models.Facility, error)
	SetLogo(ctx context.Context, id, logo string, at time.Time) error
}

type Service struct {
	store     Store
	staticDir string
	now       func() time.Time
}

func NewService(store Store, staticDir string) *Service {
	return &Service{store: store, staticDir: staticDir, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) find(ctx context.Context, id string) (*models.Facility, error) {
	f, err := s.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Facility not found")
	}
	if err != nil {
		return nil, apperr.Internal("find facility", err)
	}
	return f, nil
}

func (s *Service) Profile(ctx context.Context, id string) (*models.Facility, error) {
	return s.find(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*models.Facility, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, apperr.Validation("Name cannot be empty")
		}
		p.Name = &name
	}
	if p.Address != nil && (strings.TrimSpace(p.Address.City) == "" || strings.TrimSpace(p.Address.State) == "") {
		return nil, apperr.Validation("Address needs a city and state")
	}

	f, err := s.store.Update(ctx, id, p, s.now())
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Facility not found")
	}
	if err != nil {
		return nil, apperr.Internal("update facility", err)
	}
	return f, nil
}

// Approved lists approved facilities of one type.
func (s *Service) Approved(ctx context.Context, ft models.FacilityType) ([]models.Facility, error) {
	out, err := s.store.List(ctx, ft, models.FacilityApproved)
	if err != nil {
		return nil, apperr.Internal("list facilities", err)
	}
	return out, nil
}

// List is the admin view. Empty arguments match everything.
func (s *Service) List(ctx context.Context, ft models.FacilityType, status models.FacilityStatus) ([]models.Facility, error) {
	if ft != "" && !ft.Valid() {
		return nil, apperr.Validation("Invalid facility type")
	}
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("Invalid facility status")
	}
	out, err := s.store.List(ctx, ft, status)
	if err != nil {
		return nil, apperr.Internal("list facilities", err)
	}
	return out, nil
}

// Review approves or rejects a facility.
func (s *Service) Review(ctx context.Context, id string, next models.FacilityStatus) (*models.Facility, error) {
	f, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.Status.CanReview(next) {
		return nil, apperr.Validationf("Cannot set facility status to %q", next)
	}
	updated, err := s.store.SetStatus(ctx, id, next, s.now())
	if err != nil {
		return nil, apperr.Internal("set facility status", err)
	}
	return updated, nil
}

// IsApproved backs the facility route guard.
func (s *Service) IsApproved(ctx context.Context, id string) (bool, error) {
	f, err := s.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal("find facility", err)
	}
	return f.Status == models.FacilityApproved, nil
}

// FacilityType resolves which inventory field a facility's stock is filed under.
func (s *Service) FacilityType(ctx context.Context, id string) (models.FacilityType, error) {
	f, err := s.store.Find(ctx, id)
	if err != nil {
		return "", fmt.Errorf("facility type of %s: %w", id, err)
	}
	return f.FacilityType, nil
}

// Names maps ids to facility names, skipping unknown ids.
func (s *Service) Names(ctx context.Context, ids ...string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok || id == "" {
			continue
		}
		if f, err := s.store.Find(ctx, id); err == nil {
			out[id] = f.Name
		}
	}
	return out
}

// SaveLogo decodes an uploaded image, fits it into LogoSize x LogoSize and stores it as JPEG.
func (s *Service) SaveLogo(ctx context.Context, id string, src io.Reader) (string, error) {
	src, err := sniffImage(src)
	if err != nil {
		return "", err
	}
	if src, err = checkDimensions(src); err != nil {
		return "", err
	}
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", apperr.Validation("Logo must be a PNG, JPEG or GIF image")
	}
	logo := imaging.Fit(img, LogoSize, LogoSize, imaging.Lanczos)

	dir := filepath.Join(s.staticDir, "logos")
	if err := utils.EnsureDir(dir); err != nil {
		return "", apperr.Internal("create logo directory", err)
	}
	name := utils.SanitizeFilename(id) + ".jpg"
	if err := imaging.Save(logo, filepath.Join(dir, name), imaging.JPEGQuality(90)); err != nil {
		return "", apperr.Internal("save logo", err)
	}

	path := "/static/logos/" + name
	if err := s.store.SetLogo(ctx, id, path, s.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", apperr.NotFound("Facility not found")
		}
		return "", apperr.Internal("set logo", err)
	}
	return path, nil
}
