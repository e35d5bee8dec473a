package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"bloodbank/apperr"
	"bloodbank/logging"
	"bloodbank/models"
	"bloodbank/utils"
)

var (
	ErrNotFound = errors.New("blood record not found")
	// ErrInsufficient means no single unexpired record can cover a draw.
	ErrInsufficient = errors.New("insufficient stock")
)

// ExpiringWindow is how far ahead Summary looks for records about to expire.
const ExpiringWindow = 7 * 24 * time.Hour

// Owner identifies the facility whose stock is being read or written.
type Owner struct {
	ID   string
	Type models.FacilityType
}

// Field is the Blood document field that references the owner.
func (o Owner) Field() string {
	if o.Type == models.FacilityBloodLab {
		return "bloodLab"
	}
	return "hospital"
}

func (o Owner) assign(b *models.Blood) {
	if o.Type == models.FacilityBloodLab {
		b.BloodLab = o.ID
	} else {
		b.Hospital = o.ID
	}
}

// Filter narrows List. Expired nil means both.
type Filter struct {
	BloodGroup models.BloodGroup
	Expired    *bool
	Now        time.Time
}

type Store interface {
	Insert(ctx context.Context, b *models.Blood) error
	Find(ctx context.Context, owner Owner, id string) (*models.Blood, error)
	Update(ctx context.Context, owner Owner, id string, quantity *int, expiry *time.Time, at time.Time) (*models.Blood, error)
	Delete(ctx context.Context, owner Owner, id string) error
	List(ctx context.Context, owner Owner, f Filter) ([]models.Blood, error)
	// Draw takes units from one unexpired record of group holding at least that many.
	Draw(ctx context.Context, owner Owner, group models.BloodGroup, units int, now time.Time) (*models.Blood, error)
	// Refund puts units back on a record after a failed transfer.
	Refund(ctx context.Context, id string, units int) error
}

// FacilityTypes resolves a facility id to its type.
type FacilityTypes interface {
	FacilityType(ctx context.Context, id string) (models.FacilityType, error)
}

type Service struct {
	store      Store
	facilities FacilityTypes
	now        func() time.Time
}

func NewService(store Store, facilities FacilityTypes) *Service {
	return &Service{store: store, facilities: facilities, now: func() time.Time { return time.Now().UTC() }}
}

type AddInput struct {
	BloodGroup models.BloodGroup `json:"bloodGroup"`
	Quantity   *int              `json:"quantity"`
	ExpiryDate string            `json:"expiryDate"`
}

// Add records manually entered stock.
func (s *Service) Add(ctx context.Context, owner Owner, in AddInput) (*models.Blood, error) {
	in.BloodGroup = models.BloodGroup(strings.ToUpper(strings.TrimSpace(string(in.BloodGroup))))
	if !in.BloodGroup.Valid() {
		return nil, apperr.Validation("Invalid blood group")
	}
	if in.Quantity == nil || *in.Quantity < 0 {
		return nil, apperr.Validation("Quantity must be zero or more")
	}
	expiry, ok := utils.ParseDate(in.ExpiryDate)
	if !ok {
		return nil, apperr.Validation("A valid expiry date is required")
	}

	now := s.now()
	b := &models.Blood{
		ID:         utils.NewID(),
		BloodGroup: in.BloodGroup,
		Quantity:   *in.Quantity,
		ExpiryDate: expiry,
		Source:     models.SourceManual,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	owner.assign(b)
	if err := s.store.Insert(ctx, b); err != nil {
		return nil, apperr.Internal("insert blood", err)
	}
	return b, nil
}

// List returns the owner's records. expired is "", "true" or "false".
func (s *Service) List(ctx context.Context, owner Owner, group, expired string) ([]models.Blood, error) {
	f := Filter{Now: s.now()}
	if group != "" {
		f.BloodGroup = models.BloodGroup(strings.ToUpper(group))
		if !f.BloodGroup.Valid() {
			return nil, apperr.Validation("Invalid blood group")
		}
	}
	switch expired {
	case "":
	case "true", "false":
		v := expired == "true"
		f.Expired = &v
	default:
		return nil, apperr.Validation("expired must be true or false")
	}

	out, err := s.store.List(ctx, owner, f)
	if err != nil {
		return nil, apperr.Internal("list blood", err)
	}
	return out, nil
}

type UpdateInput struct {
	Quantity   *int    `json:"quantity"`
	ExpiryDate *string `json:"expiryDate"`
}

func (s *Service) Update(ctx context.Context, owner Owner, id string, in UpdateInput) (*models.Blood, error) {
	if in.Quantity == nil && in.ExpiryDate == nil {
		return nil, apperr.Validation("Nothing to update")
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return nil, apperr.Validation("Quantity must be zero or more")
	}
	var expiry *time.Time
	if in.ExpiryDate != nil {
		t, ok := utils.ParseDate(*in.ExpiryDate)
		if !ok {
			return nil, apperr.Validation("Invalid expiry date")
		}
		expiry = &t
	}

	b, err := s.store.Update(ctx, owner, id, in.Quantity, expiry, s.now())
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Blood record not found")
	}
	if err != nil {
		return nil, apperr.Internal("update blood", err)
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, owner Owner, id string) error {
	err := s.store.Delete(ctx, owner, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("Blood record not found")
	}
	if err != nil {
		return apperr.Internal("delete blood", err)
	}
	return nil
}

type GroupTotal struct {
	BloodGroup models.BloodGroup `json:"bloodGroup"`
	Quantity   int               `json:"quantity"`
	VolumeML   int               `json:"volumeML"`
	Records    int               `json:"records"`
}

type Summary struct {
	Groups        []GroupTotal `json:"groups"`
	TotalQuantity int          `json:"totalQuantity"`
	TotalVolumeML int          `json:"totalVolumeML"`
	ExpiringSoon  int          `json:"expiringSoon"`
	Expired       int          `json:"expired"`
}

// Summary totals unexpired stock per blood group, in BloodGroups order.
func (s *Service) Summary(ctx context.Context, owner Owner) (*Summary, error) {
	now := s.now()
	records, err := s.store.List(ctx, owner, Filter{Now: now})
	if err != nil {
		return nil, apperr.Internal("list blood", err)
	}

	totals := make(map[models.BloodGroup]*GroupTotal, len(models.BloodGroups))
	sum := &Summary{Groups: make([]GroupTotal, len(models.BloodGroups))}
	for i, g := range models.BloodGroups {
		sum.Groups[i].BloodGroup = g
		totals[g] = &sum.Groups[i]
	}

	soon := now.Add(ExpiringWindow)
	for _, b := range records {
		if b.Expired(now) {
			sum.Expired++
			continue
		}
		if b.ExpiryDate.Before(soon) {
			sum.ExpiringSoon++
		}
		volume := 0
		if b.Quantity > 0 {
			volume = b.VolumeML
		}
		if t, ok := totals[b.BloodGroup]; ok {
			t.Quantity += b.Quantity
			t.VolumeML += volume
			t.Records++
		}
		sum.TotalQuantity += b.Quantity
		sum.TotalVolumeML += volume
	}
	return sum, nil
}

// CreditDonation adds one unit to the hosting facility's stock for a camp
// donation, recording the collected millilitres alongside.
func (s *Service) CreditDonation(ctx context.Context, facilityID string, group models.BloodGroup, quantityML int, donatedAt time.Time, registrationID string) error {
	ft, err := s.facilities.FacilityType(ctx, facilityID)
	if err != nil {
		return err
	}
	if donatedAt.IsZero() {
		donatedAt = s.now()
	}
	now := s.now()
	b := &models.Blood{
		ID:           utils.NewID(),
		BloodGroup:   group,
		Quantity:     models.UnitsPerDonation,
		VolumeML:     quantityML,
		ExpiryDate:   donatedAt.Add(models.WholeBloodShelfLife),
		Source:       models.SourceCamp,
		Registration: registrationID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	Owner{ID: facilityID, Type: ft}.assign(b)
	return s.store.Insert(ctx, b)
}

// Transfer moves units of group from a blood lab to a hospital. The hospital's
// record keeps the source record's expiry.
func (s *Service) Transfer(ctx context.Context, labID, hospitalID string, group models.BloodGroup, units int) (*models.Blood, error) {
	now := s.now()
	lab := Owner{ID: labID, Type: models.FacilityBloodLab}
	src, err := s.store.Draw(ctx, lab, group, units, now)
	if errors.Is(err, ErrInsufficient) {
		return nil, apperr.Conflict("Insufficient " + string(group) + " stock to fulfil this request")
	}
	if err != nil {
		return nil, apperr.Internal("draw stock", err)
	}

	b := &models.Blood{
		ID:         utils.NewID(),
		BloodGroup: group,
		Quantity:   units,
		VolumeML:   drawnVolume(src, units),
		ExpiryDate: src.ExpiryDate,
		Hospital:   hospitalID,
		Source:     models.SourceTransfer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Insert(ctx, b); err != nil {
		if rerr := s.store.Refund(ctx, src.ID, units); rerr != nil {
			logging.FromContext(ctx).Error().Err(rerr).Str("bloodId", src.ID).Int("units", units).Msg("refund drawn stock")
		}
		return nil, apperr.Internal("record transfer", err)
	}
	return b, nil
}

// drawnVolume apportions a record's volume to the units just drawn from it.
// src carries the quantity left after the draw.
func drawnVolume(src *models.Blood, units int) int {
	before := src.Quantity + units
	if src.VolumeML == 0 || before <= 0 {
		return 0
	}
	return src.VolumeML * units / before
}
