package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bloodbank/apperr"
	"bloodbank/globals"
	"bloodbank/logging"
	"bloodbank/models"
	"bloodbank/mq"
	"bloodbank/utils"
)

var (
	ErrCampNotFound          = errors.New("camp not found")
	ErrCampNotOpen           = errors.New("camp is not open for registration")
	ErrCampFull              = errors.New("camp is full")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	// ErrStaleStatus means the registration left the expected status before the update landed.
	ErrStaleStatus = errors.New("registration status changed")
	// ErrStaleCounter means actualDonors moved between the read and the reconcile write.
	ErrStaleCounter = errors.New("seat counter changed")
)

// Store persists camps' seat counters and registrations.
type Store interface {
	FindCamp(ctx context.Context, campID string) (*models.BloodCamp, error)
	// ReserveSeat increments actualDonors only while the camp is Upcoming and below capacity.
	ReserveSeat(ctx context.Context, campID string) (*models.BloodCamp, error)
	// ReleaseSeat decrements actualDonors, never below zero.
	ReleaseSeat(ctx context.Context, campID string) (*models.BloodCamp, error)
	Insert(ctx context.Context, reg *models.CampRegistration) error
	Find(ctx context.Context, id string) (*models.CampRegistration, error)
	Exists(ctx context.Context, donorID, campID string) (bool, error)
	// Transition moves a registration from -> to; quantityML > 0 overwrites the stored quantity.
	Transition(ctx context.Context, id string, from, to models.RegistrationStatus, quantityML int) (*models.CampRegistration, error)
	ListByCamp(ctx context.Context, campID string) ([]models.RegistrationView, error)
	ListByDonor(ctx context.Context, donorID string, status models.RegistrationStatus) ([]models.RegistrationView, error)
	CountSeats(ctx context.Context, campID string) (int, error)
	// SetActualDonors writes to only while the counter still reads from.
	SetActualDonors(ctx context.Context, campID string, from, to int) error
	CampIDs(ctx context.Context) ([]string, error)
}

// Donors is the slice of the donor directory the lifecycle needs.
type Donors interface {
	FindDonor(ctx context.Context, id string) (*models.Donor, error)
	MarkDonated(ctx context.Context, id string, at time.Time) error
}

// Inventory receives camp donations as stock.
type Inventory interface {
	CreditDonation(ctx context.Context, facilityID string, group models.BloodGroup, quantityML int, donatedAt time.Time, registrationID string) error
}

// Actor is the authenticated caller acting on a registration.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) owns(c *models.BloodCamp) bool {
	return a.Role == globals.RoleAdmin || (a.Role == globals.RoleFacility && c.Hospital == a.ID)
}

type Service struct {
	store     Store
	donors    Donors
	inventory Inventory
	events    mq.Publisher
	now       func() time.Time
}

func NewService(store Store, donors Donors, inventory Inventory, events mq.Publisher) *Service {
	return &Service{
		store:     store,
		donors:    donors,
		inventory: inventory,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput is the body of POST /api/donor/camps/:id/register.
type RegisterInput struct {
	TimeSlot     string `json:"timeSlot"`
	QuantityML   int    `json:"quantityML"`
	DonationDate string `json:"donationDate"`
}

func (in *RegisterInput) normalize() (time.Time, error) {
	in.TimeSlot = strings.TrimSpace(in.TimeSlot)
	if in.TimeSlot == "" {
		return time.Time{}, apperr.Validation("Time slot is required")
	}
	if in.QuantityML == 0 {
		in.QuantityML = models.DefaultQuantityML
	}
	if in.QuantityML < 0 || in.QuantityML > models.MaxQuantityML {
		return time.Time{}, apperr.Validationf("quantityML must be between 1 and %d", models.MaxQuantityML)
	}
	if in.DonationDate == "" {
		return time.Time{}, nil
	}
	d, ok := utils.ParseDate(in.DonationDate)
	if !ok {
		return time.Time{}, apperr.Validation("Invalid donation date")
	}
	return d, nil
}

// Register books a seat at an Upcoming camp for donorID.
func (s *Service) Register(ctx context.Context, donorID, campID string, in RegisterInput) (*models.CampRegistration, error) {
	donationDate, err := in.normalize()
	if err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, donorID, campID)
	if err != nil {
		return nil, apperr.Internal("check existing registration", err)
	}
	if exists {
		return nil, apperr.Conflict("You are already registered for this camp")
	}

	camp, err := s.store.ReserveSeat(ctx, campID)
	if err != nil {
		return nil, mapCampError(err)
	}

	if donationDate.IsZero() {
		donationDate = camp.Date
	}
	now := s.now()
	reg := &models.CampRegistration{
		ID:           utils.NewID(),
		Donor:        donorID,
		Camp:         campID,
		TimeSlot:     in.TimeSlot,
		QuantityML:   in.QuantityML,
		DonationDate: donationDate,
		Status:       models.RegistrationRegistered,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Insert(ctx, reg); err != nil {
		// give the seat back; the registration never existed
		if released, rerr := s.store.ReleaseSeat(ctx, campID); rerr != nil {
			logging.FromContext(ctx).Error().Err(rerr).Str("campId", campID).Msg("release seat after failed insert")
		} else {
			camp = released
		}
		if errors.Is(err, ErrDuplicateRegistration) {
			return nil, apperr.Conflict("You are already registered for this camp")
		}
		return nil, apperr.Internal("insert registration", err)
	}

	mq.Emit(ctx, s.events, mq.CampEvent{
		Type:           mq.EventRegistrationCreated,
		CampID:         campID,
		RegistrationID: reg.ID,
		Status:         string(reg.Status),
		ActualDonors:   camp.ActualDonors,
		ExpectedDonors: camp.ExpectedDonors,
	})
	return reg, nil
}

// StatusInput is the body of PUT /api/blood-lab/camps/registrations/:id/status.
type StatusInput struct {
	Status   models.RegistrationStatus `json:"status"`
	Quantity *int                      `json:"quantity"`
}

// UpdateStatus records the outcome of a registration: Donated or No-Show.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, regID string, in StatusInput) (*models.CampRegistration, error) {
	if !in.Status.Terminal() {
		return nil, apperr.Validation("Status must be Donated or No-Show")
	}
	quantity := 0
	if in.Quantity != nil && in.Status == models.RegistrationDonated {
		quantity = *in.Quantity
		if quantity < 0 || quantity > models.MaxQuantityML {
			return nil, apperr.Validationf("quantity must be between 1 and %d", models.MaxQuantityML)
		}
	}

	reg, err := s.store.Find(ctx, regID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	camp, err := s.store.FindCamp(ctx, reg.Camp)
	if err != nil {
		return nil, mapCampError(err)
	}
	if !actor.owns(camp) {
		return nil, apperr.Forbidden("You do not manage this camp")
	}
	if !reg.Status.CanTransition(in.Status) {
		return nil, apperr.Conflict(fmt.Sprintf("Registration is already marked %s", reg.Status))
	}

	updated, err := s.store.Transition(ctx, regID, models.RegistrationRegistered, in.Status, quantity)
	if err != nil {
		if errors.Is(err, ErrStaleStatus) {
			return nil, apperr.Conflict("Registration status was already updated")
		}
		return nil, mapRegistrationError(err)
	}

	switch updated.Status {
	case models.RegistrationNoShow:
		if released, err := s.store.ReleaseSeat(ctx, camp.ID); err != nil {
			logging.FromContext(ctx).Error().Err(err).Str("campId", camp.ID).Msg("release no-show seat")
		} else {
			camp = released
		}
	case models.RegistrationDonated:
		s.recordDonation(ctx, camp, updated)
	}

	mq.Emit(ctx, s.events, mq.CampEvent{
		Type:           mq.EventRegistrationUpdated,
		CampID:         camp.ID,
		RegistrationID: updated.ID,
		Status:         string(updated.Status),
		ActualDonors:   camp.ActualDonors,
		ExpectedDonors: camp.ExpectedDonors,
	})
	return updated, nil
}

// recordDonation credits stock and stamps the donor. Failures are logged, the status stays Donated.
func (s *Service) recordDonation(ctx context.Context, camp *models.BloodCamp, reg *models.CampRegistration) {
	l := logging.FromContext(ctx).With().Str("registrationId", reg.ID).Logger()

	donor, err := s.donors.FindDonor(ctx, reg.Donor)
	if err != nil {
		l.Error().Err(err).Msg("load donor for donation")
		return
	}
	if err := s.inventory.CreditDonation(ctx, camp.Hospital, donor.BloodGroup, reg.QuantityML, reg.DonationDate, reg.ID); err != nil {
		l.Error().Err(err).Msg("credit donation to inventory")
	}
	if err := s.donors.MarkDonated(ctx, donor.ID, reg.DonationDate); err != nil {
		l.Error().Err(err).Msg("stamp donor last donation")
	}
}

// ListForCamp returns a camp's registrations with donors populated.
func (s *Service) ListForCamp(ctx context.Context, actor Actor, campID string) ([]models.RegistrationView, error) {
	camp, err := s.store.FindCamp(ctx, campID)
	if err != nil {
		return nil, mapCampError(err)
	}
	if !actor.owns(camp) {
		return nil, apperr.Forbidden("You do not manage this camp")
	}
	regs, err := s.store.ListByCamp(ctx, campID)
	if err != nil {
		return nil, apperr.Internal("list camp registrations", err)
	}
	return regs, nil
}

// ListForDonor returns donorID's registrations, optionally filtered by status.
func (s *Service) ListForDonor(ctx context.Context, donorID string, status models.RegistrationStatus) ([]models.RegistrationView, error) {
	regs, err := s.store.ListByDonor(ctx, donorID, status)
	if err != nil {
		return nil, apperr.Internal("list donor registrations", err)
	}
	return regs, nil
}

// GetForDonor returns one of donorID's registrations with its camp populated.
func (s *Service) GetForDonor(ctx context.Context, donorID, regID string) (*models.RegistrationView, error) {
	regs, err := s.ListForDonor(ctx, donorID, "")
	if err != nil {
		return nil, err
	}
	for i := range regs {
		if regs[i].ID == regID {
			return &regs[i], nil
		}
	}
	return nil, apperr.NotFound("Registration not found")
}

// ReconcileResult reports one camp's seat counter before and after reconciliation.
type ReconcileResult struct {
	CampID string `json:"campId"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// reconcileAttempts bounds how often one camp is re-read when its counter keeps moving.
const reconcileAttempts = 3

// Reconcile recomputes actualDonors from registrations holding a seat.
// An empty campID reconciles every camp. The write only lands if the counter
// still holds the value read, so a concurrent reservation forces a re-read.
// A donor registering between the seat reservation and the registration
// insert can still be missed; run it as a maintenance operation.
func (s *Service) Reconcile(ctx context.Context, campID string) ([]ReconcileResult, error) {
	ids := []string{campID}
	if campID == "" {
		var err error
		if ids, err = s.store.CampIDs(ctx); err != nil {
			return nil, apperr.Internal("list camps", err)
		}
	}

	results := make([]ReconcileResult, 0, len(ids))
	for _, id := range ids {
		res, err := s.reconcileCamp(ctx, id)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) reconcileCamp(ctx context.Context, id string) (ReconcileResult, error) {
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		camp, err := s.store.FindCamp(ctx, id)
		if err != nil {
			return ReconcileResult{}, mapCampError(err)
		}
		n, err := s.store.CountSeats(ctx, id)
		if err != nil {
			return ReconcileResult{}, apperr.Internal("count seats", err)
		}
		res := ReconcileResult{CampID: id, Before: camp.ActualDonors, After: n}
		if n == camp.ActualDonors {
			return res, nil
		}

		err = s.store.SetActualDonors(ctx, id, camp.ActualDonors, n)
		if errors.Is(err, ErrStaleCounter) {
			continue
		}
		if err != nil {
			return ReconcileResult{}, mapCampError(err)
		}
		mq.Emit(ctx, s.events, mq.CampEvent{
			Type:           mq.EventCampUpdated,
			CampID:         id,
			ActualDonors:   n,
			ExpectedDonors: camp.ExpectedDonors,
		})
		return res, nil
	}
	return ReconcileResult{}, apperr.Conflict(fmt.Sprintf("Seat count for camp %s kept changing, retry later", id))
}

func mapCampError(err error) error {
	switch {
	case errors.Is(err, ErrCampNotFound):
		return apperr.NotFound("Camp not found")
	case errors.Is(err, ErrCampNotOpen):
		return apperr.Conflict("Camp is not open for registration")
	case errors.Is(err, ErrCampFull):
		return apperr.Conflict("Camp is full")
	default:
		return apperr.Internal("load camp", err)
	}
}

func mapRegistrationError(err error) error {
	if errors.Is(err, ErrRegistrationNotFound) {
		return apperr.NotFound("Registration not found")
	}
	return apperr.Internal("load registration", err)
}
