package camps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bloodbank/apperr"
	"bloodbank/models"
	"bloodbank/mq"
	"bloodbank/utils"
)

var (
	ErrNotFound = errors.New("camp not found")
	// ErrBelowSeats means expectedDonors would drop under the seats already held.
	ErrBelowSeats = errors.New("capacity below held seats")
	ErrStale      = errors.New("camp changed concurrently")
)

// Filter selects camps for listing. Zero values match everything; Limit 0 means no limit.
type Filter struct {
	Hospital string
	Statuses []models.CampStatus
	Search   string
	Skip     int64
	Limit    int64
}

type Store interface {
	Insert(ctx context.Context, c *models.BloodCamp) error
	Find(ctx context.Context, id string) (*models.BloodCamp, error)
	// Update replaces the editable fields, only while actualDonors <= c.ExpectedDonors.
	Update(ctx context.Context, c *models.BloodCamp) (*models.BloodCamp, error)
	SetStatus(ctx context.Context, id string, from, to models.CampStatus) (*models.BloodCamp, error)
	List(ctx context.Context, f Filter) ([]models.BloodCamp, int64, error)
	Owners(ctx context.Context, ids []string) (map[string]models.HospitalRef, error)
}

type Service struct {
	store  Store
	events mq.Publisher
	now    func() time.Time
}

func NewService(store Store, events mq.Publisher) *Service {
	return &Service{store: store, events: events, now: func() time.Time { return time.Now().UTC() }}
}

// Input is the body accepted by create and update.
type Input struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Location       models.CampLocation `json:"location"`
	Date           string              `json:"date"`
	Time           models.CampTime     `json:"time"`
	ExpectedDonors int                 `json:"expectedDonors"`
}

func (in *Input) validate() (time.Time, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Location.Venue = strings.TrimSpace(in.Location.Venue)
	in.Location.City = strings.TrimSpace(in.Location.City)
	in.Location.State = strings.TrimSpace(in.Location.State)

	switch {
	case in.Title == "":
		return time.Time{}, apperr.Validation("Title is required")
	case in.Location.Venue == "" || in.Location.City == "":
		return time.Time{}, apperr.Validation("Venue and city are required")
	case in.ExpectedDonors < 0:
		return time.Time{}, apperr.Validation("expectedDonors cannot be negative")
	}
	if in.Time.Start != "" && !utils.ValidTimeOfDay(in.Time.Start) ||
		in.Time.End != "" && !utils.ValidTimeOfDay(in.Time.End) {
		return time.Time{}, apperr.Validation("Time must be HH:MM")
	}
	if in.Time.Start != "" && in.Time.End != "" && in.Time.End <= in.Time.Start {
		return time.Time{}, apperr.Validation("End time must be after start time")
	}
	date, ok := utils.ParseDate(in.Date)
	if !ok {
		return time.Time{}, apperr.Validation("A valid date is required")
	}
	return date, nil
}

// Create schedules a new Upcoming camp owned by facilityID.
func (s *Service) Create(ctx context.Context, facilityID string, in Input) (*models.BloodCamp, error) {
	date, err := in.validate()
	if err != nil {
		return nil, err
	}
	now := s.now()
	c := &models.BloodCamp{
		ID:             utils.NewID(),
		Hospital:       facilityID,
		Title:          in.Title,
		Description:    strings.TrimSpace(in.Description),
		Location:       in.Location,
		Date:           date,
		Time:           in.Time,
		ExpectedDonors: in.ExpectedDonors,
		Status:         models.CampUpcoming,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, apperr.Internal("insert camp", err)
	}
	return c, nil
}

func (s *Service) owned(ctx context.Context, facilityID, id string) (*models.BloodCamp, error) {
	c, err := s.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Camp not found")
	}
	if err != nil {
		return nil, apperr.Internal("find camp", err)
	}
	if c.Hospital != facilityID {
		return nil, apperr.Forbidden("You do not manage this camp")
	}
	return c, nil
}

// Update rewrites a camp's details. Completed and Cancelled camps are frozen.
func (s *Service) Update(ctx context.Context, facilityID, id string, in Input) (*models.BloodCamp, error) {
	date, err := in.validate()
	if err != nil {
		return nil, err
	}
	c, err := s.owned(ctx, facilityID, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CampCompleted || c.Status == models.CampCancelled {
		return nil, apperr.Conflict(fmt.Sprintf("A %s camp cannot be edited", strings.ToLower(string(c.Status))))
	}
	if in.ExpectedDonors < c.ActualDonors {
		return nil, apperr.Conflict(fmt.Sprintf("expectedDonors cannot be below the %d donors already registered", c.ActualDonors))
	}

	c.Title = in.Title
	c.Description = strings.TrimSpace(in.Description)
	c.Location = in.Location
	c.Date = date
	c.Time = in.Time
	c.ExpectedDonors = in.ExpectedDonors
	c.UpdatedAt = s.now()

	updated, err := s.store.Update(ctx, c)
	if errors.Is(err, ErrBelowSeats) {
		return nil, apperr.Conflict("expectedDonors cannot be below the donors already registered")
	}
	if err != nil {
		return nil, apperr.Internal("update camp", err)
	}
	s.emit(ctx, updated)
	return updated, nil
}

// UpdateStatus moves a camp along Upcoming -> Ongoing -> Completed, or to Cancelled.
func (s *Service) UpdateStatus(ctx context.Context, facilityID, id string, next models.CampStatus) (*models.BloodCamp, error) {
	if !next.Valid() {
		return nil, apperr.Validation("Invalid camp status")
	}
	c, err := s.owned(ctx, facilityID, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransition(next) {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot change camp status from %s to %s", c.Status, next))
	}
	updated, err := s.store.SetStatus(ctx, id, c.Status, next)
	if errors.Is(err, ErrStale) {
		return nil, apperr.Conflict("Camp status was already updated")
	}
	if err != nil {
		return nil, apperr.Internal("set camp status", err)
	}
	s.emit(ctx, updated)
	return updated, nil
}

func (s *Service) emit(ctx context.Context, c *models.BloodCamp) {
	mq.Emit(ctx, s.events, mq.CampEvent{
		Type:           mq.EventCampUpdated,
		CampID:         c.ID,
		Status:         string(c.Status),
		ActualDonors:   c.ActualDonors,
		ExpectedDonors: c.ExpectedDonors,
	})
}

// Get returns one camp with its owner populated.
func (s *Service) Get(ctx context.Context, id string) (*models.CampView, error) {
	c, err := s.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Camp not found")
	}
	if err != nil {
		return nil, apperr.Internal("find camp", err)
	}
	views, err := s.populate(ctx, []models.BloodCamp{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListOwn returns the facility's camps, optionally narrowed to one status.
func (s *Service) ListOwn(ctx context.Context, facilityID string, status models.CampStatus) ([]models.CampView, error) {
	f := Filter{Hospital: facilityID}
	if status != "" {
		if !status.Valid() {
			return nil, apperr.Validation("Invalid camp status")
		}
		f.Statuses = []models.CampStatus{status}
	}
	camps, _, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("list camps", err)
	}
	return s.populate(ctx, camps)
}

// Page is one page of browse results.
type Page struct {
	Camps      []models.CampView `json:"camps"`
	Pagination Pagination        `json:"pagination"`
}

type Pagination struct {
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
}

// Browse is the donor-facing camp search.
func (s *Service) Browse(ctx context.Context, q utils.QueryOptions) (*Page, error) {
	f := Filter{Search: q.Search, Skip: q.Skip(), Limit: int64(q.Limit)}
	if q.Status != "" && q.Status != "all" {
		st := models.CampStatus(q.Status)
		if !st.Valid() {
			return nil, apperr.Validation("Invalid camp status")
		}
		f.Statuses = []models.CampStatus{st}
	}

	camps, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("browse camps", err)
	}
	views, err := s.populate(ctx, camps)
	if err != nil {
		return nil, err
	}
	return &Page{
		Camps: views,
		Pagination: Pagination{
			Total:       total,
			TotalPages:  q.TotalPages(total),
			CurrentPage: q.Page,
			Limit:       q.Limit,
		},
	}, nil
}

// Active returns Upcoming and Ongoing camps with owners, for the map.
func (s *Service) Active(ctx context.Context) ([]models.CampView, error) {
	camps, _, err := s.store.List(ctx, Filter{Statuses: []models.CampStatus{models.CampUpcoming, models.CampOngoing}})
	if err != nil {
		return nil, apperr.Internal("list active camps", err)
	}
	return s.populate(ctx, camps)
}

func (s *Service) populate(ctx context.Context, camps []models.BloodCamp) ([]models.CampView, error) {
	ids := make([]string, 0, len(camps))
	for _, c := range camps {
		ids = append(ids, c.Hospital)
	}
	owners, err := s.store.Owners(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load camp owners", err)
	}
	views := make([]models.CampView, 0, len(camps))
	for _, c := range camps {
		views = append(views, models.NewCampView(c, owners[c.Hospital]))
	}
	return views, nil
}
