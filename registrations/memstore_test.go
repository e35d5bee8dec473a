package registrations

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bloodbank/models"
	"bloodbank/mq"

	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory Store with the same guarded updates as MongoStore.
type memStore struct {
	mu     sync.Mutex
	camps  map[string]*models.BloodCamp
	regs   map[string]*models.CampRegistration
	donors map[string]models.DonorRef

	failInsert error
	// beforeSet runs ahead of each SetActualDonors, outside the lock.
	beforeSet func()
}

func newMemStore() *memStore {
	return &memStore{
		camps:  map[string]*models.BloodCamp{},
		regs:   map[string]*models.CampRegistration{},
		donors: map[string]models.DonorRef{},
	}
}

func (m *memStore) addCamp(c models.BloodCamp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.camps[c.ID] = &c
}

func (m *memStore) camp(id string) models.BloodCamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.camps[id]
}

func (m *memStore) FindCamp(_ context.Context, id string) (*models.BloodCamp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.camps[id]
	if !ok {
		return nil, ErrCampNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ReserveSeat(_ context.Context, id string) (*models.BloodCamp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.camps[id]
	switch {
	case !ok:
		return nil, ErrCampNotFound
	case c.Status != models.CampUpcoming:
		return nil, ErrCampNotOpen
	case c.ActualDonors >= c.ExpectedDonors:
		return nil, ErrCampFull
	}
	c.ActualDonors++
	cp := *c
	return &cp, nil
}

func (m *memStore) ReleaseSeat(_ context.Context, id string) (*models.BloodCamp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.camps[id]
	if !ok {
		return nil, ErrCampNotFound
	}
	if c.ActualDonors > 0 {
		c.ActualDonors--
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Insert(_ context.Context, reg *models.CampRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return m.failInsert
	}
	for _, r := range m.regs {
		if r.Donor == reg.Donor && r.Camp == reg.Camp {
			return ErrDuplicateRegistration
		}
	}
	cp := *reg
	m.regs[reg.ID] = &cp
	return nil
}

func (m *memStore) Find(_ context.Context, id string) (*models.CampRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) Exists(_ context.Context, donorID, campID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.Donor == donorID && r.Camp == campID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Transition(_ context.Context, id string, from, to models.RegistrationStatus, quantityML int) (*models.CampRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	if r.Status != from {
		return nil, ErrStaleStatus
	}
	r.Status = to
	if quantityML > 0 {
		r.QuantityML = quantityML
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) views(match func(*models.CampRegistration) bool) []models.RegistrationView {
	var out []models.RegistrationView
	for _, r := range m.regs {
		if !match(r) {
			continue
		}
		d, ok := m.donors[r.Donor]
		if !ok {
			d = models.DonorRef{ID: r.Donor}
		}
		v := models.RegistrationView{CampRegistration: *r, Donor: d}
		if c, ok := m.camps[r.Camp]; ok {
			v.Camp = models.CampRef{ID: c.ID, Title: c.Title, Status: c.Status}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListByCamp(_ context.Context, campID string) ([]models.RegistrationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views(func(r *models.CampRegistration) bool { return r.Camp == campID }), nil
}

func (m *memStore) ListByDonor(_ context.Context, donorID string, status models.RegistrationStatus) ([]models.RegistrationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views(func(r *models.CampRegistration) bool {
		return r.Donor == donorID && (status == "" || r.Status == status)
	}), nil
}

func (m *memStore) CountSeats(_ context.Context, campID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.regs {
		if r.Camp == campID && r.Status.HoldsSeat() {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SetActualDonors(_ context.Context, campID string, from, to int) error {
	if m.beforeSet != nil {
		m.beforeSet()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.camps[campID]
	if !ok {
		return ErrCampNotFound
	}
	if c.ActualDonors != from {
		return ErrStaleCounter
	}
	c.ActualDonors = to
	return nil
}

func (m *memStore) CampIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.camps))
	for id := range m.camps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type memDonors struct {
	mu      sync.Mutex
	donors  map[string]*models.Donor
	donated map[string]time.Time
}

func newMemDonors(ds ...models.Donor) *memDonors {
	m := &memDonors{donors: map[string]*models.Donor{}, donated: map[string]time.Time{}}
	for i := range ds {
		m.donors[ds[i].ID] = &ds[i]
	}
	return m
}

func (m *memDonors) FindDonor(_ context.Context, id string) (*models.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donors[id]
	if !ok {
		return nil, errors.New("donor not found")
	}
	cp := *d
	return &cp, nil
}

func (m *memDonors) MarkDonated(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donated[id] = at
	return nil
}

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) CreditDonation(ctx context.Context, facilityID string, group models.BloodGroup, quantityML int, donatedAt time.Time, registrationID string) error {
	args := m.Called(ctx, facilityID, group, quantityML, donatedAt, registrationID)
	return args.Error(0)
}

type recordingBus struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBus) Publish(_ context.Context, ev mq.CampEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev.Type)
	return nil
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}
