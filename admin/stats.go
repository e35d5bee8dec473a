package admin

import (
	"context"

	"bloodbank/apperr"

	"golang.org/x/sync/errgroup"
)

// Counts maps a status (or type) to the number of documents carrying it.
type Counts map[string]int64

// Stats is the admin dashboard summary.
type Stats struct {
	Donors        int64  `json:"donors"`
	Facilities    Counts `json:"facilities"`
	FacilityTypes Counts `json:"facilityTypes"`
	Camps         Counts `json:"camps"`
	Registrations Counts `json:"registrations"`
	Requests      Counts `json:"requests"`
	DonatedML     int64  `json:"donatedML"`
}

// Store answers grouped counts over a named collection.
type Store interface {
	Count(ctx context.Context, collection string) (int64, error)
	CountBy(ctx context.Context, collection, field string) (Counts, error)
	SumDonated(ctx context.Context) (int64, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Stats gathers every count concurrently.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		st.Donors, err = s.store.Count(gctx, donorsColl)
		return err
	})
	grouped := []struct {
		dst        *Counts
		collection string
		field      string
	}{
		{&st.Facilities, facilitiesColl, "status"},
		{&st.FacilityTypes, facilitiesColl, "facilityType"},
		{&st.Camps, campsColl, "status"},
		{&st.Registrations, registrationsColl, "status"},
		{&st.Requests, requestsColl, "status"},
	}
	for _, q := range grouped {
		g.Go(func() (err error) {
			*q.dst, err = s.store.CountBy(gctx, q.collection, q.field)
			return err
		})
	}
	g.Go(func() (err error) {
		st.DonatedML, err = s.store.SumDonated(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("gather admin stats", err)
	}
	return st, nil
}
