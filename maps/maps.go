package maps

import (
	"context"
	"time"

	"bloodbank/apperr"
	"bloodbank/logging"
	"bloodbank/models"

	"golang.org/x/sync/errgroup"
)

// CacheKey holds the serialized map payload. Bump the version when Data changes shape.
const CacheKey = "mapdata:v1"

type DonorPin struct {
	ID         string            `json:"_id" bson:"_id"`
	FullName   string            `json:"fullName" bson:"fullName"`
	BloodGroup models.BloodGroup `json:"bloodGroup" bson:"bloodGroup"`
	Address    PinAddress        `json:"address" bson:"address"`
}

type PinAddress struct {
	City  string `json:"city" bson:"city"`
	State string `json:"state" bson:"state"`
}

type FacilityPin struct {
	ID           string                `json:"_id" bson:"_id"`
	Name         string                `json:"name" bson:"name"`
	FacilityType models.FacilityType   `json:"facilityType" bson:"facilityType"`
	Status       models.FacilityStatus `json:"status" bson:"status"`
	Address      PinAddress            `json:"address" bson:"address"`
	Logo         string                `json:"logo,omitempty" bson:"logo,omitempty"`
}

type CampPin struct {
	ID             string              `json:"_id" bson:"_id"`
	Title          string              `json:"title" bson:"title"`
	Date           time.Time           `json:"date" bson:"date"`
	Location       models.CampLocation `json:"location" bson:"location"`
	Status         models.CampStatus   `json:"status" bson:"status"`
	ExpectedDonors int                 `json:"expectedDonors" bson:"expectedDonors"`
	ActualDonors   int                 `json:"actualDonors" bson:"actualDonors"`
}

// Data is the public map payload.
type Data struct {
	Donors     []DonorPin    `json:"donors"`
	Facilities []FacilityPin `json:"facilities"`
	Camps      []CampPin     `json:"camps"`
}

// Source reads the three marker sets.
type Source interface {
	Donors(ctx context.Context) ([]DonorPin, error)
	Facilities(ctx context.Context) ([]FacilityPin, error)
	Camps(ctx context.Context) ([]CampPin, error)
}

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Service struct {
	source Source
	cache  Cache
	ttl    time.Duration
}

// NewService builds the map reader. cache may be nil.
func NewService(source Source, cache Cache, ttl time.Duration) *Service {
	return &Service{source: source, cache: cache, ttl: ttl}
}

// Data serves the cached payload, rebuilding it on a miss. Cache errors fall through to the database.
func (s *Service) Data(ctx context.Context) (*Data, error) {
	l := logging.FromContext(ctx)

	if s.cache != nil {
		var cached Data
		hit, err := s.cache.GetJSON(ctx, CacheKey, &cached)
		if err != nil {
			l.Warn().Err(err).Msg("map cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	data := &Data{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Donors, err = s.source.Donors(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Facilities, err = s.source.Facilities(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Camps, err = s.source.Camps(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("load map data", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, CacheKey, data, s.ttl); err != nil {
			l.Warn().Err(err).Msg("map cache write failed")
		}
	}
	return data, nil
}

// Invalidate drops the cached payload so the next read sees fresh camp counts.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, CacheKey); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("map cache invalidate failed")
	}
}
