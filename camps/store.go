package camps

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"bloodbank/db"
	"bloodbank/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	camps      *mongo.Collection
	facilities *mongo.Collection
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{
		camps:      database.Collection(db.CampsCollection),
		facilities: database.Collection(db.FacilitiesCollection),
	}
}

func (s *MongoStore) Insert(ctx context.Context, c *models.BloodCamp) error {
	if _, err := s.camps.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert camp: %w", err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, id string) (*models.BloodCamp, error) {
	var c models.BloodCamp
	err := s.camps.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find camp %s: %w", id, err)
	}
	return &c, nil
}

// updateFilter refuses a capacity below the seats already taken.
func updateFilter(c *models.BloodCamp) bson.M {
	return bson.M{"_id": c.ID, "actualDonors": bson.M{"$lte": c.ExpectedDonors}}
}

func updateDoc(c *models.BloodCamp) bson.M {
	return bson.M{"$set": bson.M{
		"title":          c.Title,
		"description":    c.Description,
		"location":       c.Location,
		"date":           c.Date,
		"time":           c.Time,
		"expectedDonors": c.ExpectedDonors,
		"updatedAt":      c.UpdatedAt,
	}}
}

func (s *MongoStore) Update(ctx context.Context, c *models.BloodCamp) (*models.BloodCamp, error) {
	var out models.BloodCamp
	err := s.camps.FindOneAndUpdate(ctx, updateFilter(c), updateDoc(c), options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, ferr := s.Find(ctx, c.ID); ferr != nil {
			return nil, ferr
		}
		return nil, ErrBelowSeats
	}
	if err != nil {
		return nil, fmt.Errorf("update camp %s: %w", c.ID, err)
	}
	return &out, nil
}

// statusFilter only matches a camp still in from.
func statusFilter(id string, from models.CampStatus) bson.M {
	return bson.M{"_id": id, "status": from}
}

func (s *MongoStore) SetStatus(ctx context.Context, id string, from, to models.CampStatus) (*models.BloodCamp, error) {
	var out models.BloodCamp
	err := s.camps.FindOneAndUpdate(ctx,
		statusFilter(id, from),
		bson.M{"$set": bson.M{"status": to}, "$currentDate": bson.M{"updatedAt": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("set camp status %s: %w", id, err)
	}
	return &out, nil
}

func filterDoc(f Filter) bson.M {
	q := bson.M{}
	if f.Hospital != "" {
		q["hospital"] = f.Hospital
	}
	if len(f.Statuses) == 1 {
		q["status"] = f.Statuses[0]
	} else if len(f.Statuses) > 1 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	if f.Search != "" {
		re := searchRegex(f.Search)
		q["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"location.venue": re},
			bson.M{"location.city": re},
			bson.M{"location.state": re},
		}
	}
	return q
}

func searchRegex(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}

func (s *MongoStore) List(ctx context.Context, f Filter) ([]models.BloodCamp, int64, error) {
	q := filterDoc(f)

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	if f.Limit > 0 {
		opts.SetSkip(f.Skip).SetLimit(f.Limit)
	}
	cur, err := s.camps.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list camps: %w", err)
	}
	camps := []models.BloodCamp{}
	if err := cur.All(ctx, &camps); err != nil {
		return nil, 0, fmt.Errorf("decode camps: %w", err)
	}

	total := int64(len(camps))
	if f.Limit > 0 {
		if total, err = s.camps.CountDocuments(ctx, q); err != nil {
			return nil, 0, fmt.Errorf("count camps: %w", err)
		}
	}
	return camps, total, nil
}

func (s *MongoStore) Owners(ctx context.Context, ids []string) (map[string]models.HospitalRef, error) {
	out := make(map[string]models.HospitalRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.facilities.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "phone": 1, "address": 1}))
	if err != nil {
		return nil, fmt.Errorf("find camp owners: %w", err)
	}
	var refs []models.HospitalRef
	if err := cur.All(ctx, &refs); err != nil {
		return nil, fmt.Errorf("decode camp owners: %w", err)
	}
	for _, r := range refs {
		out[r.ID] = r
	}
	return out, nil
}
