package facility

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bloodbank/db"
	"bloodbank/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	facilities *mongo.Collection
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{facilities: database.Collection(db.FacilitiesCollection)}
}

var after = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (s *MongoStore) Find(ctx context.Context, id string) (*models.Facility, error) {
	var f models.Facility
	err := s.facilities.FindOne(ctx, bson.M{"_id": id}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find facility %s: %w", id, err)
	}
	return &f, nil
}

func (s *MongoStore) modify(ctx context.Context, id string, set bson.M) (*models.Facility, error) {
	var f models.Facility
	err := s.facilities.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, after).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update facility %s: %w", id, err)
	}
	return &f, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, p ProfileUpdate, at time.Time) (*models.Facility, error) {
	set := bson.M{"updatedAt": at}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Phone != nil {
		set["phone"] = strings.TrimSpace(*p.Phone)
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.OperatingHours != nil {
		set["operatingHours"] = strings.TrimSpace(*p.OperatingHours)
	}
	return s.modify(ctx, id, set)
}

func (s *MongoStore) List(ctx context.Context, ft models.FacilityType, status models.FacilityStatus) ([]models.Facility, error) {
	q := bson.M{}
	if ft != "" {
		q["facilityType"] = ft
	}
	if status != "" {
		q["status"] = status
	}
	cur, err := s.facilities.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	out := []models.Facility{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode facilities: %w", err)
	}
	return out, nil
}

func (s *MongoStore) SetStatus(ctx context.Context, id string, status models.FacilityStatus, at time.Time) (*models.Facility, error) {
	return s.modify(ctx, id, bson.M{"status": status, "updatedAt": at})
}

func (s *MongoStore) SetLogo(ctx context.Context, id, logo string, at time.Time) error {
	_, err := s.modify(ctx, id, bson.M{"logo": logo, "updatedAt": at})
	return err
}
