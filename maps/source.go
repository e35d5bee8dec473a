package maps

import (
	"context"
	"fmt"

	"bloodbank/db"
	"bloodbank/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSource projects only the fields a public map may show.
type MongoSource struct {
	database *mongo.Database
}

func NewMongoSource(database *mongo.Database) *MongoSource {
	return &MongoSource{database: database}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, projection bson.M) ([]T, error) {
	cur, err := coll.Find(ctx, filter, options.Find().SetProjection(projection))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func (s *MongoSource) Donors(ctx context.Context) ([]DonorPin, error) {
	return findAll[DonorPin](ctx, s.database.Collection(db.DonorsCollection),
		bson.M{"address.city": bson.M{"$nin": bson.A{"", nil}}},
		bson.M{"fullName": 1, "bloodGroup": 1, "address.city": 1, "address.state": 1})
}

func (s *MongoSource) Facilities(ctx context.Context) ([]FacilityPin, error) {
	return findAll[FacilityPin](ctx, s.database.Collection(db.FacilitiesCollection),
		bson.M{"status": models.FacilityApproved},
		bson.M{"name": 1, "facilityType": 1, "status": 1, "address.city": 1, "address.state": 1, "logo": 1})
}

func (s *MongoSource) Camps(ctx context.Context) ([]CampPin, error) {
	return findAll[CampPin](ctx, s.database.Collection(db.CampsCollection),
		bson.M{"status": bson.M{"$in": bson.A{models.CampUpcoming, models.CampOngoing}}},
		bson.M{"title": 1, "date": 1, "location": 1, "status": 1, "expectedDonors": 1, "actualDonors": 1})
}
