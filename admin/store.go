package admin

import (
	"context"
	"fmt"

	"bloodbank/db"
	"bloodbank/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	donorsColl        = db.DonorsCollection
	facilitiesColl    = db.FacilitiesCollection
	campsColl         = db.CampsCollection
	registrationsColl = db.RegistrationsCollection
	requestsColl      = db.RequestsCollection
)

type MongoStore struct {
	database *mongo.Database
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{database: database}
}

func (s *MongoStore) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.database.Collection(collection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func (s *MongoStore) CountBy(ctx context.Context, collection, field string) (Counts, error) {
	cur, err := s.database.Collection(collection).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("group %s by %s: %w", collection, field, err)
	}
	var rows []struct {
		Key string `bson:"_id"`
		N   int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode %s groups: %w", collection, err)
	}
	out := Counts{}
	for _, row := range rows {
		out[row.Key] = row.N
	}
	return out, nil
}

func (s *MongoStore) SumDonated(ctx context.Context) (int64, error) {
	cur, err := s.database.Collection(registrationsColl).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.RegistrationDonated}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$quantityML"}}}},
	})
	if err != nil {
		return 0, fmt.Errorf("sum donated: %w", err)
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode donated sum: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
