package donor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bloodbank/db"
	"bloodbank/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	donors *mongo.Collection
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{donors: database.Collection(db.DonorsCollection)}
}

func (s *MongoStore) Find(ctx context.Context, id string) (*models.Donor, error) {
	var d models.Donor
	err := s.donors.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find donor %s: %w", id, err)
	}
	return &d, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, set map[string]any, at time.Time) (*models.Donor, error) {
	doc := bson.M{"updatedAt": at}
	for k, v := range set {
		doc[k] = v
	}
	var d models.Donor
	err := s.donors.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": doc},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update donor %s: %w", id, err)
	}
	return &d, nil
}

func (s *MongoStore) MarkDonated(ctx context.Context, id string, at time.Time) error {
	res, err := s.donors.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$max": bson.M{"lastDonationDate": at},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("mark donor %s donated: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, search string, skip, limit int64) ([]models.Donor, int64, error) {
	q := bson.M{}
	if search != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
		q["$or"] = bson.A{bson.M{"fullName": re}, bson.M{"email": re}, bson.M{"address.city": re}, bson.M{"bloodGroup": search}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.donors.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list donors: %w", err)
	}
	out := []models.Donor{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode donors: %w", err)
	}
	total, err := s.donors.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count donors: %w", err)
	}
	return out, total, nil
}
