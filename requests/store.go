package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodbank/db"
	"bloodbank/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	requests *mongo.Collection
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{requests: database.Collection(db.RequestsCollection)}
}

func (s *MongoStore) Insert(ctx context.Context, req *models.BloodRequest) error {
	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, id string) (*models.BloodRequest, error) {
	var req models.BloodRequest
	err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find blood request %s: %w", id, err)
	}
	return &req, nil
}

func (s *MongoStore) list(ctx context.Context, q bson.M) ([]models.BloodRequest, error) {
	cur, err := s.requests.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	out := []models.BloodRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode blood requests: %w", err)
	}
	return out, nil
}

func (s *MongoStore) ListByHospital(ctx context.Context, hospitalID string) ([]models.BloodRequest, error) {
	return s.list(ctx, bson.M{"hospital": hospitalID})
}

func (s *MongoStore) ListByLab(ctx context.Context, labID string, status models.RequestStatus) ([]models.BloodRequest, error) {
	q := bson.M{"bloodLab": labID}
	if status != "" {
		q["status"] = status
	}
	return s.list(ctx, q)
}

func (s *MongoStore) SetStatus(ctx context.Context, id string, from, to models.RequestStatus, at time.Time) (*models.BloodRequest, error) {
	var req models.BloodRequest
	err := s.requests.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("set blood request %s status: %w", id, err)
	}
	return &req, nil
}
