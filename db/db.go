package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	DonorsCollection        = "donors"
	FacilitiesCollection    = "facilities"
	AdminsCollection        = "admins"
	CampsCollection         = "bloodcamps"
	RegistrationsCollection = "campregistrations"
	BloodCollection         = "bloods"
	RequestsCollection      = "bloodrequests"
)

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the stores rely on for uniqueness and lookups.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		DonorsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		FacilitiesCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "facilityType", Value: 1}, {Key: "status", Value: 1}}},
		},
		AdminsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CampsCollection: {
			{Keys: bson.D{{Key: "hospital", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}},
		},
		RegistrationsCollection: {
			// one registration per donor per camp
			{Keys: bson.D{{Key: "donor", Value: 1}, {Key: "camp", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "camp", Value: 1}, {Key: "status", Value: 1}}},
		},
		BloodCollection: {
			{Keys: bson.D{{Key: "bloodLab", Value: 1}, {Key: "bloodGroup", Value: 1}, {Key: "expiryDate", Value: 1}}},
			{Keys: bson.D{{Key: "hospital", Value: 1}, {Key: "bloodGroup", Value: 1}, {Key: "expiryDate", Value: 1}}},
		},
		RequestsCollection: {
			{Keys: bson.D{{Key: "hospital", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "bloodLab", Value: 1}, {Key: "status", Value: 1}}},
		},
	}

	for name, models := range specs {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
