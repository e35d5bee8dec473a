package auth

import (
	"context"
	"errors"
	"fmt"

	"bloodbank/db"
	"bloodbank/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoAccounts struct {
	donors     *mongo.Collection
	facilities *mongo.Collection
	admins     *mongo.Collection
}

func NewMongoAccounts(database *mongo.Database) *MongoAccounts {
	return &MongoAccounts{
		donors:     database.Collection(db.DonorsCollection),
		facilities: database.Collection(db.FacilitiesCollection),
		admins:     database.Collection(db.AdminsCollection),
	}
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	err := coll.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	return &out, nil
}

func insert(ctx context.Context, coll *mongo.Collection, doc any) error {
	_, err := coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	return nil
}

func (s *MongoAccounts) DonorByEmail(ctx context.Context, email string) (*models.Donor, error) {
	return findOne[models.Donor](ctx, s.donors, bson.M{"email": email})
}

func (s *MongoAccounts) FacilityByEmail(ctx context.Context, email string) (*models.Facility, error) {
	return findOne[models.Facility](ctx, s.facilities, bson.M{"email": email})
}

func (s *MongoAccounts) AdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return findOne[models.Admin](ctx, s.admins, bson.M{"email": email})
}

func (s *MongoAccounts) DonorByID(ctx context.Context, id string) (*models.Donor, error) {
	return findOne[models.Donor](ctx, s.donors, bson.M{"_id": id})
}

func (s *MongoAccounts) FacilityByID(ctx context.Context, id string) (*models.Facility, error) {
	return findOne[models.Facility](ctx, s.facilities, bson.M{"_id": id})
}

func (s *MongoAccounts) AdminByID(ctx context.Context, id string) (*models.Admin, error) {
	return findOne[models.Admin](ctx, s.admins, bson.M{"_id": id})
}

func (s *MongoAccounts) InsertDonor(ctx context.Context, d *models.Donor) error {
	return insert(ctx, s.donors, d)
}

func (s *MongoAccounts) InsertFacility(ctx context.Context, f *models.Facility) error {
	return insert(ctx, s.facilities, f)
}

func (s *MongoAccounts) InsertAdmin(ctx context.Context, a *models.Admin) error {
	return insert(ctx, s.admins, a)
}
