package inventory

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
	blood *mongo.Collection
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{blood: database.Collection(db.BloodCollection)}
}

func ownerFilter(owner Owner, id string) bson.M {
	return bson.M{"_id": id, owner.Field(): owner.ID}
}

func (s *MongoStore) Insert(ctx context.Context, b *models.Blood) error {
	if _, err := s.blood.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("insert blood: %w", err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, owner Owner, id string) (*models.Blood, error) {
	var b models.Blood
	err := s.blood.FindOne(ctx, ownerFilter(owner, id)).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find blood %s: %w", id, err)
	}
	return &b, nil
}

func (s *MongoStore) Update(ctx context.Context, owner Owner, id string, quantity *int, expiry *time.Time, at time.Time) (*models.Blood, error) {
	set := bson.M{"updatedAt": at}
	if quantity != nil {
		set["quantity"] = *quantity
	}
	if expiry != nil {
		set["expiryDate"] = *expiry
	}

	var b models.Blood
	err := s.blood.FindOneAndUpdate(ctx, ownerFilter(owner, id), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update blood %s: %w", id, err)
	}
	return &b, nil
}

func (s *MongoStore) Delete(ctx context.Context, owner Owner, id string) error {
	res, err := s.blood.DeleteOne(ctx, ownerFilter(owner, id))
	if err != nil {
		return fmt.Errorf("delete blood %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, owner Owner, f Filter) ([]models.Blood, error) {
	q := bson.M{owner.Field(): owner.ID}
	if f.BloodGroup != "" {
		q["bloodGroup"] = f.BloodGroup
	}
	if f.Expired != nil {
		if *f.Expired {
			q["expiryDate"] = bson.M{"$lte": f.Now}
		} else {
			q["expiryDate"] = bson.M{"$gt": f.Now}
		}
	}

	cur, err := s.blood.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "expiryDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list blood: %w", err)
	}
	out := []models.Blood{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode blood: %w", err)
	}
	return out, nil
}

// drawFilter matches unexpired records of group holding at least units.
func drawFilter(owner Owner, group models.BloodGroup, units int, now time.Time) bson.M {
	return bson.M{
		owner.Field(): owner.ID,
		"bloodGroup":  group,
		"expiryDate":  bson.M{"$gt": now},
		"quantity":    bson.M{"$gte": units},
	}
}

func drawUpdate(units int, now time.Time) bson.M {
	return bson.M{"$inc": bson.M{"quantity": -units}, "$set": bson.M{"updatedAt": now}}
}

// drawSort takes the soonest expiry first.
var drawSort = bson.D{{Key: "expiryDate", Value: 1}}

// Draw picks the soonest-expiring record that can cover units.
func (s *MongoStore) Draw(ctx context.Context, owner Owner, group models.BloodGroup, units int, now time.Time) (*models.Blood, error) {
	opts := options.FindOneAndUpdate().
		SetSort(drawSort).
		SetReturnDocument(options.After)

	var b models.Blood
	err := s.blood.FindOneAndUpdate(ctx, drawFilter(owner, group, units, now), drawUpdate(units, now), opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrInsufficient
	}
	if err != nil {
		return nil, fmt.Errorf("draw %s: %w", group, err)
	}
	return &b, nil
}

func (s *MongoStore) Refund(ctx context.Context, id string, units int) error {
	if _, err := s.blood.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"quantity": units}}); err != nil {
		return fmt.Errorf("refund blood %s: %w", id, err)
	}
	return nil
}
