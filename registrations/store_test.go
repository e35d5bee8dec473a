package registrations

import (
	"context"
	"testing"
	"time"

	"bloodbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// asDoc normalises a filter through the bson codec so typed values compare by wire form.
func asDoc(t *testing.T, v any) bson.M {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var out bson.M
	require.NoError(t, bson.Unmarshal(raw, &out))
	return out
}

func TestSeatGuardDocuments(t *testing.T) {
	now := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, bson.M{
		"_id":    "camp-1",
		"status": models.CampUpcoming,
		"$expr":  bson.M{"$lt": bson.A{"$actualDonors", "$expectedDonors"}},
	}, reserveSeatFilter("camp-1"))
	assert.Equal(t, bson.M{"$inc": bson.M{"actualDonors": 1}, "$set": bson.M{"updatedAt": now}}, seatUpdate(1, now))

	assert.Equal(t, bson.M{"_id": "camp-1", "actualDonors": bson.M{"$gt": 0}}, releaseSeatFilter("camp-1"))
	assert.Equal(t, bson.M{"$inc": bson.M{"actualDonors": -1}, "$set": bson.M{"updatedAt": now}}, seatUpdate(-1, now))

	assert.Equal(t, bson.M{"_id": "reg-1", "status": models.RegistrationRegistered},
		transitionFilter("reg-1", models.RegistrationRegistered))
	assert.Equal(t, bson.M{"$set": bson.M{"status": models.RegistrationDonated, "updatedAt": now, "quantityML": 450}},
		transitionUpdate(models.RegistrationDonated, 450, now))
	assert.Equal(t, bson.M{"$set": bson.M{"status": models.RegistrationNoShow, "updatedAt": now}},
		transitionUpdate(models.RegistrationNoShow, 0, now))

	assert.Equal(t, bson.M{"_id": "camp-1", "actualDonors": 7}, actualDonorsFilter("camp-1", 7))
}

func campDoc(status models.CampStatus, actual, expected int) bson.D {
	return bson.D{
		{Key: "_id", Value: "camp-1"},
		{Key: "status", Value: status},
		{Key: "actualDonors", Value: actual},
		{Key: "expectedDonors", Value: expected},
	}
}

// notMatched is a findAndModify reply when the filter matched nothing.
var notMatched = mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})

func found(mt *mtest.T, doc bson.D) bson.D {
	return mtest.CreateCursorResponse(0, "bloodbank."+mt.Coll.Name(), mtest.FirstBatch, doc)
}

// sentFilter returns the filter of the next command the store sent.
func sentFilter(mt *mtest.T) bson.M {
	mt.Helper()
	evt := mt.GetStartedEvent()
	require.NotNil(mt, evt)

	var q bson.Raw
	switch evt.CommandName {
	case "findAndModify":
		q = evt.Command.Lookup("query").Document()
	case "update":
		q = evt.Command.Lookup("updates").Array().Index(0).Value().Document().Lookup("q").Document()
	default:
		mt.Fatalf("unexpected command %s", evt.CommandName)
	}
	var out bson.M
	require.NoError(mt, bson.Unmarshal(q, &out))
	return out
}

func TestMongoStoreGuards(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	store := func(mt *mtest.T) *MongoStore {
		return &MongoStore{camps: mt.Coll, registrations: mt.Coll}
	}

	mt.Run("reserve on a full camp", func(mt *mtest.T) {
		mt.AddMockResponses(notMatched, found(mt, campDoc(models.CampUpcoming, 10, 10)))
		_, err := store(mt).ReserveSeat(ctx, "camp-1")
		assert.ErrorIs(mt, err, ErrCampFull)
		assert.Equal(mt, asDoc(mt.T, reserveSeatFilter("camp-1")), sentFilter(mt))
	})

	mt.Run("reserve on a closed camp", func(mt *mtest.T) {
		mt.AddMockResponses(notMatched, found(mt, campDoc(models.CampCompleted, 2, 10)))
		_, err := store(mt).ReserveSeat(ctx, "camp-1")
		assert.ErrorIs(mt, err, ErrCampNotOpen)
	})

	mt.Run("reserve on a missing camp", func(mt *mtest.T) {
		mt.AddMockResponses(notMatched, mtest.CreateCursorResponse(0, "bloodbank."+mt.Coll.Name(), mtest.FirstBatch))
		_, err := store(mt).ReserveSeat(ctx, "camp-1")
		assert.ErrorIs(mt, err, ErrCampNotFound)
	})

	mt.Run("release never goes below zero", func(mt *mtest.T) {
		mt.AddMockResponses(notMatched, found(mt, campDoc(models.CampUpcoming, 0, 10)))
		camp, err := store(mt).ReleaseSeat(ctx, "camp-1")
		require.NoError(mt, err)
		assert.Equal(mt, 0, camp.ActualDonors)
		assert.Equal(mt, asDoc(mt.T, releaseSeatFilter("camp-1")), sentFilter(mt))
	})

	mt.Run("transition from a stale status", func(mt *mtest.T) {
		reg := bson.D{{Key: "_id", Value: "reg-1"}, {Key: "status", Value: models.RegistrationNoShow}}
		mt.AddMockResponses(notMatched, found(mt, reg))
		_, err := store(mt).Transition(ctx, "reg-1", models.RegistrationRegistered, models.RegistrationDonated, 450)
		assert.ErrorIs(mt, err, ErrStaleStatus)
		assert.Equal(mt, asDoc(mt.T, transitionFilter("reg-1", models.RegistrationRegistered)), sentFilter(mt))
	})

	mt.Run("reconcile write after the counter moved", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			found(mt, campDoc(models.CampUpcoming, 6, 10)),
		)
		err := store(mt).SetActualDonors(ctx, "camp-1", 5, 2)
		assert.ErrorIs(mt, err, ErrStaleCounter)
		assert.Equal(mt, asDoc(mt.T, actualDonorsFilter("camp-1", 5)), sentFilter(mt))
	})
}
