package camps

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

func TestUpdateGuardDocuments(t *testing.T) {
	now := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	c := &models.BloodCamp{ID: "camp-1", Title: "City Hall Drive", ExpectedDonors: 12, UpdatedAt: now}

	assert.Equal(t, bson.M{"_id": "camp-1", "actualDonors": bson.M{"$lte": 12}}, updateFilter(c))
	set := updateDoc(c)["$set"].(bson.M)
	assert.Equal(t, 12, set["expectedDonors"])
	assert.NotContains(t, set, "actualDonors")
	assert.NotContains(t, set, "status")

	assert.Equal(t, bson.M{"_id": "camp-1", "status": models.CampUpcoming}, statusFilter("camp-1", models.CampUpcoming))
}

func TestMongoStoreUpdateBelowSeats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("capacity under taken seats", func(mt *mtest.T) {
		ns := "bloodbank." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "camp-1"},
				{Key: "actualDonors", Value: 8},
				{Key: "expectedDonors", Value: 10},
			}),
		)
		s := &MongoStore{camps: mt.Coll}
		_, err := s.Update(context.Background(), &models.BloodCamp{ID: "camp-1", ExpectedDonors: 5})
		assert.ErrorIs(mt, err, ErrBelowSeats)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		var q bson.M
		require.NoError(mt, bson.Unmarshal(evt.Command.Lookup("query").Document(), &q))
		assert.Equal(mt, int32(5), q["actualDonors"].(bson.M)["$lte"])
	})

	mt.Run("status moved underneath", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		s := &MongoStore{camps: mt.Coll}
		_, err := s.SetStatus(context.Background(), "camp-1", models.CampUpcoming, models.CampCancelled)
		assert.ErrorIs(mt, err, ErrStale)
	})
}
