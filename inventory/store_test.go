package inventory

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

func TestDrawGuardDocuments(t *testing.T) {
	now := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	lab := Owner{ID: "lab-1", Type: models.FacilityBloodLab}

	assert.Equal(t, bson.M{
		"bloodLab":   "lab-1",
		"bloodGroup": models.BloodGroup("O+"),
		"expiryDate": bson.M{"$gt": now},
		"quantity":   bson.M{"$gte": 3},
	}, drawFilter(lab, "O+", 3, now))
	assert.Equal(t, bson.M{"$inc": bson.M{"quantity": -3}, "$set": bson.M{"updatedAt": now}}, drawUpdate(3, now))
	assert.Equal(t, bson.D{{Key: "expiryDate", Value: 1}}, drawSort)

	hospital := Owner{ID: "hosp-1", Type: models.FacilityHospital}
	assert.Equal(t, "hosp-1", drawFilter(hospital, "A-", 1, now)["hospital"])
}

func TestMongoStoreDraw(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	lab := Owner{ID: "lab-1", Type: models.FacilityBloodLab}

	mt.Run("no record covers the units", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		s := &MongoStore{blood: mt.Coll}
		_, err := s.Draw(context.Background(), lab, "O+", 5, now)
		assert.ErrorIs(mt, err, ErrInsufficient)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		var sent bson.M
		require.NoError(mt, bson.Unmarshal(evt.Command, &sent))
		query := sent["query"].(bson.M)
		assert.Equal(mt, int32(5), query["quantity"].(bson.M)["$gte"])
		assert.Contains(mt, query["expiryDate"].(bson.M), "$gt")
		assert.Equal(mt, bson.M{"expiryDate": int32(1)}, sent["sort"])
		assert.Equal(mt, int32(-5), sent["update"].(bson.M)["$inc"].(bson.M)["quantity"])
	})

	mt.Run("draws from the matched record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "blood-1"},
			{Key: "bloodGroup", Value: "O+"},
			{Key: "quantity", Value: 2},
		}}))
		s := &MongoStore{blood: mt.Coll}
		b, err := s.Draw(context.Background(), lab, "O+", 5, now)
		require.NoError(mt, err)
		assert.Equal(mt, "blood-1", b.ID)
		assert.Equal(mt, 2, b.Quantity)
	})
}
