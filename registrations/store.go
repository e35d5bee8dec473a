package registrations

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

// MongoStore is the Store backed by the camps, registrations, donors and facilities collections.
type MongoStore struct {
	camps         *mongo.Collection
	registrations *mongo.Collection
	donors        *mongo.Collection
	facilities    *mongo.Collection
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{
		camps:         database.Collection(db.CampsCollection),
		registrations: database.Collection(db.RegistrationsCollection),
		donors:        database.Collection(db.DonorsCollection),
		facilities:    database.Collection(db.FacilitiesCollection),
	}
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// reserveSeatFilter matches an Upcoming camp with a free seat.
func reserveSeatFilter(campID string) bson.M {
	return bson.M{
		"_id":    campID,
		"status": models.CampUpcoming,
		"$expr":  bson.M{"$lt": bson.A{"$actualDonors", "$expectedDonors"}},
	}
}

func seatUpdate(delta int, now time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"actualDonors": delta},
		"$set": bson.M{"updatedAt": now},
	}
}

// releaseSeatFilter keeps actualDonors from going below zero.
func releaseSeatFilter(campID string) bson.M {
	return bson.M{"_id": campID, "actualDonors": bson.M{"$gt": 0}}
}

// transitionFilter only matches a registration still in from.
func transitionFilter(id string, from models.RegistrationStatus) bson.M {
	return bson.M{"_id": id, "status": from}
}

func transitionUpdate(to models.RegistrationStatus, quantityML int, now time.Time) bson.M {
	set := bson.M{"status": to, "updatedAt": now}
	if quantityML > 0 {
		set["quantityML"] = quantityML
	}
	return bson.M{"$set": set}
}

// actualDonorsFilter only matches a camp whose counter still reads from.
func actualDonorsFilter(campID string, from int) bson.M {
	return bson.M{"_id": campID, "actualDonors": from}
}

func (s *MongoStore) FindCamp(ctx context.Context, campID string) (*models.BloodCamp, error) {
	var camp models.BloodCamp
	err := s.camps.FindOne(ctx, bson.M{"_id": campID}).Decode(&camp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCampNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find camp %s: %w", campID, err)
	}
	return &camp, nil
}

func (s *MongoStore) ReserveSeat(ctx context.Context, campID string) (*models.BloodCamp, error) {
	var camp models.BloodCamp
	err := s.camps.FindOneAndUpdate(ctx, reserveSeatFilter(campID), seatUpdate(1, time.Now().UTC()), returnAfter).Decode(&camp)
	if err == nil {
		return &camp, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("reserve seat in %s: %w", campID, err)
	}

	// the guard rejected the update; report why
	current, err := s.FindCamp(ctx, campID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.CampUpcoming {
		return nil, ErrCampNotOpen
	}
	return nil, ErrCampFull
}

func (s *MongoStore) ReleaseSeat(ctx context.Context, campID string) (*models.BloodCamp, error) {
	var camp models.BloodCamp
	err := s.camps.FindOneAndUpdate(ctx, releaseSeatFilter(campID), seatUpdate(-1, time.Now().UTC()), returnAfter).Decode(&camp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s.FindCamp(ctx, campID)
	}
	if err != nil {
		return nil, fmt.Errorf("release seat in %s: %w", campID, err)
	}
	return &camp, nil
}

func (s *MongoStore) Insert(ctx context.Context, reg *models.CampRegistration) error {
	_, err := s.registrations.InsertOne(ctx, reg)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateRegistration
	}
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, id string) (*models.CampRegistration, error) {
	var reg models.CampRegistration
	err := s.registrations.FindOne(ctx, bson.M{"_id": id}).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find registration %s: %w", id, err)
	}
	return &reg, nil
}

func (s *MongoStore) Exists(ctx context.Context, donorID, campID string) (bool, error) {
	n, err := s.registrations.CountDocuments(ctx, bson.M{"donor": donorID, "camp": campID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count registrations: %w", err)
	}
	return n > 0, nil
}

func (s *MongoStore) Transition(ctx context.Context, id string, from, to models.RegistrationStatus, quantityML int) (*models.CampRegistration, error) {
	var reg models.CampRegistration
	err := s.registrations.FindOneAndUpdate(ctx,
		transitionFilter(id, from),
		transitionUpdate(to, quantityML, time.Now().UTC()),
		returnAfter,
	).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, ferr := s.Find(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, ErrStaleStatus
	}
	if err != nil {
		return nil, fmt.Errorf("transition registration %s: %w", id, err)
	}
	return &reg, nil
}

func (s *MongoStore) ListByCamp(ctx context.Context, campID string) ([]models.RegistrationView, error) {
	regs, err := s.find(ctx, bson.M{"camp": campID})
	if err != nil {
		return nil, err
	}
	camp, err := s.FindCamp(ctx, campID)
	if err != nil {
		return nil, err
	}
	camps := map[string]models.CampRef{camp.ID: campRef(*camp, "")}
	return s.populate(ctx, regs, camps)
}

func (s *MongoStore) ListByDonor(ctx context.Context, donorID string, status models.RegistrationStatus) ([]models.RegistrationView, error) {
	filter := bson.M{"donor": donorID}
	if status != "" {
		filter["status"] = status
	}
	regs, err := s.find(ctx, filter)
	if err != nil {
		return nil, err
	}

	campIDs := make([]string, 0, len(regs))
	for _, r := range regs {
		campIDs = append(campIDs, r.Camp)
	}
	camps, err := s.campRefs(ctx, campIDs)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, regs, camps)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]models.CampRegistration, error) {
	cur, err := s.registrations.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}
	var regs []models.CampRegistration
	if err := cur.All(ctx, &regs); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", err)
	}
	return regs, nil
}

// populate attaches donor and camp references, like a Mongoose populate().
func (s *MongoStore) populate(ctx context.Context, regs []models.CampRegistration, camps map[string]models.CampRef) ([]models.RegistrationView, error) {
	donorIDs := make([]string, 0, len(regs))
	for _, r := range regs {
		donorIDs = append(donorIDs, r.Donor)
	}

	donors := make(map[string]models.DonorRef, len(donorIDs))
	if len(donorIDs) > 0 {
		cur, err := s.donors.Find(ctx, bson.M{"_id": bson.M{"$in": donorIDs}},
			options.Find().SetProjection(bson.M{"fullName": 1, "email": 1, "phone": 1, "bloodGroup": 1}))
		if err != nil {
			return nil, fmt.Errorf("find donors: %w", err)
		}
		var refs []models.DonorRef
		if err := cur.All(ctx, &refs); err != nil {
			return nil, fmt.Errorf("decode donors: %w", err)
		}
		for _, d := range refs {
			donors[d.ID] = d
		}
	}

	views := make([]models.RegistrationView, 0, len(regs))
	for _, r := range regs {
		d, ok := donors[r.Donor]
		if !ok {
			d = models.DonorRef{ID: r.Donor}
		}
		c, ok := camps[r.Camp]
		if !ok {
			c = models.CampRef{ID: r.Camp}
		}
		views = append(views, models.RegistrationView{CampRegistration: r, Donor: d, Camp: c})
	}
	return views, nil
}

func (s *MongoStore) campRefs(ctx context.Context, ids []string) (map[string]models.CampRef, error) {
	out := make(map[string]models.CampRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.camps.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find camps: %w", err)
	}
	var camps []models.BloodCamp
	if err := cur.All(ctx, &camps); err != nil {
		return nil, fmt.Errorf("decode camps: %w", err)
	}

	hospitalIDs := make([]string, 0, len(camps))
	for _, c := range camps {
		hospitalIDs = append(hospitalIDs, c.Hospital)
	}
	names := map[string]string{}
	if len(hospitalIDs) > 0 {
		fcur, err := s.facilities.Find(ctx, bson.M{"_id": bson.M{"$in": hospitalIDs}}, options.Find().SetProjection(bson.M{"name": 1}))
		if err != nil {
			return nil, fmt.Errorf("find facilities: %w", err)
		}
		var refs []models.HospitalRef
		if err := fcur.All(ctx, &refs); err != nil {
			return nil, fmt.Errorf("decode facilities: %w", err)
		}
		for _, f := range refs {
			names[f.ID] = f.Name
		}
	}

	for _, c := range camps {
		out[c.ID] = campRef(c, names[c.Hospital])
	}
	return out, nil
}

func campRef(c models.BloodCamp, hospitalName string) models.CampRef {
	return models.CampRef{
		ID:           c.ID,
		Title:        c.Title,
		Date:         c.Date,
		Time:         c.Time,
		Location:     c.Location,
		Status:       c.Status,
		HospitalName: hospitalName,
	}
}

func (s *MongoStore) CountSeats(ctx context.Context, campID string) (int, error) {
	n, err := s.registrations.CountDocuments(ctx, bson.M{
		"camp":   campID,
		"status": bson.M{"$in": bson.A{models.RegistrationRegistered, models.RegistrationDonated}},
	})
	if err != nil {
		return 0, fmt.Errorf("count seats in %s: %w", campID, err)
	}
	return int(n), nil
}

func (s *MongoStore) SetActualDonors(ctx context.Context, campID string, from, to int) error {
	res, err := s.camps.UpdateOne(ctx, actualDonorsFilter(campID, from),
		bson.M{"$set": bson.M{"actualDonors": to, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("set actual donors on %s: %w", campID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.FindCamp(ctx, campID); err != nil {
		return err
	}
	return ErrStaleCounter
}

func (s *MongoStore) CampIDs(ctx context.Context) ([]string, error) {
	ids, err := s.camps.Distinct(ctx, "_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list camp ids: %w", err)
	}
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if id, ok := v.(string); ok {
			out = append(out, id)
		}
	}
	return out, nil
}
