package coverage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	patients *mongo.Collection
	plans    *mongo.Collection
	letters  *mongo.Collection
	members  *mongo.Collection
	meds     *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{
		patients: db.Collection("patients"),
		plans:    db.Collection("plans"),
		letters:  db.Collection("letters"),
		members:  db.Collection("insurance_members"),
		meds:     db.Collection("medications"),
	}
}

func (s *mongoStore) UpsertPatient(ctx context.Context, p *Patient) error {
	_, err := s.patients.ReplaceOne(ctx,
		bson.M{"phone": p.Phone}, p, options.Replace().SetUpsert(true))
	return err
}

func (s *mongoStore) GetPatient(ctx context.Context, phone string) (*Patient, error) {
	var p Patient
	err := s.patients.FindOne(ctx, bson.M{"phone": phone}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *mongoStore) UpsertPlan(ctx context.Context, pl *Plan) error {
	_, err := s.plans.ReplaceOne(ctx,
		bson.M{"plan_id": pl.PlanID}, pl, options.Replace().SetUpsert(true))
	return err
}

func (s *mongoStore) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	var pl Plan
	err := s.plans.FindOne(ctx, bson.M{"plan_id": planID}).Decode(&pl)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (s *mongoStore) InsertLetter(ctx context.Context, l *Letter) error {
	_, err := s.letters.InsertOne(ctx, l)
	return err
}

func (s *mongoStore) GetLetter(ctx context.Context, letterID string) (*Letter, error) {
	var l Letter
	err := s.letters.FindOne(ctx, bson.M{"letter_id": letterID}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *mongoStore) LatestLetter(ctx context.Context, phone string) (*Letter, error) {
	var l Letter
	err := s.letters.FindOne(ctx, bson.M{"patient_phone": phone},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *mongoStore) ReplaceMembers(ctx context.Context, members []*Member) error {
	if _, err := s.members.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(members))
	for _, m := range members {
		docs = append(docs, m)
	}
	_, err := s.members.InsertMany(ctx, docs)
	return err
}

func (s *mongoStore) FindMember(ctx context.Context, nameLC, dob string) (*Member, error) {
	var m Member
	err := s.members.FindOne(ctx, bson.M{"name_lc": nameLC, "dob": dob}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *mongoStore) SeedMedications(ctx context.Context, meds []*Medication) error {
	for _, m := range meds {
		if _, err := s.meds.ReplaceOne(ctx,
			bson.M{"name_lc": m.NameLC}, m, options.Replace().SetUpsert(true)); err != nil {
			return err
		}
	}
	return nil
}

func (s *mongoStore) FindMedicationByWords(ctx context.Context, words []string) (*Medication, error) {
	if len(words) == 0 {
		return nil, nil
	}
	var m Medication
	err := s.meds.FindOne(ctx, bson.M{"name_lc": bson.M{"$in": words}}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
