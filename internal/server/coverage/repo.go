package coverage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("coverage: not found")

// Store is the persistence interface for the coverage service. Three
// implementations exist: in-memory (tests and demos), Postgres, and Mongo.
type Store interface {
	UpsertPatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, phone string) (*Patient, error)

	UpsertPlan(ctx context.Context, pl *Plan) error
	GetPlan(ctx context.Context, planID string) (*Plan, error)

	InsertLetter(ctx context.Context, l *Letter) error
	GetLetter(ctx context.Context, letterID string) (*Letter, error)
	// LatestLetter returns the most recently created letter for phone, or
	// (nil, nil) when the patient has none.
	LatestLetter(ctx context.Context, phone string) (*Letter, error)

	// ReplaceMembers clears the member dataset and loads the given rows.
	ReplaceMembers(ctx context.Context, members []*Member) error
	FindMember(ctx context.Context, nameLC, dob string) (*Member, error)

	SeedMedications(ctx context.Context, meds []*Medication) error
	// FindMedicationByWords returns a formulary entry whose lowercased name
	// appears among words, or (nil, nil) when none does.
	FindMedicationByWords(ctx context.Context, words []string) (*Medication, error)
}
