package coverage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

// EnsureSchemaPG creates the coverage tables if they do not exist. The demo
// backend owns its whole schema, so idempotent DDL stands in for a full
// migration runner.
func EnsureSchemaPG(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS patient (
			phone          TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			dob            TEXT NOT NULL,
			plan_id        TEXT NOT NULL,
			billing_amount DOUBLE PRECISION NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS plan (
			plan_id     TEXT PRIMARY KEY,
			plan_name   TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS letter (
			letter_id     TEXT PRIMARY KEY,
			patient_phone TEXT NOT NULL,
			plan_id       TEXT NOT NULL DEFAULT '',
			letter_type   TEXT NOT NULL,
			content       TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS letter_patient_idx ON letter (patient_phone, created_at DESC);
		CREATE TABLE IF NOT EXISTS insurance_member (
			name           TEXT NOT NULL,
			name_lc        TEXT NOT NULL,
			dob            TEXT NOT NULL,
			phone          TEXT NOT NULL DEFAULT '',
			plan_name      TEXT NOT NULL DEFAULT '',
			coverage_level TEXT NOT NULL DEFAULT '',
			deductible     DOUBLE PRECISION NOT NULL DEFAULT 0,
			copay          DOUBLE PRECISION NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS member_match_idx ON insurance_member (name_lc, dob);
		CREATE TABLE IF NOT EXISTS medication (
			name_lc       TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			covered_plans TEXT[] NOT NULL DEFAULT '{}'
		);
	`)
	return err
}

func (s *pgStore) UpsertPatient(ctx context.Context, p *Patient) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO patient (phone, name, dob, plan_id, billing_amount)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (phone) DO UPDATE
		SET name = EXCLUDED.name, dob = EXCLUDED.dob,
			plan_id = EXCLUDED.plan_id, billing_amount = EXCLUDED.billing_amount`,
		p.Phone, p.Name, p.DOB, p.PlanID, p.BillingAmount)
	return err
}

func (s *pgStore) GetPatient(ctx context.Context, phone string) (*Patient, error) {
	var p Patient
	err := s.pool.QueryRow(ctx, `
		SELECT phone, name, dob, plan_id, billing_amount FROM patient WHERE phone = $1`, phone).
		Scan(&p.Phone, &p.Name, &p.DOB, &p.PlanID, &p.BillingAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *pgStore) UpsertPlan(ctx context.Context, pl *Plan) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plan (plan_id, plan_name, description)
		VALUES ($1,$2,$3)
		ON CONFLICT (plan_id) DO UPDATE
		SET plan_name = EXCLUDED.plan_name, description = EXCLUDED.description`,
		pl.PlanID, pl.PlanName, pl.Description)
	return err
}

func (s *pgStore) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	var pl Plan
	err := s.pool.QueryRow(ctx, `
		SELECT plan_id, plan_name, description FROM plan WHERE plan_id = $1`, planID).
		Scan(&pl.PlanID, &pl.PlanName, &pl.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (s *pgStore) InsertLetter(ctx context.Context, l *Letter) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO letter (letter_id, patient_phone, plan_id, letter_type, content, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.LetterID, l.PatientPhone, l.PlanID, l.LetterType, l.Content, l.CreatedAt)
	return err
}

func (s *pgStore) scanLetter(row pgx.Row) (*Letter, error) {
	var l Letter
	err := row.Scan(&l.LetterID, &l.PatientPhone, &l.PlanID, &l.LetterType, &l.Content, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *pgStore) GetLetter(ctx context.Context, letterID string) (*Letter, error) {
	return s.scanLetter(s.pool.QueryRow(ctx, `
		SELECT letter_id, patient_phone, plan_id, letter_type, content, created_at
		FROM letter WHERE letter_id = $1`, letterID))
}

func (s *pgStore) LatestLetter(ctx context.Context, phone string) (*Letter, error) {
	l, err := s.scanLetter(s.pool.QueryRow(ctx, `
		SELECT letter_id, patient_phone, plan_id, letter_type, content, created_at
		FROM letter WHERE patient_phone = $1
		ORDER BY created_at DESC LIMIT 1`, phone))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return l, err
}

func (s *pgStore) ReplaceMembers(ctx context.Context, members []*Member) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM insurance_member`); err != nil {
		return err
	}
	for _, m := range members {
		if _, err := tx.Exec(ctx, `
			INSERT INTO insurance_member (name, name_lc, dob, phone, plan_name, coverage_level, deductible, copay)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			m.Name, m.NameLC, m.DOB, m.Phone, m.PlanName, m.CoverageLevel, m.Deductible, m.Copay); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *pgStore) FindMember(ctx context.Context, nameLC, dob string) (*Member, error) {
	var m Member
	err := s.pool.QueryRow(ctx, `
		SELECT name, name_lc, dob, phone, plan_name, coverage_level, deductible, copay
		FROM insurance_member WHERE name_lc = $1 AND dob = $2 LIMIT 1`, nameLC, dob).
		Scan(&m.Name, &m.NameLC, &m.DOB, &m.Phone, &m.PlanName, &m.CoverageLevel, &m.Deductible, &m.Copay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *pgStore) SeedMedications(ctx context.Context, meds []*Medication) error {
	for _, m := range meds {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO medication (name_lc, name, covered_plans)
			VALUES ($1,$2,$3)
			ON CONFLICT (name_lc) DO UPDATE
			SET name = EXCLUDED.name, covered_plans = EXCLUDED.covered_plans`,
			m.NameLC, m.Name, m.CoveredPlans); err != nil {
			return err
		}
	}
	return nil
}

func (s *pgStore) FindMedicationByWords(ctx context.Context, words []string) (*Medication, error) {
	if len(words) == 0 {
		return nil, nil
	}
	var m Medication
	err := s.pool.QueryRow(ctx, `
		SELECT name, name_lc, covered_plans FROM medication
		WHERE name_lc = ANY($1) LIMIT 1`, words).
		Scan(&m.Name, &m.NameLC, &m.CoveredPlans)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
