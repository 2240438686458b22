package coverage

import (
	"context"
	"sync"
)

// memoryStore keeps everything in maps. It backs the default demo
// configuration and the unit tests.
type memoryStore struct {
	mu       sync.RWMutex
	patients map[string]*Patient // phone → patient
	plans    map[string]*Plan    // plan_id → plan
	letters  []*Letter           // insertion order
	members  []*Member
	meds     map[string]*Medication // name_lc → medication
}

func NewMemoryStore() Store {
	return &memoryStore{
		patients: make(map[string]*Patient),
		plans:    make(map[string]*Plan),
		meds:     make(map[string]*Medication),
	}
}

func (s *memoryStore) UpsertPatient(_ context.Context, p *Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.patients[p.Phone] = &cp
	return nil
}

func (s *memoryStore) GetPatient(_ context.Context, phone string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.patients[phone]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memoryStore) UpsertPlan(_ context.Context, pl *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pl
	s.plans[pl.PlanID] = &cp
	return nil
}

func (s *memoryStore) GetPlan(_ context.Context, planID string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pl, ok := s.plans[planID]; ok {
		cp := *pl
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memoryStore) InsertLetter(_ context.Context, l *Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.letters = append(s.letters, &cp)
	return nil
}

func (s *memoryStore) GetLetter(_ context.Context, letterID string) (*Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.letters {
		if l.LetterID == letterID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) LatestLetter(_ context.Context, phone string) (*Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Letter
	for _, l := range s.letters {
		if l.PatientPhone != phone {
			continue
		}
		if latest == nil || !l.CreatedAt.Before(latest.CreatedAt) {
			latest = l
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memoryStore) ReplaceMembers(_ context.Context, members []*Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = nil
	for _, m := range members {
		cp := *m
		s.members = append(s.members, &cp)
	}
	return nil
}

func (s *memoryStore) FindMember(_ context.Context, nameLC, dob string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.NameLC == nameLC && m.DOB == dob {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) SeedMedications(_ context.Context, meds []*Medication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range meds {
		cp := *m
		s.meds[m.NameLC] = &cp
	}
	return nil
}

func (s *memoryStore) FindMedicationByWords(_ context.Context, words []string) (*Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range words {
		if m, ok := s.meds[w]; ok {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}
