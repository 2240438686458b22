package session

import (
	"reflect"
	"testing"
)

func registered(s *Store) Patient {
	p := Patient{Name: "Jane Doe", DateOfBirth: "1950-01-01", Phone: "5551234567"}
	s.CommitRegistration(p, Plan{PlanID: "BASIC_PLAN", PlanName: "Basic Health Coverage Plan"})
	return p
}

func TestStore_CommitRegistration_ResetsSession(t *testing.T) {
	s := NewStore()
	registered(s)
	s.CommitDashboard("5551234567", Plan{PlanName: "Gold"}, UsageSummary{Visits: 3, TotalSpend: 245.50}, &Letter{LetterID: "L1"})
	s.AppendUserTurn("5551234567", "hello")

	s.CommitRegistration(Patient{Name: "Bob", Phone: "5559990000"}, Plan{PlanName: "Silver"})

	snap := s.Snapshot()
	if snap.Patient.Name != "Bob" {
		t.Errorf("expected new patient, got %s", snap.Patient.Name)
	}
	if snap.Usage != nil {
		t.Error("expected usage cleared by new registration")
	}
	if snap.Letter != nil {
		t.Error("expected letter cleared by new registration")
	}
	if len(snap.Transcript) != 0 {
		t.Errorf("expected empty transcript after new registration, got %d turns", len(snap.Transcript))
	}
	if snap.Regions[RegionRegistration].State != StateSucceeded {
		t.Errorf("expected registration succeeded, got %s", snap.Regions[RegionRegistration].State)
	}
	if snap.Regions[RegionDashboard].State != StateIdle {
		t.Errorf("expected dashboard reset to idle, got %s", snap.Regions[RegionDashboard].State)
	}
}

func TestStore_CommitDashboard_Atomic(t *testing.T) {
	s := NewStore()
	registered(s)

	s.CommitDashboard("5551234567", Plan{PlanName: "Gold"}, UsageSummary{Visits: 3, TotalSpend: 245.50}, nil)
	s.CommitDashboard("5551234567", Plan{PlanName: "Platinum"}, UsageSummary{Visits: 9, TotalSpend: 900}, nil)

	// Plan and usage must always come from the same commit.
	snap := s.Snapshot()
	if snap.Plan.PlanName != "Platinum" || snap.Usage.Visits != 9 {
		t.Errorf("plan and usage out of step: %s / %d", snap.Plan.PlanName, snap.Usage.Visits)
	}
}

func TestStore_CommitDashboard_StaleResponseDiscarded(t *testing.T) {
	s := NewStore()
	registered(s)

	// A new registration supersedes the session before the old response lands.
	s.CommitRegistration(Patient{Name: "Bob", Phone: "5559990000"}, Plan{PlanName: "Silver"})

	if s.CommitDashboard("5551234567", Plan{PlanName: "Gold"}, UsageSummary{Visits: 3}, nil) {
		t.Fatal("expected stale dashboard commit to be rejected")
	}
	snap := s.Snapshot()
	if snap.Patient.Phone != "5559990000" {
		t.Errorf("store patient changed by stale commit: %s", snap.Patient.Phone)
	}
	if snap.Plan.PlanName != "Silver" {
		t.Errorf("store plan changed by stale commit: %s", snap.Plan.PlanName)
	}
	if snap.Usage != nil {
		t.Error("stale commit populated usage")
	}
}

func TestStore_CommitDashboard_Idempotent(t *testing.T) {
	s := NewStore()
	registered(s)

	plan := Plan{PlanName: "Gold"}
	usage := UsageSummary{Visits: 3, TotalSpend: 245.50}
	letter := &Letter{LetterID: "L1", Content: "...", LetterType: LetterTypeCoverageSummary}

	s.CommitDashboard("5551234567", plan, usage, letter)
	once := s.Snapshot()
	s.CommitDashboard("5551234567", plan, usage, letter)
	twice := s.Snapshot()

	if !reflect.DeepEqual(*once.Plan, *twice.Plan) ||
		!reflect.DeepEqual(*once.Usage, *twice.Usage) ||
		!reflect.DeepEqual(*once.Letter, *twice.Letter) ||
		!reflect.DeepEqual(once.Regions, twice.Regions) {
		t.Error("identical commit changed observable state")
	}
}

func TestStore_CommitLetter_ReplacesLatest(t *testing.T) {
	s := NewStore()
	registered(s)

	s.CommitLetter("5551234567", Letter{LetterID: "L1", Content: "first"})
	s.CommitLetter("5551234567", Letter{LetterID: "L2", Content: "second"})

	snap := s.Snapshot()
	if snap.Letter.LetterID != "L2" {
		t.Errorf("expected latest letter L2, got %s", snap.Letter.LetterID)
	}
}

func TestStore_Begin_RejectsSecondInFlight(t *testing.T) {
	s := NewStore()
	if !s.Begin(RegionLetter) {
		t.Fatal("expected first Begin to succeed")
	}
	if s.Begin(RegionLetter) {
		t.Error("expected second Begin to be rejected while in-flight")
	}
	// Other regions are unaffected.
	if !s.Begin(RegionDashboard) {
		t.Error("expected Begin on a different region to succeed")
	}
}

func TestStore_FailFor_StaleFailureDiscarded(t *testing.T) {
	s := NewStore()
	registered(s)
	s.Begin(RegionDashboard)

	s.CommitRegistration(Patient{Name: "Bob", Phone: "5559990000"}, Plan{})

	if s.FailFor(RegionDashboard, "5551234567", "server error") {
		t.Fatal("expected stale failure to be dropped")
	}
	if st := s.Snapshot().Regions[RegionDashboard]; st.State != StateIdle {
		t.Errorf("expected dashboard idle for new session, got %s", st.State)
	}
}

func TestStore_AppendTurn_WrongPatientDropped(t *testing.T) {
	s := NewStore()
	registered(s)

	if s.AppendAssistantTurn("5550000000", "for someone else") {
		t.Fatal("expected turn for a different patient to be dropped")
	}
	if got := len(s.Snapshot().Transcript); got != 0 {
		t.Errorf("expected empty transcript, got %d turns", got)
	}
}

func TestStore_AppendTurn_NoPatientUsesEmptyKey(t *testing.T) {
	s := NewStore()

	if !s.AppendUserTurn("", "Is metformin covered?") {
		t.Fatal("expected pre-registration turn with empty key to apply")
	}
	if !s.AppendAssistantTurn("", "Please enter your details first so I can help.") {
		t.Fatal("expected pre-registration assistant turn to apply")
	}
	if got := len(s.Snapshot().Transcript); got != 2 {
		t.Errorf("expected 2 turns, got %d", got)
	}
}

func TestStore_Watch_SignalsOnMutation(t *testing.T) {
	s := NewStore()
	ch := s.Watch()

	registered(s)

	select {
	case <-ch:
	default:
		t.Error("expected a change notification after commit")
	}
}

func TestStore_Snapshot_TranscriptIsolated(t *testing.T) {
	s := NewStore()
	registered(s)
	s.AppendUserTurn("5551234567", "one")

	snap := s.Snapshot()
	s.AppendAssistantTurn("5551234567", "two")

	if len(snap.Transcript) != 1 {
		t.Errorf("snapshot transcript mutated by later append: %d turns", len(snap.Transcript))
	}
}
