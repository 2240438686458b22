package session

import "sync"

// Snapshot is an immutable view of the session at one instant. Entity
// pointers are shared with the store but never mutated in place; commits
// replace them wholesale, so a snapshot stays internally consistent after
// later commits.
type Snapshot struct {
	Patient    *Patient
	Plan       *Plan
	Usage      *UsageSummary
	Letter     *Letter
	Transcript []ChatTurn
	Regions    map[Region]Status
}

// Registered reports whether the session has a patient with a phone, the
// precondition for every phone-keyed operation.
func (s Snapshot) Registered() bool {
	return s.Patient != nil && s.Patient.Phone != ""
}

// Store owns all session state: the patient, plan, usage, latest letter,
// chat transcript, and the per-region request status. All mutation goes
// through its commit/mark operations; each one is atomic to observers.
//
// Phone-keyed commits are applied only while the phone they were issued for
// still matches the current patient, so a response that arrives after a new
// registration replaced the session is discarded rather than applied.
type Store struct {
	mu         sync.Mutex
	patient    *Patient
	plan       *Plan
	usage      *UsageSummary
	letter     *Letter
	transcript []ChatTurn
	regions    map[Region]Status
	watchers   []chan struct{}
}

func NewStore() *Store {
	return &Store{
		regions: map[Region]Status{
			RegionRegistration: {State: StateIdle},
			RegionDashboard:    {State: StateIdle},
			RegionLetter:       {State: StateIdle},
			RegionChat:         {State: StateIdle},
		},
	}
}

// Snapshot returns the current session state. The transcript and region map
// are copied so the caller can hold the snapshot across later commits.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	regions := make(map[Region]Status, len(s.regions))
	for r, st := range s.regions {
		regions[r] = st
	}
	transcript := make([]ChatTurn, len(s.transcript))
	copy(transcript, s.transcript)

	return Snapshot{
		Patient:    s.patient,
		Plan:       s.plan,
		Usage:      s.usage,
		Letter:     s.letter,
		Transcript: transcript,
		Regions:    regions,
	}
}

// Watch returns a channel that receives a signal after every mutation. The
// channel is buffered and signals coalesce, so a slow observer sees at least
// one notification for any burst of changes.
func (s *Store) Watch() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.watchers = append(s.watchers, ch)
	return ch
}

// matchesPhone reports whether a response keyed by phone still belongs to
// the current session. With no patient registered only the empty key
// matches, which lets the pre-registration chat path append its local turns.
func (s *Store) matchesPhone(phone string) bool {
	if s.patient == nil {
		return phone == ""
	}
	return s.patient.Phone == phone
}

func (s *Store) notify() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Begin marks a region in-flight. It returns false, changing nothing, if a
// request of that kind is already outstanding.
func (s *Store) Begin(r Region) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.regions[r].InFlight() {
		return false
	}
	s.regions[r] = Status{State: StateInFlight}
	s.notify()
	return true
}

// Fail records a failed request for a region that is not keyed by the
// session identity (registration).
func (s *Store) Fail(r Region, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[r] = Status{State: StateFailed, Reason: reason}
	s.notify()
}

// FailFor records a failed request for a phone-keyed region. A failure
// belonging to a superseded session is dropped.
func (s *Store) FailFor(r Region, phone, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matchesPhone(phone) {
		return false
	}
	s.regions[r] = Status{State: StateFailed, Reason: reason}
	s.notify()
	return true
}

// CommitRegistration installs a new patient and plan, clearing everything
// scoped to the previous session: usage, latest letter, chat transcript,
// and the phone-keyed region statuses.
func (s *Store) CommitRegistration(p Patient, plan Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patient = &p
	s.plan = &plan
	s.usage = nil
	s.letter = nil
	s.transcript = nil
	s.regions[RegionRegistration] = Status{State: StateSucceeded}
	s.regions[RegionDashboard] = Status{State: StateIdle}
	s.regions[RegionLetter] = Status{State: StateIdle}
	s.regions[RegionChat] = Status{State: StateIdle}
	s.notify()
}

// CommitDashboard applies a dashboard response issued for phone. Plan,
// usage, and letter-if-present are applied together or not at all.
func (s *Store) CommitDashboard(phone string, plan Plan, usage UsageSummary, letter *Letter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matchesPhone(phone) {
		return false
	}
	s.plan = &plan
	s.usage = &usage
	if letter != nil {
		l := *letter
		s.letter = &l
	}
	s.regions[RegionDashboard] = Status{State: StateSucceeded}
	s.notify()
	return true
}

// CommitLetter replaces the latest letter. No history is kept.
func (s *Store) CommitLetter(phone string, letter Letter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matchesPhone(phone) {
		return false
	}
	s.letter = &letter
	s.regions[RegionLetter] = Status{State: StateSucceeded}
	s.notify()
	return true
}

// AppendUserTurn appends the patient's own message to the transcript.
func (s *Store) AppendUserTurn(phone, text string) bool {
	return s.appendTurn(phone, ChatTurn{From: SpeakerUser, Text: text})
}

// AppendAssistantTurn appends an assistant reply to the transcript.
func (s *Store) AppendAssistantTurn(phone, text string) bool {
	return s.appendTurn(phone, ChatTurn{From: SpeakerAssistant, Text: text})
}

func (s *Store) appendTurn(phone string, turn ChatTurn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matchesPhone(phone) {
		return false
	}
	s.transcript = append(s.transcript, turn)
	s.notify()
	return true
}

// SettleChat resolves the chat region after an exchange completes. Chat
// failures are absorbed into the transcript, so the region never ends up
// failed and further messages are never blocked.
func (s *Store) SettleChat(phone string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matchesPhone(phone) {
		return false
	}
	s.regions[RegionChat] = Status{State: StateSucceeded}
	s.notify()
	return true
}
