package session

// Patient identifies the member the session belongs to. The phone number is
// assigned by the coverage service at registration and keys every subsequent
// remote call.
type Patient struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dob"`
	Phone       string `json:"phone"`
}

// Plan is the insurance plan associated 1:1 with the current patient.
type Plan struct {
	PlanID      string `json:"plan_id,omitempty"`
	PlanName    string `json:"plan_name"`
	Description string `json:"description"`
}

// UsageSummary reports how much of the plan has been consumed so far.
type UsageSummary struct {
	Visits     int     `json:"visits"`
	TotalSpend float64 `json:"total_spend"`
}

// Letter is a generated coverage letter. The session retains only the most
// recently generated one.
type Letter struct {
	LetterID   string `json:"letter_id"`
	Content    string `json:"content"`
	LetterType string `json:"letter_type"`
}

// Known letter types.
const (
	LetterTypeCoverageSummary    = "coverage_summary"
	LetterTypeMedicationCoverage = "medication_coverage"
)

// Speaker says who authored a chat turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// ChatTurn is one entry in the append-only chat transcript.
type ChatTurn struct {
	From Speaker `json:"from"`
	Text string  `json:"text"`
}

// Region identifies one category of asynchronous remote operation. Each
// region tracks its own in-flight/error status independently.
type Region string

const (
	RegionRegistration Region = "registration"
	RegionDashboard    Region = "dashboard"
	RegionLetter       Region = "letter"
	RegionChat         Region = "chat"
)

// State is the lifecycle position of a region: idle is re-enterable, a new
// request moves a succeeded or failed region back through in-flight.
type State string

const (
	StateIdle      State = "idle"
	StateInFlight  State = "in-flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the current state of a region plus the failure reason, if any.
type Status struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// InFlight reports whether a request of this region's kind is outstanding.
func (s Status) InFlight() bool { return s.State == StateInFlight }

// Failed reports whether the last request of this region's kind failed.
func (s Status) Failed() bool { return s.State == StateFailed }
