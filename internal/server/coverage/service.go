package coverage

import (
	"context"
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisecure/medisecure/internal/server/assist"
)

// Service implements the coverage API on top of a Store and a chat Responder.
type Service struct {
	store     Store
	responder assist.Responder
	logger    zerolog.Logger
}

// NewService wires the service. A nil responder falls back to the built-in
// rule responder backed by the store's formulary.
func NewService(store Store, responder assist.Responder, logger zerolog.Logger) *Service {
	s := &Service{store: store, responder: responder, logger: logger}
	if s.responder == nil {
		s.responder = &assist.RuleResponder{FindMedication: s.FindMedication}
	}
	return s
}

// ValidationError marks bad input; handlers map it to HTTP 400.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// RegistrationResult pairs the upserted patient with their resolved plan.
type RegistrationResult struct {
	Patient *Patient
	Plan    *Plan
}

// DashboardResult is everything the dashboard endpoint returns.
type DashboardResult struct {
	Patient *Patient
	Plan    *Plan
	Usage   *UsageSummary
	Letter  *Letter // nil when the patient has no letters yet
}

// Register matches the applicant against the imported member dataset. A
// match carries the member's plan and phone number; otherwise the patient
// lands on the default plan with a derived phone number.
func (s *Service) Register(ctx context.Context, name, dob string, amount float64) (*RegistrationResult, error) {
	name = strings.TrimSpace(name)
	dob = strings.TrimSpace(dob)
	if name == "" || dob == "" {
		return nil, &ValidationError{Msg: "name and doa are required"}
	}
	if amount < 0 {
		return nil, &ValidationError{Msg: "amount must not be negative"}
	}

	plan := defaultPlan
	phone := derivePhone(name, dob)

	member, err := s.store.FindMember(ctx, strings.ToLower(name), dob)
	switch {
	case err == nil:
		plan = planFromMember(member)
		if member.Phone != "" {
			phone = member.Phone
		}
	case err != ErrNotFound:
		return nil, fmt.Errorf("match member: %w", err)
	}

	if err := s.store.UpsertPlan(ctx, &plan); err != nil {
		return nil, fmt.Errorf("upsert plan: %w", err)
	}

	patient := &Patient{
		Name:          name,
		DOB:           dob,
		Phone:         phone,
		PlanID:        plan.PlanID,
		BillingAmount: amount,
	}
	if err := s.store.UpsertPatient(ctx, patient); err != nil {
		return nil, fmt.Errorf("upsert patient: %w", err)
	}

	s.logger.Info().Str("phone", phone).Str("plan_id", plan.PlanID).Msg("patient registered")
	return &RegistrationResult{Patient: patient, Plan: &plan}, nil
}

// Dashboard assembles the patient's current view: identity, plan, a usage
// summary, and the most recent letter if one exists.
func (s *Service) Dashboard(ctx context.Context, phone string) (*DashboardResult, error) {
	patient, err := s.store.GetPatient(ctx, phone)
	if err != nil {
		return nil, err
	}
	plan, err := s.planFor(ctx, patient)
	if err != nil {
		return nil, err
	}
	letter, err := s.store.LatestLetter(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("latest letter: %w", err)
	}
	return &DashboardResult{
		Patient: patient,
		Plan:    plan,
		Usage:   usageFor(patient),
		Letter:  letter,
	}, nil
}

// GenerateLetter renders the requested template, redacts the patient's name,
// and stores the result. Empty letterType defaults to a coverage summary.
func (s *Service) GenerateLetter(ctx context.Context, phone, letterType string) (*Letter, error) {
	if letterType == "" {
		letterType = "coverage_summary"
	}
	patient, err := s.store.GetPatient(ctx, phone)
	if err != nil {
		return nil, err
	}
	plan, err := s.planFor(ctx, patient)
	if err != nil {
		return nil, err
	}
	usage := usageFor(patient)

	content := assist.Letter(assist.LetterInput{
		PatientName: patient.Name,
		PlanName:    plan.PlanName,
		Visits:      usage.Visits,
		TotalSpend:  usage.TotalSpend,
	}, letterType)
	content = assist.RedactName(content, patient.Name)

	letter := &Letter{
		LetterID:     uuid.NewString(),
		PatientPhone: phone,
		PlanID:       plan.PlanID,
		LetterType:   letterType,
		Content:      content,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.InsertLetter(ctx, letter); err != nil {
		return nil, fmt.Errorf("insert letter: %w", err)
	}
	s.logger.Info().Str("phone", phone).Str("letter_type", letterType).Msg("letter generated")
	return letter, nil
}

// LetterFile is the downloadable form of a stored letter.
type LetterFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (s *Service) DownloadLetter(ctx context.Context, letterID string) (*LetterFile, error) {
	letter, err := s.store.GetLetter(ctx, letterID)
	if err != nil {
		return nil, err
	}
	return &LetterFile{
		Filename: fmt.Sprintf("letter_%s.txt", letter.LetterID),
		Content:  letter.Content,
	}, nil
}

// NoPatientChatReply is sent when the chatbot is asked about an unknown
// phone number. It goes out with a 200 so the client can show it verbatim.
const NoPatientChatReply = "Please enter and save your details first so I can access your plan info."

// Chat answers one patient message. Unknown patients get an instructional
// reply rather than an error.
func (s *Service) Chat(ctx context.Context, phone, message string) (string, error) {
	patient, err := s.store.GetPatient(ctx, phone)
	if err == ErrNotFound {
		return NoPatientChatReply, nil
	}
	if err != nil {
		return "", err
	}
	plan, err := s.planFor(ctx, patient)
	if err != nil {
		return "", err
	}
	return s.responder.Reply(ctx, assist.Query{
		PatientName: patient.Name,
		PlanID:      plan.PlanID,
		PlanName:    plan.PlanName,
		Message:     message,
	})
}

// FindMedication adapts the store's formulary lookup to the responder's
// callback shape.
func (s *Service) FindMedication(ctx context.Context, words []string) (*assist.MedicationMatch, error) {
	med, err := s.store.FindMedicationByWords(ctx, words)
	if err != nil || med == nil {
		return nil, err
	}
	return &assist.MedicationMatch{Name: med.Name, CoveredPlans: med.CoveredPlans}, nil
}

// LoadMembers replaces the member dataset with the rows of the CSV at path.
// Rows without a name are skipped; malformed numeric fields default to zero.
func (s *Service) LoadMembers(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open members csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var members []*Member
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row: %w", err)
		}
		name := field(row, "Name")
		if name == "" {
			continue
		}
		members = append(members, &Member{
			Name:          name,
			NameLC:        strings.ToLower(name),
			DOB:           field(row, "DateOfBirth"),
			Phone:         field(row, "PhoneNumber"),
			PlanName:      valueOr(field(row, "PlanName"), "Imported Plan"),
			CoverageLevel: valueOr(field(row, "CoverageLevel"), "Standard"),
			Deductible:    parseAmount(field(row, "Deductible")),
			Copay:         parseAmount(field(row, "Copay")),
		})
	}

	if err := s.store.ReplaceMembers(ctx, members); err != nil {
		return 0, fmt.Errorf("replace members: %w", err)
	}
	s.logger.Info().Int("count", len(members)).Str("path", path).Msg("insurance members loaded")
	return len(members), nil
}

// SeedFormulary loads a small default medication list so the chatbot has
// something to answer about out of the box.
func (s *Service) SeedFormulary(ctx context.Context) error {
	meds := []*Medication{
		{Name: "Metformin", NameLC: "metformin", CoveredPlans: []string{"BASIC_PLAN", "MEMBER_PLAN"}},
		{Name: "Lisinopril", NameLC: "lisinopril", CoveredPlans: []string{"BASIC_PLAN", "MEMBER_PLAN"}},
		{Name: "Atorvastatin", NameLC: "atorvastatin", CoveredPlans: []string{"BASIC_PLAN", "MEMBER_PLAN"}},
		{Name: "Ibuprofen", NameLC: "ibuprofen", CoveredPlans: []string{"BASIC_PLAN", "MEMBER_PLAN"}},
		{Name: "Insulin", NameLC: "insulin", CoveredPlans: []string{"MEMBER_PLAN"}},
	}
	return s.store.SeedMedications(ctx, meds)
}

func (s *Service) planFor(ctx context.Context, patient *Patient) (*Plan, error) {
	plan, err := s.store.GetPlan(ctx, patient.PlanID)
	if err == ErrNotFound {
		fallback := defaultPlan
		return &fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

func planFromMember(m *Member) Plan {
	return Plan{
		PlanID:      "MEMBER_PLAN",
		PlanName:    m.PlanName,
		Description: fmt.Sprintf("Coverage level: %s (deductible $%.2f, copay $%.2f)", m.CoverageLevel, m.Deductible, m.Copay),
	}
}

// usageFor fabricates a usage summary. There is no claims feed in the demo
// backend, so spend reflects the billing amount entered at registration.
func usageFor(p *Patient) *UsageSummary {
	spend := p.BillingAmount
	if spend <= 0 {
		spend = 240.50
	}
	return &UsageSummary{Visits: 3, TotalSpend: spend}
}

// derivePhone builds a stable synthetic phone number from the identity
// fields, so re-registering the same person yields the same session key.
func derivePhone(name, dob string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(name) + "|" + dob))
	return fmt.Sprintf("5%09d", h.Sum32()%1_000_000_000)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func parseAmount(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
