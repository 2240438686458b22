package coverage

import "time"

// Patient maps to the patient table/collection. Phone is the session key
// every client call is issued with.
type Patient struct {
	Name          string  `db:"name" bson:"name" json:"name"`
	DOB           string  `db:"dob" bson:"dob" json:"dob"`
	Phone         string  `db:"phone" bson:"phone" json:"phone"`
	PlanID        string  `db:"plan_id" bson:"plan_id" json:"plan_id,omitempty"`
	BillingAmount float64 `db:"billing_amount" bson:"billing_amount" json:"billing_amount,omitempty"`
}

// Plan maps to the plan table/collection.
type Plan struct {
	PlanID      string `db:"plan_id" bson:"plan_id" json:"plan_id"`
	PlanName    string `db:"plan_name" bson:"plan_name" json:"plan_name"`
	Description string `db:"description" bson:"description" json:"description"`
}

// UsageSummary is computed per dashboard fetch, not stored.
type UsageSummary struct {
	Visits     int     `json:"visits"`
	TotalSpend float64 `json:"total_spend"`
}

// Letter maps to the letter table/collection. Letters accumulate
// server-side; the dashboard exposes only the most recent per patient.
type Letter struct {
	LetterID     string    `db:"letter_id" bson:"letter_id" json:"letter_id"`
	PatientPhone string    `db:"patient_phone" bson:"patient_phone" json:"patient_phone"`
	PlanID       string    `db:"plan_id" bson:"plan_id" json:"plan_id,omitempty"`
	LetterType   string    `db:"letter_type" bson:"letter_type" json:"letter_type"`
	Content      string    `db:"content" bson:"content" json:"content"`
	CreatedAt    time.Time `db:"created_at" bson:"created_at" json:"created_at"`
}

// Member is one row of the imported insurance-member dataset. Registration
// matches against it by lowercased name and date of birth.
type Member struct {
	Name          string  `db:"name" bson:"name" json:"name"`
	NameLC        string  `db:"name_lc" bson:"name_lc" json:"name_lc"`
	DOB           string  `db:"dob" bson:"dob" json:"dob"`
	Phone         string  `db:"phone" bson:"phone" json:"phone"`
	PlanName      string  `db:"plan_name" bson:"plan_name" json:"plan_name"`
	CoverageLevel string  `db:"coverage_level" bson:"coverage_level" json:"coverage_level"`
	Deductible    float64 `db:"deductible" bson:"deductible" json:"deductible"`
	Copay         float64 `db:"copay" bson:"copay" json:"copay"`
}

// Medication is a formulary entry the chatbot checks coverage against.
type Medication struct {
	Name         string   `db:"name" bson:"name" json:"name"`
	NameLC       string   `db:"name_lc" bson:"name_lc" json:"name_lc"`
	CoveredPlans []string `db:"covered_plans" bson:"covered_plans" json:"covered_plans"`
}

// Default plan used when registration matches no imported member.
var defaultPlan = Plan{
	PlanID:      "BASIC_PLAN",
	PlanName:    "Basic Health Coverage Plan",
	Description: "Covers primary care, specialists, labs, and generic medications.",
}
