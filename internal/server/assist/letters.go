// Package assist generates patient-facing text for the coverage service:
// template letters, a rule-based chat responder, and an optional
// OpenAI-backed responder.
package assist

import (
	"fmt"
	"regexp"
	"strings"
)

// LetterInput is everything the letter templates draw on.
type LetterInput struct {
	PatientName string
	PlanName    string
	Visits      int
	TotalSpend  float64
}

// Letter renders the template for letterType. Unknown types fall back to a
// generic correspondence body.
func Letter(in LetterInput, letterType string) string {
	name := in.PatientName
	if name == "" {
		name = "Member"
	}
	planName := in.PlanName
	if planName == "" {
		planName = "your current plan"
	}

	switch letterType {
	case "coverage_summary":
		return fmt.Sprintf(
			"Dear %s,\n\n"+
				"This letter summarizes your coverage under %s.\n"+
				"You have used %d visits so far with an estimated spend of $%.2f.\n\n"+
				"Your plan covers primary care, specialist visits, and most generic "+
				"medications according to formulary rules.\n\n"+
				"Sincerely,\nMediSecure AI",
			name, planName, in.Visits, in.TotalSpend)
	case "medication_coverage":
		return fmt.Sprintf(
			"Dear %s,\n\n"+
				"This letter explains medication coverage under your current plan.\n"+
				"Most generic medications are covered at the lowest copay tier, while "+
				"some brand-name medications may require prior authorization.\n\n"+
				"Please check with your pharmacist or provider for exact costs.\n\n"+
				"Sincerely,\nMediSecure AI",
			name)
	}
	return fmt.Sprintf("Dear %s,\n\nThis is an automatically generated correspondence.\n\nMediSecure AI", name)
}

// RedactName replaces every occurrence of the patient's name, case
// insensitively, with a placeholder before the letter is stored.
func RedactName(text, name string) string {
	if name == "" {
		return text
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(name))
	if err != nil {
		return text
	}
	return re.ReplaceAllLiteralString(text, "[PATIENT_NAME]")
}

// Tokenize splits a chat message into lowercase lookup words, trimming the
// punctuation that usually clings to medication names.
func Tokenize(message string) []string {
	fields := strings.Fields(strings.ToLower(message))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := strings.Trim(f, ",.?!"); w != "" {
			words = append(words, w)
		}
	}
	return words
}
