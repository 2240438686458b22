package assist

import (
	"context"
	"fmt"
	"strings"
)

// Query is one chat message plus the plan context the responder may use.
type Query struct {
	PatientName string
	PlanID      string
	PlanName    string
	Message     string
}

// Responder produces the assistant's reply for one chat message.
type Responder interface {
	Reply(ctx context.Context, q Query) (string, error)
}

// MedicationMatch is the result of a formulary lookup.
type MedicationMatch struct {
	Name         string
	CoveredPlans []string
}

// ChainResponder tries each responder in order and returns the first reply
// that succeeds. It lets the LLM responder degrade to the rule responder.
type ChainResponder []Responder

func (cr ChainResponder) Reply(ctx context.Context, q Query) (string, error) {
	var lastErr error
	for _, r := range cr {
		reply, err := r.Reply(ctx, q)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// RuleResponder answers from a small fixed rule set: medication coverage
// lookups against the formulary, plan questions, greetings, and a fallback.
// It never fails, which makes it the safety net behind the LLM responder.
type RuleResponder struct {
	// FindMedication looks up a formulary entry whose name appears among
	// words. A nil result means no match.
	FindMedication func(ctx context.Context, words []string) (*MedicationMatch, error)
}

func (r *RuleResponder) Reply(ctx context.Context, q Query) (string, error) {
	text := strings.ToLower(q.Message)

	if r.FindMedication != nil {
		med, err := r.FindMedication(ctx, Tokenize(q.Message))
		if err == nil && med != nil {
			for _, planID := range med.CoveredPlans {
				if planID == q.PlanID {
					return fmt.Sprintf("Yes, %s is covered under your plan.", med.Name), nil
				}
			}
			return fmt.Sprintf("%s is not listed as covered by your current plan.", med.Name), nil
		}
	}

	if strings.Contains(text, "coverage") || strings.Contains(text, "what does my plan cover") {
		return "Your plan covers primary care, specialist visits, and most generic medications.", nil
	}
	if strings.Contains(text, "help") || strings.Contains(text, "hi") {
		return "Hello! I can help you check if a medication is covered or summarize your benefits.", nil
	}
	return "I'm not sure about that, but you can ask me if a specific medication is covered.", nil
}
