// Package engine orchestrates the session's remote calls: it sequences the
// registration → dashboard chain, enforces at-most-one-in-flight semantics
// per operation kind, and resolves every outcome into a session store
// transition. It never returns an error across its boundary; callers learn
// whether a request was issued, and the store carries the result.
package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medisecure/medisecure/internal/gateway"
	"github.com/medisecure/medisecure/internal/session"
)

// Gateway is the slice of the remote client the engine depends on.
// *gateway.Client satisfies it.
type Gateway interface {
	Register(ctx context.Context, name, dateOfBirth, billingAmount string) (*gateway.RegistrationResult, error)
	FetchDashboard(ctx context.Context, phone string) (*gateway.Dashboard, error)
	GenerateLetter(ctx context.Context, phone, letterType string) (*session.Letter, error)
	DownloadLetter(ctx context.Context, letterID string) (*gateway.LetterFile, error)
	SendChatMessage(ctx context.Context, phone, message string) (string, error)
}

type Engine struct {
	gw     Gateway
	store  *session.Store
	logger zerolog.Logger
}

func New(gw Gateway, store *session.Store, logger zerolog.Logger) *Engine {
	return &Engine{gw: gw, store: store, logger: logger}
}

// Store exposes the session store for observers (the rendering layer).
func (e *Engine) Store() *session.Store { return e.store }

// RegistrationInput is the registration form as the user submitted it.
type RegistrationInput struct {
	Name          string
	DateOfBirth   string
	BillingAmount string
}

func (in RegistrationInput) complete() bool {
	return strings.TrimSpace(in.Name) != "" &&
		strings.TrimSpace(in.DateOfBirth) != "" &&
		strings.TrimSpace(in.BillingAmount) != ""
}

// Register runs the one compound flow in the system: register the patient,
// and on success immediately chain a dashboard fetch keyed by the phone the
// registration response returned. The phone is captured from the response,
// never re-read from the store, so an intervening action cannot redirect the
// chained fetch. Returns false if the request was rejected locally.
func (e *Engine) Register(ctx context.Context, in RegistrationInput) bool {
	if !in.complete() {
		e.store.Fail(session.RegionRegistration, "name, date of birth and billing amount are required")
		return false
	}
	if !e.store.Begin(session.RegionRegistration) {
		return false
	}

	res, err := e.gw.Register(ctx, in.Name, in.DateOfBirth, in.BillingAmount)
	if err != nil {
		e.logger.Warn().Err(err).Msg("registration failed")
		e.store.Fail(session.RegionRegistration, failureReason(err))
		return true
	}

	e.store.CommitRegistration(res.Patient, res.Plan)
	e.logger.Info().Str("phone", res.Patient.Phone).Msg("patient registered")

	e.fetchDashboard(ctx, res.Patient.Phone)
	return true
}

// Refresh re-fetches the dashboard for the current patient. With no patient
// registered it is a no-op, not an error.
func (e *Engine) Refresh(ctx context.Context) bool {
	snap := e.store.Snapshot()
	if !snap.Registered() {
		return false
	}
	return e.fetchDashboard(ctx, snap.Patient.Phone)
}

func (e *Engine) fetchDashboard(ctx context.Context, phone string) bool {
	if !e.store.Begin(session.RegionDashboard) {
		return false
	}

	dash, err := e.gw.FetchDashboard(ctx, phone)
	if err != nil {
		e.logger.Warn().Err(err).Str("phone", phone).Msg("dashboard fetch failed")
		e.store.FailFor(session.RegionDashboard, phone, failureReason(err))
		return true
	}

	if !e.store.CommitDashboard(phone, dash.Plan, dash.Usage, dash.LatestLetter) {
		e.logger.Debug().Str("phone", phone).Msg("stale dashboard response discarded")
	}
	return true
}

// GenerateLetter requests a new letter of the given type (coverage_summary
// when empty). A no-op without a patient; a second request while one is in
// flight is rejected locally rather than queued.
func (e *Engine) GenerateLetter(ctx context.Context, letterType string) bool {
	snap := e.store.Snapshot()
	if !snap.Registered() {
		return false
	}
	phone := snap.Patient.Phone

	if !e.store.Begin(session.RegionLetter) {
		return false
	}

	letter, err := e.gw.GenerateLetter(ctx, phone, letterType)
	if err != nil {
		e.logger.Warn().Err(err).Str("phone", phone).Msg("letter generation failed")
		e.store.FailFor(session.RegionLetter, phone, failureReason(err))
		return true
	}

	if !e.store.CommitLetter(phone, *letter) {
		e.logger.Debug().Str("phone", phone).Msg("stale letter response discarded")
	}
	return true
}

// DownloadLetter fetches the latest letter as a plain-text file. The file
// goes to the caller rather than the store; there is nothing to render
// beyond saving it.
func (e *Engine) DownloadLetter(ctx context.Context) (*gateway.LetterFile, error) {
	snap := e.store.Snapshot()
	if snap.Letter == nil {
		return nil, errors.New("no letter to download")
	}
	return e.gw.DownloadLetter(ctx, snap.Letter.LetterID)
}

// failureReason turns a gateway failure into the short reason recorded on
// the region status. Tests and the rendering layer match on the kind prefix.
func failureReason(err error) string {
	var ge *gateway.Error
	if errors.As(err, &ge) {
		return ge.Error()
	}
	return err.Error()
}
