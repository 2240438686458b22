package engine

import (
	"context"
	"strings"

	"github.com/medisecure/medisecure/internal/session"
)

// Fixed assistant turns. A chat exchange never surfaces a session-wide
// error; failures land in the transcript so the user can keep typing.
const (
	// NoPatientReply is appended locally when chat is used before
	// registration; no request is sent.
	NoPatientReply = "Please enter your details first so I can help."
	// FallbackReply is appended when the chat call itself fails.
	FallbackReply = "Sorry, something went wrong."
)

// SendChat appends the user's turn optimistically, sends the message, and
// appends the assistant's reply. Before registration it short-circuits with
// the fixed instructional turn. Returns false if no request was issued.
func (e *Engine) SendChat(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	snap := e.store.Snapshot()
	if !snap.Registered() {
		e.store.AppendUserTurn("", text)
		e.store.AppendAssistantTurn("", NoPatientReply)
		return false
	}
	phone := snap.Patient.Phone

	if !e.store.Begin(session.RegionChat) {
		return false
	}
	e.store.AppendUserTurn(phone, text)

	reply, err := e.gw.SendChatMessage(ctx, phone, text)
	if err != nil {
		e.logger.Warn().Err(err).Msg("chat exchange failed")
		e.store.AppendAssistantTurn(phone, FallbackReply)
		e.store.SettleChat(phone)
		return true
	}

	e.store.AppendAssistantTurn(phone, reply)
	e.store.SettleChat(phone)
	return true
}
