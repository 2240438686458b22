package engine

import (
	"context"
	"testing"

	"github.com/medisecure/medisecure/internal/gateway"
	"github.com/medisecure/medisecure/internal/session"
)

func TestSendChat_NoPatientShortCircuits(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw)

	if e.SendChat(context.Background(), "Is metformin covered?") {
		t.Error("expected no request to be issued")
	}

	snap := e.Store().Snapshot()
	var assistant []session.ChatTurn
	for _, turn := range snap.Transcript {
		if turn.From == session.SpeakerAssistant {
			assistant = append(assistant, turn)
		}
	}
	if len(assistant) != 1 || assistant[0].Text != NoPatientReply {
		t.Errorf("expected exactly one instructional assistant turn, got %+v", assistant)
	}
	if _, _, _, chat := gw.calls(); chat != 0 {
		t.Errorf("expected no network call, got %d", chat)
	}
}

func TestSendChat_AppendsUserThenReply(t *testing.T) {
	gw := &fakeGateway{chatReply: "Yes, it is covered."}
	e := newTestEngine(gw)
	e.Store().CommitRegistration(session.Patient{Name: "Jane Doe", Phone: "5551234567"}, session.Plan{})

	if !e.SendChat(context.Background(), "Is metformin covered?") {
		t.Fatal("expected chat request to be issued")
	}

	transcript := e.Store().Snapshot().Transcript
	if len(transcript) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(transcript))
	}
	if transcript[0].From != session.SpeakerUser || transcript[0].Text != "Is metformin covered?" {
		t.Errorf("unexpected first turn: %+v", transcript[0])
	}
	if transcript[1].From != session.SpeakerAssistant || transcript[1].Text != "Yes, it is covered." {
		t.Errorf("unexpected second turn: %+v", transcript[1])
	}
}

func TestSendChat_FailureAbsorbedIntoTranscript(t *testing.T) {
	gw := &fakeGateway{chatErr: &gateway.Error{Kind: gateway.KindTransport, Op: "send_chat_message"}}
	e := newTestEngine(gw)
	e.Store().CommitRegistration(session.Patient{Name: "Jane Doe", Phone: "5551234567"}, session.Plan{})

	e.SendChat(context.Background(), "hello")

	snap := e.Store().Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.From != session.SpeakerAssistant || last.Text != FallbackReply {
		t.Errorf("expected fallback turn, got %+v", last)
	}
	if snap.Regions[session.RegionChat].Failed() {
		t.Error("chat failure must not become a region-wide failure")
	}

	// The next message is not blocked by the failed exchange.
	gw.chatErr = nil
	gw.chatReply = "Better now."
	if !e.SendChat(context.Background(), "are you back?") {
		t.Error("expected a further message to be issued after a failure")
	}
}

func TestSendChat_EmptyTextIgnored(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw)
	e.Store().CommitRegistration(session.Patient{Name: "Jane Doe", Phone: "5551234567"}, session.Plan{})

	if e.SendChat(context.Background(), "   ") {
		t.Error("expected empty message to be ignored")
	}
	if got := len(e.Store().Snapshot().Transcript); got != 0 {
		t.Errorf("expected no turns, got %d", got)
	}
}
