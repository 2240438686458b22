package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	return c, srv
}

func TestRegister_Success(t *testing.T) {
	var gotBody map[string]string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patient/register/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"patient": map[string]string{"name": "Jane Doe", "dob": "1950-01-01", "phone": "5551234567"},
			"plan":    map[string]string{"plan_name": "Basic Health Coverage Plan"},
		})
	}))
	defer srv.Close()

	res, err := c.Register(context.Background(), "Jane Doe", "1950-01-01", "100.00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Patient.Name != "Jane Doe" || res.Patient.Phone != "5551234567" {
		t.Errorf("unexpected patient: %+v", res.Patient)
	}
	if gotBody["name"] != "Jane Doe" || gotBody["doa"] != "1950-01-01" || gotBody["amount"] != "100.00" {
		t.Errorf("unexpected request body: %v", gotBody)
	}
}

func TestRegister_ValidationBeforeNetwork(t *testing.T) {
	calls := 0
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	_, err := c.Register(context.Background(), "", "1950-01-01", "100.00")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if KindOf(err) != KindValidation {
		t.Errorf("expected KindValidation, got %s", KindOf(err))
	}
	if calls != 0 {
		t.Errorf("expected no network call, got %d", calls)
	}
}

func TestRegister_ServerError(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := c.Register(context.Background(), "Jane Doe", "1950-01-01", "100.00")
	if err == nil {
		t.Fatal("expected server error")
	}
	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ge.Kind != KindServer || ge.Status != http.StatusInternalServerError {
		t.Errorf("expected server/500, got %s/%d", ge.Kind, ge.Status)
	}
}

func TestFetchDashboard_NotFound(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := c.FetchDashboard(context.Background(), "0000000000")
	if !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestFetchDashboard_Success(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patient/5551234567/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"patient":       map[string]string{"name": "Jane Doe", "phone": "5551234567"},
			"plan":          map[string]string{"plan_name": "Gold", "description": "Everything"},
			"usage_summary": map[string]interface{}{"visits": 3, "total_spend": 245.50},
			"latest_letter": nil,
		})
	}))
	defer srv.Close()

	dash, err := c.FetchDashboard(context.Background(), "5551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dash.Plan.PlanName != "Gold" || dash.Usage.Visits != 3 || dash.Usage.TotalSpend != 245.50 {
		t.Errorf("unexpected dashboard: %+v", dash)
	}
	if dash.LatestLetter != nil {
		t.Error("expected no latest letter")
	}
}

func TestGenerateLetter_DefaultsType(t *testing.T) {
	var gotBody map[string]string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{
			"letter_id": "L1", "content": "Dear Jane", "letter_type": "coverage_summary",
		})
	}))
	defer srv.Close()

	letter, err := c.GenerateLetter(context.Background(), "5551234567", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["letter_type"] != "coverage_summary" {
		t.Errorf("expected default letter_type, got %q", gotBody["letter_type"])
	}
	if letter.LetterID != "L1" {
		t.Errorf("unexpected letter: %+v", letter)
	}
}

func TestSendChatMessage_Success(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"reply": "Yes, it is covered."})
	}))
	defer srv.Close()

	reply, err := c.SendChatMessage(context.Background(), "5551234567", "Is metformin covered?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Yes, it is covered." {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestTransportFailure(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := c.FetchDashboard(context.Background(), "5551234567")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if KindOf(err) != KindTransport {
		t.Errorf("expected KindTransport, got %s", KindOf(err))
	}
}

func TestDownloadLetter_Success(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/letters/L1/download/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"filename": "letter_L1.txt", "content": "Dear Jane"})
	}))
	defer srv.Close()

	f, err := c.DownloadLetter(context.Background(), "L1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Filename != "letter_L1.txt" || f.Content != "Dear Jane" {
		t.Errorf("unexpected letter file: %+v", f)
	}
}
