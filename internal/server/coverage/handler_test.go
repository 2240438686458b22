package coverage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newCoverageTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	svc := NewService(NewMemoryStore(), nil, zerolog.Nop())
	return NewHandler(svc, "members.csv"), echo.New()
}

func registerJane(t *testing.T, h *Handler) string {
	t.Helper()
	res, err := h.svc.Register(context.Background(), "Jane Doe", "1990-01-15", 245.50)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res.Patient.Phone
}

func TestHandler_Register(t *testing.T) {
	h, e := newCoverageTestHandler(t)

	body := `{"name":"Jane Doe","doa":"1990-01-15","amount":"245.50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patient/register/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var out struct {
		Patient Patient `json:"patient"`
		Plan    Plan    `json:"plan"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Patient.Phone == "" {
		t.Error("expected assigned phone in response")
	}
	if out.Patient.BillingAmount != 245.50 {
		t.Errorf("billing amount = %v", out.Patient.BillingAmount)
	}
	if out.Plan.PlanID != "BASIC_PLAN" {
		t.Errorf("plan = %q", out.Plan.PlanID)
	}
}

func TestHandler_Register_NumericAmount(t *testing.T) {
	h, e := newCoverageTestHandler(t)

	body := `{"name":"Jane Doe","doa":"1990-01-15","amount":99.5}`
	req := httptest.NewRequest(http.MethodPost, "/api/patient/register/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out struct {
		Patient Patient `json:"patient"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Patient.BillingAmount != 99.5 {
		t.Errorf("billing amount = %v", out.Patient.BillingAmount)
	}
}

func TestHandler_Register_MissingFields(t *testing.T) {
	h, e := newCoverageTestHandler(t)

	body := `{"doa":"1990-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patient/register/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Register(c)
	if err == nil {
		t.Fatal("expected error for missing name")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Dashboard(t *testing.T) {
	h, e := newCoverageTestHandler(t)
	phone := registerJane(t, h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("phone")
	c.SetParamValues(phone)

	if err := h.Dashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var out struct {
		Patient Patient       `json:"patient"`
		Plan    Plan          `json:"plan"`
		Usage   *UsageSummary `json:"usage_summary"`
		Letter  *Letter       `json:"latest_letter"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Usage == nil || out.Usage.Visits != 3 {
		t.Errorf("usage = %+v", out.Usage)
	}
	if out.Letter != nil {
		t.Errorf("expected null latest_letter, got %+v", out.Letter)
	}
}

func TestHandler_Dashboard_NotFound(t *testing.T) {
	h, e := newCoverageTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("phone")
	c.SetParamValues("0000000000")

	err := h.Dashboard(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GenerateAndDownloadLetter(t *testing.T) {
	h, e := newCoverageTestHandler(t)
	phone := registerJane(t, h)

	body := `{"phone":"` + phone + `","letter_type":"medication_coverage"}`
	req := httptest.NewRequest(http.MethodPost, "/api/letters/generate/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GenerateLetter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var letter Letter
	json.Unmarshal(rec.Body.Bytes(), &letter)
	if letter.LetterID == "" || letter.LetterType != "medication_coverage" {
		t.Fatalf("unexpected letter %+v", letter)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("letter_id")
	c.SetParamValues(letter.LetterID)

	if err := h.DownloadLetter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var file LetterFile
	json.Unmarshal(rec.Body.Bytes(), &file)
	if file.Filename != "letter_"+letter.LetterID+".txt" {
		t.Errorf("filename = %q", file.Filename)
	}
	if file.Content != letter.Content {
		t.Error("downloaded content differs from generated letter")
	}
}

func TestHandler_Chat_UnknownPatientStill200(t *testing.T) {
	h, e := newCoverageTestHandler(t)

	body := `{"phone":"0000000000","message":"Is metformin covered?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Chat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var out struct {
		Reply string `json:"reply"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Reply != NoPatientChatReply {
		t.Errorf("reply = %q", out.Reply)
	}
}
