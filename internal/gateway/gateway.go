// Package gateway is the typed client for the coverage service's JSON API.
// It owns request construction, response parsing, and the classification of
// transport and HTTP failures into one uniform error type. It performs
// exactly one round trip per call and never retries; retry policy belongs to
// the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medisecure/medisecure/internal/session"
)

// Client talks to one coverage service at a fixed base URL. It is stateless
// and safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// RegistrationResult is the payload of a successful registration: the
// patient identity the server assigned (including the session phone key)
// and the matched plan.
type RegistrationResult struct {
	Patient session.Patient `json:"patient"`
	Plan    session.Plan    `json:"plan"`
}

// Dashboard is the payload of a dashboard fetch. LatestLetter is nil when
// no letter has been generated for the patient yet.
type Dashboard struct {
	Patient      session.Patient      `json:"patient"`
	Plan         session.Plan         `json:"plan"`
	Usage        session.UsageSummary `json:"usage_summary"`
	LatestLetter *session.Letter      `json:"latest_letter"`
}

// LetterFile is a letter prepared for download as plain text.
type LetterFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Register submits the patient's basic information. All three fields are
// required; missing input fails client-side without a network call.
func (c *Client) Register(ctx context.Context, name, dateOfBirth, billingAmount string) (*RegistrationResult, error) {
	const op = "register"
	if strings.TrimSpace(name) == "" || strings.TrimSpace(dateOfBirth) == "" || strings.TrimSpace(billingAmount) == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf("name, date of birth and billing amount are required")}
	}
	body := map[string]string{"name": name, "doa": dateOfBirth, "amount": billingAmount}
	var out RegistrationResult
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/patient/register/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchDashboard loads the coverage panel data for phone.
func (c *Client) FetchDashboard(ctx context.Context, phone string) (*Dashboard, error) {
	const op = "fetch_dashboard"
	var out Dashboard
	path := "/api/patient/" + url.PathEscape(phone) + "/"
	if err := c.doJSON(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateLetter requests a new letter for phone. An empty letterType
// defaults to coverage_summary.
func (c *Client) GenerateLetter(ctx context.Context, phone, letterType string) (*session.Letter, error) {
	const op = "generate_letter"
	if letterType == "" {
		letterType = session.LetterTypeCoverageSummary
	}
	body := map[string]string{"phone": phone, "letter_type": letterType}
	var out session.Letter
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/letters/generate/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadLetter fetches a previously generated letter as a plain-text file.
func (c *Client) DownloadLetter(ctx context.Context, letterID string) (*LetterFile, error) {
	const op = "download_letter"
	var out LetterFile
	path := "/api/letters/" + url.PathEscape(letterID) + "/download/"
	if err := c.doJSON(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendChatMessage sends one chat message and returns the assistant's reply.
func (c *Client) SendChatMessage(ctx context.Context, phone, message string) (string, error) {
	const op = "send_chat_message"
	body := map[string]string{"phone": phone, "message": message}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/chatbot/", body, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}

// doJSON performs a single JSON round trip and decodes a 2xx response into
// out. Any other outcome becomes a classified *Error.
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Str("op", op).Err(err).Msg("gateway transport failure")
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("gateway call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := KindServer
		if resp.StatusCode == http.StatusNotFound {
			kind = KindNotFound
		}
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &Error{Kind: kind, Op: op, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
