package coverage

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler exposes the coverage service over HTTP.
type Handler struct {
	svc         *Service
	membersPath string
}

func NewHandler(svc *Service, membersPath string) *Handler {
	return &Handler{svc: svc, membersPath: membersPath}
}

// RegisterRoutes mounts the patient-facing API under /api.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/patient/register/", h.Register)
	api.GET("/patient/:phone/", h.Dashboard)
	api.POST("/letters/generate/", h.GenerateLetter)
	api.GET("/letters/:letter_id/download/", h.DownloadLetter)
	api.POST("/chatbot/", h.Chat)
	api.POST("/init/load-members/", h.LoadMembers)
}

// amountField accepts the billing amount as either a JSON number or a
// quoted string, since form-based clients send the raw input text.
type amountField float64

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*a = amountField(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = amountField(f)
	return nil
}

type registerRequest struct {
	Name   string      `json:"name"`
	DOA    string      `json:"doa"`
	Amount amountField `json:"amount"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Register(c.Request().Context(), req.Name, req.DOA, float64(req.Amount))
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"patient": res.Patient,
		"plan":    res.Plan,
	})
}

func (h *Handler) Dashboard(c echo.Context) error {
	phone := c.Param("phone")
	res, err := h.svc.Dashboard(c.Request().Context(), phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "dashboard lookup failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"patient":       res.Patient,
		"plan":          res.Plan,
		"usage_summary": res.Usage,
		"latest_letter": res.Letter,
	})
}

type generateLetterRequest struct {
	Phone      string `json:"phone"`
	LetterType string `json:"letter_type"`
}

func (h *Handler) GenerateLetter(c echo.Context) error {
	var req generateLetterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	letter, err := h.svc.GenerateLetter(c.Request().Context(), req.Phone, req.LetterType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "letter generation failed")
	}
	return c.JSON(http.StatusOK, letter)
}

func (h *Handler) DownloadLetter(c echo.Context) error {
	file, err := h.svc.DownloadLetter(c.Request().Context(), c.Param("letter_id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Letter not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "letter download failed")
	}
	return c.JSON(http.StatusOK, file)
}

type chatRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	reply, err := h.svc.Chat(c.Request().Context(), req.Phone, req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "chat failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"reply": reply})
}

func (h *Handler) LoadMembers(c echo.Context) error {
	count, err := h.svc.LoadMembers(c.Request().Context(), h.membersPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "Insurance members loaded.",
		"count":  count,
	})
}
