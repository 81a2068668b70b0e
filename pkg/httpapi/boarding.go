package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-boarding/pkg/gateway"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/record"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/widgets"
	"github.com/goliatone/go-boarding/pkg/wizard"
)

var errNoGateway = errors.New("httpapi: gateway not configured")

type indexResponse struct {
	Title string        `json:"title"`
	Steps []wizard.Step `json:"steps"`
}

type validateResponse struct {
	Valid      bool              `json:"valid"`
	Violations schema.Violations `json:"violations"`
	FirstPage  int               `json:"firstPage"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	wz := wizard.New(s.schema, record.New(s.schema))
	writeJSON(w, http.StatusOK, indexResponse{Title: s.schema.Form().Title, Steps: wz.Steps()})
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.schema.Form())
}

func (s *Server) validate(values map[string]any) validateResponse {
	v := s.schema.Validate(values)
	return validateResponse{Valid: v.Valid(), Violations: v, FirstPage: s.schema.FirstPage(v)}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeBody(w, r, &values); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.validate(values))
}

// handleStep binds the widgets of a step to the caller's saved progress.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 || index >= s.schema.PageCount() {
		writeError(w, StatusError{Code: http.StatusNotFound, Message: "Unknown step", Err: fmt.Errorf("step %q", r.PathValue("index"))})
		return
	}
	identifier, err := s.identifier().Identify(r)
	if err != nil {
		writeError(w, StatusError{Code: http.StatusUnauthorized, Err: err})
		return
	}

	rec := record.New(s.schema, record.WithLogger(s.logger))
	if _, err := persistence.NewAdapter(s.store, persistence.WithLogger(s.logger)).Load(r.Context(), identifier, rec); err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("validate") == "true" {
		rec.Validate()
	}
	wz := wizard.New(s.schema, rec, wizard.WithBinder(widgets.NewBinder(s.schema, widgets.WithOptionSource(s.regions))))
	wz.Jump(index)
	view, err := wz.View()
	if err != nil {
		writeError(w, err)
		return
	}
	if s.sessions == nil {
		persistence.RememberDevice(w, identifier)
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCreateApp validates the record before it reaches the gateway. An
// invalid record answers 422 with the violations and the first step to show.
func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	if s.boarding == nil {
		writeError(w, errNoGateway)
		return
	}
	var values map[string]any
	if err := decodeBody(w, r, &values); err != nil {
		writeError(w, err)
		return
	}
	if result := s.validate(values); !result.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = s.newKey()
	}
	payload, err := s.boarding.CreateApp(r.Context(), s.schema.Payload(values), key)
	if err != nil {
		s.logger.Error().Err(err).Str("idempotency_key", key).Msg("create application failed")
		writeError(w, upstream("Failed to submit application", err))
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

type attachFilesRequest struct {
	AppID       any                  `json:"appId"`
	Attachments []gateway.Attachment `json:"attachments"`
}

func (s *Server) handleAttachFiles(w http.ResponseWriter, r *http.Request) {
	if s.boarding == nil {
		writeError(w, errNoGateway)
		return
	}
	var req attachFilesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	appID := appIDString(req.AppID)
	if err := s.boarding.AttachFiles(r.Context(), appID, req.Attachments); err != nil {
		s.logger.Error().Err(err).Str("app_id", appID).Msg("attach files failed")
		writeError(w, upstream("Failed to attach files", err))
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type attachPDFRequest struct {
	AppID      any    `json:"appId"`
	PDFContent string `json:"pdfContent"`
}

func (s *Server) handleAttachPDF(w http.ResponseWriter, r *http.Request) {
	if s.boarding == nil {
		writeError(w, errNoGateway)
		return
	}
	var req attachPDFRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	appID := appIDString(req.AppID)
	if err := s.boarding.AttachPDF(r.Context(), appID, req.PDFContent); err != nil {
		s.logger.Error().Err(err).Str("app_id", appID).Msg("attach pdf failed")
		writeError(w, upstream("Failed to attach PDF", err))
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type submitAppRequest struct {
	AppID any `json:"appId"`
}

func (s *Server) handleSubmitApp(w http.ResponseWriter, r *http.Request) {
	if s.boarding == nil {
		writeError(w, errNoGateway)
		return
	}
	var req submitAppRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	appID := appIDString(req.AppID)
	payload, err := s.boarding.SubmitApp(r.Context(), appID)
	if err != nil {
		s.logger.Error().Err(err).Str("app_id", appID).Msg("submit application failed")
		writeError(w, upstream("Failed to submit application", err))
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// upstream keeps the gateway's status mapping under a public message.
func upstream(message string, err error) error {
	code := http.StatusBadGateway
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.StatusCode()
	}
	return StatusError{Code: code, Message: message, Err: err}
}

// appIDString accepts the id as a JSON string or number.
func appIDString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
