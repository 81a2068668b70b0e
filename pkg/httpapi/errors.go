package httpapi

import (
	"errors"
	"net/http"

	json "github.com/json-iterator/go"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
	// Message replaces the status text as the public error string.
	Message string
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode())
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeError answers {"error": ..., "details": ...}. Errors that carry a
// status code keep it; everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	body := errorBody{Error: "Internal server error"}
	var statusErr StatusError
	var httpErr HTTPError
	switch {
	case errors.As(err, &statusErr):
		code = statusErr.StatusCode()
		body.Error = statusErr.Message
		if body.Error == "" {
			body.Error = http.StatusText(code)
		}
		if statusErr.Err != nil {
			body.Details = statusErr.Err.Error()
		}
	case errors.As(err, &httpErr):
		code = httpErr.StatusCode()
		body.Error = http.StatusText(code)
		body.Details = err.Error()
	case err != nil:
		body.Details = err.Error()
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}

// writeRaw relays an upstream JSON payload untouched.
func writeRaw(w http.ResponseWriter, code int, payload []byte) {
	if len(payload) == 0 {
		payload = []byte("null")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(payload)
}
