package persistence

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

// maxFormDataBody fits a snapshot carrying both verification uploads at
// their 5 MB cap once base64 encoded, with room for the rest of the record.
const maxFormDataBody = 24 << 20

// FormDataRequest is the body of POST /api/formData.
type FormDataRequest struct {
	Action      string          `json:"action"`
	DeviceToken string          `json:"deviceToken,omitempty"`
	Identifier  string          `json:"identifier,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

type formDataResponse struct {
	Success bool    `json:"success,omitempty"`
	Data    *string `json:"data"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type handlerConfig struct {
	identifier Identifier
	logger     zerolog.Logger
}

type HandlerOption func(*handlerConfig)

// WithRequestIdentifier makes the identifier derived from the request win
// over any token in the body. Session deployments use it so a caller can
// only reach its own snapshot.
func WithRequestIdentifier(id Identifier) HandlerOption {
	return func(c *handlerConfig) {
		c.identifier = id
	}
}

func WithHandlerLogger(logger zerolog.Logger) HandlerOption {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// FormDataHandler serves the save/load/clear action endpoint.
func FormDataHandler(store Store, opts ...HandlerOption) http.Handler {
	cfg := handlerConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
			return
		}

		var req FormDataRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormDataBody)).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Form data too large"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
			return
		}

		identifier := strings.TrimSpace(req.DeviceToken)
		if identifier == "" {
			identifier = strings.TrimSpace(req.Identifier)
		}
		if cfg.identifier != nil {
			resolved, err := cfg.identifier.Identify(r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
				return
			}
			identifier = resolved
		}
		if req.Action == "" || identifier == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing action or deviceToken"})
			return
		}

		log := cfg.logger.With().Str("action", req.Action).Str("identifier", identifier).Logger()
		ctx := r.Context()
		switch req.Action {
		case "save":
			data := bytes.TrimSpace(req.Data)
			if len(data) == 0 || bytes.Equal(data, []byte("null")) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing data for save action"})
				return
			}
			if err := store.Save(ctx, identifier, data); err != nil {
				log.Error().Err(err).Msg("form data save failed")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		case "load":
			data, err := store.Load(ctx, identifier)
			if err != nil && !errors.Is(err, ErrNotFound) {
				log.Error().Err(err).Msg("form data load failed")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
				return
			}
			resp := formDataResponse{}
			if err == nil {
				s := string(data)
				resp.Data = &s
			}
			writeJSON(w, http.StatusOK, resp)
		case "clear":
			if err := store.Clear(ctx, identifier); err != nil {
				log.Error().Err(err).Msg("form data clear failed")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid action"})
		}
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}
