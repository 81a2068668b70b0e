package httpapi

import (
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/goliatone/go-boarding/pkg/esign"
)

type documentRequest struct {
	Record map[string]any `json:"record"`
	Name   string         `json:"name"`
}

type documentResponse struct {
	Pages []esign.Page `json:"pages"`
	PDF   string       `json:"pdf"`
}

type signRequest struct {
	AppID         any            `json:"appId"`
	Record        map[string]any `json:"record"`
	Name          string         `json:"name"`
	TermsOpened   bool           `json:"termsOpened"`
	AcceptedTerms bool           `json:"acceptedTerms"`
}

type signResponse struct {
	View esign.View `json:"view"`
	PDF  string     `json:"pdf,omitempty"`
}

// handleDocument renders an unsigned preview of the agreement.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sig := esign.Signature{
		Name:   req.Name,
		Device: esign.DeviceType(r.UserAgent()),
		IP:     clientIP(r),
	}
	pages, pdf, err := s.signing.Document(req.Record, sig)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Pages: pages, PDF: base64.StdEncoding.EncodeToString(pdf)})
}

// handleSign runs the signature flow in one request: the modal steps are
// replayed from the submitted fields, then the agreement is rendered and
// attached with the record's proof files.
func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	appID := appIDString(req.AppID)
	texts := esign.DefaultTexts()

	flow := esign.NewFlow()
	flow.Open(esign.DeviceType(r.UserAgent()), clientIP(r))
	defer flow.Close()
	_ = flow.Continue()
	_ = flow.Sign(req.Name)
	if req.TermsOpened {
		_ = flow.OpenTerms()
	}
	_ = flow.SetConsent(req.AcceptedTerms)

	proofs := esign.ProofAttachments(s.schema, req.Record)
	err := flow.Confirm(r.Context(), s.signing.Finalizer(appID, req.Record, proofs))
	switch {
	case errors.Is(err, esign.ErrPreconditions):
		writeJSON(w, http.StatusBadRequest, signResponse{View: flow.View(texts)})
	case err != nil:
		s.logger.Error().Err(err).Str("app_id", appID).Msg("signing failed")
		writeJSON(w, upstreamCode(err), signResponse{View: flow.View(texts)})
	default:
		writeJSON(w, http.StatusOK, signResponse{
			View: flow.View(texts),
			PDF:  base64.StdEncoding.EncodeToString(flow.PDF()),
		})
	}
}

func upstreamCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return http.StatusInternalServerError
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) == nil {
		return esign.IPFallback
	}
	return host
}
