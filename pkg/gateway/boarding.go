package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
)

// Attachment is one document uploaded to a created application.
type Attachment struct {
	FType    string `json:"ftype"`
	Filename string `json:"filename"`
	FContent string `json:"fContent"`
}

// PDFAttachment wraps the signed agreement.
func PDFAttachment(base64Content string) Attachment {
	return Attachment{FType: "pdf", Filename: "esignature.pdf", FContent: base64Content}
}

// ProofAttachment names a bank verification file after its role, keeping the
// uploaded file's extension ("deposit.png").
func ProofAttachment(role, extension, base64Content string) Attachment {
	extension = "." + strings.TrimPrefix(strings.ToLower(extension), ".")
	return Attachment{
		FType:    strings.TrimPrefix(extension, "."),
		Filename: role + extension,
		FContent: base64Content,
	}
}

type attachBody struct {
	Attachments []Attachment `json:"attachments"`
}

// CreateApp posts the full application record. The embedded result payload
// (the new application id) is returned untouched. idempotencyKey is sent as
// a header when not empty.
func (c *Client) CreateApp(ctx context.Context, application map[string]any, idempotencyKey string) (json.RawMessage, error) {
	resp, err := c.do(ctx, call{
		op:          "create app",
		method:      http.MethodPost,
		path:        "Boarding/app",
		body:        application,
		idempotency: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return resp.ResponseData, nil
}

// AttachFiles uploads attachments to a created application.
func (c *Client) AttachFiles(ctx context.Context, appID string, attachments []Attachment) error {
	if strings.TrimSpace(appID) == "" {
		return fmt.Errorf("gateway: attach files: missing application id")
	}
	if len(attachments) == 0 {
		return fmt.Errorf("gateway: attach files: no attachments")
	}
	_, err := c.do(ctx, call{
		op:     "attach files",
		method: http.MethodPut,
		path:   "Boarding/app/" + url.PathEscape(appID),
		body:   attachBody{Attachments: attachments},
	})
	return err
}

// AttachPDF uploads only the signed agreement.
func (c *Client) AttachPDF(ctx context.Context, appID, base64PDF string) error {
	return c.AttachFiles(ctx, appID, []Attachment{PDFAttachment(base64PDF)})
}

// SubmitApp finalises the application status.
func (c *Client) SubmitApp(ctx context.Context, appID string) (json.RawMessage, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, fmt.Errorf("gateway: submit app: missing application id")
	}
	resp, err := c.do(ctx, call{
		op:     "submit app",
		method: http.MethodGet,
		path:   "Boarding/appsts/" + url.PathEscape(appID) + "/4/0",
	})
	if err != nil {
		return nil, err
	}
	return resp.ResponseData, nil
}

// AppID extracts the application id from a CreateApp payload. The API
// answers with a bare number; objects carrying appId or id are accepted too.
func AppID(payload json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("%w: empty application id", ErrMalformedResponse)
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if obj, ok := value.(map[string]any); ok {
		for _, key := range []string{"appId", "AppId", "id"} {
			if v, ok := obj[key]; ok {
				value = v
				break
			}
		}
	}
	switch v := value.(type) {
	case string:
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%w: unexpected application id %s", ErrMalformedResponse, string(trimmed))
}
