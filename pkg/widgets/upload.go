package widgets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-boarding/pkg/model"
)

const defaultMaxUploadMB = 5

var (
	// ErrUploadTooLarge is returned when a file exceeds the field's size cap.
	ErrUploadTooLarge = errors.New("widgets: file too large")
	// ErrUploadType is returned when the sniffed type is not accepted.
	ErrUploadType = errors.New("widgets: file type not accepted")
)

// Upload is a validated file ready to be stored in the record and later
// forwarded as an attachment.
type Upload struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
}

// Value returns the record representation of the upload.
func (u Upload) Value() map[string]any {
	return map[string]any{
		"filename": u.Filename,
		"mime":     u.MIME,
		"size":     float64(u.Size),
		"content":  u.Content,
	}
}

// CheckUpload sniffs data and enforces the accept list and size cap declared
// in the field metadata ("image/*,.pdf" and maxSizeMB). The content is base64
// encoded.
func CheckUpload(field model.Field, filename string, data []byte) (Upload, error) {
	limit := maxUploadBytes(field)
	if int64(len(data)) > limit {
		return Upload{}, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrUploadTooLarge, filename, len(data), limit)
	}
	detected := mimetype.Detect(data)
	if !accepts(field.Metadata["accept"], detected) {
		return Upload{}, fmt.Errorf("%w: %s (%s)", ErrUploadType, filename, detected.String())
	}
	return Upload{
		Filename: filepath.Base(filename),
		MIME:     detected.String(),
		Size:     int64(len(data)),
		Content:  base64.StdEncoding.EncodeToString(data),
	}, nil
}

func maxUploadBytes(field model.Field) int64 {
	mb := defaultMaxUploadMB
	if raw := strings.TrimSpace(field.Metadata["maxSizeMB"]); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			mb = parsed
		}
	}
	return int64(mb) << 20
}

func accepts(accept string, detected *mimetype.MIME) bool {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return true
	}
	for _, token := range strings.Split(accept, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		switch {
		case token == "":
			continue
		case strings.HasPrefix(token, "."):
			if detected.Extension() == token {
				return true
			}
		case strings.HasSuffix(token, "/*"):
			if strings.HasPrefix(detected.String(), strings.TrimSuffix(token, "*")) {
				return true
			}
		default:
			if detected.Is(token) {
				return true
			}
		}
	}
	return false
}
