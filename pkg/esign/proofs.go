package esign

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-boarding/pkg/gateway"
	"github.com/goliatone/go-boarding/pkg/schema"
)

// ProofAttachments collects the uploaded bank verification files of a
// record. Each file is named after the "attachment" metadata of its field.
func ProofAttachments(s *schema.Schema, values map[string]any) []gateway.Attachment {
	var out []gateway.Attachment
	for _, field := range s.FileFields() {
		upload, ok := values[field.Name].(map[string]any)
		if !ok {
			continue
		}
		content, _ := upload["content"].(string)
		if content == "" {
			continue
		}
		role := field.Metadata["attachment"]
		if role == "" {
			role = field.Name
		}
		filename, _ := upload["filename"].(string)
		ext := strings.TrimPrefix(path.Ext(filename), ".")
		if ext == "" {
			mime, _ := upload["mime"].(string)
			if m := mimetype.Lookup(mime); m != nil {
				ext = strings.TrimPrefix(m.Extension(), ".")
			}
		}
		if ext == "" {
			ext = "bin"
		}
		out = append(out, gateway.ProofAttachment(role, ext, content))
	}
	return out
}
