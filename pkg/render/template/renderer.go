package template

import (
	"io"
)

// TemplateRenderer is the seam document and fragment renderers depend on.
// Names without template syntax are resolved as files, anything containing
// "{{" or "{%" is rendered as inline content.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
