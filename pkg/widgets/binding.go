package widgets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-boarding/internal/paths"
	"github.com/goliatone/go-boarding/pkg/model"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/sections"
)

// Widget is a presentation agnostic description of one bound field. Leaf
// widgets carry the current value and the first error of their path; object
// widgets carry Children and group widgets carry Entries.
type Widget struct {
	Kind        string         `json:"kind"`
	Path        string         `json:"path"`
	Name        string         `json:"name"`
	Label       string         `json:"label,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Description string         `json:"description,omitempty"`
	InputType   string         `json:"inputType,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Value       any            `json:"value,omitempty"`
	Error       string         `json:"error,omitempty"`
	Options     []model.Option `json:"options,omitempty"`
	Accept      string         `json:"accept,omitempty"`
	MaxBytes    int64          `json:"maxBytes,omitempty"`
	Children    []Widget       `json:"children,omitempty"`
	Entries     []EntryView    `json:"entries,omitempty"`
	EntryLabel  string         `json:"entryLabel,omitempty"`
}

// EntryView is one repeated group entry as shown by a renderer.
type EntryView struct {
	ID        string   `json:"id"`
	Index     int      `json:"index"`
	Fresh     bool     `json:"fresh,omitempty"`
	Removable bool     `json:"removable"`
	Fields    []Widget `json:"fields"`
}

// Record is the read side of the Application Record store.
type Record interface {
	Snapshot() map[string]any
	Errors() schema.Violations
	Entries(group string) ([]sections.Entry, error)
}

// OptionSource supplies the country list and the regions of a country.
type OptionSource interface {
	Countries() []model.Option
	Regions(country string) []model.Option
}

// Binder builds the widgets of a wizard step from the schema and a record.
type Binder struct {
	schema   *schema.Schema
	registry *Registry
	options  OptionSource
}

// BinderOption customises a Binder.
type BinderOption func(*Binder)

// WithRegistry replaces the default widget registry.
func WithRegistry(reg *Registry) BinderOption {
	return func(b *Binder) {
		if reg != nil {
			b.registry = reg
		}
	}
}

// WithOptionSource wires the country/region option provider.
func WithOptionSource(src OptionSource) BinderOption {
	return func(b *Binder) {
		b.options = src
	}
}

func NewBinder(s *schema.Schema, opts ...BinderOption) *Binder {
	b := &Binder{schema: s, registry: NewRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Step returns the widgets of the page at index, in page order.
func (b *Binder) Step(index int, rec Record) ([]Widget, error) {
	pages := b.schema.Pages()
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("widgets: step %d out of range [0,%d)", index, len(pages))
	}
	values := rec.Snapshot()
	errs := rec.Errors()
	form := b.schema.Form()

	out := make([]Widget, 0, len(pages[index].Fields))
	for _, name := range pages[index].Fields {
		field, ok := form.Lookup(name)
		if !ok {
			continue
		}
		if field.Type == model.FieldTypeGroup {
			entries, err := rec.Entries(name)
			if err != nil {
				return nil, err
			}
			out = append(out, b.bindGroup(field, entries, values, errs))
			continue
		}
		out = append(out, b.bind(field, name, values, values, errs))
	}
	return out, nil
}

// Field binds a single top-level or nested path.
func (b *Binder) Field(path string, rec Record) (Widget, error) {
	field, ok := b.schema.Rule(path)
	if !ok {
		return Widget{}, fmt.Errorf("widgets: unknown field %q", path)
	}
	values := rec.Snapshot()
	scope := values
	if parent, _, found := cutLast(path); found {
		if raw, ok := paths.Get(values, parent); ok {
			scope, _ = raw.(map[string]any)
		}
	}
	return b.bind(field, path, scope, values, rec.Errors()), nil
}

func (b *Binder) bind(field model.Field, path string, scope, values map[string]any, errs schema.Violations) Widget {
	kind, _ := b.registry.Resolve(field)
	w := Widget{
		Kind:        kind,
		Path:        path,
		Name:        field.Name,
		Label:       field.Label,
		Placeholder: field.Placeholder,
		Description: field.Description,
		Required:    field.Required,
		Error:       errs[path],
	}
	value, _ := paths.Get(values, path)

	switch kind {
	case WidgetObject:
		w.Children = make([]Widget, 0, len(field.Nested))
		child, _ := value.(map[string]any)
		for _, nested := range field.Nested {
			w.Children = append(w.Children, b.bind(nested, paths.Join(path, nested.Name), child, values, errs))
		}
		return w
	case WidgetSelect:
		w.Options = append([]model.Option(nil), field.Options...)
	case WidgetCountry:
		if b.options != nil {
			w.Options = b.options.Countries()
		}
	case WidgetRegion:
		if b.options != nil {
			country := field.Metadata["countryCode"]
			if sibling := field.Metadata["country"]; sibling != "" {
				country, _ = scope[sibling].(string)
			}
			w.Options = b.options.Regions(country)
		}
	case WidgetFile:
		w.Accept = field.Metadata["accept"]
		w.MaxBytes = maxUploadBytes(field)
	case WidgetInput:
		w.InputType = inputType(field)
	}
	w.Value = value
	return w
}

func (b *Binder) bindGroup(field model.Field, entries []sections.Entry, values map[string]any, errs schema.Violations) Widget {
	w := Widget{
		Kind:        WidgetGroup,
		Path:        field.Name,
		Name:        field.Name,
		Label:       field.Label,
		Description: field.Description,
		Required:    field.Required,
		Error:       errs[field.Name],
		EntryLabel:  field.Metadata["entryLabel"],
	}
	for i, entry := range entries {
		prefix := paths.Join(field.Name, strconv.Itoa(i))
		view := EntryView{
			ID:        entry.ID,
			Index:     i,
			Fresh:     entry.Fresh,
			Removable: len(entries) > 1,
		}
		for _, nested := range field.Nested {
			view.Fields = append(view.Fields, b.bind(nested, paths.Join(prefix, nested.Name), entry.Values, values, errs))
		}
		w.Entries = append(w.Entries, view)
	}
	return w
}

func inputType(field model.Field) string {
	switch strings.ToLower(strings.TrimSpace(field.Format)) {
	case "email":
		return "email"
	case "tel":
		return "tel"
	case "date":
		return "date"
	}
	switch field.Type {
	case model.FieldTypeNumber, model.FieldTypeInteger:
		return "number"
	}
	return "text"
}

func cutLast(path string) (string, string, bool) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", path, false
	}
	return path[:idx], path[idx+1:], true
}
