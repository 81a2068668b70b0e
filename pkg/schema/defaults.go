package schema

import (
	"github.com/goliatone/go-boarding/internal/paths"
	"github.com/goliatone/go-boarding/pkg/model"
)

// Defaults builds the record a first visit starts from. Groups receive their
// declared default entries, or a single empty entry when none are declared.
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	fillDefaults(s.form.Fields, out)
	return out
}

// EntryDefaults returns a fresh entry for the named group.
func (s *Schema) EntryDefaults(group string) map[string]any {
	field, ok := s.Rule(group)
	if !ok || field.Type != model.FieldTypeGroup {
		return make(map[string]any)
	}
	entry := make(map[string]any)
	fillDefaults(field.Nested, entry)
	return entry
}

func fillDefaults(fields []model.Field, dest map[string]any) {
	for _, field := range fields {
		switch field.Type {
		case model.FieldTypeObject:
			child := make(map[string]any)
			fillDefaults(field.Nested, child)
			dest[field.Name] = child
		case model.FieldTypeGroup:
			dest[field.Name] = groupDefaults(field)
		case model.FieldTypeFile:
			// files start absent
		default:
			if field.Default != nil {
				dest[field.Name] = paths.Normalize(field.Default)
			} else if field.Type == model.FieldTypeString {
				dest[field.Name] = ""
			}
		}
	}
}

func groupDefaults(field model.Field) []any {
	declared, _ := paths.Normalize(field.Default).([]any)
	if len(declared) == 0 {
		entry := make(map[string]any)
		fillDefaults(field.Nested, entry)
		return []any{entry}
	}
	out := make([]any, 0, len(declared))
	for _, raw := range declared {
		entry := make(map[string]any)
		fillDefaults(field.Nested, entry)
		if overrides, ok := raw.(map[string]any); ok {
			for k, v := range overrides {
				entry[k] = v
			}
		}
		out = append(out, entry)
	}
	return out
}

// Payload strips file fields from a record before it is sent as the
// application body. Files travel separately as attachments.
func (s *Schema) Payload(values map[string]any) map[string]any {
	out := paths.CloneMap(values)
	for _, field := range s.FileFields() {
		delete(out, field.Name)
	}
	return out
}
