package schema

import (
	"math"
	"sort"
	"strconv"

	"github.com/goliatone/go-boarding/internal/paths"
	"github.com/goliatone/go-boarding/pkg/model"
)

// Violations maps positional dotted paths to exactly one human readable
// message. An empty set means the record is valid.
type Violations map[string]string

// Valid reports whether no violations were recorded.
func (v Violations) Valid() bool {
	return len(v) == 0
}

// Paths returns the violating paths sorted lexically.
func (v Violations) Paths() []string {
	out := make([]string, 0, len(v))
	for path := range v {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Under returns the violations whose path equals prefix or sits beneath it.
func (v Violations) Under(prefix string) Violations {
	out := Violations{}
	for path, msg := range v {
		if path == prefix || (len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '.') {
			out[path] = msg
		}
	}
	return out
}

// Fields converts the set into the multi-message shape used by error payloads.
func (v Violations) Fields() map[string][]string {
	if len(v) == 0 {
		return nil
	}
	out := make(map[string][]string, len(v))
	for path, msg := range v {
		out[path] = []string{msg}
	}
	return out
}

// Validate checks every rule of the form against values and returns the
// violation set.
func (s *Schema) Validate(values map[string]any) Violations {
	out := Violations{}
	if s == nil {
		return out
	}
	s.validateFields(s.form.Fields, values, "", out)
	s.applyRefinements(values, out)
	return out
}

// ValidatePath checks a single positional path against its rule. It returns
// the message and false when the value is rejected.
func (s *Schema) ValidatePath(values map[string]any, path string) (string, bool) {
	field, ok := s.Rule(path)
	if !ok {
		return "", true
	}
	value, _ := paths.Get(values, path)
	if field.Type == model.FieldTypeGroup || field.Type == model.FieldTypeObject {
		sub := Violations{}
		scope := map[string]any{field.Name: value}
		s.validateFields([]model.Field{field}, scope, "", sub)
		for _, msg := range sub {
			return msg, false
		}
		return "", true
	}
	msg := s.checkValue(paths.Template(path), field, value)
	return msg, msg == ""
}

// FirstPage returns the lowest page index holding a violation, or -1 when no
// violation maps to a page.
func (s *Schema) FirstPage(v Violations) int {
	first := -1
	for path := range v {
		page := s.PageOf(path)
		if page < 0 {
			continue
		}
		if first < 0 || page < first {
			first = page
		}
	}
	return first
}

func (s *Schema) validateFields(fields []model.Field, scope map[string]any, prefix string, out Violations) {
	for _, field := range fields {
		path := paths.Join(prefix, field.Name)
		var value any
		if scope != nil {
			value = scope[field.Name]
		}

		switch field.Type {
		case model.FieldTypeObject:
			child, _ := value.(map[string]any)
			s.validateFields(field.Nested, child, path, out)

		case model.FieldTypeGroup:
			entries, _ := value.([]any)
			if msg := s.checkGroup(paths.Template(path), field, entries); msg != "" {
				out[path] = msg
			}
			for idx, entry := range entries {
				child, _ := entry.(map[string]any)
				s.validateFields(field.Nested, child, paths.Join(path, strconv.Itoa(idx)), out)
			}

		default:
			if msg := s.checkValue(paths.Template(path), field, value); msg != "" {
				out[path] = msg
			}
		}
	}
}

func (s *Schema) checkGroup(template string, field model.Field, entries []any) string {
	if field.Required && len(entries) == 0 {
		for _, rule := range s.rules[template] {
			if rule.kind == model.ValidationRuleNonEmpty {
				return rule.message
			}
		}
		return MessageRequired
	}
	for _, rule := range s.rules[template] {
		if rule.kind == model.ValidationRuleNonEmpty && len(entries) > 0 {
			continue
		}
		if !rule.check(s.validate, entries) {
			return rule.message
		}
	}
	return ""
}

func (s *Schema) checkValue(template string, field model.Field, value any) string {
	if isBlank(value) {
		if field.Required {
			return MessageRequired
		}
		return ""
	}

	switch field.Type {
	case model.FieldTypeNumber, model.FieldTypeInteger:
		n, ok := numberValue(value)
		if !ok {
			return "Must be a number"
		}
		if field.Type == model.FieldTypeInteger && n != math.Trunc(n) {
			return "Must be a whole number"
		}
	case model.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return "Must be true or false"
		}
	case model.FieldTypeFile:
		if _, ok := value.(map[string]any); !ok {
			return "Invalid file"
		}
	default:
		if _, ok := stringValue(value); !ok {
			return "Must be text"
		}
	}

	for _, rule := range s.rules[template] {
		if rule.kind == model.ValidationRuleRequired {
			continue
		}
		if !rule.check(s.validate, value) {
			return rule.message
		}
	}
	return ""
}

// applyRefinements runs record-level rules once every participating path has
// passed its own checks.
func (s *Schema) applyRefinements(values map[string]any, out Violations) {
	for _, ref := range s.form.Refinements {
		target, err := strconv.ParseFloat(ref.Params["value"], 64)
		if err != nil {
			continue
		}
		sum := 0.0
		complete := true
		for _, path := range ref.Paths {
			if _, flagged := out[path]; flagged {
				complete = false
				break
			}
			raw, ok := paths.Get(values, path)
			if !ok {
				complete = false
				break
			}
			n, ok := numberValue(raw)
			if !ok {
				complete = false
				break
			}
			sum += n
		}
		if !complete || math.Abs(sum-target) < 1e-9 {
			continue
		}
		for _, path := range ref.Paths {
			out[path] = ref.Message
		}
	}
}
