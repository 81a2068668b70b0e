package model

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
	// FieldTypeGroup is an ordered list of entries sharing the Nested shape.
	FieldTypeGroup FieldType = "group"
	// FieldTypeFile holds an uploaded document; it never travels in the
	// submitted record and is forwarded as an attachment instead.
	FieldTypeFile FieldType = "file"
)

const (
	ValidationRuleRequired = "required"
	ValidationRuleDigits   = "digits"
	ValidationRuleLength   = "length"
	ValidationRuleMin      = "min"
	ValidationRuleMax      = "max"
	ValidationRulePattern  = "pattern"
	ValidationRuleEmail    = "email"
	ValidationRuleDomain   = "domain"
	ValidationRuleDate     = "date"
	ValidationRuleEnum     = "enum"
	ValidationRuleNonEmpty = "nonEmpty"
)

// ValidationRule represents a single validation constraint applied to a field.
// Numeric bounds, digit counts and exact lengths encode their threshold in
// Params["value"]; pattern rules keep the expression in Params["pattern"].
// Message overrides the default human readable text for the rule.
type ValidationRule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Option is a selectable value for enum backed fields.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Field models an individual input inside the boarding form. Object and group
// fields describe their children through Nested.
type Field struct {
	Name        string            `json:"name" yaml:"name"`
	Type        FieldType         `json:"type" yaml:"type"`
	Format      string            `json:"format,omitempty" yaml:"format,omitempty"`
	Required    bool              `json:"required" yaml:"required"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any               `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Nested      []Field           `json:"nested,omitempty" yaml:"nested,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty" yaml:"validations,omitempty"`
	Widget      string            `json:"widget,omitempty" yaml:"widget,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Page is one wizard step. Fields lists top-level field names in display order.
type Page struct {
	Title  string   `json:"title" yaml:"title"`
	Fields []string `json:"fields" yaml:"fields"`
}

// Refinement is a record-level rule spanning several paths.
type Refinement struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Paths   []string          `json:"paths" yaml:"paths"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message" yaml:"message"`
}

const RefinementSum = "sum"

// FormModel is the top-level representation of the boarding application.
type FormModel struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Fields      []Field           `json:"fields" yaml:"fields"`
	Pages       []Page            `json:"pages" yaml:"pages"`
	Refinements []Refinement      `json:"refinements,omitempty" yaml:"refinements,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Lookup returns the top-level field with the supplied name.
func (f FormModel) Lookup(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Child returns the nested field with the supplied name.
func (f Field) Child(name string) (Field, bool) {
	for _, nested := range f.Nested {
		if nested.Name == name {
			return nested, true
		}
	}
	return Field{}, false
}
