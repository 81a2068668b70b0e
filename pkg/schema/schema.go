package schema

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-boarding/internal/paths"
	"github.com/goliatone/go-boarding/pkg/model"
)

//go:embed boarding.yaml
var definitionFS embed.FS

const defaultDefinitionPath = "boarding.yaml"

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
	defaultErr    error
)

// Schema holds a compiled form definition: field rules indexed by template
// path (numeric segments removed) and the page each top-level field lives on.
// It is immutable after construction and safe for concurrent use.
type Schema struct {
	form     model.FormModel
	fields   map[string]model.Field
	rules    map[string][]compiledRule
	pages    map[string]int
	validate *validator.Validate
}

// Default returns the embedded merchant boarding schema.
func Default() (*Schema, error) {
	defaultOnce.Do(func() {
		defaultSchema, defaultErr = LoadFS(definitionFS, defaultDefinitionPath)
	})
	return defaultSchema, defaultErr
}

// MustDefault panics when the embedded definition cannot be compiled.
func MustDefault() *Schema {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// LoadFS reads a YAML or JSON definition from fsys.
func LoadFS(fsys fs.FS, path string) (*Schema, error) {
	if fsys == nil {
		return nil, fmt.Errorf("schema: missing filesystem")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Load(bytes.NewReader(data))
}

// Load parses a definition document. JSON is accepted since it is valid YAML.
func Load(r io.Reader) (*Schema, error) {
	if r == nil {
		return nil, fmt.Errorf("schema: missing reader")
	}
	var form model.FormModel
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&form); err != nil {
		return nil, fmt.Errorf("schema: decode definition: %w", err)
	}
	return New(form)
}

// New compiles a form model into a Schema. Fields without a label are
// labelled from their name.
func New(form model.FormModel) (*Schema, error) {
	form.Fields = model.LabelFields(form.Fields)
	s := &Schema{
		form:     form,
		fields:   make(map[string]model.Field),
		rules:    make(map[string][]compiledRule),
		pages:    make(map[string]int),
		validate: validator.New(),
	}
	if len(form.Fields) == 0 {
		return nil, fmt.Errorf("schema: form %q defines no fields", form.ID)
	}
	if err := s.index(form.Fields, ""); err != nil {
		return nil, err
	}
	for idx, page := range form.Pages {
		for _, name := range page.Fields {
			if _, ok := s.fields[name]; !ok {
				return nil, fmt.Errorf("schema: page %q references unknown field %q", page.Title, name)
			}
			if prev, dup := s.pages[name]; dup {
				return nil, fmt.Errorf("schema: field %q placed on pages %d and %d", name, prev, idx)
			}
			s.pages[name] = idx
		}
	}
	for _, ref := range form.Refinements {
		if ref.Kind != model.RefinementSum {
			return nil, fmt.Errorf("schema: unsupported refinement %q", ref.Kind)
		}
		if len(ref.Paths) == 0 {
			return nil, fmt.Errorf("schema: refinement %q has no paths", ref.Kind)
		}
	}
	return s, nil
}

func (s *Schema) index(fields []model.Field, prefix string) error {
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("schema: field without name under %q", prefix)
		}
		path := paths.Join(prefix, name)
		if _, dup := s.fields[path]; dup {
			return fmt.Errorf("schema: duplicate field %q", path)
		}
		s.fields[path] = field

		rules, err := compileRules(field, path)
		if err != nil {
			return err
		}
		s.rules[path] = rules

		if len(field.Nested) > 0 {
			if err := s.index(field.Nested, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// Form returns the underlying form model.
func (s *Schema) Form() model.FormModel {
	return s.form
}

// Pages returns the wizard pages in order.
func (s *Schema) Pages() []model.Page {
	return append([]model.Page(nil), s.form.Pages...)
}

// PageCount reports how many wizard pages the form has.
func (s *Schema) PageCount() int {
	return len(s.form.Pages)
}

// Rule returns the field definition governing path. Positional paths such as
// "ownership.2.ownerssn" resolve to the shared entry definition.
func (s *Schema) Rule(path string) (model.Field, bool) {
	if s == nil {
		return model.Field{}, false
	}
	field, ok := s.fields[paths.Template(path)]
	return field, ok
}

// PageOf returns the page index holding path, or -1 when the path is not
// placed on any page.
func (s *Schema) PageOf(path string) int {
	if s == nil {
		return -1
	}
	idx, ok := s.pages[paths.Head(path)]
	if !ok {
		return -1
	}
	return idx
}

// Groups returns the names of repeated group fields in definition order.
func (s *Schema) Groups() []string {
	var out []string
	for _, field := range s.form.Fields {
		if field.Type == model.FieldTypeGroup {
			out = append(out, field.Name)
		}
	}
	return out
}

// FileFields returns top-level file field definitions.
func (s *Schema) FileFields() []model.Field {
	var out []model.Field
	for _, field := range s.form.Fields {
		if field.Type == model.FieldTypeFile {
			out = append(out, field)
		}
	}
	return out
}
