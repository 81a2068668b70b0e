package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-boarding/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetInput    = "input"
	WidgetTextarea = "textarea"
	WidgetSelect   = "select"
	WidgetCheckbox = "checkbox"
	WidgetFile     = "file"
	WidgetCountry  = "country"
	WidgetRegion   = "region"
	WidgetObject   = "object"
	WidgetGroup    = "group"
	WidgetHidden   = "hidden"
)

// Matcher decides whether a widget renderer should handle the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for fields based on explicit hints or registered
// matchers. Higher priority wins; ties fall back to registration order. An
// empty registry never resolves a widget.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in widget matchers
// registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence. The latest registration wins among equal
// names only through priority.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field. The field's Widget attribute
// and widget metadata are honoured before matcher evaluation.
func (r *Registry) Resolve(field model.Field) (string, bool) {
	if explicit := explicitWidget(field); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

func explicitWidget(field model.Field) string {
	if widget := strings.TrimSpace(field.Widget); widget != "" {
		return widget
	}
	if field.Metadata != nil {
		if strings.EqualFold(field.Metadata["hidden"], "true") {
			return WidgetHidden
		}
		if widget := strings.TrimSpace(field.Metadata["widget"]); widget != "" {
			return widget
		}
	}
	return ""
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetGroup, 100, func(field model.Field) bool {
		return field.Type == model.FieldTypeGroup
	})

	r.Register(WidgetObject, 95, func(field model.Field) bool {
		return field.Type == model.FieldTypeObject
	})

	r.Register(WidgetFile, 90, func(field model.Field) bool {
		return field.Type == model.FieldTypeFile
	})

	r.Register(WidgetCheckbox, 80, func(field model.Field) bool {
		return field.Type == model.FieldTypeBoolean
	})

	r.Register(WidgetSelect, 70, func(field model.Field) bool {
		return len(field.Options) > 0
	})

	r.Register(WidgetTextarea, 60, func(field model.Field) bool {
		return field.Type == model.FieldTypeString && strings.EqualFold(strings.TrimSpace(field.Format), "textarea")
	})

	r.Register(WidgetInput, 0, func(model.Field) bool { return true })
}
