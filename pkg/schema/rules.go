package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-boarding/pkg/model"
)

// MessageRequired is reported for blank required values.
const MessageRequired = "This field is required"

const dateLayoutTag = "datetime=01/02/2006"

// domainPattern accepts a bare host such as "example.com": a label, a dot
// and anything made of labels and dots after it. The scheme is rejected.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

type compiledRule struct {
	kind    string
	message string
	check   func(v *validator.Validate, value any) bool
}

func compileRules(field model.Field, path string) ([]compiledRule, error) {
	rules := make([]compiledRule, 0, len(field.Validations))
	for _, rule := range field.Validations {
		compiled, err := compileRule(field, rule)
		if err != nil {
			return nil, fmt.Errorf("schema: field %q: %w", path, err)
		}
		rules = append(rules, compiled)
	}
	return rules, nil
}

func compileRule(field model.Field, rule model.ValidationRule) (compiledRule, error) {
	out := compiledRule{kind: rule.Kind, message: strings.TrimSpace(rule.Message)}
	value := strings.TrimSpace(rule.Params["value"])

	switch rule.Kind {
	case model.ValidationRuleRequired:
		// handled by Field.Required; kept so definitions may spell it out.
		out.check = func(*validator.Validate, any) bool { return true }
		out.message = withDefault(out.message, MessageRequired)

	case model.ValidationRuleDigits:
		count, err := strconv.Atoi(value)
		if err != nil || count <= 0 {
			return out, fmt.Errorf("digits rule needs a positive value, got %q", value)
		}
		re := regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, count))
		out.check = func(_ *validator.Validate, v any) bool {
			s, ok := stringValue(v)
			return ok && re.MatchString(s)
		}
		out.message = withDefault(out.message, fmt.Sprintf("Must be %d digits", count))

	case model.ValidationRuleLength:
		length, err := strconv.Atoi(value)
		if err != nil || length < 0 {
			return out, fmt.Errorf("length rule needs a value, got %q", value)
		}
		out.check = func(_ *validator.Validate, v any) bool {
			s, ok := stringValue(v)
			return ok && utf8.RuneCountInString(s) == length
		}
		out.message = withDefault(out.message, fmt.Sprintf("Must be %d characters", length))

	case model.ValidationRuleMin, model.ValidationRuleMax:
		bound, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return out, fmt.Errorf("%s rule needs a numeric value, got %q", rule.Kind, value)
		}
		isMin := rule.Kind == model.ValidationRuleMin
		out.check = func(_ *validator.Validate, v any) bool {
			n, ok := numberValue(v)
			if !ok {
				return false
			}
			if isMin {
				return n >= bound
			}
			return n <= bound
		}
		if isMin {
			out.message = withDefault(out.message, fmt.Sprintf("Must be at least %s", value))
		} else {
			out.message = withDefault(out.message, fmt.Sprintf("Must be at most %s", value))
		}

	case model.ValidationRulePattern:
		expr := rule.Params["pattern"]
		re, err := regexp.Compile(expr)
		if err != nil {
			return out, fmt.Errorf("invalid pattern %q: %w", expr, err)
		}
		out.check = func(_ *validator.Validate, v any) bool {
			s, ok := stringValue(v)
			return ok && re.MatchString(s)
		}
		out.message = withDefault(out.message, "Invalid format")

	case model.ValidationRuleEmail:
		out.check = tagCheck("email")
		out.message = withDefault(out.message, "Invalid email address")

	case model.ValidationRuleDomain:
		out.check = func(_ *validator.Validate, v any) bool {
			s, ok := stringValue(v)
			return ok && domainPattern.MatchString(s)
		}
		out.message = withDefault(out.message, "Must be a domain name")

	case model.ValidationRuleDate:
		out.check = tagCheck(dateLayoutTag)
		out.message = withDefault(out.message, "Date must be in MM/DD/YYYY format")

	case model.ValidationRuleEnum:
		if len(field.Options) == 0 {
			return out, fmt.Errorf("enum rule without options")
		}
		allowed := make(map[string]struct{}, len(field.Options))
		labels := make([]string, 0, len(field.Options))
		for _, opt := range field.Options {
			allowed[opt.Value] = struct{}{}
			labels = append(labels, opt.Value)
		}
		out.check = func(_ *validator.Validate, v any) bool {
			s, ok := stringValue(v)
			if !ok {
				return false
			}
			_, found := allowed[s]
			return found
		}
		out.message = withDefault(out.message, "Must be one of: "+strings.Join(labels, ", "))

	case model.ValidationRuleNonEmpty:
		out.check = func(_ *validator.Validate, v any) bool {
			entries, ok := v.([]any)
			return ok && len(entries) > 0
		}
		out.message = withDefault(out.message, "At least one entry is required")

	default:
		return out, fmt.Errorf("unknown rule %q", rule.Kind)
	}
	return out, nil
}

func tagCheck(tag string) func(*validator.Validate, any) bool {
	return func(v *validator.Validate, value any) bool {
		s, ok := stringValue(value)
		if !ok {
			return false
		}
		return v.Var(s, tag) == nil
	}
}

func withDefault(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}

// stringValue accepts strings plus numbers that render without a fraction,
// since digit-only fields frequently arrive as JSON numbers.
func stringValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}

// numberValue coerces numeric strings the way form inputs deliver them.
func numberValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, err == nil
	}
	return 0, false
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}
