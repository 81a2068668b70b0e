package model

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s.]+`)

// initialisms stay upper case when they form a whole word of a field name.
var initialisms = map[string]struct{}{
	"ein": {}, "dba": {}, "mcc": {}, "ssn": {}, "dob": {}, "id": {}, "url": {}, "ach": {},
}

// Humanize converts a field name into a label. It splits on underscores,
// dashes, dots and camelCase boundaries: "ownerPercent" becomes
// "Owner Percent" and "ein" becomes "EIN".
func Humanize(name string) string {
	if name == "" {
		return ""
	}
	var segments []string
	for _, word := range splitWordsPattern.Split(name, -1) {
		if word == "" {
			continue
		}
		for _, part := range strings.Fields(splitCamel(word)) {
			segments = append(segments, titleCase(part))
		}
	}
	return strings.Join(segments, " ")
}

// LabelFields returns a copy of fields where every field without a label,
// nested ones included, is labelled from its name.
func LabelFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, field := range fields {
		if strings.TrimSpace(field.Label) == "" {
			field.Label = Humanize(field.Name)
		}
		field.Nested = LabelFields(field.Nested)
		out[i] = field
	}
	return out
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isBoundary(input, i, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(input string, index int, r rune) bool {
	prev := rune(input[index-1])
	return (isLower(prev) && isUpper(r)) || (isLetter(prev) && isDigit(r)) || (isDigit(prev) && isLetter(r))
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

func titleCase(word string) string {
	lower := strings.ToLower(word)
	if _, ok := initialisms[lower]; ok {
		return strings.ToUpper(lower)
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}
