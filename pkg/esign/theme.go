package esign

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Token names read by the agreement templates and the PDF writer.
const (
	TokenBrand = "brand"
	TokenText  = "text"
	TokenMuted = "muted"
	TokenFont  = "font"
)

// DefaultManifest is the built in agreement theme with a dark variant.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    "default",
		Version: "1.0.0",
		Tokens: map[string]string{
			TokenBrand: "#1d4ed8",
			TokenText:  "#111827",
			TokenMuted: "#6b7280",
			TokenFont:  "Helvetica",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					TokenBrand: "#60a5fa",
					TokenText:  "#0f172a",
				},
			},
		},
	}
}

// ManifestSelector selects among a fixed set of manifests. Unknown names
// fall back to the first registered manifest.
type ManifestSelector struct {
	manifests map[string]*theme.Manifest
	fallback  string
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)

func NewManifestSelector(manifests ...*theme.Manifest) *ManifestSelector {
	s := &ManifestSelector{manifests: make(map[string]*theme.Manifest)}
	for _, m := range manifests {
		if m == nil || m.Name == "" {
			continue
		}
		if s.fallback == "" {
			s.fallback = m.Name
		}
		s.manifests[m.Name] = m
	}
	return s
}

func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	m, ok := s.manifests[name]
	if !ok {
		m, ok = s.manifests[s.fallback]
	}
	if !ok {
		return nil, fmt.Errorf("esign: no theme manifests registered")
	}
	if _, known := m.Variants[variant]; !known {
		variant = ""
	}
	return &theme.Selection{Theme: m.Name, Variant: variant, Manifest: m}, nil
}

// Branding resolves a selection into renderer configuration: manifest
// tokens overlaid with the variant's tokens, plus CSS custom properties.
func Branding(selector theme.ThemeSelector, name, variant string) (*theme.RendererConfig, error) {
	if selector == nil {
		selector = NewManifestSelector(DefaultManifest())
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("esign: select theme %q: %w", name, err)
	}
	if selection == nil || selection.Manifest == nil {
		return nil, fmt.Errorf("esign: theme %q has no manifest", name)
	}

	tokens := map[string]string{}
	for key, value := range DefaultManifest().Tokens {
		tokens[key] = value
	}
	for key, value := range selection.Manifest.Tokens {
		tokens[key] = value
	}
	if v, ok := selection.Manifest.Variants[selection.Variant]; ok {
		for key, value := range v.Tokens {
			tokens[key] = value
		}
	}
	vars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		vars["--"+key] = value
	}
	return &theme.RendererConfig{
		Theme:   selection.Theme,
		Variant: selection.Variant,
		Tokens:  tokens,
		CSSVars: vars,
	}, nil
}

// CSSVarsStyle renders CSS custom properties as an inline style value.
func CSSVarsStyle(cfg *theme.RendererConfig) string {
	if cfg == nil || len(cfg.CSSVars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(cfg.CSSVars))
	for key := range cfg.CSSVars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+cfg.CSSVars[key])
	}
	return strings.Join(parts, "; ")
}

// rgb parses "#rrggbb" or "#rgb". Invalid values yield black.
func rgb(hex string) (int, int, int) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
