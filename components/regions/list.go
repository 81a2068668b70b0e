package regions

import (
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/regions.yaml
var dataFS embed.FS

const defaultListPath = "data/regions.yaml"

// Region is a first level subdivision (state, province, territory).
type Region struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Country groups its regions under an ISO 3166-1 alpha-2 code.
type Country struct {
	Code    string   `yaml:"code" json:"code"`
	Name    string   `yaml:"name" json:"name"`
	Regions []Region `yaml:"regions" json:"regions"`
}

var (
	defaultOnce      sync.Once
	defaultCountries []Country
	defaultErr       error
)

func DefaultCountries() ([]Country, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultListPath)
		if err != nil {
			defaultErr = err
			return
		}
		defer func() { _ = f.Close() }()

		countries, err := LoadCountries(f)
		if err != nil {
			defaultErr = err
			return
		}
		defaultCountries = countries
	})

	if defaultErr != nil {
		return nil, defaultErr
	}
	return append([]Country{}, defaultCountries...), nil
}

// LoadCountries decodes a YAML list of countries. Codes are upper cased,
// duplicate countries are dropped and regions are sorted by name.
func LoadCountries(r io.Reader) ([]Country, error) {
	if r == nil {
		return nil, fmt.Errorf("regions: missing reader")
	}
	var raw []Country
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("regions: decode: %w", err)
	}

	seen := map[string]struct{}{}
	out := make([]Country, 0, len(raw))
	for _, country := range raw {
		country.Code = strings.ToUpper(strings.TrimSpace(country.Code))
		if country.Code == "" {
			continue
		}
		if _, ok := seen[country.Code]; ok {
			continue
		}
		seen[country.Code] = struct{}{}
		regions := append([]Region{}, country.Regions...)
		sort.SliceStable(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
		country.Regions = regions
		out = append(out, country)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Find returns the country with the given code.
func Find(countries []Country, code string) (Country, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, country := range countries {
		if country.Code == code {
			return country, true
		}
	}
	return Country{}, false
}
