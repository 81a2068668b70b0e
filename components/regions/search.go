package regions

import (
	"sort"
	"strings"

	"github.com/goliatone/go-boarding/pkg/model"
)

// CountryOptions filters the country list through the whitelist and blacklist
// and places priority countries first.
func CountryOptions(countries []Country, opts Options) []model.Option {
	allowed := toSet(opts.Whitelist)
	blocked := toSet(opts.Blacklist)
	rank := map[string]int{}
	for i, code := range opts.Priority {
		rank[strings.ToUpper(code)] = i
	}

	filtered := make([]Country, 0, len(countries))
	for _, country := range countries {
		if len(allowed) > 0 {
			if _, ok := allowed[country.Code]; !ok {
				continue
			}
		}
		if _, ok := blocked[country.Code]; ok {
			continue
		}
		filtered = append(filtered, country)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		ri, iok := rank[filtered[i].Code]
		rj, jok := rank[filtered[j].Code]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return false
	})

	out := make([]model.Option, 0, len(filtered))
	for _, country := range filtered {
		out = append(out, model.Option{Value: country.Code, Label: country.Name})
	}
	return out
}

// RegionOptions lists the regions of a country; unknown codes yield nil.
func RegionOptions(countries []Country, code string) []model.Option {
	country, ok := Find(countries, code)
	if !ok {
		return nil
	}
	out := make([]model.Option, 0, len(country.Regions))
	for _, region := range country.Regions {
		out = append(out, model.Option{Value: region.Code, Label: region.Name})
	}
	return out
}

// Search keeps options whose label or value contains query, prefix matches
// first. An empty query keeps the input order.
func Search(options []model.Option, query string, limit int, opts Options) []model.Option {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if len(options) <= limit {
			return append([]model.Option{}, options...)
		}
		return append([]model.Option{}, options[:limit]...)
	}

	q := strings.ToLower(query)
	matches := make([]matchedOption, 0, 16)
	for idx, option := range options {
		label := strings.ToLower(option.Label)
		value := strings.ToLower(option.Value)
		if !strings.Contains(label, q) && value != q {
			continue
		}
		matches = append(matches, matchedOption{
			option:   option,
			isPrefix: value == q || strings.HasPrefix(label, q),
			order:    idx,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].order < matches[j].order
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]model.Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

type matchedOption struct {
	option   model.Option
	isPrefix bool
	order    int
}

func toSet(codes []string) map[string]struct{} {
	if len(codes) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		out[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}
	return out
}
