package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

type lintFinding struct {
	file     string
	location string
	message  string
}

func lintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [definition...]",
		Short: "Check schema definitions for unplaced fields and empty steps",
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{""}
			}
			var findings []lintFinding
			for _, path := range args {
				findings = append(findings, lintDefinition(path)...)
			}
			sort.Slice(findings, func(i, j int) bool {
				if findings[i].file != findings[j].file {
					return findings[i].file < findings[j].file
				}
				return findings[i].location < findings[j].location
			})
			for _, f := range findings {
				fmt.Fprintf(a.out, "%s: %s: %s\n", f.file, f.location, f.message)
			}
			if len(findings) > 0 {
				return fmt.Errorf("%d lint finding(s)", len(findings))
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
}

func lintDefinition(path string) []lintFinding {
	name := path
	if name == "" {
		name = "(built-in)"
	}
	sch, err := loadSchema(path)
	if err != nil {
		return []lintFinding{{file: name, location: "document", message: err.Error()}}
	}

	var out []lintFinding
	for _, field := range sch.Form().Fields {
		if sch.PageOf(field.Name) < 0 {
			out = append(out, lintFinding{file: name, location: "fields." + field.Name, message: "not placed on any step"})
		}
	}
	for idx, page := range sch.Pages() {
		if len(page.Fields) == 0 {
			out = append(out, lintFinding{file: name, location: fmt.Sprintf("pages.%d", idx), message: fmt.Sprintf("step %q has no fields", page.Title)})
		}
	}
	return out
}
