package main

import (
	"errors"
	"fmt"
	"os"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-boarding/pkg/schema"
)

var errInvalidRecord = errors.New("record has violations")

func validateCmd(a *app) *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "validate <record.json|record.yaml>",
		Short: "Check a saved application record against the field rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sch, err := loadSchema(schemaPath)
			if err != nil {
				return err
			}
			values, err := readRecord(args[0])
			if err != nil {
				return err
			}
			return a.report(sch, values)
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema definition to use instead of the built-in one")
	return cmd
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return schema.Load(f)
}

// readRecord decodes YAML or JSON and normalises it to the shapes a browser
// would send: nested objects, arrays and float64 numbers.
func readRecord(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	values := map[string]any{}
	if err := json.Unmarshal(encoded, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return values, nil
}

func (a *app) report(sch *schema.Schema, values map[string]any) error {
	if sch.MigrateBankAccounts(values) {
		fmt.Fprintln(a.out, "note: legacy bank account fields were moved into bankAccounts")
	}
	violations := sch.Validate(values)
	if violations.Valid() {
		fmt.Fprintln(a.out, "valid")
		return nil
	}
	pages := sch.Pages()
	for _, path := range violations.Paths() {
		step := ""
		if idx := sch.PageOf(path); idx >= 0 && idx < len(pages) {
			step = fmt.Sprintf("[%d %s] ", idx+1, pages[idx].Title)
		}
		fmt.Fprintf(a.out, "%s%s: %s\n", step, path, violations[path])
	}
	if first := sch.FirstPage(violations); first >= 0 {
		fmt.Fprintf(a.out, "first step to fix: %d\n", first+1)
	}
	return fmt.Errorf("%w: %d", errInvalidRecord, len(violations))
}
