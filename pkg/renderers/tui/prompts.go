package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-boarding/pkg/model"
	"github.com/goliatone/go-boarding/pkg/record"
	"github.com/goliatone/go-boarding/pkg/widgets"
)

var (
	errRetry = errors.New("tui: ask again")
	errSkip  = errors.New("tui: keep current value")
)

func (s *Session) fill(ctx context.Context, rec *record.Store, ws []widgets.Widget) error {
	for _, w := range ws {
		if err := s.fillWidget(ctx, rec, w); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) fillWidget(ctx context.Context, rec *record.Store, w widgets.Widget) error {
	switch w.Kind {
	case widgets.WidgetHidden:
		return nil
	case widgets.WidgetObject:
		if w.Label != "" {
			s.info(ctx, w.Label)
		}
		return s.fill(ctx, rec, w.Children)
	case widgets.WidgetGroup:
		return s.fillGroup(ctx, rec, w)
	}

	// Rebind so region choices follow a country picked a moment ago.
	if fresh, err := s.binder.Field(w.Path, rec); err == nil {
		w = fresh
	}
	if w.Error != "" {
		s.warn(ctx, displayLabel(w)+": "+w.Error)
	}
	for {
		value, err := s.ask(ctx, w)
		switch {
		case errors.Is(err, errSkip):
			return nil
		case errors.Is(err, errRetry):
			continue
		case err != nil:
			return err
		}
		if err := rec.Set(w.Path, value); err != nil {
			return err
		}
		if msg, ok := s.schema.ValidatePath(rec.Snapshot(), w.Path); !ok {
			s.warn(ctx, msg)
			w.Value, w.Error = value, msg
			continue
		}
		return nil
	}
}

func (s *Session) ask(ctx context.Context, w widgets.Widget) (any, error) {
	label := displayLabel(w)
	help := w.Description
	if w.Error != "" {
		help = w.Error
	}

	switch w.Kind {
	case widgets.WidgetCheckbox:
		current, _ := w.Value.(bool)
		return s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: current, Help: help})
	case widgets.WidgetSelect, widgets.WidgetCountry, widgets.WidgetRegion:
		if len(w.Options) > 0 {
			return s.choose(ctx, w, label, help)
		}
	case widgets.WidgetFile:
		return s.upload(ctx, w, label, help)
	case widgets.WidgetTextarea:
		return s.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: display(w.Value), Help: help})
	}

	cfg := InputConfig{Message: label, Default: display(w.Value), Help: help}
	if w.InputType != "number" {
		return s.driver.Input(ctx, cfg)
	}
	cfg.Validator = checkNumber
	raw, err := s.driver.Input(ctx, cfg)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if err := checkNumber(raw); err != nil {
		s.warn(ctx, err.Error())
		return nil, errRetry
	}
	n, _ := strconv.ParseFloat(raw, 64)
	return n, nil
}

func checkNumber(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("%q is not a number", raw)
	}
	return nil
}

func (s *Session) choose(ctx context.Context, w widgets.Widget, label, help string) (any, error) {
	labels := make([]string, len(w.Options))
	current := display(w.Value)
	def := 0
	for i, opt := range w.Options {
		labels[i] = opt.Label
		if labels[i] == "" {
			labels[i] = opt.Value
		}
		if opt.Value == current {
			def = i
		}
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: label, Options: labels, DefaultIndex: def, Help: help, PageSize: 10})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(w.Options) {
		return nil, fmt.Errorf("tui: choice %d out of range for %s", idx, w.Path)
	}
	value := w.Options[idx].Value
	if field, ok := s.schema.Rule(w.Path); ok && (field.Type == model.FieldTypeInteger || field.Type == model.FieldTypeNumber) {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return n, nil
		}
	}
	return value, nil
}

// upload reads a file from disk and stores it the way the browser widget
// does. An empty answer keeps the current file.
func (s *Session) upload(ctx context.Context, w widgets.Widget, label, help string) (any, error) {
	current := ""
	if m, ok := w.Value.(map[string]any); ok {
		current, _ = m["filename"].(string)
	}
	if current != "" {
		help = "Leave empty to keep " + current
	}
	name, err := s.driver.Input(ctx, InputConfig{Message: label + " (file path)", Help: help})
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		if current != "" || !w.Required {
			return nil, errSkip
		}
		return nil, nil
	}
	data, err := s.readFile(name)
	if err != nil {
		s.warn(ctx, fmt.Sprintf("Cannot read %s: %v", name, err))
		return nil, errRetry
	}
	field, _ := s.schema.Rule(w.Path)
	up, err := widgets.CheckUpload(field, name, data)
	if err != nil {
		s.warn(ctx, err.Error())
		return nil, errRetry
	}
	return up.Value(), nil
}

// fillGroup prompts every entry of a repeated section, then lets the user
// add or remove entries.
func (s *Session) fillGroup(ctx context.Context, rec *record.Store, w widgets.Widget) error {
	entryLabel := w.EntryLabel
	if entryLabel == "" {
		entryLabel = displayLabel(w)
	}
	s.info(ctx, displayLabel(w))
	if w.Error != "" {
		s.warn(ctx, w.Error)
	}
	for i := 0; ; i++ {
		group, err := s.group(rec, w.Path)
		if err != nil {
			return err
		}
		if i >= len(group.Entries) {
			break
		}
		if err := s.fillEntry(ctx, rec, w.Path, entryLabel, group.Entries[i]); err != nil {
			return err
		}
	}

	for {
		group, err := s.group(rec, w.Path)
		if err != nil {
			return err
		}
		options := []string{"Continue", "Add another " + entryLabel}
		if len(group.Entries) > 1 {
			options = append(options, "Remove a "+entryLabel)
		}
		choice, err := s.driver.Select(ctx, SelectConfig{Message: displayLabel(w), Options: options})
		if err != nil {
			return err
		}
		switch choice {
		case 0:
			return nil
		case 1:
			if _, err := rec.AppendEntry(w.Path); err != nil {
				return err
			}
			group, err = s.group(rec, w.Path)
			if err != nil {
				return err
			}
			last := group.Entries[len(group.Entries)-1]
			if err := s.fillEntry(ctx, rec, w.Path, entryLabel, last); err != nil {
				return err
			}
		case 2:
			if err := s.removeEntry(ctx, rec, w.Path, entryLabel, group); err != nil {
				return err
			}
		default:
			return fmt.Errorf("tui: choice %d out of range for %s", choice, w.Path)
		}
	}
}

func (s *Session) fillEntry(ctx context.Context, rec *record.Store, path, entryLabel string, entry widgets.EntryView) error {
	s.info(ctx, fmt.Sprintf("%s %d", entryLabel, entry.Index+1))
	if err := s.fill(ctx, rec, entry.Fields); err != nil {
		return err
	}
	if entry.Fresh {
		return rec.SettleEntry(path, entry.ID)
	}
	return nil
}

func (s *Session) removeEntry(ctx context.Context, rec *record.Store, path, entryLabel string, group widgets.Widget) error {
	labels := make([]string, len(group.Entries))
	for i := range group.Entries {
		labels[i] = fmt.Sprintf("%s %d", entryLabel, i+1)
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: "Remove which " + entryLabel + "?", Options: labels})
	if err != nil {
		return err
	}
	if _, err := rec.RemoveEntry(path, idx); err != nil {
		s.warn(ctx, err.Error())
	}
	return nil
}

// group rebinds a repeated section so entry positions and ids are current.
func (s *Session) group(rec *record.Store, path string) (widgets.Widget, error) {
	ws, err := s.binder.Step(s.schema.PageOf(path), rec)
	if err != nil {
		return widgets.Widget{}, err
	}
	for _, w := range ws {
		if w.Path == path {
			return w, nil
		}
	}
	return widgets.Widget{}, fmt.Errorf("tui: group %q is not on a step", path)
}

func displayLabel(w widgets.Widget) string {
	label := w.Label
	if label == "" {
		label = w.Name
	}
	if w.Required {
		label += " *"
	}
	return label
}

func display(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
