// Package tui runs the boarding wizard in a terminal: one prompt per field,
// step navigation, saved progress and the e-signature step that follows a
// successful submission.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-boarding/pkg/esign"
	"github.com/goliatone/go-boarding/pkg/notify"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/record"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/widgets"
	"github.com/goliatone/go-boarding/pkg/wizard"
)

// Result describes a created application.
type Result struct {
	AppID    string          `json:"appId"`
	Response json.RawMessage `json:"response,omitempty"`
	// PDF is the signed agreement; empty when signing was skipped.
	PDF []byte `json:"-"`
}

// Session walks one applicant through the wizard.
type Session struct {
	schema     *schema.Schema
	driver     PromptDriver
	submitter  wizard.Submitter
	store      persistence.Store
	identifier string
	adapter    *persistence.Adapter
	signing    *esign.Service
	network    Networker
	options    widgets.OptionSource
	binder     *widgets.Binder
	readFile   func(string) ([]byte, error)
	device     string
	logger     zerolog.Logger
	theme      Theme
}

var _ notify.Notifier = (*Session)(nil)

// New constructs a session with defaults (survey driver, no persistence,
// no gateway).
func New(sch *schema.Schema, opts ...Option) (*Session, error) {
	if sch == nil {
		return nil, errors.New("tui: schema is required")
	}
	s := &Session{
		schema:   sch,
		driver:   NewSurveyDriver(nil),
		readFile: os.ReadFile,
		device:   terminalDevice(),
		logger:   zerolog.Nop(),
		theme:    Theme{ErrorPrefix: "! "},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.store != nil {
		if s.identifier == "" {
			return nil, errors.New("tui: persistence needs an identifier")
		}
		s.adapter = persistence.NewAdapter(s.store, persistence.WithNotifier(s), persistence.WithLogger(s.logger))
	}
	s.binder = widgets.NewBinder(sch, widgets.WithOptionSource(s.options))
	return s, nil
}

// terminalDevice labels the local machine the way a browser user agent would
// be labelled.
func terminalDevice() string {
	if runtime.GOOS == "darwin" {
		return esign.DeviceType("Macintosh")
	}
	return esign.DeviceType(runtime.GOOS)
}

// Notify prints toast notifications inline.
func (s *Session) Notify(ctx context.Context, n notify.Notification) {
	prefix := s.theme.InfoPrefix
	if n.Variant == notify.VariantDestructive {
		prefix = s.theme.ErrorPrefix
	}
	msg := prefix + n.Title
	if n.Description != "" {
		msg += " " + n.Description
	}
	_ = s.driver.Info(ctx, msg)
}

func (s *Session) info(ctx context.Context, msg string) {
	_ = s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}

func (s *Session) warn(ctx context.Context, msg string) {
	_ = s.driver.Info(ctx, s.theme.ErrorPrefix+msg)
}

type action int

const (
	actionNext action = iota
	actionBack
	actionSubmit
	actionEdit
	actionSave
	actionClear
	actionQuit
)

// Run prompts until the application is created, the user quits or a prompt
// fails. Saved progress is restored first.
func (s *Session) Run(ctx context.Context) (Result, error) {
	rec := record.New(s.schema, record.WithLogger(s.logger))
	if s.adapter != nil {
		if restored, err := s.adapter.Load(ctx, s.identifier, rec); err == nil && restored {
			s.info(ctx, "Restored your saved progress.")
		}
	}

	opts := []wizard.Option{
		wizard.WithBinder(s.binder),
		wizard.WithNotifier(s),
		wizard.WithLogger(s.logger),
	}
	if s.submitter != nil {
		opts = append(opts, wizard.WithSubmitter(s.submitter))
	}
	if s.adapter != nil {
		opts = append(opts, wizard.WithPersistence(s.adapter, s.identifier))
	}
	wz := wizard.New(s.schema, rec, opts...)

	ask := true
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		view, err := wz.View()
		if err != nil {
			return Result{}, err
		}
		if ask {
			s.info(ctx, fmt.Sprintf("Step %d of %d: %s", view.Index+1, view.Count, view.Title))
			if err := s.fill(ctx, rec, view.Widgets); err != nil {
				return Result{}, err
			}
		}
		ask = true

		act, err := s.menu(ctx, view)
		if err != nil {
			return Result{}, err
		}
		switch act {
		case actionNext:
			wz.Next()
		case actionBack:
			wz.Prev()
		case actionEdit:
		case actionSave:
			_ = s.adapter.Save(ctx, s.identifier, rec)
			ask = false
		case actionClear:
			sure, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Clear all saved progress?"})
			if err != nil {
				return Result{}, err
			}
			if sure && s.adapter.Clear(ctx, s.identifier, rec) == nil {
				wz.Jump(0)
				continue
			}
			ask = false
		case actionQuit:
			if s.adapter != nil {
				_ = s.adapter.Save(ctx, s.identifier, rec)
			}
			return Result{}, ErrQuit
		case actionSubmit:
			res, err := wz.Submit(ctx)
			switch {
			case errors.Is(err, wizard.ErrInvalid):
				// the wizard moved to the first invalid step
			case errors.Is(err, wizard.ErrNoSubmitter):
				return Result{}, err
			case err != nil:
				ask = false
			default:
				return s.finish(ctx, res)
			}
		}
	}
}

func (s *Session) menu(ctx context.Context, view wizard.View) (action, error) {
	var (
		labels  []string
		actions []action
	)
	add := func(label string, a action) {
		labels = append(labels, label)
		actions = append(actions, a)
	}
	if view.IsLast {
		add("Submit application", actionSubmit)
	} else {
		add("Next step", actionNext)
	}
	if !view.IsFirst {
		add("Previous step", actionBack)
	}
	add("Edit this step", actionEdit)
	if s.adapter != nil {
		add("Save progress", actionSave)
		add("Clear saved progress", actionClear)
	}
	add("Quit", actionQuit)

	idx, err := s.driver.Select(ctx, SelectConfig{Message: "What next?", Options: labels})
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(actions) {
		return 0, fmt.Errorf("tui: menu choice %d out of range", idx)
	}
	return actions[idx], nil
}

func (s *Session) finish(ctx context.Context, res wizard.Result) (Result, error) {
	out := Result{AppID: res.AppID, Response: res.Response}
	if s.signing == nil {
		return out, nil
	}
	pdf, err := s.sign(ctx, res.AppID, res.Record)
	if err != nil {
		return out, err
	}
	out.PDF = pdf
	return out, nil
}
