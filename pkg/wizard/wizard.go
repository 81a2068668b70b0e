// Package wizard pages the Application Record into steps. It tracks the
// current step, jumps to the first step holding a violation and drives the
// submission that precedes the e-signature flow.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-boarding/pkg/gateway"
	"github.com/goliatone/go-boarding/pkg/notify"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/widgets"
)

var (
	// ErrInvalid is returned by Submit when the record has violations. The
	// wizard has already moved to the first step holding one.
	ErrInvalid = errors.New("wizard: record is invalid")
	// ErrSubmitting rejects a Submit while another one is running.
	ErrSubmitting = errors.New("wizard: submission in progress")
	// ErrNotLastStep rejects a Submit from any step but the last.
	ErrNotLastStep = errors.New("wizard: submit is only available on the last step")
	// ErrNoSubmitter is returned when no gateway was configured.
	ErrNoSubmitter = errors.New("wizard: no submitter configured")
)

// Notification texts shown for submission outcomes.
var (
	InvalidNotice = notify.Notification{
		Variant:     notify.VariantDestructive,
		Title:       "Error!",
		Description: "The form could not be submitted successfully.",
	}
	SubmitFailedNotice = notify.Notification{
		Variant:     notify.VariantDestructive,
		Title:       "Error!",
		Description: "An unexpected error occurred.",
	}
	SubmittedNotice = notify.Notification{
		Variant:     notify.VariantSuccess,
		Title:       "Success!",
		Description: "Your application has been submitted.",
	}
)

// Record is the part of the Application Record store the wizard reads.
type Record interface {
	widgets.Record
	Validate() schema.Violations
}

// Submitter creates the application on the external platform.
type Submitter interface {
	CreateApp(ctx context.Context, application map[string]any, idempotencyKey string) (json.RawMessage, error)
}

// Discarder drops the persisted snapshot once the application exists.
type Discarder interface {
	Discard(ctx context.Context, identifier string) error
}

// Transition is published after every navigation, including clamped ones
// that stay on the same step. Presentation layers scroll to the top on it.
type Transition struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Result describes a created application.
type Result struct {
	AppID          string          `json:"appId"`
	Response       json.RawMessage `json:"response,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Record         map[string]any  `json:"-"`
}

// Step is a page of the wizard as listed in a progress indicator.
type Step struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

// View is the current step with its bound widgets.
type View struct {
	Step
	Count   int              `json:"count"`
	IsFirst bool             `json:"isFirst"`
	IsLast  bool             `json:"isLast"`
	Widgets []widgets.Widget `json:"widgets"`
}

// Wizard is safe for concurrent use.
type Wizard struct {
	mu         sync.Mutex
	index      int
	submitting bool
	listeners  map[int]func(Transition)
	nextSub    int

	schema      *schema.Schema
	record      Record
	binder      *widgets.Binder
	submitter   Submitter
	discarder   Discarder
	identifier  string
	notifier    notify.Notifier
	logger      zerolog.Logger
	newKey      func() string
	// pendingKey survives failed attempts so a retry of the same payload
	// reuses it. pendingSum identifies that payload.
	pendingKey  string
	pendingSum  uint64
	onSubmitted func(context.Context, Result)
}

type Option func(*Wizard)

func WithSubmitter(s Submitter) Option {
	return func(w *Wizard) {
		w.submitter = s
	}
}

// WithPersistence clears the snapshot stored under identifier after a
// successful submission.
func WithPersistence(d Discarder, identifier string) Option {
	return func(w *Wizard) {
		w.discarder = d
		w.identifier = identifier
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(w *Wizard) {
		if n != nil {
			w.notifier = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

func WithBinder(b *widgets.Binder) Option {
	return func(w *Wizard) {
		if b != nil {
			w.binder = b
		}
	}
}

// WithIdempotencyKeys replaces the uuid generator used for submissions.
func WithIdempotencyKeys(fn func() string) Option {
	return func(w *Wizard) {
		if fn != nil {
			w.newKey = fn
		}
	}
}

// OnSubmitted runs after the application was created, typically to open
// the e-signature flow.
func OnSubmitted(fn func(context.Context, Result)) Option {
	return func(w *Wizard) {
		w.onSubmitted = fn
	}
}

func New(s *schema.Schema, rec Record, opts ...Option) *Wizard {
	w := &Wizard{
		schema:    s,
		record:    rec,
		listeners: make(map[int]func(Transition)),
		notifier:  notify.Nop,
		logger:    zerolog.Nop(),
		newKey:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.binder == nil {
		w.binder = widgets.NewBinder(s)
	}
	return w
}

// Subscribe registers fn for transitions and returns its removal function.
func (w *Wizard) Subscribe(fn func(Transition)) func() {
	if fn == nil {
		return func() {}
	}
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.listeners[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

func (w *Wizard) Count() int { return w.schema.PageCount() }

func (w *Wizard) Current() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index
}

func (w *Wizard) IsFirst() bool { return w.Current() == 0 }

func (w *Wizard) IsLast() bool { return w.Current() == w.Count()-1 }

// Steps lists every step with its title.
func (w *Wizard) Steps() []Step {
	pages := w.schema.Pages()
	out := make([]Step, len(pages))
	for i, page := range pages {
		out[i] = Step{Index: i, Title: page.Title}
	}
	return out
}

// Label returns the title of the current step.
func (w *Wizard) Label() string {
	pages := w.schema.Pages()
	idx := w.Current()
	if idx < len(pages) {
		return pages[idx].Title
	}
	return ""
}

func (w *Wizard) Next() int { return w.move(func(i int) int { return i + 1 }) }

func (w *Wizard) Prev() int { return w.move(func(i int) int { return i - 1 }) }

// Jump moves directly to step i, clamped to the valid range.
func (w *Wizard) Jump(i int) int { return w.move(func(int) int { return i }) }

// JumpToFirstError validates the whole record and moves to the lowest step
// holding a violation. It reports false, without moving, on a valid record.
func (w *Wizard) JumpToFirstError() (schema.Violations, bool) {
	v := w.record.Validate()
	if v.Valid() {
		return v, false
	}
	page := w.schema.FirstPage(v)
	if page < 0 {
		return v, false
	}
	w.Jump(page)
	return v, true
}

func (w *Wizard) move(next func(int) int) int {
	w.mu.Lock()
	from := w.index
	to := clamp(next(from), w.schema.PageCount())
	w.index = to
	listeners := w.listenersLocked()
	w.mu.Unlock()

	evt := Transition{From: from, To: to}
	for _, fn := range listeners {
		fn(evt)
	}
	return to
}

func (w *Wizard) listenersLocked() []func(Transition) {
	ids := make([]int, 0, len(w.listeners))
	for id := range w.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Transition), 0, len(ids))
	for _, id := range ids {
		out = append(out, w.listeners[id])
	}
	return out
}

func clamp(i, count int) int {
	if i >= count {
		i = count - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// View binds the widgets of the current step.
func (w *Wizard) View() (View, error) {
	idx := w.Current()
	bound, err := w.binder.Step(idx, w.record)
	if err != nil {
		return View{}, err
	}
	count := w.Count()
	title := ""
	if pages := w.schema.Pages(); idx < len(pages) {
		title = pages[idx].Title
	}
	return View{
		Step:    Step{Index: idx, Title: title},
		Count:   count,
		IsFirst: idx == 0,
		IsLast:  idx == count-1,
		Widgets: bound,
	}, nil
}

// Submit validates the record and creates the application. On violations
// the wizard jumps to the first invalid step, notifies the user and returns
// ErrInvalid without calling the gateway. A failed attempt keeps its
// idempotency key for a retry of the same payload; a changed payload gets a
// new key. After the application is created the
// persisted snapshot is discarded and OnSubmitted runs.
func (w *Wizard) Submit(ctx context.Context) (Result, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return Result{}, ErrSubmitting
	}
	if w.index != w.schema.PageCount()-1 {
		w.mu.Unlock()
		return Result{}, ErrNotLastStep
	}
	w.submitting = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	if v, jumped := w.JumpToFirstError(); !v.Valid() {
		w.notifier.Notify(ctx, InvalidNotice)
		w.logger.Debug().Int("violations", len(v)).Bool("jumped", jumped).Int("step", w.Current()).Msg("submission rejected")
		return Result{}, fmt.Errorf("%w: %d violations", ErrInvalid, len(v))
	}
	if w.submitter == nil {
		return Result{}, ErrNoSubmitter
	}

	snapshot := w.record.Snapshot()
	payload := w.schema.Payload(snapshot)
	key, err := w.keyFor(payload)
	if err != nil {
		return Result{}, fmt.Errorf("wizard: submit: %w", err)
	}
	resp, err := w.submitter.CreateApp(ctx, payload, key)
	if err != nil {
		w.notifier.Notify(ctx, SubmitFailedNotice)
		w.logger.Error().Err(err).Str("idempotency_key", key).Msg("create application failed")
		return Result{}, fmt.Errorf("wizard: submit: %w", err)
	}
	appID, err := gateway.AppID(resp)
	if err != nil {
		w.notifier.Notify(ctx, SubmitFailedNotice)
		w.logger.Error().Err(err).Str("idempotency_key", key).Msg("unexpected create application response")
		return Result{}, fmt.Errorf("wizard: submit: %w", err)
	}

	w.mu.Lock()
	w.pendingKey = ""
	w.pendingSum = 0
	w.mu.Unlock()

	if w.discarder != nil && w.identifier != "" {
		if err := w.discarder.Discard(ctx, w.identifier); err != nil {
			w.logger.Warn().Err(err).Str("app_id", appID).Msg("discarding saved progress failed")
		}
	}
	w.notifier.Notify(ctx, SubmittedNotice)
	w.logger.Info().Str("app_id", appID).Str("idempotency_key", key).Msg("application created")

	result := Result{AppID: appID, Response: resp, IdempotencyKey: key, Record: snapshot}
	if w.onSubmitted != nil {
		w.onSubmitted(ctx, result)
	}
	return result, nil
}

var canonicalJSON = json.Config{SortMapKeys: true}.Froze()

// keyFor returns the idempotency key for payload. The pending key is reused
// only while the payload is byte-for-byte what the failed attempt sent.
func (w *Wizard) keyFor(payload map[string]any) (string, error) {
	data, err := canonicalJSON.Marshal(payload)
	if err != nil {
		return "", err
	}
	digest := xxhash.Sum64(data)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pendingKey == "" || w.pendingSum != digest {
		w.pendingKey = w.newKey()
		w.pendingSum = digest
	}
	return w.pendingKey, nil
}
