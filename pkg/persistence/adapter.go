package persistence

import (
	"context"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-boarding/pkg/notify"
)

// Record is the in-memory application record the adapter saves and restores.
type Record interface {
	Snapshot() map[string]any
	Load(values map[string]any)
	Reset()
}

// Notification texts shown for persistence outcomes.
var (
	SavedNotice = notify.Notification{
		Variant:     notify.VariantDefault,
		Title:       "Saved!",
		Description: "Your progress has been saved. You can safely close this tab and come back later.",
	}
	ClearedNotice = notify.Notification{
		Variant:     notify.VariantDefault,
		Title:       "Cleared!",
		Description: "Your progress has been cleared.",
	}
	SaveFailedNotice = notify.Notification{
		Variant:     notify.VariantDestructive,
		Title:       "Error!",
		Description: "Failed to save form data. Please try again.",
	}
	LoadFailedNotice = notify.Notification{
		Variant:     notify.VariantDestructive,
		Title:       "Error!",
		Description: "Failed to load saved form data. Please try again.",
	}
	ClearFailedNotice = notify.Notification{
		Variant:     notify.VariantDestructive,
		Title:       "Error!",
		Description: "Failed to clear form data. Please try again.",
	}
)

// Adapter connects a Record to a Store. Failures are logged and surfaced as
// notifications; the in-memory record is left untouched by failed calls.
type Adapter struct {
	store    Store
	notifier notify.Notifier
	logger   zerolog.Logger
}

type AdapterOption func(*Adapter)

func WithNotifier(n notify.Notifier) AdapterOption {
	return func(a *Adapter) {
		if n != nil {
			a.notifier = n
		}
	}
}

func WithLogger(logger zerolog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func NewAdapter(store Store, opts ...AdapterOption) *Adapter {
	a := &Adapter{store: store, notifier: notify.Nop, logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Store exposes the backing store.
func (a *Adapter) Store() Store { return a.store }

// Save serializes the current record under identifier.
func (a *Adapter) Save(ctx context.Context, identifier string, rec Record) error {
	data, err := json.Marshal(rec.Snapshot())
	if err == nil {
		err = a.store.Save(ctx, identifier, data)
	}
	if err != nil {
		a.logger.Error().Err(err).Str("identifier", identifier).Msg("save form data failed")
		a.notifier.Notify(ctx, SaveFailedNotice)
		return err
	}
	a.logger.Debug().Str("identifier", identifier).Int("bytes", len(data)).Msg("form data saved")
	a.notifier.Notify(ctx, SavedNotice)
	return nil
}

// Load restores the snapshot saved under identifier into rec. It reports
// false without error when nothing was saved.
func (a *Adapter) Load(ctx context.Context, identifier string, rec Record) (bool, error) {
	data, err := a.store.Load(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	var values map[string]any
	if err == nil {
		if decodeErr := json.Unmarshal(data, &values); decodeErr != nil {
			err = fmt.Errorf("persistence: decode snapshot: %w", decodeErr)
		}
	}
	if err != nil {
		a.logger.Error().Err(err).Str("identifier", identifier).Msg("load form data failed")
		a.notifier.Notify(ctx, LoadFailedNotice)
		return false, err
	}
	rec.Load(values)
	return true, nil
}

// Clear resets the record to its defaults and deletes the saved snapshot.
func (a *Adapter) Clear(ctx context.Context, identifier string, rec Record) error {
	if rec != nil {
		rec.Reset()
	}
	if err := a.store.Clear(ctx, identifier); err != nil {
		a.logger.Error().Err(err).Str("identifier", identifier).Msg("clear form data failed")
		a.notifier.Notify(ctx, ClearFailedNotice)
		return err
	}
	a.notifier.Notify(ctx, ClearedNotice)
	return nil
}

// Discard deletes the snapshot silently, used once an application has been
// submitted.
func (a *Adapter) Discard(ctx context.Context, identifier string) error {
	if err := a.store.Clear(ctx, identifier); err != nil {
		a.logger.Warn().Err(err).Str("identifier", identifier).Msg("discard form data failed")
		return err
	}
	return nil
}
