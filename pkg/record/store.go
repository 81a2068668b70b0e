// Package record holds the Application Record as an explicit
// publish/subscribe store. Scalar values live in a nested map; repeated
// groups are kept as stable-id sections and projected to positional paths
// only when the record is read as a whole.
package record

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-boarding/internal/paths"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/sections"
)

// ErrNotGroup is returned when a group operation names a path that is not a
// repeated group.
var ErrNotGroup = errors.New("record: not a repeated group")

// Schema is the subset of the field schema the store depends on.
type Schema interface {
	Defaults() map[string]any
	Groups() []string
	EntryDefaults(group string) map[string]any
	Validate(values map[string]any) schema.Violations
	ValidatePath(values map[string]any, path string) (string, bool)
	MigrateBankAccounts(values map[string]any) bool
}

// EventKind identifies what changed in the store.
type EventKind string

const (
	EventSet    EventKind = "set"
	EventAppend EventKind = "append"
	EventRemove EventKind = "remove"
	EventLoad   EventKind = "load"
	EventReset  EventKind = "reset"
	EventErrors EventKind = "errors"
)

// Event is delivered to subscribers after every mutation. Path is the
// positional path affected, empty for whole-record events.
type Event struct {
	Kind  EventKind
	Path  string
	Focus int
}

// Listener receives store events. Listeners run synchronously after the
// store lock is released and may read the store.
type Listener func(Event)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	schema    Schema
	values    map[string]any
	groups    map[string]*sections.Group
	errors    schema.Violations
	listeners map[int]Listener
	nextSub   int
	newID     func() string
	logger    zerolog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIDGenerator forwards a deterministic entry id generator to every group.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New creates a store seeded with the schema defaults.
func New(sch Schema, opts ...Option) *Store {
	s := &Store{
		schema:    sch,
		errors:    schema.Violations{},
		listeners: make(map[int]Listener),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.groups = make(map[string]*sections.Group)
	for _, name := range sch.Groups() {
		group := name
		groupOpts := []sections.Option{
			sections.WithDefaults(func() map[string]any { return sch.EntryDefaults(group) }),
		}
		if s.newID != nil {
			groupOpts = append(groupOpts, sections.WithIDGenerator(s.newID))
		}
		s.groups[name] = sections.New(name, groupOpts...)
	}
	s.resetLocked()
	return s
}

// Subscribe registers a listener and returns the function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) publish(evt Event) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(evt)
	}
}

// Snapshot returns a deep copy of the record with every group projected to
// its positional list.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() map[string]any {
	out := paths.CloneMap(s.values)
	for name, group := range s.groups {
		out[name] = group.Project()
	}
	return out
}

// Get reads a positional path.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if group, id, field, ok := s.resolveGroupPath(path); ok {
		if field == "" {
			return nil, false
		}
		return group.Get(id, field)
	}
	if group, ok := s.groups[path]; ok {
		return group.Project(), true
	}
	value, ok := paths.Get(s.values, path)
	return paths.Clone(value), ok
}

// Set writes value at a positional path. Paths inside a repeated group are
// translated to the entry id currently at that position. When the path
// already carries an error it is re-checked so inline messages clear as the
// user fixes them.
func (s *Store) Set(path string, value any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("record: empty path")
	}
	value = paths.Normalize(value)

	s.mu.Lock()
	if _, isGroup := s.groups[path]; isGroup {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s cannot be assigned directly", ErrNotGroup, path)
	}
	if group, id, field, ok := s.resolveGroupPath(path); ok {
		if field == "" {
			s.mu.Unlock()
			return fmt.Errorf("record: %s addresses a whole entry", path)
		}
		if err := group.Set(id, field, value); err != nil {
			s.mu.Unlock()
			return err
		}
	} else if s.isGroupPrefix(path) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", sections.ErrIndexOutOfRange, path)
	} else if err := paths.Set(s.values, path, value); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("record: %w", err)
	}
	s.recheckLocked(path)
	s.mu.Unlock()

	s.publish(Event{Kind: EventSet, Path: path})
	return nil
}

func (s *Store) recheckLocked(path string) {
	if _, flagged := s.errors[path]; !flagged {
		return
	}
	msg, ok := s.schema.ValidatePath(s.snapshotLocked(), path)
	if ok {
		delete(s.errors, path)
		return
	}
	s.errors[path] = msg
}

func (s *Store) isGroupPrefix(path string) bool {
	_, ok := s.groups[paths.Head(path)]
	return ok
}

// resolveGroupPath splits "ownership.1.ownerssn" into the group, the id of
// entry 1 and the field path "ownerssn".
func (s *Store) resolveGroupPath(path string) (*sections.Group, string, string, bool) {
	name, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, "", "", false
	}
	group, ok := s.groups[name]
	if !ok {
		return nil, "", "", false
	}
	indexPart, field, _ := strings.Cut(rest, ".")
	index, err := strconv.Atoi(indexPart)
	if err != nil {
		return nil, "", "", false
	}
	id, err := group.IDAt(index)
	if err != nil {
		return nil, "", "", false
	}
	return group, id, field, true
}

// Entries returns the entries of a group with their stable ids.
func (s *Store) Entries(group string) ([]sections.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, group)
	}
	return g.Entries(), nil
}

// Removable reports whether the UI may offer removal of the entry at index.
func (s *Store) Removable(group string, index int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	return ok && g.Removable(index)
}

// AppendEntry adds an empty entry to a group.
func (s *Store) AppendEntry(group string) (sections.Entry, error) {
	s.mu.Lock()
	g, ok := s.groups[group]
	if !ok {
		s.mu.Unlock()
		return sections.Entry{}, fmt.Errorf("%w: %s", ErrNotGroup, group)
	}
	entry := g.Append()
	index := g.Len() - 1
	s.mu.Unlock()

	s.publish(Event{Kind: EventAppend, Path: paths.Join(group, strconv.Itoa(index)), Focus: index})
	return entry, nil
}

// SettleEntry clears the fresh flag of an appended entry.
func (s *Store) SettleEntry(group, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotGroup, group)
	}
	return g.Settle(id)
}

// RemoveEntry deletes the entry at index, re-indexes the following entries
// and re-validates the group. It returns the index that should receive focus.
func (s *Store) RemoveEntry(group string, index int) (int, error) {
	s.mu.Lock()
	g, ok := s.groups[group]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrNotGroup, group)
	}
	focus, err := g.Remove(index)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	for path := range s.errors.Under(group) {
		delete(s.errors, path)
	}
	for path, msg := range s.schema.Validate(s.snapshotLocked()).Under(group) {
		s.errors[path] = msg
	}
	s.mu.Unlock()

	s.publish(Event{Kind: EventRemove, Path: paths.Join(group, strconv.Itoa(index)), Focus: focus})
	return focus, nil
}

// Load replaces the record with a persisted snapshot. Legacy snapshot shapes
// are migrated and group entries receive new stable ids.
func (s *Store) Load(values map[string]any) {
	normalized, _ := paths.Normalize(paths.CloneMap(values)).(map[string]any)
	if s.schema.MigrateBankAccounts(normalized) {
		s.logger.Debug().Msg("migrated legacy bank account snapshot")
	}

	s.mu.Lock()
	s.values = make(map[string]any, len(normalized))
	for key, value := range normalized {
		if _, isGroup := s.groups[key]; isGroup {
			continue
		}
		s.values[key] = value
	}
	for name, group := range s.groups {
		list, _ := normalized[name].([]any)
		group.Load(list)
	}
	s.errors = schema.Violations{}
	s.mu.Unlock()

	s.publish(Event{Kind: EventLoad})
}

// Reset restores the schema defaults and clears all errors.
func (s *Store) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.publish(Event{Kind: EventReset})
}

func (s *Store) resetLocked() {
	defaults := s.schema.Defaults()
	s.values = make(map[string]any, len(defaults))
	for key, value := range defaults {
		if group, ok := s.groups[key]; ok {
			list, _ := value.([]any)
			group.Load(list)
			continue
		}
		s.values[key] = value
	}
	s.errors = schema.Violations{}
}

// Validate runs full-record validation, replaces the error set and returns it.
func (s *Store) Validate() schema.Violations {
	s.mu.Lock()
	v := s.schema.Validate(s.snapshotLocked())
	s.errors = copyViolations(v)
	s.mu.Unlock()

	s.publish(Event{Kind: EventErrors})
	return v
}

// Errors returns a copy of the current error set.
func (s *Store) Errors() schema.Violations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyViolations(s.errors)
}

// Error returns the message shown under a single field.
func (s *Store) Error(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors[path]
}

func copyViolations(v schema.Violations) schema.Violations {
	out := make(schema.Violations, len(v))
	for k, msg := range v {
		out[k] = msg
	}
	return out
}
