// Package sections manages the variable-length repeated groups of the
// boarding form with stable entry identity.
package sections

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/goliatone/go-boarding/internal/paths"
)

var (
	// ErrIndexOutOfRange is returned when a positional index does not address an entry.
	ErrIndexOutOfRange = errors.New("sections: index out of range")
	// ErrUnknownEntry is returned when an entry id is not part of the group.
	ErrUnknownEntry = errors.New("sections: unknown entry")
)

// Entry is one element of a repeated group. ID is assigned on creation and
// survives removals of other entries; only the position changes.
type Entry struct {
	ID     string
	Values map[string]any
	// Fresh marks an entry appended by the user that has not been settled yet.
	Fresh bool
}

// Group owns the ordered entries of one repeated section ("contacts",
// "ownership", "bankData"). Values are stored by entry id and projected to
// positional paths only through Project and PathFor.
//
// Group is not safe for concurrent use; the record store serialises access.
type Group struct {
	name     string
	defaults func() map[string]any
	newID    func() string
	entries  []*Entry
}

// Option customises a Group.
type Option func(*Group)

// WithDefaults sets the value factory used for appended entries.
func WithDefaults(fn func() map[string]any) Option {
	return func(g *Group) {
		if fn != nil {
			g.defaults = fn
		}
	}
}

// WithIDGenerator overrides the uuid based id generator. Tests use it for
// deterministic ids.
func WithIDGenerator(fn func() string) Option {
	return func(g *Group) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// New constructs an empty group.
func New(name string, opts ...Option) *Group {
	g := &Group{
		name:     name,
		defaults: func() map[string]any { return map[string]any{} },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Group) Name() string { return g.name }

func (g *Group) Len() int { return len(g.entries) }

// Entries returns copies of the current entries in positional order.
func (g *Group) Entries() []Entry {
	out := make([]Entry, len(g.entries))
	for i, entry := range g.entries {
		out[i] = Entry{ID: entry.ID, Values: paths.CloneMap(entry.Values), Fresh: entry.Fresh}
	}
	return out
}

// Append adds one entry seeded from the group defaults and returns it. The
// entry is marked fresh until Settle is called with its id.
func (g *Group) Append() Entry {
	entry := &Entry{ID: g.newID(), Values: paths.CloneMap(g.defaults()), Fresh: true}
	g.entries = append(g.entries, entry)
	return Entry{ID: entry.ID, Values: paths.CloneMap(entry.Values), Fresh: true}
}

// Settle clears the fresh flag of an entry.
func (g *Group) Settle(id string) error {
	entry, _, err := g.lookup(id)
	if err != nil {
		return err
	}
	entry.Fresh = false
	return nil
}

// Removable reports whether the entry at index may be removed from the UI
// layer. The only remaining entry has no delete affordance.
func (g *Group) Removable(index int) bool {
	return index >= 0 && index < len(g.entries) && len(g.entries) > 1
}

// Remove deletes the entry at index. Following entries shift down by one
// position while keeping their ids. The returned index is the entry that should
// receive focus: the nearest preceding entry, or 0. The group itself allows
// removing the last entry; callers enforce the non-empty rule.
func (g *Group) Remove(index int) (int, error) {
	if index < 0 || index >= len(g.entries) {
		return 0, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(g.entries))
	}
	g.entries = slices.Delete(g.entries, index, index+1)
	return focusAfterRemoval(index), nil
}

// RemoveID removes the entry with the given id.
func (g *Group) RemoveID(id string) (int, error) {
	_, index, err := g.lookup(id)
	if err != nil {
		return 0, err
	}
	return g.Remove(index)
}

func focusAfterRemoval(index int) int {
	if index > 0 {
		return index - 1
	}
	return 0
}

// Index returns the current position of an entry id.
func (g *Group) Index(id string) (int, bool) {
	_, index, err := g.lookup(id)
	return index, err == nil
}

// IDAt returns the id of the entry at index.
func (g *Group) IDAt(index int) (string, error) {
	if index < 0 || index >= len(g.entries) {
		return "", fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(g.entries))
	}
	return g.entries[index].ID, nil
}

// Set writes a field value of the entry with the given id. field may be a
// dotted path within the entry.
func (g *Group) Set(id, field string, value any) error {
	entry, _, err := g.lookup(id)
	if err != nil {
		return err
	}
	if err := paths.Set(entry.Values, field, value); err != nil {
		return fmt.Errorf("sections: set %s.%s: %w", g.name, field, err)
	}
	return nil
}

// Get reads a field value of the entry with the given id.
func (g *Group) Get(id, field string) (any, bool) {
	entry, _, err := g.lookup(id)
	if err != nil {
		return nil, false
	}
	return paths.Get(entry.Values, field)
}

// PathFor returns the positional record path of an entry field, for example
// "ownership.1.ownerssn".
func (g *Group) PathFor(id, field string) (string, error) {
	_, index, err := g.lookup(id)
	if err != nil {
		return "", err
	}
	return paths.Join(g.name, strconv.Itoa(index), field), nil
}

// Project returns the positional view of the group as stored in the
// Application Record.
func (g *Group) Project() []any {
	out := make([]any, len(g.entries))
	for i, entry := range g.entries {
		out[i] = paths.CloneMap(entry.Values)
	}
	return out
}

// Load replaces all entries with the positional list, assigning new ids.
// Elements that are not objects become empty entries.
func (g *Group) Load(list []any) {
	g.entries = g.entries[:0]
	for _, item := range list {
		values, _ := item.(map[string]any)
		g.entries = append(g.entries, &Entry{ID: g.newID(), Values: paths.CloneMap(values)})
	}
}

func (g *Group) lookup(id string) (*Entry, int, error) {
	for i, entry := range g.entries {
		if entry.ID == id {
			return entry, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s/%s", ErrUnknownEntry, g.name, id)
}
