package paths

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Get resolves a dotted path into root. Numeric segments index into slices.
func Get(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	current := any(root)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Set writes value at a dotted path, creating intermediate maps and slices as
// needed. A numeric segment following a key creates or grows a slice.
func Set(root map[string]any, path string, value any) error {
	if root == nil {
		return fmt.Errorf("paths: root map is nil")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("paths: empty path")
	}
	segments := strings.Split(path, ".")
	_, err := setIn(root, segments, value, path)
	return err
}

// setIn returns the (possibly reallocated) container so slice growth is
// reflected in the parent.
func setIn(container any, segments []string, value any, path string) (any, error) {
	segment := segments[0]
	last := len(segments) == 1

	switch node := container.(type) {
	case map[string]any:
		if last {
			node[segment] = value
			return node, nil
		}
		child := node[segment]
		if child == nil {
			child = emptyContainerFor(segments[1])
		}
		updated, err := setIn(child, segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		node[segment] = updated
		return node, nil

	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil {
			return nil, fmt.Errorf("paths: expected numeric segment, got %q", segment)
		}
		if idx < 0 {
			return nil, fmt.Errorf("paths: negative index in path %q", path)
		}
		if len(node) <= idx {
			node = append(node, make([]any, idx+1-len(node))...)
		}
		if last {
			node[idx] = value
			return node, nil
		}
		child := node[idx]
		if child == nil {
			child = emptyContainerFor(segments[1])
		}
		updated, err := setIn(child, segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		node[idx] = updated
		return node, nil

	default:
		return nil, fmt.Errorf("paths: unexpected container for segment %q in %q", segment, path)
	}
}

func emptyContainerFor(next string) any {
	if _, err := strconv.Atoi(next); err == nil {
		return []any{}
	}
	return make(map[string]any)
}

// Delete removes the key addressed by path. Missing paths are ignored.
func Delete(root map[string]any, path string) {
	segments := strings.Split(path, ".")
	parentPath := strings.Join(segments[:len(segments)-1], ".")
	key := segments[len(segments)-1]
	if parentPath == "" {
		delete(root, key)
		return
	}
	parent, ok := Get(root, parentPath)
	if !ok {
		return
	}
	if m, ok := parent.(map[string]any); ok {
		delete(m, key)
	}
}

// Join concatenates non-empty segments with dots.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return strings.Join(out, ".")
}

// Template drops numeric segments, turning "contacts.1.contactEmail" into
// "contacts.contactEmail".
func Template(path string) string {
	segments := strings.Split(path, ".")
	out := segments[:0:0]
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return strings.Join(out, ".")
}

// Head returns the first segment of a dotted path.
func Head(path string) string {
	head, _, _ := strings.Cut(path, ".")
	return head
}

// Clone deep copies maps and slices.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = Clone(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = Clone(v)
		}
		return clone
	default:
		return typed
	}
}

// CloneMap deep copies a value map, never returning nil.
func CloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return make(map[string]any)
	}
	return Clone(src).(map[string]any)
}

// Normalize converts a value into the shapes produced by encoding/json so
// records compare equal before and after a serialisation round trip.
func Normalize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = Normalize(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[fmt.Sprint(k)] = Normalize(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = Normalize(v)
		}
		return out
	case []map[string]any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = Normalize(v)
		}
		return out
	case []string:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = v
		}
		return out
	case int:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint:
		return float64(typed)
	case uint64:
		return float64(typed)
	case float32:
		return float64(typed)
	case json.Number:
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	default:
		return typed
	}
}
