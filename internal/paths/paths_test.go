package paths

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetCreatesIntermediateContainers(t *testing.T) {
	root := map[string]any{}
	if err := Set(root, "ownership.1.ownername", "Dana"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := Set(root, "signer.name", "Dana"); err != nil {
		t.Fatalf("set: %v", err)
	}

	want := map[string]any{
		"ownership": []any{nil, map[string]any{"ownername": "Dana"}},
		"signer":    map[string]any{"name": "Dana"},
	}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Fatalf("root mismatch (-want +got):\n%s", diff)
	}

	got, ok := Get(root, "ownership.1.ownername")
	if !ok || got != "Dana" {
		t.Fatalf("Get returned %v %v", got, ok)
	}
	if _, ok := Get(root, "ownership.5.ownername"); ok {
		t.Fatalf("expected out of range index to miss")
	}
}

func TestSetRejectsBadPaths(t *testing.T) {
	if err := Set(nil, "a", 1); err == nil {
		t.Fatalf("expected nil root error")
	}
	if err := Set(map[string]any{}, " ", 1); err == nil {
		t.Fatalf("expected empty path error")
	}
	root := map[string]any{"contacts": []any{}}
	if err := Set(root, "contacts.first.name", "x"); err == nil {
		t.Fatalf("expected numeric segment error")
	}
}

func TestDelete(t *testing.T) {
	root := map[string]any{"signer": map[string]any{"name": "Dana", "zip": "78702"}, "ein": "1"}
	Delete(root, "signer.zip")
	Delete(root, "ein")
	Delete(root, "missing.key")

	want := map[string]any{"signer": map[string]any{"name": "Dana"}}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Fatalf("root mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateJoinHead(t *testing.T) {
	if got := Template("contacts.12.contactEmail"); got != "contacts.contactEmail" {
		t.Fatalf("Template = %q", got)
	}
	if got := Join("bankData", "", "0", " nickname "); got != "bankData.0.nickname" {
		t.Fatalf("Join = %q", got)
	}
	if got := Head("signer.email"); got != "signer" {
		t.Fatalf("Head = %q", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	src := map[string]any{"contacts": []any{map[string]any{"contactName": "Dana"}}}
	clone := CloneMap(src)
	_ = Set(clone, "contacts.0.contactName", "Lee")

	if got, _ := Get(src, "contacts.0.contactName"); got != "Dana" {
		t.Fatalf("clone shares state with source: %v", got)
	}
	if CloneMap(nil) == nil {
		t.Fatalf("CloneMap(nil) must not return nil")
	}
}

func TestNormalizeMatchesJSONRoundTrip(t *testing.T) {
	value := map[string]any{
		"templateId": 123,
		"ratio":      float32(0.5),
		"count":      json.Number("42"),
		"tags":       []string{"a", "b"},
		"entries":    []map[string]any{{"n": int64(1)}},
		"nested":     map[any]any{"k": uint(7)},
	}

	got := Normalize(value)

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var want map[string]any
	if err := json.Unmarshal(data, &want); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalized value mismatch (-want +got):\n%s", diff)
	}
}
