package schema_test

import (
	"testing"

	"github.com/goliatone/go-boarding/internal/paths"
)

func setPath(t *testing.T, record map[string]any, path string, value any) {
	t.Helper()
	if err := paths.Set(record, path, value); err != nil {
		t.Fatalf("set %s: %v", path, err)
	}
}
