package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestRecorderDrain(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()
	rec.Notify(ctx, Notification{Variant: VariantSuccess, Title: "Saved"})
	rec.Notify(ctx, Notification{Variant: VariantDestructive, Title: "Error"})

	want := []Notification{
		{Variant: VariantSuccess, Title: "Saved"},
		{Variant: VariantDestructive, Title: "Error"},
	}
	if diff := cmp.Diff(want, rec.Drain()); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
	if got := rec.All(); len(got) != 0 {
		t.Fatalf("expected drained recorder, got %v", got)
	}
}

func TestLoggerUsesWarnForDestructive(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogger(zerolog.New(&buf))
	Multi{n, nil}.Notify(context.Background(), Notification{
		Variant:     VariantDestructive,
		Title:       "Error",
		Description: "The form could not be submitted successfully.",
	})

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"title":"Error"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}
