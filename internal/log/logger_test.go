package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentAuth, Output: &buf})
	logger.Info("hello", FieldOwner, "u1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if entry[FieldComponent] != ComponentAuth || entry[FieldOwner] != "u1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: ParseLevel("warn"), Output: &buf})
	logger.Info("dropped")
	logger.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	logger := Discard().WithComponent(ComponentStorage)
	if logger.Component() != ComponentStorage {
		t.Fatalf("got %q", logger.Component())
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithError(nil).WithOperation(OpCreate).WithError(errors.New("boom"))
	if f[FieldError] != "boom" || f[FieldOperation] != OpCreate {
		t.Fatalf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(f.ToSlice()))
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := Discard().WithComponent(ComponentHTTP)
	got := FromContext(NewContext(context.Background(), logger))
	if got != logger {
		t.Fatal("expected the stored logger back")
	}
}
