package formatters

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/pkg/types"
)

func TestConsoleFormatter_Plain(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(&buf)
	if f.Color {
		t.Fatal("a bytes.Buffer is never a terminal")
	}
	f.Options.TimeZone = time.UTC

	result := mustFormat(t, f, &types.Event{
		Logger: "com.example", Level: types.LevelInfo, Time: testTime,
		Template: "started in %s", Args: []any{"2s"}, Marker: "BOOT",
	})
	want := "12:00:00.000 INFO  com.example {BOOT}: started in 2s\n"
	if string(result) != want {
		t.Errorf("Format() = %q, want %q", result, want)
	}
}

func TestConsoleFormatter_Error(t *testing.T) {
	f := NewConsoleFormatter(&bytes.Buffer{})
	f.Options.IncludeTime = false

	result := string(mustFormat(t, f, &types.Event{
		Logger: "a", Level: types.LevelError, Template: "failed",
		Err: errors.New("boom"),
	}))
	if !strings.HasPrefix(result, "ERROR a: failed\n") {
		t.Errorf("unexpected first line in %q", result)
	}
	if !strings.Contains(result, "boom") {
		t.Errorf("expected error message in %q", result)
	}
}

func TestConsoleFormatter_ColorKeepsText(t *testing.T) {
	f := NewConsoleFormatter(&bytes.Buffer{})
	f.Color = true
	f.Options.IncludeTime = false

	result := string(mustFormat(t, f, &types.Event{Logger: "svc", Level: types.LevelWarn, Template: "careful"}))
	for _, part := range []string{"WARN", "svc", "careful"} {
		if !strings.Contains(result, part) {
			t.Errorf("expected %q in %q", part, result)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("bytes.Buffer reported as terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}
