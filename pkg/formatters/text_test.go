package formatters

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/pkg/types"
)

var testTime = time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTextFormatter_Format(t *testing.T) {
	tests := []struct {
		name    string
		event   *types.Event
		options func(o *FormatOptions)
		want    string
	}{
		{
			name:  "basic message",
			event: &types.Event{Logger: "com.example", Level: types.LevelInfo, Template: "test message", Time: testTime},
			want:  "[2023-01-01T12:00:00Z] [INFO] com.example: test message\n",
		},
		{
			name: "message with args",
			event: &types.Event{
				Logger: "com.example", Level: types.LevelDebug, Time: testTime,
				Template: "message with %s and %d", Args: []any{"string", 42},
			},
			want: "[2023-01-01T12:00:00Z] [DEBUG] com.example: message with string and 42\n",
		},
		{
			name: "marker and thread",
			event: &types.Event{
				Logger: "com.example", Level: types.LevelWarn, Time: testTime,
				Template: "audit", Marker: "AUDIT", Thread: "worker-1",
			},
			want: "[2023-01-01T12:00:00Z] [WARN] [worker-1] com.example {AUDIT}: audit\n",
		},
		{
			name:  "lowercase level without time",
			event: &types.Event{Logger: "a", Level: types.LevelError, Template: "boom", Time: testTime},
			options: func(o *FormatOptions) {
				o.IncludeTime = false
				o.LevelFormat = LevelFormatNameLower
			},
			want: "[error] a: boom\n",
		},
		{
			name:  "symbol level",
			event: &types.Event{Logger: "a", Level: types.LevelWarn, Template: "x", Time: testTime},
			options: func(o *FormatOptions) {
				o.IncludeTime = false
				o.LevelFormat = LevelFormatSymbol
			},
			want: "[W] a: x\n",
		},
		{
			name:  "host",
			event: &types.Event{Logger: "a", Level: types.LevelInfo, Template: "x", Host: "node-7", Time: testTime},
			options: func(o *FormatOptions) {
				o.IncludeTime = false
				o.IncludeHost = true
			},
			want: "[INFO] node-7 a: x\n",
		},
		{
			name:  "trailing newline not doubled",
			event: &types.Event{Logger: "a", Level: types.LevelInfo, Template: "x\n", Time: testTime},
			options: func(o *FormatOptions) {
				o.IncludeTime = false
			},
			want: "[INFO] a: x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewTextFormatter()
			if tt.options != nil {
				tt.options(&f.Options)
			}
			result, err := f.Format(tt.event)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if string(result) != tt.want {
				t.Errorf("Format() = %q, want %q", result, tt.want)
			}
		})
	}
}

func TestTextFormatter_Error(t *testing.T) {
	root := fmt.Errorf("connection refused")
	err := errors.Wrap(root, "send batch")

	f := NewTextFormatter()
	f.Options.IncludeTime = false
	result, ferr := f.Format(&types.Event{Logger: "a", Level: types.LevelError, Template: "failed", Err: err})
	if ferr != nil {
		t.Fatalf("Format() error = %v", ferr)
	}

	lines := strings.Split(strings.TrimSuffix(string(result), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), result)
	}
	if !strings.HasSuffix(lines[1], ": send batch") {
		t.Errorf("expected wrapper message on second line, got %q", lines[1])
	}
	if lines[2] != "Caused by: *errors.errorString: connection refused" {
		t.Errorf("unexpected cause line %q", lines[2])
	}
}

func TestTextFormatter_TimeZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	f := NewTextFormatter()
	f.Options.TimeZone = loc
	f.Options.TimestampFormat = "15:04"

	result, _ := f.Format(&types.Event{Logger: "a", Level: types.LevelInfo, Template: "x", Time: testTime})
	if !strings.HasPrefix(string(result), "[14:00]") {
		t.Errorf("expected local time stamp, got %q", result)
	}
}
