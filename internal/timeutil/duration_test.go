package timeutil

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"1m", time.Minute, false},
		{"1m30s", 90 * time.Second, false},
		{"0", 0, false},
		{"PT1M", time.Minute, false},
		{"pt5m", 5 * time.Minute, false},
		{"PT0.5S", 500 * time.Millisecond, false},
		{"P1DT2H", 26 * time.Hour, false},
		{"PT1H", time.Hour, false},
		{"P", 0, true},
		{"PT", 0, true},
		{"P1Y", 0, true},
		{"five minutes", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDuration(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDurations(t *testing.T) {
	got, err := ParseDurations("PT1M, 5m  PT10M")
	if err != nil {
		t.Fatalf("ParseDurations() error = %v", err)
	}
	want := []time.Duration{time.Minute, 5 * time.Minute, 10 * time.Minute}
	if len(got) != len(want) {
		t.Fatalf("ParseDurations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseDurations()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := ParseDurations("1m, soon"); err == nil {
		t.Error("expected error for malformed element")
	}
}
