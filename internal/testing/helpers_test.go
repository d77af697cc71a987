package testing

import (
	"testing"
)

func TestUnit(t *testing.T) {
	tests := []struct {
		name        string
		unitOnly    string
		integration string
		want        bool
	}{
		{"default is unit", "", "", true},
		{"integration enabled", "", "true", testing.Short()},
		{"unit only wins", "true", "true", true},
		{"integration disabled", "", "false", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOGEVENTS_UNIT_TESTS_ONLY", tt.unitOnly)
			t.Setenv("LOGEVENTS_RUN_INTEGRATION_TESTS", tt.integration)

			if got := Unit(); got != tt.want {
				t.Errorf("Unit() = %v, want %v", got, tt.want)
			}
			if Integration() == Unit() {
				t.Error("Integration() must be the inverse of Unit()")
			}
		})
	}
}

func TestSkipIfUnit(t *testing.T) {
	t.Setenv("LOGEVENTS_UNIT_TESTS_ONLY", "true")

	ran := false
	t.Run("skipped", func(t *testing.T) {
		SkipIfUnit(t, "custom message")
		ran = true
	})
	if ran {
		t.Error("SkipIfUnit should have skipped in unit mode")
	}
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("LOGEVENTS_TEST_VALUE", "nats://localhost:4222")
	if got := RequireEnv(t, "LOGEVENTS_TEST_VALUE"); got != "nats://localhost:4222" {
		t.Errorf("RequireEnv() = %q", got)
	}

	t.Setenv("LOGEVENTS_TEST_VALUE", "")
	ran := false
	t.Run("missing", func(t *testing.T) {
		RequireEnv(t, "LOGEVENTS_TEST_VALUE")
		ran = true
	})
	if ran {
		t.Error("RequireEnv should skip when the variable is empty")
	}
}
