// Package testing holds helpers shared by the package tests. Tests that talk
// to real services (NATS, Logstash) only run in integration mode.
package testing

import (
	"os"
	"testing"
)

// Unit returns true if running in unit test mode. Integration mode is only
// entered when LOGEVENTS_RUN_INTEGRATION_TESTS=true and neither -short nor
// LOGEVENTS_UNIT_TESTS_ONLY=true is in effect.
func Unit() bool {
	if os.Getenv("LOGEVENTS_UNIT_TESTS_ONLY") == "true" {
		return true
	}
	if testing.Short() {
		return true
	}
	return os.Getenv("LOGEVENTS_RUN_INTEGRATION_TESTS") != "true"
}

// Integration returns true if running in integration test mode.
func Integration() bool {
	return !Unit()
}

// SkipIfUnit skips the test if running in unit test mode.
func SkipIfUnit(t testing.TB, message ...string) {
	t.Helper()
	if Unit() {
		msg := "Skipping integration test in unit mode"
		if len(message) > 0 {
			msg = message[0]
		}
		t.Skip(msg)
	}
}

// RequireEnv returns the value of key, skipping the test when it is unset.
// Integration tests use it to find the address of the service they need.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}
