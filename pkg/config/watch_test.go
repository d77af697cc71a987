package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

func TestWatchReappliesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logevents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: ERROR\n"), 0o644))

	reg, st := newTestRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, reg) }()

	require.Eventually(t, func() bool {
		return reg.Root().Level() == types.LevelError
	}, 5*time.Second, 10*time.Millisecond)

	// Give the watcher time to register before changing the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("root: DEBUG\n"), 0o644))
	require.Eventually(t, func() bool {
		return reg.Root().Level() == types.LevelDebug
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("root: DEBUG ghost\n"), 0o644))
	require.Eventually(t, func() bool {
		for _, e := range st.All() {
			if e.Level == status.LevelError && e.Message == "Failed to reload configuration from "+path {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, types.LevelDebug, reg.Root().Level(), "a broken file keeps the last configuration")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
