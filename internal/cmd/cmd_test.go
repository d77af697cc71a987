package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logevents.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testConfig = `
root = WARN buf
logger.org.example = DEBUG
observer.buf = buffer
observer.buf.capacity = 10
`

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "logevents", rootCmd.Use)

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"validate", "show", "demo"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeConfig(t, testConfig)
		out, err := executeCommand(rootCmd, "validate", "-c", path)
		require.NoError(t, err)
		assert.Contains(t, out, path+": OK (1 observers, 2 loggers)")
	})

	t.Run("unknown observer", func(t *testing.T) {
		path := writeConfig(t, "root = INFO ghost\n")
		_, err := executeCommand(rootCmd, "validate", "-c", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown observer")
	})
}

func TestShow(t *testing.T) {
	path := writeConfig(t, testConfig)
	out, err := executeCommand(rootCmd, "show", "-c", path, "-o", "yaml")
	require.NoError(t, err)

	var view treeView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, path, view.Config)
	assert.Equal(t, "buffer (capacity 10)", view.Observers["buf"])

	require.Len(t, view.Loggers, 3)
	assert.Equal(t, "root", view.Loggers[0].Name)
	assert.Equal(t, "WARN", view.Loggers[0].Level)
	assert.Equal(t, []string{"buf"}, view.Loggers[0].Observers)

	assert.Equal(t, "org.example", view.Loggers[2].Name)
	assert.Equal(t, "DEBUG", view.Loggers[2].Level)
	assert.Equal(t, "DEBUG", view.Loggers[2].OwnLevel)
	assert.Equal(t, []string{"buf"}, view.Loggers[2].Observers)

	_, err = executeCommand(rootCmd, "show", "-c", path, "-o", "xml")
	assert.Error(t, err)
}

func TestDemoWithoutConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.properties")
	out, err := executeCommand(rootCmd, "demo", "-c", path, "--events", "10", "--level", "ERROR", "--limit", "200")
	require.NoError(t, err)

	assert.Contains(t, out, "2 events in window, 2 matching")
	assert.Contains(t, out, "request 4 failed")
	assert.Contains(t, out, "request 9 failed")
	assert.Contains(t, out, "upstream returned 500")
	assert.NotContains(t, out, "handled request")
}

func TestDemoQueryByLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.properties")
	out, err := executeCommand(rootCmd, "demo", "-c", path, "--events", "9", "--level", "TRACE",
		"--logger", "demo.auth.**", "--limit", "200")
	require.NoError(t, err)

	assert.Contains(t, out, "9 events in window, 3 matching")
	assert.Contains(t, out, "demo.auth.session")
}
