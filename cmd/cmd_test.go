package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hbtap/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flag values persist on the package-level commands between runs.
	configFile, logLevel, validatePrint = "", "", false
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateDefaults(t *testing.T) {
	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")
}

func TestValidatePrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hbtap.yml")
	require.NoError(t, os.WriteFile(path, []byte("hbtap:\n  capture:\n    filter: \"tcp port 9100\"\n"), 0644))

	out, err := run(t, "validate", "-c", path, "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "hbtap:")
	assert.Contains(t, out, "filter: tcp port 9100")
	assert.Contains(t, out, "max_pending: 4096")
}

func TestValidateRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("hbtap:\n  output:\n    type: carrier-pigeon\n"), 0644))

	_, err := run(t, "validate", "-c", path)
	assert.Error(t, err)
}

func TestApplySniffFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(sniffCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"-r", "session.pcap", "-f", "tcp port 9000"}))

	cfg := config.Default()
	applySniffFlags(cmd, cfg)
	assert.Equal(t, config.EngineFile, cfg.Capture.Engine)
	assert.Equal(t, "session.pcap", cfg.Capture.File)
	assert.Equal(t, "tcp port 9000", cfg.Capture.Filter)
	assert.NoError(t, cfg.ValidateAndApplyDefaults())
}
