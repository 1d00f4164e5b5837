package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "datacollector", cmd.Name())

	status, _, err := cmd.Find([]string{"status"})
	require.NoError(t, err)
	assert.Equal(t, "status", status.Name())
}

func TestRootCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"config", "state-dir", "db", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "persistent flag %s", name)
	}
	for _, name := range []string{"forwarder", "interval", "ledger", "metrics-addr"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestRootCommand_BadPositionalsAreUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"none", nil},
		{"missing repo", []string{"sensor7", "/org/bld1/room5"}},
		{"extra", []string{"sensor7", "/org/bld1/room5", "/repoA", "/repoB"}},
		{"empty location", []string{"sensor7", "/", "/repoA"}},
		{"device with slash", []string{"room5/sensor7", "/org/bld1", "/repoA"}},
		{"empty repo", []string{"sensor7", "/org/bld1/room5", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitUsage, GetExitCode(err))
			assert.Contains(t, stderr, "Usage:")
		})
	}
}

func TestPositionalArgs_RejectsSubcommandDeviceName(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetErr(&bytes.Buffer{})
	err := positionalArgs(cmd, []string{"status", "/org/bld1/room5", "/repoA"})
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
	assert.ErrorContains(t, err, "status subcommand")
}

func TestRootCommand_UnknownFlagIsUsageError(t *testing.T) {
	_, stderr, err := execute(t, "sensor7", "/org/bld1/room5", "/repoA", "--bogus")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
	assert.Contains(t, stderr, "Usage:")
}

func TestRootCommand_InvalidConfigurationIsUsageError(t *testing.T) {
	_, _, err := execute(t, "sensor7", "/org/bld1/room5", "/repoA",
		"--state-dir", t.TempDir(), "--interval", "-1s")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
	assert.ErrorContains(t, err, "schedule.interval")
}
