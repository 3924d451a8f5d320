package launcher

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-forks/bft"
)

func launch(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	err := newApp(&out, &logs).Run(append([]string{"forkschedule"}, args...))
	return out.String(), logs.String(), err
}

func TestLaunch_printsRulesPerHeight(t *testing.T) {
	out, logs, err := launch(t,
		"--preset", "switch",
		"--height", "99,100",
		"--contract.validators", "0x0000000000000000000000000000000000000001",
		"--log.format", "json",
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "99\t"))
	assert.Contains(t, lines[0], bft.RuleValidatorsFromExtraData)
	assert.NotContains(t, lines[0], bft.RuleValidatorsFromContract)
	assert.True(t, strings.HasPrefix(lines[1], "100\t"))
	assert.Contains(t, lines[1], bft.RuleValidatorsFromContract)
	assert.NotContains(t, lines[1], bft.RuleValidatorsFromExtraData)

	assert.Contains(t, logs, `"msg":"Loaded fork schedule"`)
	assert.Equal(t, 3, strings.Count(logs, `"msg":"Fork era ready"`))
}

func TestLaunch_defaultsToOneLinePerFork(t *testing.T) {
	out, _, err := launch(t, "--preset", "test", "--log.verbosity", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, want := range []string{"0\t", "1000\t", "2000\t"} {
		assert.True(t, strings.HasPrefix(lines[i], want), lines[i])
	}
}

// A contract era with no contract reader must abort before printing anything.
func TestLaunch_rejectsUnbuildableEra(t *testing.T) {
	out, logs, err := launch(t, "--preset", "switch")
	var cfgErr *bft.InvalidConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Empty(t, out)
	assert.Contains(t, logs, "Fork schedule rejected")
}

func TestLaunch_metrics(t *testing.T) {
	_, logs, err := launch(t, "--preset", "dev", "--metrics", "--log.format", "json")
	require.NoError(t, err)
	assert.Contains(t, logs, `"name":"bft_ruleset_builds_total"`)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(LoggingConfig{Verbosity: 6, Format: "text"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = newLogger(LoggingConfig{Verbosity: 3, Format: "yaml"}, &bytes.Buffer{})
	assert.Error(t, err)

	var buf bytes.Buffer
	log, err := newLogger(LoggingConfig{Verbosity: 2, Format: "json"}, &buf)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
