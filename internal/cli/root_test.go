// internal/cli/root_test.go
package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/models"
)

const recordsFile = `[
  {"id": "biz-a", "sector": "dental", "city": "Montreal", "coordinates": {"lat": 45.5017, "lng": -73.5673},
   "metrics": {"seo": 90}, "potential": "high", "status": "prospect"},
  {"id": "biz-b", "sector": "retail", "city": "Montreal", "coordinates": {"lat": 45.5020, "lng": -73.5670},
   "metrics": {"seo": 85}, "potential": "medium", "status": "client"},
  {"id": "biz-c", "sector": "dental", "city": "Quebec", "coordinates": {"lat": 46.8139, "lng": -71.2080},
   "metrics": {"seo": 40}, "potential": "low", "status": "contacted"},
  {"id": "biz-d", "sector": "retail", "city": "Laval", "coordinates": {"lat": 45.6066, "lng": -73.7124},
   "metrics": {"seo": 70}, "potential": "high", "status": "prospect"}
]`

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "businesses.json")
	require.NoError(t, os.WriteFile(path, []byte(recordsFile), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "bizintel", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"score", "match", "find-matches", "cluster", "stats", "activities"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "input", "log-level", "output", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %q", flag)
	}
	assert.Equal(t, OutputJSON, cmd.PersistentFlags().Lookup("output").DefValue)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit: unknown, built: unknown)")
}

func TestPersistentPreRun_Errors(t *testing.T) {
	input := writeRecords(t)

	tests := []struct {
		name string
		args []string
		code apperrors.ErrorCode
	}{
		{name: "missing input", args: []string{"score"}, code: apperrors.ErrCodeValidation},
		{name: "bad output", args: []string{"score", "-i", input, "-o", "yaml"}, code: apperrors.ErrCodeValidation},
		{name: "missing file", args: []string{"score", "-i", filepath.Join(t.TempDir(), "nope.json")}, code: apperrors.ErrCodeProfileSourceFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("intelligence:\n  top_n: 1\n"), 0o600))

	out, _, err := run(t, "stats", "-i", writeRecords(t), "-c", cfgPath)
	require.NoError(t, err)

	var report models.StatsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.HighPotentialLeads, 1)
	assert.Equal(t, "biz-a", report.HighPotentialLeads[0].ID)

	_, _, err = run(t, "stats", "-i", writeRecords(t), "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
