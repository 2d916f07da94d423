package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
upstreamBaseURL: http://guide.example.com
iconBaseURL: https://cdn.example.com
outputDir: /tmp/guide
channels:
  - id: abc.east
    name: ABC East
    lookupKey: abc
    language: en
  - id: cbs.east
    name: CBS East
    lookupKey: cbs
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "epggen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://guide.example.com", cfg.UpstreamBaseURL)
	require.Len(t, cfg.Channels, 2)
	assert.Equal(t, "abc.east", cfg.Channels[0].ID)
	assert.Equal(t, "en", cfg.Channels[0].Language)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 48, cfg.WindowHours)
	assert.Equal(t, 10, cfg.MaxConcurrency)
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 30*time.Minute, cfg.DefaultProgrammeDuration())
	assert.Equal(t, 48*time.Hour, cfg.Window())
	assert.Zero(t, cfg.RunTimeout())
}

func TestLoadDerivesChannelIDFromName(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
upstreamBaseURL: http://guide.example.com
channels:
  - name: E! Entertainment
    lookupKey: eentertainment
  - name: Télé Québec
    lookupKey: telequebec
  - id: cbs.east
    name: CBS East
    lookupKey: cbs
`))
	require.NoError(t, err)

	require.Len(t, cfg.Channels, 3)
	assert.Equal(t, "e.entertainment", cfg.Channels[0].ID)
	assert.Equal(t, "télé.québec", cfg.Channels[1].ID)
	// An explicit id is never overridden.
	assert.Equal(t, "cbs.east", cfg.Channels[2].ID)
}

func TestLoadRejectsCollidingDerivedIDs(t *testing.T) {
	_, err := Load(writeConfig(t, `
upstreamBaseURL: http://guide.example.com
channels:
  - {name: ABC East, lookupKey: abc1}
  - {name: "abc  east", lookupKey: abc2}
`))
	assert.ErrorContains(t, err, "duplicate channel id")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EPGGEN_UPSTREAM_BASE_URL", "http://override.example.com")
	t.Setenv("EPGGEN_MAX_CONCURRENCY", "3")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://override.example.com", cfg.UpstreamBaseURL)
	assert.Equal(t, 3, cfg.MaxConcurrency)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing_base_url",
			yaml: `
channels:
  - {id: a, name: A, lookupKey: a}
`,
		},
		{
			name: "bad_scheme",
			yaml: `
upstreamBaseURL: ftp://guide.example.com
channels:
  - {id: a, name: A, lookupKey: a}
`,
		},
		{
			name: "no_channels",
			yaml: `
upstreamBaseURL: http://guide.example.com
channels: []
`,
		},
		{
			name: "duplicate_channel_id",
			yaml: `
upstreamBaseURL: http://guide.example.com
channels:
  - {id: a, name: A, lookupKey: a}
  - {id: a, name: B, lookupKey: b}
`,
		},
		{
			name: "channel_without_name",
			yaml: `
upstreamBaseURL: http://guide.example.com
channels:
  - {id: a, lookupKey: a}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
