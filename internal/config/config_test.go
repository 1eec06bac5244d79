package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwHC-gko/ipipe/internal/config"
)

func TestLoad_WritesDefaultFileOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipiped.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	// The default file must now exist and parse back to the defaults.
	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Listen, cfg.Listen)
	assert.Equal(t, config.Default().Log.Level, cfg.Log.Level)
	require.Len(t, cfg.Pipes, 1)
	assert.Equal(t, "applog", cfg.Pipes[0].Name)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ipiped.yaml")
	content := `
listen: ""
data_dir: ` + dir + `
log:
  level: debug
pipes:
  - name: audit
    sink: audit.out
    max_size_mb: 5
  - name: events
    sink: /var/log/events.out
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Pipes, 2)
	assert.Equal(t, "audit", cfg.Pipes[0].Name)
	assert.Equal(t, 5, cfg.Pipes[0].MaxSizeMB)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(dir, "audit.out"), cfg.SinkPath(cfg.Pipes[0]))
	assert.Equal(t, "/var/log/events.out", cfg.SinkPath(cfg.Pipes[1]))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "bad listen address",
			mutate:  func(c *config.Config) { c.Listen = "not-an-address" },
			wantErr: "listen",
		},
		{
			name: "invalid pipe name",
			mutate: func(c *config.Config) {
				c.Pipes = append(c.Pipes, config.Pipe{Name: "bad/name", Sink: "x.out"})
			},
			wantErr: "pipes[1]",
		},
		{
			name: "missing sink",
			mutate: func(c *config.Config) {
				c.Pipes = append(c.Pipes, config.Pipe{Name: "nosink"})
			},
			wantErr: "sink is required",
		},
		{
			name: "duplicate names",
			mutate: func(c *config.Config) {
				c.Pipes = append(c.Pipes, config.Pipe{Name: "applog", Sink: "other.out"})
			},
			wantErr: "duplicate name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = "bogus"
	cfg.Pipes = append(cfg.Pipes, config.Pipe{Name: "", Sink: ""})

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
	assert.Contains(t, err.Error(), "pipes[1]")
	assert.Contains(t, err.Error(), "sink is required")
}
