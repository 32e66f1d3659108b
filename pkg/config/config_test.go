package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Workspace)
	assert.Equal(t, 8080, cfg.Port)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Equal(t, 500, cfg.Thresholds.MaxFileLines)
	assert.Equal(t, 10, cfg.Thresholds.MaxComplexity)
	assert.Equal(t, 8, cfg.Thresholds.MaxFanIn)
	assert.Equal(t, []string{"main", "init"}, cfg.DeadCode.EntryPoints)
	assert.True(t, cfg.DeadCode.ExemptExported)
	assert.True(t, cfg.DeadCode.ExemptTests)
	assert.Contains(t, cfg.Collect.Ignore, "target/")
	assert.Empty(t, cfg.Neo4j.URI)
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	toml := "port = 9000\n[thresholds]\nmax_complexity = 20\nmax_fan_in = 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archscope.toml"), []byte(toml), 0o644))

	t.Setenv("ARCHSCOPE_THRESHOLDS_MAX__FAN__IN", "4")
	t.Setenv("ARCHSCOPE_NEO4J_URI", "bolt://localhost:7687")

	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Int("port", 8080, "")
	f.String("log-file", "", "")
	require.NoError(t, f.Parse([]string{"--port", "9100", "--log-file", "run.log"}))

	cfg, err := Load(f)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port, "flag wins over file")
	assert.Equal(t, 20, cfg.Thresholds.MaxComplexity, "file wins over defaults")
	assert.Equal(t, 4, cfg.Thresholds.MaxFanIn, "env wins over file")
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, 500, cfg.Thresholds.MaxFileLines)
	assert.Equal(t, "run.log", cfg.LogFile)
}

func TestLoadExplicitYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	yaml := "deadcode:\n  entry_points: [main, run]\n  exempt_exported: false\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("config", "", "")
	require.NoError(t, f.Parse([]string{"--config", path}))

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "run"}, cfg.DeadCode.EntryPoints)
	assert.False(t, cfg.DeadCode.ExemptExported)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("config", "", "")
	require.NoError(t, f.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.toml")}))

	_, err := Load(f)
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "port", envKey("ARCHSCOPE_PORT"))
	assert.Equal(t, "neo4j.uri", envKey("ARCHSCOPE_NEO4J_URI"))
	assert.Equal(t, "thresholds.max_file_lines", envKey("ARCHSCOPE_THRESHOLDS_MAX__FILE__LINES"))
}
