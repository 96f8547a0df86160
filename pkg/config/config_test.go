package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAMLMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gqlite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("block_cache_mb: 256\nprefetch_workers: 4\n"), 0o644))

	cfg, err := LoadYAML(path)
	require.NoError(t, err)
	require.Equal(t, 256, cfg.BlockCacheMB)
	require.Equal(t, 4, cfg.PrefetchWorkers)
	require.Equal(t, Default().DataDir, cfg.DataDir, "unset fields keep their default")
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("GQLITE_BLOCK_CACHE_MB", "512")
	t.Setenv("GQLITE_SYNC_WRITES", "true")

	cfg := LoadFromEnv(Default())
	require.Equal(t, 512, cfg.BlockCacheMB)
	require.True(t, cfg.SyncWrites)
}

func TestLoadFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("GQLITE_BLOCK_CACHE_MB", "not-a-number")

	cfg := LoadFromEnv(Default())
	require.Equal(t, Default().BlockCacheMB, cfg.BlockCacheMB)
}

func TestValidateRejectsBadWorkerCount(t *testing.T) {
	cfg := Default()
	cfg.PrefetchWorkers = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingDataDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	require.Error(t, cfg.Validate())
}
