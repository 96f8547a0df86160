// Package config resolves gqlite's tunable settings from three layers,
// lowest precedence first: built-in defaults, an optional YAML file named
// by the CLI's --config flag, and environment variables. This mirrors the
// reference deployment model of defaults overridden by a config file
// overridden by the environment, except gqlite has no Neo4j-compatible
// surface to preserve, so the env vars are its own GQLITE_-prefixed set.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the storage, graph and Cypher layers read at
// startup. Fields absent from the YAML file keep Default()'s values. A
// zero BlockCacheMB or IndexCacheMB selects the storage engine's own
// default size; Validate rejects zero PrefetchWorkers, zero
// VarLengthCeiling and an empty DataDir (unless InMemory).
type Config struct {
	// DataDir is the directory BadgerDB stores its files in.
	DataDir string `yaml:"data_dir"`
	// InMemory runs against the in-memory storage engine
	// (storage.MemoryEngine) instead of a BadgerDB at DataDir.
	InMemory bool `yaml:"in_memory"`
	// SyncWrites forces fsync after every write (spec.md §4.2: non-sync by default).
	SyncWrites bool `yaml:"sync_writes"`
	// BlockCacheMB sizes the storage engine's block cache.
	BlockCacheMB int `yaml:"block_cache_mb"`
	// IndexCacheMB sizes the storage engine's table-index cache.
	IndexCacheMB int `yaml:"index_cache_mb"`
	// PrefetchWorkers is the fixed worker-pool size used by shortest-path
	// search (spec.md §4.4; reference value 8).
	PrefetchWorkers int `yaml:"prefetch_workers"`
	// VarLengthCeiling clamps an unbounded upper hop count (`*N..`) in
	// Cypher queries (spec.md §4.5; reference value 20).
	VarLengthCeiling int `yaml:"var_length_ceiling"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns gqlite's built-in configuration. PrefetchWorkers and
// VarLengthCeiling match the reference implementation's fixed values; the
// cache sizes are smaller than the reference's 512 MiB block cache.
func Default() Config {
	return Config{
		DataDir:          "./graphdb",
		SyncWrites:       false,
		BlockCacheMB:     64,
		IndexCacheMB:     16,
		PrefetchWorkers:  8,
		VarLengthCeiling: 20,
		LogLevel:         "info",
	}
}

// LoadYAML reads a YAML config file at path and overlays it on top of
// Default(). A missing file is not an error: the defaults are returned
// unchanged, matching the optional-file policy spec.md's ambient config
// layer calls for.
func LoadYAML(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv overlays GQLITE_* environment variables on top of base,
// taking precedence over both defaults and the YAML file. Malformed
// numeric/boolean values are ignored, leaving base's value in place,
// since a misconfigured environment should degrade, not crash, a
// long-running embedded process.
func LoadFromEnv(base Config) Config {
	cfg := base
	if v, ok := os.LookupEnv("GQLITE_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := lookupBool("GQLITE_IN_MEMORY"); ok {
		cfg.InMemory = v
	}
	if v, ok := lookupBool("GQLITE_SYNC_WRITES"); ok {
		cfg.SyncWrites = v
	}
	if v, ok := lookupInt("GQLITE_BLOCK_CACHE_MB"); ok {
		cfg.BlockCacheMB = v
	}
	if v, ok := lookupInt("GQLITE_INDEX_CACHE_MB"); ok {
		cfg.IndexCacheMB = v
	}
	if v, ok := lookupInt("GQLITE_PREFETCH_WORKERS"); ok {
		cfg.PrefetchWorkers = v
	}
	if v, ok := lookupInt("GQLITE_VAR_LENGTH_CEILING"); ok {
		cfg.VarLengthCeiling = v
	}
	if v, ok := os.LookupEnv("GQLITE_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	return cfg
}

func lookupBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func lookupInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate rejects configurations that would misbehave rather than merely
// underperform: a non-positive worker pool would deadlock shortest-path
// search, and a ceiling below 1 would make every unbounded
// variable-length query (`*N..` with N >= 1) return nothing.
func (c Config) Validate() error {
	if c.PrefetchWorkers < 1 {
		return fmt.Errorf("config: prefetch_workers must be >= 1, got %d", c.PrefetchWorkers)
	}
	if c.VarLengthCeiling < 1 {
		return fmt.Errorf("config: var_length_ceiling must be >= 1, got %d", c.VarLengthCeiling)
	}
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("config: data_dir must be set unless in_memory is true")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unrecognized log_level %q", c.LogLevel)
	}
	return nil
}
