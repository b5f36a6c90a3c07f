package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/VeltarosLabs/electorium/internal/fuzz"
)

// DefaultPath is read when no config file is named and it exists.
const DefaultPath = "electorium.toml"

type Config struct {
	Log     LogConfig     `toml:"log"`
	Storage StorageConfig `toml:"data"`
	Fuzz    FuzzConfig    `toml:"fuzz"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug|info|warn|error
	Format string `toml:"format"` // json|text
}

type StorageConfig struct {
	DataDir string `toml:"dir"`
}

type FuzzConfig struct {
	Format string `toml:"format"`
	// Names is a name table file for the named format; empty means built in.
	Names      string `toml:"names"`
	Workers    int    `toml:"workers"`
	Iterations int    `toml:"iterations"`
	MaxRecords int    `toml:"max_records"`
	Seed       uint64 `toml:"seed"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Fuzz: FuzzConfig{
			Format:     fuzz.FormatNamed,
			Workers:    runtime.NumCPU(),
			Iterations: 100_000,
			MaxRecords: 64,
			Seed:       1,
		},
	}
}

// Load layers the TOML file at path and then ELECTORIUM_* environment
// variables over Default. An empty path reads DefaultPath if it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := decodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg.Log.Level = envOr("ELECTORIUM_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("ELECTORIUM_LOG_FORMAT", cfg.Log.Format)
	cfg.Storage.DataDir = envOr("ELECTORIUM_DATA_DIR", cfg.Storage.DataDir)
	cfg.Fuzz.Format = envOr("ELECTORIUM_FUZZ_FORMAT", cfg.Fuzz.Format)
	cfg.Fuzz.Names = envOr("ELECTORIUM_FUZZ_NAMES", cfg.Fuzz.Names)
	cfg.Fuzz.Workers = envOrInt("ELECTORIUM_FUZZ_WORKERS", cfg.Fuzz.Workers)
	cfg.Fuzz.Iterations = envOrInt("ELECTORIUM_FUZZ_ITERATIONS", cfg.Fuzz.Iterations)
	cfg.Fuzz.MaxRecords = envOrInt("ELECTORIUM_FUZZ_MAX_RECORDS", cfg.Fuzz.MaxRecords)
	cfg.Fuzz.Seed = envOrUint64("ELECTORIUM_FUZZ_SEED", cfg.Fuzz.Seed)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

func (cfg Config) Validate() error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", cfg.Log.Level)
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %q", cfg.Log.Format)
	}

	if cfg.Storage.DataDir == "" {
		return errors.New("data.dir must not be empty")
	}
	if !slices.Contains(fuzz.Formats(), cfg.Fuzz.Format) {
		return fmt.Errorf("invalid fuzz.format: %q (want one of %s)", cfg.Fuzz.Format, strings.Join(fuzz.Formats(), ", "))
	}
	if cfg.Fuzz.Workers <= 0 || cfg.Fuzz.Workers > 1024 {
		return fmt.Errorf("fuzz.workers out of range: %d", cfg.Fuzz.Workers)
	}
	if cfg.Fuzz.Iterations < 0 {
		return fmt.Errorf("fuzz.iterations must not be negative: %d", cfg.Fuzz.Iterations)
	}
	if cfg.Fuzz.MaxRecords <= 0 {
		return fmt.Errorf("fuzz.max_records must be positive: %d", cfg.Fuzz.MaxRecords)
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrUint64(key string, def uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return def
	}
	return n
}
