// Package config loads siltengine's runtime configuration from a TOML
// file, with environment-variable overrides and documented defaults.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config mirrors the Database façade's knobs plus the surrounding
// service's listen address and compaction cadence.
type Config struct {
	DataDir                 string        `toml:"data_dir"`
	MaxMemTableSize         int           `toml:"max_mem_table_size"`
	CompactionInterval      time.Duration `toml:"-"`
	CompactionIntervalSecs  int64         `toml:"compaction_interval_secs"`
	CompactionSizeThreshold int64         `toml:"compaction_size_threshold"`
	ListenAddr              string        `toml:"listen_addr"`
}

// Defaults returns the documented out-of-the-box configuration: a
// "./data" directory, a 10 MiB MemTable threshold, a 60s compaction
// cadence (spec §6: "the scheduler calls compact every 60s"), a 4 MiB
// compaction size threshold, and an HTTP listener on :8080.
func Defaults() Config {
	return Config{
		DataDir:                 "./data",
		MaxMemTableSize:         10 << 20,
		CompactionInterval:      60 * time.Second,
		CompactionIntervalSecs:  60,
		CompactionSizeThreshold: 4 << 20,
		ListenAddr:              ":8080",
	}
}

// Load reads path (if non-empty) as a TOML document on top of Defaults,
// then applies SILTENGINE_-prefixed environment variable overrides.
// A non-existent path is not an error: Defaults alone apply.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.CompactionInterval = time.Duration(cfg.CompactionIntervalSecs) * time.Second
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SILTENGINE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SILTENGINE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SILTENGINE_MAX_MEM_TABLE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxMemTableSize = n
		}
	}
	if v := os.Getenv("SILTENGINE_COMPACTION_INTERVAL_SECS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.CompactionIntervalSecs = n
		}
	}
	if v := os.Getenv("SILTENGINE_COMPACTION_SIZE_THRESHOLD"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.CompactionSizeThreshold = n
		}
	}
}
