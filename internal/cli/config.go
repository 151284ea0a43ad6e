package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/mailframe/internal/server"
	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/ledger"
	"github.com/matzehuels/mailframe/pkg/pipeline"
)

// configEnv overrides the config file location.
const configEnv = "MAILFRAME_CONFIG"

// Config is the contents of config.toml.
//
//	[export]
//	table_layout = true
//	scale = 2.0
//
//	[fonts]
//	dirs = ["~/Library/Fonts"]
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[ledger]
//	backend = "sqlite"
//	sqlite_path = "~/.local/share/mailframe/ledger.db"
//	admin_secret = "change-me"
//
//	[server]
//	addr = "127.0.0.1:8080"
type Config struct {
	Export ExportConfig  `toml:"export"`
	Fonts  FontsConfig   `toml:"fonts"`
	Cache  CacheConfig   `toml:"cache"`
	Ledger LedgerConfig  `toml:"ledger"`
	Server server.Config `toml:"server"`
}

type ExportConfig struct {
	TableLayout bool    `toml:"table_layout"`
	Scale       float64 `toml:"scale"`
}

type FontsConfig struct {
	Dirs []string `toml:"dirs"`
}

// CacheConfig selects the payload cache backend.
type CacheConfig struct {
	cache.Config
	TTL duration `toml:"ttl"`
}

// LedgerConfig selects where credits are kept. It defaults to a file store
// outside the cache directory so that clearing the cache keeps credits.
type LedgerConfig struct {
	cache.Config
	InitialCredits int    `toml:"initial_credits"`
	ResetCode      string `toml:"reset_code"`
	AdminSecret    string `toml:"admin_secret"`
}

func (l LedgerConfig) options(logger *log.Logger) ledger.Options {
	return ledger.Options{
		InitialCredits: l.InitialCredits,
		ResetCode:      l.ResetCode,
		AdminSecret:    l.AdminSecret,
		Logger:         logger,
	}
}

// duration decodes TOML strings such as "90m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{
		Export: ExportConfig{TableLayout: true, Scale: pipeline.DefaultScale},
		Cache: CacheConfig{
			Config: cache.Config{Backend: cache.BackendFile},
			TTL:    duration{pipeline.DefaultTTL},
		},
		Ledger: LedgerConfig{
			Config:         cache.Config{Backend: cache.BackendFile},
			InitialCredits: ledger.DefaultCredits,
			ResetCode:      ledger.DefaultResetCode,
		},
		Server: server.Config{Addr: server.DefaultAddr},
	}
	if dir, err := cacheDir(); err == nil {
		cfg.Cache.Dir = dir
	}
	if dir, err := dataDir(); err == nil {
		cfg.Ledger.Dir = filepath.Join(dir, "ledger")
	}
	return cfg
}

// LoadConfig reads path over the defaults. An empty path reads the default
// location, where a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = os.Getenv(configEnv)
		explicit = path != ""
	}
	if !explicit {
		p, err := configPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return nil, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(names, ", "))
	}

	cfg.Fonts.Dirs = expandAll(cfg.Fonts.Dirs)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	cfg.Cache.SQLitePath = expandHome(cfg.Cache.SQLitePath)
	cfg.Ledger.Dir = expandHome(cfg.Ledger.Dir)
	cfg.Ledger.SQLitePath = expandHome(cfg.Ledger.SQLitePath)
	if err := pipeline.ValidateScale(cfg.Export.Scale); err != nil {
		return nil, fmt.Errorf("load config %s: export.scale: %w", path, err)
	}
	return cfg, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/mailframe/).
func cacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// dataDir returns the data directory (~/.local/share/mailframe/).
func dataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// configPath returns the default config file (~/.config/mailframe/config.toml).
func configPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func displayConfigPath() string {
	p, err := configPath()
	if err != nil {
		return "$XDG_CONFIG_HOME/" + appName + "/config.toml"
	}
	return p
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}

func expandAll(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = expandHome(p)
	}
	return out
}
