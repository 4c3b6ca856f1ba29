// Package config loads the cv settings: a YAML file, .env files and
// environment variables, in increasing order of precedence. Command line flags
// override them in the cmd package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "cardvault.yaml"

// Environment variables overriding the file.
const (
	EnvJustTCGKey      = "JUSTTCG_API_KEY"
	EnvCardTraderToken = "CARDTRADER_TOKEN"
	EnvStore           = "CARDVAULT_STORE"
	EnvAddr            = "CARDVAULT_ADDR"
	EnvCurrency        = "CARDVAULT_CURRENCY"
	EnvLogLevel        = "CARDVAULT_LOG_LEVEL"
	EnvCacheDir        = "CARDVAULT_CACHE"
	EnvArchiveBucket   = "CARDVAULT_S3_BUCKET"
)

// Config holds the settings shared by all subcommands.
type Config struct {
	// Store is where collections live: a folder, or a sqlite:// or
	// postgres:// data source.
	Store    string `yaml:"store"`
	Addr     string `yaml:"addr"`
	Currency string `yaml:"currency"`
	LogLevel string `yaml:"log_level"`
	// CacheDir holds daily copies of provider responses. Empty disables it.
	CacheDir string `yaml:"cache_dir"`

	JustTCGKey      string `yaml:"justtcg_api_key,omitempty"`
	CardTraderToken string `yaml:"cardtrader_token,omitempty"`

	Archive Archive `yaml:"archive"`
}

// Archive locates the S3 backup of published reports.
type Archive struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Default returns the configuration used without file nor environment.
func Default() *Config {
	cache := ""
	if dir, err := os.UserCacheDir(); err == nil {
		cache = filepath.Join(dir, "cardvault")
	}
	return &Config{
		Store:    "collections",
		Addr:     "localhost:8080",
		Currency: "USD",
		LogLevel: "info",
		CacheDir: cache,
		Archive:  Archive{Prefix: "cardvault"},
	}
}

// Load reads the configuration file at path, if it exists, and applies the
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads the .env files into the environment. Missing files are
// ignored, and variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func (c *Config) applyEnv(getenv func(string) string) {
	for env, field := range map[string]*string{
		EnvJustTCGKey:      &c.JustTCGKey,
		EnvCardTraderToken: &c.CardTraderToken,
		EnvStore:           &c.Store,
		EnvAddr:            &c.Addr,
		EnvCurrency:        &c.Currency,
		EnvLogLevel:        &c.LogLevel,
		EnvCacheDir:        &c.CacheDir,
		EnvArchiveBucket:   &c.Archive.Bucket,
	} {
		if v := getenv(env); v != "" {
			*field = v
		}
	}
	c.Currency = strings.ToUpper(c.Currency)
}

// Validate checks the settings that would only fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.Store == "" {
		errs = append(errs, errors.New("store is required"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("invalid currency %q", c.Currency))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Save writes the configuration, without secrets, to path.
func (c *Config) Save(path string) error {
	out := *c
	out.JustTCGKey, out.CardTraderToken = "", ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Logger builds the logger at the configured level. Servers log JSON, the CLI
// logs human readable lines on stderr.
func (c *Config) Logger(production bool) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if production {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	return zc.Build()
}
