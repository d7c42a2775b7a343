// Package config loads screenflow settings.
//
// Settings come from, in increasing priority: built-in defaults, a TOML or
// YAML file (default ~/.config/screenflow/config.toml), SCREENFLOW_*
// environment variables and finally command line flags applied by the
// caller. The merged result is checked with struct tag validation.
//
// Example config.toml:
//
//	[oracle]
//	url = "http://localhost:8000"
//	timeout = "30s"
//	images_interval = 3
//
//	[store]
//	driver = "sqlite"
//	dsn = "/var/lib/screenflow/flows.db"
//
//	[cache]
//	driver = "redis"
//
//	[redis]
//	addr = "localhost:6379"
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/screenflow/screenflow/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCREENFLOW_"

// Store, cache and lock drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"

	LockLocal = "local"
	LockRedis = "redis"
)

// Config is the full set of settings.
type Config struct {
	Oracle OracleConfig `toml:"oracle" yaml:"oracle"`
	Build  BuildConfig  `toml:"build" yaml:"build"`
	Store  StoreConfig  `toml:"store" yaml:"store"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Redis  RedisConfig  `toml:"redis" yaml:"redis"`
	Lock   LockConfig   `toml:"lock" yaml:"lock"`
	Render RenderConfig `toml:"render" yaml:"render"`
}

// OracleConfig locates the detection service.
type OracleConfig struct {
	URL            string        `toml:"url" yaml:"url" validate:"required,url"`
	Timeout        time.Duration `toml:"timeout" yaml:"timeout" validate:"gte=0"`
	ImagesInterval int           `toml:"images_interval" yaml:"images_interval" validate:"gte=1"`
	Retries        int           `toml:"retries" yaml:"retries" validate:"gte=1,lte=10"`
}

type BuildConfig struct {
	// MaxGap is the largest time between two detections, in the oracle's
	// units, that still counts as a transition.
	MaxGap float64 `toml:"max_gap" yaml:"max_gap" validate:"gt=0"`
}

// StoreConfig selects the flow store. DSN is a file path for sqlite and a
// connection URI for mongo; Dir is used by the file store.
type StoreConfig struct {
	Driver   string `toml:"driver" yaml:"driver" validate:"oneof=memory file sqlite mongo"`
	DSN      string `toml:"dsn" yaml:"dsn" validate:"required_if=Driver mongo"`
	Database string `toml:"database" yaml:"database" validate:"required_if=Driver mongo"`
	Dir      string `toml:"dir" yaml:"dir"`
}

type CacheConfig struct {
	Driver string `toml:"driver" yaml:"driver" validate:"oneof=none file redis"`
	Dir    string `toml:"dir" yaml:"dir"`
	// Scope separates the keys of environments sharing one cache.
	Scope string `toml:"scope" yaml:"scope"`
}

type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db" validate:"gte=0"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
}

type LockConfig struct {
	Driver string        `toml:"driver" yaml:"driver" validate:"oneof=local redis"`
	TTL    time.Duration `toml:"ttl" yaml:"ttl" validate:"gt=0"`
}

type RenderConfig struct {
	SpacingRatio float64 `toml:"spacing_ratio" yaml:"spacing_ratio" validate:"gt=0"`
	Scale        float64 `toml:"scale" yaml:"scale" validate:"gt=0"`
}

// Default returns the built-in settings: local oracle, file store, file
// cache and in-process locks.
func Default() *Config {
	return &Config{
		Oracle: OracleConfig{
			URL:            "http://localhost:8000",
			Timeout:        5 * time.Minute,
			ImagesInterval: 3,
			Retries:        3,
		},
		Build:  BuildConfig{MaxGap: 100},
		Store:  StoreConfig{Driver: StoreFile},
		Cache:  CacheConfig{Driver: CacheFile},
		Redis:  RedisConfig{Prefix: "screenflow:"},
		Lock:   LockConfig{Driver: LockLocal, TTL: 5 * time.Minute},
		Render: RenderConfig{SpacingRatio: 1.5, Scale: 0.25},
	}
}

// Dir returns ~/.config/screenflow.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "screenflow"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads path, applies environment overrides and validates the result.
// An empty path means DefaultPath, which may be absent; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "locate config")
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(path, data); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode YAML %s", path)
		}
	default:
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode TOML %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %s", path, undecoded[0])
		}
	}
	return nil
}

// ApplyEnv overrides settings from SCREENFLOW_* variables looked up with
// getenv. Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"ORACLE_URL":     &c.Oracle.URL,
		"STORE_DRIVER":   &c.Store.Driver,
		"STORE_DSN":      &c.Store.DSN,
		"STORE_DATABASE": &c.Store.Database,
		"STORE_DIR":      &c.Store.Dir,
		"CACHE_DRIVER":   &c.Cache.Driver,
		"CACHE_DIR":      &c.Cache.Dir,
		"CACHE_SCOPE":    &c.Cache.Scope,
		"REDIS_ADDR":     &c.Redis.Addr,
		"REDIS_PASSWORD": &c.Redis.Password,
		"REDIS_PREFIX":   &c.Redis.Prefix,
		"LOCK_DRIVER":    &c.Lock.Driver,
	}
	for name, dst := range str {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"ORACLE_IMAGES_INTERVAL": &c.Oracle.ImagesInterval,
		"ORACLE_RETRIES":         &c.Oracle.Retries,
		"REDIS_DB":               &c.Redis.DB,
	}
	for name, dst := range ints {
		if v := getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, name)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"BUILD_MAX_GAP":        &c.Build.MaxGap,
		"RENDER_SPACING_RATIO": &c.Render.SpacingRatio,
	}
	for name, dst := range floats {
		if v := getenv(EnvPrefix + name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, name)
			}
			*dst = f
		}
	}

	durations := map[string]*time.Duration{
		"ORACLE_TIMEOUT": &c.Oracle.Timeout,
		"LOCK_TTL":       &c.Lock.TTL,
	}
	for name, dst := range durations {
		if v := getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, name)
			}
			*dst = d
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and the cross-section rule that any
// redis driver needs redis.addr.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, formatValidationError(err), "invalid config")
	}
	if (c.Cache.Driver == CacheRedis || c.Lock.Driver == LockRedis) && c.Redis.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid config: redis.addr is required when a redis driver is selected")
	}
	return nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be an absolute URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	case "gt", "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, e.Tag(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
