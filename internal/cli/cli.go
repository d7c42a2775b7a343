package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/screenflow/screenflow/pkg/buildinfo"
	"github.com/screenflow/screenflow/pkg/cache"
	"github.com/screenflow/screenflow/pkg/config"
	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/httputil"
	"github.com/screenflow/screenflow/pkg/lock"
	"github.com/screenflow/screenflow/pkg/observability"
	"github.com/screenflow/screenflow/pkg/oracle"
	"github.com/screenflow/screenflow/pkg/pipeline"
	"github.com/screenflow/screenflow/pkg/render/nodelink"
	"github.com/screenflow/screenflow/pkg/store"
	"github.com/screenflow/screenflow/pkg/store/file"
	"github.com/screenflow/screenflow/pkg/store/memory"
	"github.com/screenflow/screenflow/pkg/store/mongo"
	"github.com/screenflow/screenflow/pkg/store/sqlite"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "screenflow"

	// retryDelay is the first backoff step between oracle attempts.
	retryDelay = time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is set by the --config flag. Empty means the default
	// location, which may be absent.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Screenflow turns screen recordings into navigation graphs",
		Long: `Screenflow sends the frames of a UI recording to a screen detection service,
merges the detections into a graph of screens and transitions, lays the graph
out on a grid and renders it.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	// A path set before the command is built stays the default.
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", c.ConfigPath, "config file (default ~/.config/screenflow/config.toml)")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.moveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.flowsCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration selected by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.ConfigPath)
}

// =============================================================================
// Runner Factory
// =============================================================================

// session bundles a runner with the resources it does not own.
type session struct {
	*pipeline.Runner
	cfg   *config.Config
	redis *redis.Client // closed separately unless the cache owns it
}

// Close releases the runner and any shared Redis client.
func (s *session) Close() error {
	err := s.Runner.Close()
	if s.redis != nil {
		if cerr := s.redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// renderOptions returns diagram settings from the config.
func (s *session) renderOptions(detailed bool) nodelink.Options {
	return nodelink.Options{
		Detailed:     detailed,
		SpacingRatio: s.cfg.Render.SpacingRatio,
		Scale:        s.cfg.Render.Scale,
	}
}

// newSession loads the config and wires a pipeline runner for CLI use.
func (c *CLI) newSession(ctx context.Context, noCache bool) (*session, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	hooks := observability.NewLogHooks(c.Logger)
	observability.SetBuildHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)

	s := &session{cfg: cfg}
	var rc *redis.Client
	if cfg.Cache.Driver == config.CacheRedis || cfg.Lock.Driver == config.LockRedis {
		rc = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rc.Ping(ctx).Err(); err != nil {
			rc.Close()
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to redis at %s", cfg.Redis.Addr)
		}
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		if rc != nil {
			rc.Close()
		}
		return nil, err
	}

	var ch cache.Cache
	s.redis = rc
	switch {
	case noCache || cfg.Cache.Driver == config.CacheNone:
		ch = cache.NewNullCache()
	case cfg.Cache.Driver == config.CacheRedis:
		ch = cache.NewRedisCacheFromClient(rc, cfg.Redis.Prefix)
		s.redis = nil
	default:
		ch = newFileCache(cfg.Cache, c.Logger)
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Lock.Driver == config.LockRedis {
		locker = lock.NewRedis(rc, cfg.Redis.Prefix, cfg.Lock.TTL, lock.WithLogger(c.Logger))
	}

	logger := c.Logger
	client, err := oracle.New(cfg.Oracle.URL,
		oracle.WithTimeout(cfg.Oracle.Timeout),
		oracle.WithInterval(cfg.Oracle.ImagesInterval),
		oracle.WithLogger(logger),
		oracle.WithPolicy(httputil.Policy{Attempts: cfg.Oracle.Retries, Delay: retryDelay}),
	)
	if err != nil {
		st.Close()
		if rc != nil {
			rc.Close()
		}
		return nil, err
	}

	keyer := cache.NewDefaultKeyer()
	if cfg.Cache.Scope != "" {
		keyer = cache.NewScopedKeyer(keyer, cfg.Cache.Scope+":")
	}
	s.Runner = pipeline.NewRunner(st, client, ch, keyer, locker, logger)
	return s, nil
}

// openStore opens the flow store selected by cfg.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite:
		path := cfg.DSN
		if path == "" {
			dir, err := config.Dir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "flows.db")
		}
		if path != sqlite.Memory {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "create store directory")
			}
		}
		return sqlite.Open(path)
	case config.StoreMongo:
		return mongo.Open(ctx, cfg.DSN, cfg.Database)
	default:
		return file.New(cfg.Dir)
	}
}

// newFileCache opens the file cache, falling back to no cache when the
// directory cannot be created.
func newFileCache(cfg config.CacheConfig, logger *log.Logger) cache.Cache {
	dir := cfg.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache()
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		logger.Warn("cache disabled", "dir", dir, "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/screenflow/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
