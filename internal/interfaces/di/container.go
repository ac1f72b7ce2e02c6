package di

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"

	"kilometers.ai/standin/internal/application/services"
	"kilometers.ai/standin/internal/core/binding"
	"kilometers.ai/standin/internal/core/redirect"
	"kilometers.ai/standin/internal/infrastructure/config"
	"kilometers.ai/standin/internal/infrastructure/host"
	"kilometers.ai/standin/internal/infrastructure/logging"
	"kilometers.ai/standin/internal/infrastructure/manifest"
	"kilometers.ai/standin/internal/infrastructure/metrics"
	"kilometers.ai/standin/internal/interfaces/cli"
	"kilometers.ai/standin/internal/interfaces/httpapi"
)

// Options controls where the container reads and writes
type Options struct {
	// ConfigPath overrides STANDIN_CONFIG_FILE and the default location
	ConfigPath string
	// Out receives command output and the launch journal
	Out io.Writer
	// ErrOut receives logs
	ErrOut io.Writer
}

// Container holds all application dependencies. The registry and everything
// behind it is built on first use so that command line overrides apply.
type Container struct {
	opts Options

	mu         sync.Mutex
	configRepo *config.CompositeRepository
	config     *config.Configuration
	logger     hclog.Logger

	registry *redirect.Registry
	metrics  *metrics.Observer
	journal  *host.Journal
	loader   *manifest.Loader
	service  *services.RedirectService

	CLIContainer *cli.CLIContainer
}

var _ cli.App = (*Container)(nil)

// NewContainer creates and configures the dependency injection container
func NewContainer(opts Options) (*Container, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}

	c := &Container{opts: opts}
	if err := c.Configure(opts.ConfigPath, nil); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}
	c.CLIContainer = &cli.CLIContainer{App: c, Out: opts.Out}
	return c, nil
}

// Configure loads configuration and layers o on top. It fails once the
// registry has been built.
func (c *Container) Configure(configPath string, o *config.Overrides) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.service != nil {
		return fmt.Errorf("configuration cannot change after the registry is built")
	}

	if c.configRepo == nil || (configPath != "" && configPath != c.configRepo.ConfigPath()) {
		c.configRepo = config.NewCompositeRepository(configPath)
	}

	loaded, err := c.configRepo.Load()
	if err != nil {
		return err
	}
	cfg := loaded.Apply(o)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	c.config = cfg
	c.logger = logging.New(logging.Options{
		Level:  level,
		JSON:   cfg.LogJSON,
		Output: c.opts.ErrOut,
	})
	return nil
}

// Config returns the effective configuration
func (c *Container) Config() *config.Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.Clone()
}

// ConfigPath returns the config file location
func (c *Container) ConfigPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configRepo.ConfigPath()
}

// SaveConfig writes the effective configuration to the config file
func (c *Container) SaveConfig() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configRepo.Save(c.config)
}

// Logger returns the root logger
func (c *Container) Logger() hclog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logger
}

// RedirectService builds the registry and ingests configured manifests
func (c *Container) RedirectService(ctx context.Context) (*services.RedirectService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.service != nil {
		return c.service, nil
	}
	if err := c.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	if len(c.config.Manifests) > 0 {
		if _, err := c.service.LoadManifests(ctx, c.config.Manifests...); err != nil {
			c.service = nil
			return nil, err
		}
	}
	return c.service, nil
}

// APIHandler returns the HTTP router over the redirect service
func (c *Container) APIHandler(ctx context.Context) (http.Handler, error) {
	service, err := c.RedirectService(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var metricsHandler http.Handler
	if c.metrics != nil {
		metricsHandler = c.metrics.Handler()
	}
	return httpapi.NewRouter(httpapi.NewHandler(service), metricsHandler, c.logger.Named("http")), nil
}

// Journal returns the host journal, nil before the registry is built
func (c *Container) Journal() *host.Journal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.journal
}

// GetCLIContainer returns the CLI container
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.CLIContainer
}

// Shutdown logs pending result launches; nothing else holds resources
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.journal != nil {
		if pending := c.journal.Pending(); len(pending) > 0 {
			c.logger.Warn("shutting down with results still pending", "count", len(pending))
		}
	}
	return ctx.Err()
}

// initializeComponents wires the registry stack; c.mu must be held
func (c *Container) initializeComponents() error {
	spec, err := c.config.BindingSpec()
	if err != nil {
		return err
	}
	policy, err := binding.New(spec)
	if err != nil {
		return fmt.Errorf("failed to build %s policy: %w", spec.Kind, err)
	}

	var observer redirect.Observer
	if c.config.MetricsEnabled {
		c.metrics = metrics.NewObserver(true)
		observer = c.metrics
	}

	registry, err := redirect.NewRegistry(policy,
		redirect.WithLogger(c.logger.Named("registry")),
		redirect.WithObserver(observer),
	)
	if err != nil {
		return err
	}

	c.registry = registry
	c.journal = host.NewJournal(c.opts.Out, c.logger.Named("host"), host.WithLimit(c.config.JournalSize))
	c.loader = manifest.NewLoader(c.logger.Named("manifest"))
	c.service = services.NewRedirectService(registry, c.loader, c.journal, c.logger.Named("service"))
	return nil
}
