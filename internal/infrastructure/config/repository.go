package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Environment variables read by EnvironmentSource
const (
	EnvConfigFile     = "STANDIN_CONFIG_FILE"
	EnvHostNamespace  = "STANDIN_HOST_NAMESPACE"
	EnvContainers     = "STANDIN_CONTAINERS"
	EnvPartitions     = "STANDIN_PARTITIONS"
	EnvPolicy         = "STANDIN_POLICY"
	EnvManifests      = "STANDIN_MANIFESTS"
	EnvLogLevel       = "STANDIN_LOG_LEVEL"
	EnvLogJSON        = "STANDIN_LOG_JSON"
	EnvListenAddr     = "STANDIN_LISTEN_ADDR"
	EnvMetricsEnabled = "STANDIN_METRICS"
	EnvDebug          = "STANDIN_DEBUG"
	EnvJournalSize    = "STANDIN_JOURNAL_SIZE"
)

// Source is one configuration layer
type Source interface {
	Load() (*Overrides, error)
	// Priority orders layers; lower numbers win
	Priority() int
	Name() string
}

// CompositeRepository merges configuration sources over the defaults
type CompositeRepository struct {
	mu         sync.Mutex
	sources    []Source
	configPath string

	cached    *Configuration
	timestamp time.Time
	ttl       time.Duration
}

// NewCompositeRepository creates a repository reading the environment and the
// config file. An empty configPath uses STANDIN_CONFIG_FILE, then the default
// location under the home directory.
func NewCompositeRepository(configPath string) *CompositeRepository {
	if configPath == "" {
		configPath = os.Getenv(EnvConfigFile)
	}
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	repo := &CompositeRepository{
		configPath: configPath,
		ttl:        5 * time.Minute,
	}
	repo.AddSource(NewEnvironmentSource())
	repo.AddSource(NewFileSource(configPath))
	return repo
}

// AddSource adds a configuration layer and drops the cached result
func (r *CompositeRepository) AddSource(source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
	r.cached = nil
}

// Load returns the merged configuration
func (r *CompositeRepository) Load() (*Configuration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && time.Since(r.timestamp) < r.ttl {
		return r.cached.Clone(), nil
	}

	sorted := make([]Source, len(r.sources))
	copy(sorted, r.sources)
	// lowest priority first so that higher ones overwrite it
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})

	config := Default()
	for _, source := range sorted {
		overrides, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s configuration: %w", source.Name(), err)
		}
		config = config.Apply(overrides)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	r.cached = config
	r.timestamp = time.Now()
	return config.Clone(), nil
}

// Save writes config to the config file
func (r *CompositeRepository) Save(config *Configuration) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(r.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	r.Invalidate()
	return nil
}

// Invalidate drops the cached configuration
func (r *CompositeRepository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
}

// ConfigPath returns the config file location
func (r *CompositeRepository) ConfigPath() string {
	return r.configPath
}

// DefaultConfigPath returns $HOME/.standin/config.json
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".standin-config.json"
	}
	return filepath.Join(homeDir, ".standin", "config.json")
}

// FileSource loads a JSON config file. A missing file is an empty layer.
type FileSource struct {
	filePath string
}

// NewFileSource creates a file configuration source
func NewFileSource(filePath string) *FileSource {
	return &FileSource{filePath: filePath}
}

func (f *FileSource) Load() (*Overrides, error) {
	data, err := os.ReadFile(f.filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var overrides Overrides
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&overrides); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", f.filePath, err)
	}
	return &overrides, nil
}

func (f *FileSource) Priority() int { return 100 }

func (f *FileSource) Name() string { return "file" }

// EnvironmentSource loads STANDIN_* environment variables
type EnvironmentSource struct {
	lookup func(string) (string, bool)
}

// NewEnvironmentSource creates an environment configuration source
func NewEnvironmentSource() *EnvironmentSource {
	return &EnvironmentSource{lookup: os.LookupEnv}
}

func (e *EnvironmentSource) Load() (*Overrides, error) {
	o := &Overrides{
		HostNamespace: e.get(EnvHostNamespace),
		Policy:        e.get(EnvPolicy),
		LogLevel:      e.get(EnvLogLevel),
		ListenAddr:    e.get(EnvListenAddr),
		Containers:    splitList(e.get(EnvContainers)),
		Manifests:     splitList(e.get(EnvManifests)),
	}

	if val := e.get(EnvPartitions); val != "" {
		partitions, err := ParsePartitions(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvPartitions, err)
		}
		o.Partitions = partitions
	}

	if val := e.get(EnvJournalSize); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer, got %q", EnvJournalSize, val)
		}
		o.JournalSize = size
	}

	var err error
	if o.LogJSON, err = e.flag(EnvLogJSON); err != nil {
		return nil, err
	}
	if o.MetricsEnabled, err = e.flag(EnvMetricsEnabled); err != nil {
		return nil, err
	}
	if o.Debug, err = e.flag(EnvDebug); err != nil {
		return nil, err
	}
	return o, nil
}

func (e *EnvironmentSource) Priority() int { return 10 }

func (e *EnvironmentSource) Name() string { return "environment" }

func (e *EnvironmentSource) get(key string) string {
	val, _ := e.lookup(key)
	return strings.TrimSpace(val)
}

func (e *EnvironmentSource) flag(key string) (*bool, error) {
	val := e.get(key)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, fmt.Errorf("%s must be a boolean, got %q", key, val)
	}
	return &b, nil
}

// ParsePartitions parses "category=a,b;other=c" into per-category pools
func ParsePartitions(value string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		category, pool, ok := strings.Cut(part, "=")
		category = strings.TrimSpace(category)
		if !ok || category == "" {
			return nil, fmt.Errorf("invalid partition %q, expected category=container[,container]", part)
		}
		out[category] = splitList(pool)
	}
	return out, nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
