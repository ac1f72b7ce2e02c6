package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	"kilometers.ai/standin/internal/core/binding"
)

// Configuration is the resolved standin configuration
type Configuration struct {
	// HostNamespace qualifies placeholders written by class name only
	HostNamespace string `json:"host_namespace"`

	// Containers is the placeholder pool, or the fallback pool when Policy
	// is partitioned
	Containers []string `json:"containers"`

	// Partitions maps an activity category to its own placeholder pool
	Partitions map[string][]string `json:"partitions,omitempty"`

	Policy    string   `json:"policy"`
	Manifests []string `json:"manifests"`

	LogLevel string `json:"log_level"`
	LogJSON  bool   `json:"log_json"`

	ListenAddr     string `json:"listen_addr"`
	MetricsEnabled bool   `json:"metrics_enabled"`
	Debug          bool   `json:"debug"`

	// JournalSize caps how many launches the host journal keeps
	JournalSize int `json:"journal_size"`
}

// Overrides is a partial configuration produced by one source. Empty strings,
// empty collections and nil flags leave the lower layer untouched.
type Overrides struct {
	HostNamespace  string              `json:"host_namespace,omitempty"`
	Containers     []string            `json:"containers,omitempty"`
	Partitions     map[string][]string `json:"partitions,omitempty"`
	Policy         string              `json:"policy,omitempty"`
	Manifests      []string            `json:"manifests,omitempty"`
	LogLevel       string              `json:"log_level,omitempty"`
	LogJSON        *bool               `json:"log_json,omitempty"`
	ListenAddr     string              `json:"listen_addr,omitempty"`
	MetricsEnabled *bool               `json:"metrics_enabled,omitempty"`
	Debug          *bool               `json:"debug,omitempty"`
	JournalSize    int                 `json:"journal_size,omitempty"`
}

// DefaultJournalSize is the number of launches kept by default
const DefaultJournalSize = 1000

// Default returns the built-in configuration
func Default() *Configuration {
	return &Configuration{
		Policy:         string(binding.KindRoundRobin),
		Containers:     []string{},
		Manifests:      []string{},
		LogLevel:       "info",
		ListenAddr:     "127.0.0.1:8089",
		MetricsEnabled: true,
		JournalSize:    DefaultJournalSize,
	}
}

// Apply returns a copy of c with o layered on top
func (c *Configuration) Apply(o *Overrides) *Configuration {
	result := c.Clone()
	if o == nil {
		return result
	}

	if o.HostNamespace != "" {
		result.HostNamespace = o.HostNamespace
	}
	if len(o.Containers) > 0 {
		result.Containers = slices.Clone(o.Containers)
	}
	if len(o.Partitions) > 0 {
		result.Partitions = clonePartitions(o.Partitions)
	}
	if o.Policy != "" {
		result.Policy = o.Policy
	}
	if len(o.Manifests) > 0 {
		result.Manifests = slices.Clone(o.Manifests)
	}
	if o.LogLevel != "" {
		result.LogLevel = o.LogLevel
	}
	if o.ListenAddr != "" {
		result.ListenAddr = o.ListenAddr
	}
	if o.JournalSize != 0 {
		result.JournalSize = o.JournalSize
	}

	if o.LogJSON != nil {
		result.LogJSON = *o.LogJSON
	}
	if o.MetricsEnabled != nil {
		result.MetricsEnabled = *o.MetricsEnabled
	}
	if o.Debug != nil {
		result.Debug = *o.Debug
	}
	return result
}

// Clone returns a deep copy of c
func (c *Configuration) Clone() *Configuration {
	out := *c
	out.Containers = slices.Clone(c.Containers)
	out.Manifests = slices.Clone(c.Manifests)
	out.Partitions = clonePartitions(c.Partitions)
	return &out
}

// Validate checks the configuration is usable
func (c *Configuration) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	kind, err := binding.ParseKind(c.Policy)
	if err != nil {
		return fmt.Errorf("policy must be one of: %s", kindList())
	}

	if kind == binding.KindPartitioned {
		if len(c.Partitions) == 0 && len(c.Containers) == 0 {
			return fmt.Errorf("partitioned policy needs partitions or containers")
		}
		for category, pool := range c.Partitions {
			if strings.TrimSpace(category) == "" {
				return fmt.Errorf("partition category cannot be empty")
			}
			if len(pool) == 0 {
				return fmt.Errorf("partition %s has no containers", category)
			}
		}
	} else if len(c.Partitions) > 0 {
		return fmt.Errorf("partitions are only used by the %s policy", binding.KindPartitioned)
	}

	for _, entry := range c.Containers {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("container entries cannot be empty")
		}
	}

	if c.LogLevel != "" && c.LogLevel != "off" && hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("log level must be one of: trace, debug, info, warn, error, off")
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.JournalSize <= 0 {
		return fmt.Errorf("journal size must be positive")
	}

	return nil
}

// BindingSpec describes the stock policy this configuration selects
func (c *Configuration) BindingSpec() (binding.Spec, error) {
	kind, err := binding.ParseKind(c.Policy)
	if err != nil {
		return binding.Spec{}, err
	}
	return binding.Spec{
		Kind:          kind,
		HostNamespace: c.HostNamespace,
		Containers:    slices.Clone(c.Containers),
		Partitions:    clonePartitions(c.Partitions),
	}, nil
}

func clonePartitions(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for category, pool := range in {
		out[category] = slices.Clone(pool)
	}
	return out
}

func kindList() string {
	kinds := binding.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
