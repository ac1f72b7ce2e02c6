package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kilometers.ai/standin/internal/core/binding"
)

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Configuration) {},
		},
		{
			name:   "hashed with containers",
			mutate: func(c *Configuration) { c.Policy = "hashed"; c.Containers = []string{"A"} },
		},
		{
			name: "partitioned with partitions",
			mutate: func(c *Configuration) {
				c.Policy = "partitioned"
				c.Partitions = map[string][]string{"singleTop": {"TopA"}}
			},
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Configuration) { c.Policy = "random" },
			wantErr: "policy must be one of: round_robin, hashed, partitioned",
		},
		{
			name:    "partitioned without pools",
			mutate:  func(c *Configuration) { c.Policy = "partitioned" },
			wantErr: "partitioned policy needs partitions or containers",
		},
		{
			name: "empty partition",
			mutate: func(c *Configuration) {
				c.Policy = "partitioned"
				c.Partitions = map[string][]string{"singleTop": nil}
			},
			wantErr: "partition singleTop has no containers",
		},
		{
			name:    "partitions without partitioned policy",
			mutate:  func(c *Configuration) { c.Partitions = map[string][]string{"x": {"A"}} },
			wantErr: "partitions are only used by the partitioned policy",
		},
		{
			name:    "blank container",
			mutate:  func(c *Configuration) { c.Containers = []string{"A", " "} },
			wantErr: "container entries cannot be empty",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Configuration) { c.LogLevel = "loud" },
			wantErr: "log level must be one of",
		},
		{
			name:    "missing listen address",
			mutate:  func(c *Configuration) { c.ListenAddr = "" },
			wantErr: "listen address is required",
		},
		{
			name:    "zero journal size",
			mutate:  func(c *Configuration) { c.JournalSize = 0 },
			wantErr: "journal size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	var nilConfig *Configuration
	assert.Error(t, nilConfig.Validate())
}

func TestConfiguration_Apply(t *testing.T) {
	base := Default()
	base.Containers = []string{"A"}

	got := base.Apply(&Overrides{
		HostNamespace:  "com.host.app",
		Partitions:     map[string][]string{"singleTop": {"TopA"}},
		MetricsEnabled: boolPtr(false),
		LogJSON:        boolPtr(true),
	})

	assert.Equal(t, "com.host.app", got.HostNamespace)
	assert.Equal(t, []string{"A"}, got.Containers)
	assert.False(t, got.MetricsEnabled)
	assert.True(t, got.LogJSON)
	assert.True(t, base.MetricsEnabled, "apply does not touch the receiver")
	assert.Empty(t, base.HostNamespace)

	assert.Equal(t, base, base.Apply(nil))
}

func TestConfiguration_BindingSpec(t *testing.T) {
	c := Default()
	c.Policy = "Partitioned"
	c.HostNamespace = "com.host.app"
	c.Containers = []string{"Fallback"}
	c.Partitions = map[string][]string{"singleTop": {"TopA", "TopB"}}

	spec, err := c.BindingSpec()
	require.NoError(t, err)
	assert.Equal(t, binding.KindPartitioned, spec.Kind)
	assert.Equal(t, "com.host.app", spec.HostNamespace)

	policy, err := binding.New(spec)
	require.NoError(t, err)
	assert.NotNil(t, policy)

	c.Policy = "nope"
	_, err = c.BindingSpec()
	assert.ErrorIs(t, err, binding.ErrUnknownKind)
}
