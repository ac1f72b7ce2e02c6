package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"kilometers.ai/standin/internal/application/services"
	"kilometers.ai/standin/internal/infrastructure/config"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// App is the wired application the commands drive
type App interface {
	// Configure reloads configuration from configPath (empty keeps the
	// current file) and layers o on top
	Configure(configPath string, o *config.Overrides) error
	Config() *config.Configuration
	ConfigPath() string
	// SaveConfig writes the effective configuration to ConfigPath
	SaveConfig() error
	Logger() hclog.Logger

	// RedirectService builds the registry and ingests the configured
	// manifests on first use
	RedirectService(ctx context.Context) (*services.RedirectService, error)
	APIHandler(ctx context.Context) (http.Handler, error)
}

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	App App
	Out io.Writer
}

func (c *CLIContainer) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// NewRootCommand represents the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "standin",
		Short: "standin - runtime component redirection for plugins",
		Long: `standin binds components declared by plugins to placeholder components the
host has declared, and rewrites launch requests so the host starts the
placeholder with enough side payload to attach the plugin component.

Plugin manifests (JSON, YAML or HCL) are loaded from the paths given with
--manifest or configured under "manifests".`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigurationOverrides(cmd, container); err != nil {
				return fmt.Errorf("failed to apply configuration overrides: %w", err)
			}
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))
	rootCmd.SetOut(container.out())

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file path (default is $HOME/.standin/config.json)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error, off)")
	flags.Bool("log-json", false, "Log as JSON lines")
	flags.String("policy", "", "Binding policy (round_robin, hashed, partitioned)")
	flags.String("host-namespace", "", "Namespace used to qualify placeholder class names")
	flags.StringSlice("container", nil, "Placeholder component, repeatable")
	flags.StringSliceP("manifest", "m", nil, "Manifest file or directory, repeatable")

	rootCmd.AddCommand(NewBindingsCommand(container))
	rootCmd.AddCommand(NewResolveCommand(container))
	rootCmd.AddCommand(NewConvertCommand(container))
	rootCmd.AddCommand(NewLaunchCommand(container))
	rootCmd.AddCommand(NewServeCommand(container))
	rootCmd.AddCommand(NewDashboardCommand(container))
	rootCmd.AddCommand(NewConfigCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// applyConfigurationOverrides layers explicitly set flags over the loaded
// configuration
func applyConfigurationOverrides(cmd *cobra.Command, container *CLIContainer) error {
	flags := cmd.Flags()
	o := &config.Overrides{}

	if flags.Changed("debug") {
		v, _ := flags.GetBool("debug")
		o.Debug = &v
		if v {
			o.LogLevel = "debug"
		}
	}
	if flags.Changed("log-level") {
		o.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		v, _ := flags.GetBool("log-json")
		o.LogJSON = &v
	}
	if flags.Changed("policy") {
		o.Policy, _ = flags.GetString("policy")
	}
	if flags.Changed("host-namespace") {
		o.HostNamespace, _ = flags.GetString("host-namespace")
	}
	if flags.Changed("container") {
		o.Containers, _ = flags.GetStringSlice("container")
	}
	if flags.Changed("manifest") {
		o.Manifests, _ = flags.GetStringSlice("manifest")
	}
	if f := flags.Lookup("listen"); f != nil && f.Changed {
		o.ListenAddr = f.Value.String()
	}
	if f := flags.Lookup("metrics"); f != nil && f.Changed {
		v, _ := flags.GetBool("metrics")
		o.MetricsEnabled = &v
	}
	if f := flags.Lookup("journal-size"); f != nil && f.Changed {
		v, _ := flags.GetInt("journal-size")
		if v <= 0 {
			return fmt.Errorf("--journal-size must be positive, got %d", v)
		}
		o.JournalSize = v
	}

	configPath, _ := flags.GetString("config")
	return container.App.Configure(configPath, o)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context, container *CLIContainer) {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
