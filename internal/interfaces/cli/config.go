package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command
func NewConfigCommand(container *CLIContainer) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and persist configuration settings",
		Long: `Inspect the effective configuration: defaults, then the config file, then
STANDIN_* environment variables, then command line flags.`,
	}

	configCmd.AddCommand(NewConfigShowCommand(container))
	configCmd.AddCommand(NewConfigPathCommand(container))
	configCmd.AddCommand(NewConfigSaveCommand(container))

	return configCmd
}

// NewConfigShowCommand creates the show subcommand
func NewConfigShowCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(container.out(), container.App.Config())
		},
	}
}

// NewConfigPathCommand creates the path subcommand
func NewConfigPathCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(container.out(), "Configuration file path: %s\n", container.App.ConfigPath())
			return nil
		},
	}
}

// NewConfigSaveCommand creates the save subcommand
func NewConfigSaveCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration to the config file",
		Long: `Write the effective configuration, including environment variables and
flags given on this command line, to the config file.`,
		Example: `  standin config save --policy hashed --container ContainerA,ContainerB`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.App.SaveConfig(); err != nil {
				return err
			}
			fmt.Fprintf(container.out(), "Configuration saved to %s\n", container.App.ConfigPath())
			return nil
		},
	}
}
