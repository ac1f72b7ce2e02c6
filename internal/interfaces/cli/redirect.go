package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/launch"
	"kilometers.ai/standin/internal/core/redirect"
)

// RequestFlags describe a launch request on the command line
type RequestFlags struct {
	Action string
	Data   string
	Extras []string
}

func (f *RequestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Action, "action", "", "Request action")
	cmd.Flags().StringVar(&f.Data, "data", "", "Request data URI")
	cmd.Flags().StringArrayVar(&f.Extras, "extra", nil, "Request extra as key=value, repeatable")
}

// build creates a request for target, which may be a bare class name or
// namespace/ClassName
func (f *RequestFlags) build(target string) (*launch.Request, error) {
	name, err := component.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid component %q: %w", target, err)
	}
	req := launch.NewRequest(name)
	req.Action = f.Action
	req.Data = f.Data
	for _, extra := range f.Extras {
		key, value, ok := strings.Cut(extra, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid extra %q, expected key=value", extra)
		}
		req.PutExtra(key, value)
	}
	return req, nil
}

// NewBindingsCommand creates the bindings command
func NewBindingsCommand(container *CLIContainer) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "List plugin components and the placeholders they are bound to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := container.App.RedirectService(cmd.Context())
			if err != nil {
				return err
			}

			bindings := service.Bindings()
			if asJSON {
				return writeJSON(container.out(), bindings)
			}
			if len(bindings) == 0 {
				fmt.Fprintln(container.out(), "No plugin components loaded.")
				return nil
			}
			fmt.Fprintln(container.out(), renderBindings(bindings))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// NewResolveCommand creates the resolve command
func NewResolveCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <class-name>",
		Short: "Show which plugin component and placeholder a class name redirects to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := container.App.RedirectService(cmd.Context())
			if err != nil {
				return err
			}

			resolution, ok := service.Resolve(args[0])
			if !ok {
				return fmt.Errorf("%s is not a plugin component", args[0])
			}
			fmt.Fprintf(container.out(), "%s -> %s\n", resolution.Logical, resolution.Physical)
			return nil
		},
	}
}

// NewConvertCommand creates the convert command
func NewConvertCommand(container *CLIContainer) *cobra.Command {
	flags := &RequestFlags{}

	cmd := &cobra.Command{
		Use:   "convert <component>",
		Short: "Print the redirected launch request without launching it",
		Long: `Rewrite a launch request for a plugin component and print the result as JSON.

Requests for components that are not plugin components are printed unchanged
with "handled": false.

Examples:
  standin convert MainActivity
  standin convert com.example.plugin/MainActivity --extra user=42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.build(args[0])
			if err != nil {
				return err
			}
			service, err := container.App.RedirectService(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(container.out(), service.Convert(req))
		},
	}
	flags.register(cmd)
	return cmd
}

// NewLaunchCommand creates the launch command
func NewLaunchCommand(container *CLIContainer) *cobra.Command {
	flags := &RequestFlags{}
	var requestCode int

	cmd := &cobra.Command{
		Use:   "launch <component>",
		Short: "Redirect a launch request and hand it to the host",
		Long: `Redirect a launch request and hand it to the host journal, which prints one
JSON line per launch. With --request-code the launch expects a result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.build(args[0])
			if err != nil {
				return err
			}
			service, err := container.App.RedirectService(cmd.Context())
			if err != nil {
				return err
			}

			var code *int
			if cmd.Flags().Changed("request-code") {
				code = &requestCode
			}
			result, err := service.Launch(cmd.Context(), req, code)
			if err != nil {
				return err
			}
			if !result.Handled {
				fmt.Fprintf(container.out(), "%s is not a plugin component; left to the host\n", args[0])
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&requestCode, "request-code", 0, "Launch for result with this request code")
	return cmd
}

func renderBindings(bindings []redirect.Binding) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	shadowedStyle := cellStyle.Foreground(lipgloss.Color("240"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("LOGICAL", "PLACEHOLDER", "CATEGORY", "REACHABLE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(bindings) && !bindings[row].Reachable {
				return shadowedStyle
			}
			return cellStyle
		})

	for _, b := range bindings {
		reachable := "yes"
		if !b.Reachable {
			reachable = "shadowed"
		}
		t.Row(b.Logical.String(), b.Physical.String(), b.Descriptor.EffectiveCategory(), reachable)
	}
	return t.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
