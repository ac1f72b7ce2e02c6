package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Options controls logger construction
type Options struct {
	// Level is one of trace, debug, info, warn, error or off
	Level string
	// JSON switches to one JSON object per line
	JSON bool
	// Output defaults to stderr
	Output io.Writer
}

// New creates the root standin logger
func New(opts Options) hclog.Logger {
	level := hclog.LevelFromString(strings.TrimSpace(opts.Level))
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	if level == hclog.Off {
		output = io.Discard
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "standin",
		Level:      level,
		Output:     output,
		JSONFormat: opts.JSON,
	})
}
