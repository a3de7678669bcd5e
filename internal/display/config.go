package display

import (
	"fmt"
	"io"
	"os"
)

// Options control how run results are rendered.
type Options struct {
	// NoColor disables ANSI colors regardless of terminal detection.
	NoColor bool

	// Quiet reduces the output to failures only.
	Quiet bool

	// Verbose adds the effective per-table settings to the summary.
	Verbose bool

	// Writer receives the rendered output. Defaults to stdout.
	Writer io.Writer
}

// Validate checks for conflicting options.
func (o Options) Validate() error {
	if o.Quiet && o.Verbose {
		return fmt.Errorf("verbose and quiet modes are mutually exclusive")
	}
	return nil
}

func (o *Options) setDefaults() {
	if o.Writer == nil {
		o.Writer = os.Stdout
	}
}
