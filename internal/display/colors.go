package display

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Color represents terminal color options
type Color int

const (
	ColorReset Color = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
)

// ColorTheme defines the color scheme for the different message kinds
// of the run output.
type ColorTheme struct {
	Primary   Color
	Success   Color
	Warning   Color
	Error     Color
	Info      Color
	Muted     Color
	Highlight Color
}

// DefaultTheme returns the theme used for run summaries.
func DefaultTheme() ColorTheme {
	return ColorTheme{
		Primary:   ColorBrightBlue,
		Success:   ColorGreen,
		Warning:   ColorYellow,
		Error:     ColorRed,
		Info:      ColorCyan,
		Muted:     ColorWhite,
		Highlight: ColorBrightBlue,
	}
}

// ColorSystem applies theme colors to text when the terminal supports
// them. With colors disabled every method returns the text unchanged.
type ColorSystem struct {
	theme    ColorTheme
	enabled  bool
	colorMap map[Color]*color.Color
}

// NewColorSystem creates a color system with terminal detection. The
// disable switch (--no-color) wins over everything the environment says.
func NewColorSystem(theme ColorTheme, disable bool) *ColorSystem {
	cs := &ColorSystem{
		theme:   theme,
		enabled: !disable && detectColorSupport(),
	}
	cs.initializeColorMap()
	return cs
}

// detectColorSupport checks whether stdout wants ANSI colors.
func detectColorSupport() bool {
	// FORCE_COLOR wins, so CI logs can opt in without a terminal.
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}

	return termenv.ColorProfile() != termenv.Ascii
}

// initializeColorMap sets up the mapping between Color constants and
// fatih/color colors.
func (cs *ColorSystem) initializeColorMap() {
	cs.colorMap = map[Color]*color.Color{
		ColorReset:         color.New(color.Reset),
		ColorBlack:         color.New(color.FgBlack),
		ColorRed:           color.New(color.FgRed),
		ColorGreen:         color.New(color.FgGreen),
		ColorYellow:        color.New(color.FgYellow),
		ColorBlue:          color.New(color.FgBlue),
		ColorMagenta:       color.New(color.FgMagenta),
		ColorCyan:          color.New(color.FgCyan),
		ColorWhite:         color.New(color.FgWhite),
		ColorBrightRed:     color.New(color.FgHiRed),
		ColorBrightGreen:   color.New(color.FgHiGreen),
		ColorBrightYellow:  color.New(color.FgHiYellow),
		ColorBrightBlue:    color.New(color.FgHiBlue),
		ColorBrightMagenta: color.New(color.FgHiMagenta),
		ColorBrightCyan:    color.New(color.FgHiCyan),
		ColorBrightWhite:   color.New(color.FgHiWhite),
	}

	// fatih/color carries its own detection in a package global; keep it
	// in line with ours so Sprint honors FORCE_COLOR in pipes.
	color.NoColor = !cs.enabled
}

// Colorize applies a color to text if colors are enabled.
func (cs *ColorSystem) Colorize(text string, clr Color) string {
	if !cs.enabled {
		return text
	}

	if colorFunc, exists := cs.colorMap[clr]; exists {
		return colorFunc.Sprint(text)
	}

	return text
}

// Sprintf formats text and applies a color to the result.
func (cs *ColorSystem) Sprintf(clr Color, format string, args ...interface{}) string {
	return cs.Colorize(fmt.Sprintf(format, args...), clr)
}

// Enabled returns whether colors are applied.
func (cs *ColorSystem) Enabled() bool {
	return cs.enabled
}

// Theme returns the active color theme.
func (cs *ColorSystem) Theme() ColorTheme {
	return cs.theme
}
