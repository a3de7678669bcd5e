package display

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func enabledColorSystem() *ColorSystem {
	cs := &ColorSystem{theme: DefaultTheme(), enabled: true}
	cs.initializeColorMap()
	return cs
}

func TestColorizeDisabledPassthrough(t *testing.T) {
	cs := NewColorSystem(DefaultTheme(), true)

	if got := cs.Colorize("hello", ColorRed); got != "hello" {
		t.Errorf("disabled Colorize should pass text through, got %q", got)
	}
	if got := cs.Sprintf(ColorGreen, "%d tables", 3); got != "3 tables" {
		t.Errorf("disabled Sprintf should pass text through, got %q", got)
	}
	if cs.Enabled() {
		t.Error("color system should report disabled")
	}
}

func TestColorizeEmitsEscapes(t *testing.T) {
	cs := enabledColorSystem()
	defer func() { color.NoColor = true }()

	got := cs.Colorize("hello", ColorGreen)
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("enabled Colorize should emit ANSI escapes, got %q", got)
	}
	if !strings.Contains(got, "hello") {
		t.Errorf("colorized text should still contain the message, got %q", got)
	}
}

func TestColorizeUnknownColor(t *testing.T) {
	cs := enabledColorSystem()
	defer func() { color.NoColor = true }()

	if got := cs.Colorize("hello", Color(99)); got != "hello" {
		t.Errorf("unknown color should pass text through, got %q", got)
	}
}

func TestDetectColorSupportEnv(t *testing.T) {
	t.Setenv("FORCE_COLOR", "")
	t.Setenv("NO_COLOR", "1")
	t.Setenv("TERM", "xterm-256color")
	if detectColorSupport() {
		t.Error("NO_COLOR should disable colors")
	}

	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM", "dumb")
	if detectColorSupport() {
		t.Error("TERM=dumb should disable colors")
	}

	t.Setenv("FORCE_COLOR", "1")
	if !detectColorSupport() {
		t.Error("FORCE_COLOR should win over everything")
	}
}

func TestNoColorSwitchWins(t *testing.T) {
	t.Setenv("FORCE_COLOR", "1")

	cs := NewColorSystem(DefaultTheme(), true)
	if cs.Enabled() {
		t.Error("the disable switch must win over FORCE_COLOR")
	}
}
