package console

import "github.com/fatih/color"

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
	SectionBreak   = "━"
)

// Status symbols
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolResume  = "↻"
	SymbolPending = "○"
	SymbolPartial = "◐"
)

// IndentAgent is the indentation used for agent output lines.
const IndentAgent = "  "

// Gutter markers prefixed to agent and triage output lines.
const (
	GutterAgent  = "▶"
	GutterDot    = "·"
	GutterTriage = "◆"
)

// Theme holds all color functions for consistent styling between the
// dispatcher's own orchestration lines and the worker agent's output.
type Theme struct {
	// Dispatcher orchestration (prominent)
	DispatchBorder func(a ...interface{}) string
	DispatchLabel  func(a ...interface{}) string
	DispatchText   func(a ...interface{}) string

	// Agent output (subdued)
	AgentTimestamp func(a ...interface{}) string
	AgentText      func(a ...interface{}) string
	AgentToolCount func(a ...interface{}) string

	// Status indicators
	Success func(a ...interface{}) string
	Error   func(a ...interface{}) string
	Warning func(a ...interface{}) string
	Info    func(a ...interface{}) string

	// Structural elements
	Bold      func(a ...interface{}) string
	Dim       func(a ...interface{}) string
	Separator func(a ...interface{}) string

	// Triage output (review-provider onEvent hooks materializing new work)
	TriageGutter func(a ...interface{}) string
	TriageText   func(a ...interface{}) string
}

// DefaultTheme creates the default color theme.
func DefaultTheme() *Theme {
	return &Theme{
		// Dispatcher orchestration - bright cyan for visibility
		DispatchBorder: color.New(color.FgCyan).SprintFunc(),
		DispatchLabel:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		DispatchText:   color.New(color.FgWhite).SprintFunc(),

		// Agent output - dimmer/gray to distinguish from the dispatcher
		AgentTimestamp: color.New(color.FgHiBlack).SprintFunc(),
		AgentText:      color.New(color.FgWhite).SprintFunc(),
		AgentToolCount: color.New(color.FgHiBlack).SprintFunc(),

		Success: color.New(color.FgGreen).SprintFunc(),
		Error:   color.New(color.FgRed).SprintFunc(),
		Warning: color.New(color.FgYellow).SprintFunc(),
		Info:    color.New(color.FgCyan).SprintFunc(),

		Bold:      color.New(color.Bold).SprintFunc(),
		Dim:       color.New(color.FgHiBlack).SprintFunc(),
		Separator: color.New(color.FgCyan).SprintFunc(),

		TriageGutter: color.New(color.FgMagenta).SprintFunc(),
		TriageText:   color.New(color.FgWhite).SprintFunc(),
	}
}

// NoColorTheme creates a theme without colors (for --no-color or a non-TTY).
func NoColorTheme() *Theme {
	identity := func(a ...interface{}) string {
		if len(a) == 0 {
			return ""
		}
		return a[0].(string)
	}
	return &Theme{
		DispatchBorder: identity,
		DispatchLabel:  identity,
		DispatchText:   identity,
		AgentTimestamp: identity,
		AgentText:      identity,
		AgentToolCount: identity,
		Success:        identity,
		Error:          identity,
		Warning:        identity,
		Info:           identity,
		Bold:           identity,
		Dim:            identity,
		Separator:      identity,
		TriageGutter:   identity,
		TriageText:     identity,
	}
}
