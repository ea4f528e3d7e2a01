// Package console provides unified output formatting for the ralphd CLI.
// It visually separates the dispatcher's own orchestration messages from
// the worker agent's output, the same way the teacher's display package
// separated Ralph orchestration from Claude Code output.
package console

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Console handles all CLI output with visual hierarchy.
type Console struct {
	theme     *Theme
	termWidth int
	noColor   bool
}

// TokenStats holds token usage info for display.
type TokenStats struct {
	TotalTokens int
	Threshold   int
}

// New creates a new Console instance.
func New() *Console {
	return NewWithOptions(false)
}

// NewWithOptions creates a Console with configuration.
func NewWithOptions(noColor bool) *Console {
	c := &Console{
		termWidth: getTerminalWidth(),
		noColor:   noColor,
	}
	if noColor {
		c.theme = NoColorTheme()
	} else {
		c.theme = DefaultTheme()
	}
	return c
}

// getTerminalWidth returns the terminal width, defaulting to 80.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120 // Cap at 120 for readability
	}
	return width
}

// Box prints a boxed message for dispatcher orchestration output.
func (c *Console) Box(lines ...string) {
	c.TitledBox("RALPHD", lines...)
}

// TitledBox prints a boxed message with a custom title.
func (c *Console) TitledBox(title string, lines ...string) {
	if len(lines) == 0 {
		return
	}

	width := c.termWidth - 2
	titleLen := len(title) + 4 // "─ TITLE "
	remainingWidth := width - titleLen

	topLine := BoxTopLeft + BoxHorizontal + " " + title + " " + strings.Repeat(BoxHorizontal, remainingWidth) + BoxTopRight
	fmt.Println(c.theme.DispatchBorder(topLine))

	for _, line := range lines {
		paddedLine := c.padRight(line, width-2)
		fmt.Println(c.theme.DispatchBorder(BoxVertical) + " " + c.theme.DispatchText(paddedLine) + " " + c.theme.DispatchBorder(BoxVertical))
	}

	bottomLine := BoxBottomLeft + strings.Repeat(BoxHorizontal, width) + BoxBottomRight
	fmt.Println(c.theme.DispatchBorder(bottomLine))
}

// Status prints a single-line status message (no box).
func (c *Console) Status(symbol, message string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n",
		c.theme.DispatchBorder(timestamp),
		symbol,
		c.theme.DispatchText(message))
}

// Success prints a success message with a green checkmark.
func (c *Console) Success(message string) {
	c.Status(c.theme.Success(SymbolSuccess), message)
}

// Error prints an error message with a red X.
func (c *Console) Error(message string) {
	c.Status(c.theme.Error(SymbolError), message)
}

// Warning prints a warning message with a yellow triangle.
func (c *Console) Warning(message string) {
	c.Status(c.theme.Warning(SymbolWarning), message)
}

// Info prints an info message with a cyan label.
func (c *Console) Info(label, message string) {
	c.Status(c.theme.Info(label+":"), message)
}

// Resume prints a resume message, e.g. after an Unblock call.
func (c *Console) Resume(message string) {
	c.Status(c.theme.Info(SymbolResume), message)
}

// AgentStart prints a header when a worker agent invocation begins.
func (c *Console) AgentStart(agentName string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("  %s %s Sending to %s...\n",
		c.theme.Dim(timestamp),
		c.theme.AgentTimestamp(GutterAgent),
		agentName)
}

// wrapText wraps text to the given width, returning up to 5 lines.
func (c *Console) wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		maxWidth = 80
	}

	text = strings.TrimSpace(text)
	if len(text) <= maxWidth {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len()+len(word)+1 > maxWidth {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
		}
		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	if len(lines) > 5 {
		lines = lines[:5]
		if len(lines[4]) > maxWidth-3 {
			lines[4] = lines[4][:maxWidth-3]
		}
		lines[4] = lines[4] + "..."
	}

	return lines
}

// Agent prints a line of worker-agent output with a left gutter indicator.
func (c *Console) Agent(text string, toolCount int) {
	timestamp := time.Now().Format("[15:04:05]")
	gutter := c.theme.AgentTimestamp(GutterAgent)

	toolStr := ""
	if toolCount > 0 {
		toolStr = fmt.Sprintf(" %s", c.theme.AgentToolCount(fmt.Sprintf("[%d]", toolCount)))
	}

	lines := c.wrapText(text, c.termWidth-20)

	for i, line := range lines {
		if i == 0 {
			fmt.Printf("  %s %s%s %s\n", gutter, c.theme.Dim(timestamp), toolStr, c.theme.AgentText(line))
		} else {
			fmt.Printf("  %s %s%s\n", c.theme.AgentTimestamp(GutterDot), strings.Repeat(" ", 10), c.theme.AgentText(line))
		}
	}
}

// AgentWithTokens prints worker-agent output along with running token stats.
func (c *Console) AgentWithTokens(text string, toolCount int, tokens TokenStats) {
	timestamp := time.Now().Format("[15:04:05]")
	gutter := c.theme.AgentTimestamp(GutterAgent)

	toolStr := ""
	if toolCount > 0 {
		toolStr = fmt.Sprintf(" %s", c.theme.AgentToolCount(fmt.Sprintf("[%d]", toolCount)))
	}

	tokenStr := fmt.Sprintf(" %s", c.theme.Dim(fmt.Sprintf("[%dK/%dK]", tokens.TotalTokens/1000, tokens.Threshold/1000)))

	lines := c.wrapText(text, c.termWidth-30)

	for i, line := range lines {
		if i == 0 {
			fmt.Printf("  %s %s%s%s %s\n", gutter, c.theme.Dim(timestamp), toolStr, tokenStr, c.theme.AgentText(line))
		} else {
			fmt.Printf("  %s %s%s\n", c.theme.AgentTimestamp(GutterDot), strings.Repeat(" ", 20), c.theme.AgentText(line))
		}
	}
}

// AgentDone prints an agent-completion message, indented.
func (c *Console) AgentDone(result string) {
	timestamp := time.Now().Format("[15:04:05]")
	line := fmt.Sprintf("%s%s %s %s",
		IndentAgent,
		c.theme.AgentTimestamp(timestamp),
		c.theme.AgentToolCount("[Done]"),
		c.theme.AgentText(result))
	fmt.Println(line)
}

// PlanHeader prints the "WORKING ON" banner when a plan's checklist item
// starts executing.
func (c *Console) PlanHeader(planID string) {
	banner := fmt.Sprintf(">>> WORKING ON: %s <<<", planID)
	fmt.Printf("\n%s%s\n\n", IndentAgent, c.theme.DispatchLabel(banner))
}

// SectionBreak prints a horizontal separator for tick boundaries.
func (c *Console) SectionBreak() {
	width := c.termWidth
	fmt.Println(c.theme.Separator(strings.Repeat(SectionBreak, width)))
}

// TickBanner prints the tick banner with progress across tracked plans.
func (c *Console) TickBanner(tick int, planID string, doneCount, totalCount int) {
	c.SectionBreak()
	line := fmt.Sprintf("Tick %d: %s (%d/%d plans done)",
		tick, c.theme.Info(planID), doneCount, totalCount)
	fmt.Println(line)
	c.SectionBreak()
}

// RunHeader prints the dispatcher run-loop header.
func (c *Console) RunHeader() {
	fmt.Println(c.theme.Bold("=== ralphd dispatch loop ==="))
	fmt.Println()
}

// AllComplete prints the all-plans-done message.
func (c *Console) AllComplete() {
	fmt.Printf("\n%s All plans complete!\n", c.theme.Success(SymbolSuccess))
}

// RunComplete prints the run-loop completion message.
func (c *Console) RunComplete(message string, completed int) {
	fmt.Printf("\n%s %s\n", c.theme.Success(SymbolSuccess), message)
	fmt.Printf("   %d plans completed.\n", completed)
}

// RunFailed prints a plan-failure message that halts the run loop.
func (c *Console) RunFailed(planID string, err error, completed int) {
	fmt.Printf("\n%s BLOCKED: %s\n", c.theme.Error(SymbolError), planID)
	if err != nil {
		fmt.Printf("   Error: %v\n", err)
	}
	fmt.Printf("\nStopping. %d plans complete, 1 blocked.\n", completed)
	fmt.Println("Run 'ralphd status' for details.")
}

// MaxTicks prints the max-ticks-reached message.
func (c *Console) MaxTicks(max int) {
	fmt.Printf("\nReached max ticks (%d). Run 'ralphd start' again to continue.\n", max)
}

// Tokens prints token usage stats.
func (c *Console) Tokens(total, input, output int) {
	line := fmt.Sprintf("Tokens: %d (in: %d, out: %d)", total, input, output)
	c.Status(c.theme.Dim(""), line)
}

// Duration prints an execution duration.
func (c *Console) Duration(dur time.Duration) {
	fmt.Printf("   Duration: %s\n", dur.Round(time.Second))
}

// Theme returns the current theme for external use.
func (c *Console) Theme() *Theme {
	return c.theme
}

// padRight pads a string to the specified width.
func (c *Console) padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Truncate truncates text to a max length with an ellipsis.
func Truncate(s string, max int) string {
	s = CleanText(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// CleanText removes newlines and collapses repeated spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

// TriageStart prints a header when a review provider's feedback is about
// to be triaged into new checklist items.
func (c *Console) TriageStart(itemCount int) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("\n%s %s %s\n",
		c.theme.Dim(timestamp),
		c.theme.TriageGutter(GutterTriage),
		c.theme.TriageText(fmt.Sprintf("Triaging %d review items...", itemCount)))
}

// Triage prints triage output with its own distinct styling.
func (c *Console) Triage(text string) {
	lines := c.wrapText(text, c.termWidth-15)
	for i, line := range lines {
		if i == 0 {
			fmt.Printf("  %s %s\n", c.theme.TriageGutter(GutterTriage), c.theme.TriageText(line))
		} else {
			fmt.Printf("  %s %s\n", c.theme.TriageGutter(GutterDot), c.theme.TriageText(line))
		}
	}
}

// TriageComplete prints triage completion, noting how many checklist items
// were touched and how many are new.
func (c *Console) TriageComplete(modified, added int) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n",
		c.theme.Dim(timestamp),
		c.theme.TriageGutter(GutterTriage),
		c.theme.Success(fmt.Sprintf("Triage complete (modified: %d, new: %d)", modified, added)))
}
