package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/evalops/botvet/internal/evaluation"
)

const fallbackWidth = 100

// terminalWidth returns the current terminal width, or a fallback when
// stdout is not a terminal (CI, piped output).
func terminalWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fallbackWidth
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

// padCell pads s with spaces to the given display width, truncating if it
// does not fit. Width is measured in terminal cells, not bytes.
func padCell(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return s + strings.Repeat(" ", width-runewidth.StringWidth(s))
}

// FormatSummary renders the settled results of a run as a table, one row
// per task, with a pass/fail tally at the bottom.
func FormatSummary(results []evaluation.Result) string {
	var b strings.Builder

	skillWidth := len("SKILL")
	personaWidth := len("PERSONA")
	for _, res := range results {
		skillWidth = max(skillWidth, runewidth.StringWidth(res.Task.SkillID))
		personaWidth = max(personaWidth, runewidth.StringWidth(res.Task.Persona.PersonaName()))
	}

	// leave room for the status column on narrow terminals
	if total := skillWidth + personaWidth + 16; total > terminalWidth() {
		overflow := total - terminalWidth()
		personaWidth = max(len("PERSONA"), personaWidth-overflow)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s  %s\n", padCell("SKILL", skillWidth), padCell("PERSONA", personaWidth), "STATUS")

	passed := 0
	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			status = fmt.Sprintf("FAILED: %v", res.Err)
		} else {
			passed++
		}
		fmt.Fprintf(&b, "%s  %s  %s\n",
			padCell(res.Task.SkillID, skillWidth),
			padCell(res.Task.Persona.PersonaName(), personaWidth),
			status)
	}

	fmt.Fprintf(&b, "\n%d/%d tasks succeeded\n", passed, len(results))
	return b.String()
}
