package handlers

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/diceengine/internal/command"
	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/diceserver"
	"github.com/cory-johannsen/diceengine/internal/frontend/telnet"
	"github.com/cory-johannsen/diceengine/internal/history"
)

// Rendered text uses bare "\n" line breaks; telnet.Conn.WriteLine converts
// them to CRLF.

// RenderRoll formats a roll as three lines: the input, the dice drawn, and
// the expanded expression with its total.
func RenderRoll(r dice.RollResult) string {
	var b strings.Builder
	b.WriteString(telnet.Colorf(telnet.Cyan, "Input: %s", r.Input))
	b.WriteString("\n")
	if len(r.Dice) > 0 {
		b.WriteString(telnet.Colorf(telnet.White, "Dice: %s", r.DiceList()))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s = %s",
		r.Expanded,
		telnet.Colorize(telnet.Bold+telnet.BrightGreen, dice.FormatNumber(r.Total)))
	return b.String()
}

// RenderAnalysis formats a target analysis as a target line and a chance line.
//
// Postcondition: Monte Carlo results carry the sample count and the 95% interval.
func RenderAnalysis(a dice.TargetAnalysis) string {
	var b strings.Builder
	b.WriteString(telnet.Colorf(telnet.Cyan, "Target: %s %s %s", a.Input, a.Comparator, dice.FormatNumber(a.Target)))
	b.WriteString("\n")

	detail := []string{string(a.Method)}
	if a.Method == dice.MethodMonteCarlo {
		detail = append(detail, fmt.Sprintf("n=%d", a.Samples))
	}
	if a.CI95 != nil {
		detail = append(detail, fmt.Sprintf("95%% CI %s–%s", a.CI95.LowText, a.CI95.HighText))
	}
	fmt.Fprintf(&b, "Chance: %s (%s)",
		telnet.Colorize(telnet.Bold+telnet.BrightGreen, a.ProbabilityPercent),
		strings.Join(detail, ", "))

	for _, t := range a.Terms {
		b.WriteString("\n")
		b.WriteString(renderTermHint(t))
	}
	return b.String()
}

// renderTermHint describes the face-sum one dice term needs when every other
// term rolls its minimum or maximum.
func renderTermHint(t dice.TermInfo) string {
	hint := func(p *int) string {
		if p == nil {
			return "n/a"
		}
		return fmt.Sprintf("%d", *p)
	}
	return telnet.Colorf(telnet.Dim, "  %s (%d..%d): needs %s if others roll low, %s if others roll high",
		t.Raw, t.MinSum, t.MaxSum, hint(t.NeedAtLeastWhenOthersMin), hint(t.NeedAtLeastWhenOthersMax))
}

// RenderHP formats a hit-point roll.
func RenderHP(r diceserver.HPResult) string {
	if !r.Resolved {
		return telnet.Colorize(telnet.Dim, "No hit-point formula to roll.")
	}
	var b strings.Builder
	if r.Preset != "" {
		b.WriteString(telnet.Colorf(telnet.BrightBlue, "Preset: %s", r.Preset))
		b.WriteString("\n")
	}
	b.WriteString(RenderRoll(r.Roll))
	b.WriteString("\n")
	b.WriteString(telnet.Colorf(telnet.Bold+telnet.BrightGreen, "HP: %d", r.HP))
	return b.String()
}

// RenderHistory formats history entries, newest first.
func RenderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return telnet.Colorize(telnet.Dim, "No history yet.")
	}
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "=== History ==="))
	for _, e := range entries {
		color := telnet.Green
		if e.Kind == history.KindAnalysis {
			color = telnet.Magenta
		}
		fmt.Fprintf(&b, "\n  %s %s %s",
			telnet.Colorize(telnet.Dim, e.CreatedAt.Format("15:04:05")),
			telnet.Colorf(color, "%-8s", e.Kind),
			e.Summary)
	}
	return b.String()
}

// RenderHelp lists the registry's commands grouped by category.
func RenderHelp(reg *command.Registry) string {
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "=== Commands ==="))
	byCategory := reg.CommandsByCategory()
	for _, cat := range reg.Categories() {
		fmt.Fprintf(&b, "\n%s", telnet.Colorize(telnet.Yellow, strings.ToUpper(cat[:1])+cat[1:]))
		for _, cmd := range byCategory[cat] {
			usage := cmd.Name
			if cmd.Usage != "" {
				usage += " " + cmd.Usage
			}
			fmt.Fprintf(&b, "\n  %s%s%s  %s", telnet.BrightCyan, usage, telnet.Reset, cmd.Help)
			if len(cmd.Aliases) > 0 {
				b.WriteString(telnet.Colorf(telnet.Dim, " (aliases: %s)", strings.Join(cmd.Aliases, ", ")))
			}
		}
	}
	return b.String()
}

// RenderError formats a user-facing failure in red.
func RenderError(err error) string {
	return telnet.Colorize(telnet.Red, userMessage(err))
}
