package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/diceengine/internal/command"
	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/diceserver"
	"github.com/cory-johannsen/diceengine/internal/frontend/telnet"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
)

func intPtr(n int) *int { return &n }

func TestRenderRoll(t *testing.T) {
	r := dice.RollResult{
		Input:    "2d6+3",
		Expanded: "(4 + 5) + 3",
		Dice:     []int{4, 5},
		Faces:    [][]int{{4, 5}},
		Total:    12,
	}
	lines := strings.Split(telnet.StripANSI(RenderRoll(r)), "\n")
	assert.Equal(t, []string{"Input: 2d6+3", "Dice: [4, 5]", "(4 + 5) + 3 = 12"}, lines)
}

func TestRenderRoll_NoDiceOmitsDiceLine(t *testing.T) {
	r := dice.RollResult{Input: "7/2", Expanded: "7 / 2", Total: 3.5}
	stripped := telnet.StripANSI(RenderRoll(r))
	assert.NotContains(t, stripped, "Dice:")
	assert.Contains(t, stripped, "7 / 2 = 3.5")
}

func TestRenderAnalysis_Exact(t *testing.T) {
	a := dice.TargetAnalysis{
		Input:              "2d6",
		Target:             7,
		Comparator:         dice.CmpGE,
		Method:             dice.MethodExact,
		ProbabilityPercent: "58.33%",
		Terms: []dice.TermInfo{{
			Raw: "2d6", MinSum: 2, MaxSum: 12,
			NeedAtLeastWhenOthersMin: intPtr(7),
			NeedAtLeastWhenOthersMax: intPtr(7),
		}},
	}
	stripped := telnet.StripANSI(RenderAnalysis(a))
	assert.Contains(t, stripped, "Target: 2d6 >= 7\nChance: 58.33% (exact)")
	assert.Contains(t, stripped, "2d6 (2..12): needs 7 if others roll low")
	assert.NotContains(t, stripped, "n=")
	assert.NotContains(t, stripped, "CI")
}

func TestRenderAnalysis_MonteCarlo(t *testing.T) {
	a := dice.TargetAnalysis{
		Input:              "300d1000",
		Target:             150000,
		Comparator:         dice.CmpLT,
		Method:             dice.MethodMonteCarlo,
		ProbabilityPercent: "49.80%",
		Samples:            50000,
		CI95:               &dice.Interval{LowText: "49.36%", HighText: "50.24%"},
		Terms:              []dice.TermInfo{{Raw: "300d1000", MinSum: 300, MaxSum: 300000}},
	}
	stripped := telnet.StripANSI(RenderAnalysis(a))
	assert.Contains(t, stripped, "Chance: 49.80% (montecarlo, n=50000, 95% CI 49.36%–50.24%)")
	assert.Contains(t, stripped, "needs n/a")
}

func TestRenderHP(t *testing.T) {
	r := diceserver.HPResult{
		Preset:   "goblin",
		Resolved: true,
		Result: hpformula.Result{
			Expression: "2d6+2",
			Roll:       dice.RollResult{Input: "2d6+2", Expanded: "(3 + 4) + 2", Dice: []int{3, 4}, Total: 9},
			HP:         9,
		},
	}
	stripped := telnet.StripANSI(RenderHP(r))
	assert.Contains(t, stripped, "Preset: goblin")
	assert.Contains(t, stripped, "(3 + 4) + 2 = 9")
	assert.Contains(t, stripped, "HP: 9")

	assert.Contains(t, RenderHP(diceserver.HPResult{}), "No hit-point formula")
}

func TestRenderHistory(t *testing.T) {
	assert.Contains(t, telnet.StripANSI(RenderHistory(nil)), "No history yet.")

	at := time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC)
	stripped := telnet.StripANSI(RenderHistory([]history.Entry{
		{Kind: history.KindAnalysis, Summary: "2d6 >= 7: 58.33% (exact)", CreatedAt: at},
		{Kind: history.KindRoll, Summary: "1d6 → 4 = 4", CreatedAt: at},
	}))
	assert.Contains(t, stripped, "13:04:05 analysis 2d6 >= 7: 58.33% (exact)")
	assert.Contains(t, stripped, "13:04:05 roll     1d6 → 4 = 4")
	assert.Less(t, strings.Index(stripped, "analysis"), strings.Index(stripped, "roll "))
}

func TestRenderHelp_ListsEveryCommand(t *testing.T) {
	reg := command.DefaultRegistry()
	stripped := telnet.StripANSI(RenderHelp(reg))
	for _, cmd := range reg.Commands() {
		assert.Contains(t, stripped, cmd.Name)
	}
	assert.Less(t, strings.Index(stripped, "Dice"), strings.Index(stripped, "System"))
}

func TestRenderError(t *testing.T) {
	assert.Equal(t, command.ErrMissingTarget.Error(), telnet.StripANSI(RenderError(command.ErrMissingTarget)))
	assert.Equal(t, genericFailure, telnet.StripANSI(RenderError(assert.AnError)))
}

func TestProperty_RenderRollEndsWithTotal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		faces := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 10).Draw(rt, "faces")
		total := 0
		for _, f := range faces {
			total += f
		}
		r := dice.RollResult{Input: "xdy", Expanded: "(...)", Dice: faces, Faces: [][]int{faces}, Total: float64(total)}

		stripped := telnet.StripANSI(RenderRoll(r))
		lines := strings.Split(stripped, "\n")
		require.Len(rt, lines, 3)
		if !strings.HasSuffix(lines[2], "= "+dice.FormatNumber(float64(total))) {
			rt.Fatalf("last line %q does not end with total %d", lines[2], total)
		}
	})
}
