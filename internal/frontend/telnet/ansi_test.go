package telnet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestColorize(t *testing.T) {
	assert.Equal(t, "\033[31mboom\033[0m", Colorize(Red, "boom"))
}

func TestColorf(t *testing.T) {
	assert.Equal(t, "\033[32mtotal: 12\033[0m", Colorf(Green, "total: %d", 12))
}

func TestStripANSI(t *testing.T) {
	input := Bold + BrightCyan + "Chance:" + Reset + " 58.33% " + Colorize(Dim, "(exact)")
	assert.Equal(t, "Chance: 58.33% (exact)", StripANSI(input))
	assert.Equal(t, "", StripANSI(""))
	assert.Equal(t, "2d6+3 = 12", StripANSI("2d6+3 = 12"))
}

// Property: StripANSI(Colorize(color, text)) == text.
func TestPropertyStripANSIInversesColorize(t *testing.T) {
	colors := []string{Red, Green, Blue, Yellow, Cyan, Magenta, White, Bold, Dim, BrightWhite}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 ()+*/,-]{0,50}`).Draw(t, "text")
		color := rapid.SampledFrom(colors).Draw(t, "color")
		if got := StripANSI(Colorize(color, text)); got != text {
			t.Fatalf("StripANSI(Colorize(%q)) = %q", text, got)
		}
	})
}

// Property: StripANSI output never contains an SGR sequence.
func TestPropertyStripANSINoEscapeInOutput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOf(rapid.StringMatching(`[a-z ]{0,8}`)).Draw(t, "parts")
		out := StripANSI(strings.Join(parts, Colorize(Red, "x")))
		if strings.Contains(out, "\033[") {
			t.Fatalf("escape sequence left in %q", out)
		}
	})
}
