// Package telnet provides a line-oriented Telnet server with ANSI color
// support for the dice roller.
package telnet

import (
	"fmt"
	"regexp"
)

// ANSI escape codes used by the dice renderer.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"

	BrightRed   = "\033[91m"
	BrightGreen = "\033[92m"
	BrightBlue  = "\033[94m"
	BrightCyan  = "\033[96m"
	BrightWhite = "\033[97m"
)

// Colorize wraps text with the given ANSI color code and a reset suffix.
//
// Precondition: color must be a valid ANSI escape sequence.
// Postcondition: Returns text wrapped with the color code and Reset.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Colorf wraps a formatted string with the given ANSI color code.
func Colorf(color, format string, args ...any) string {
	return color + fmt.Sprintf(format, args...) + Reset
}

var sgrSequence = regexp.MustCompile("\033\\[[0-9;]*m")

// StripANSI removes SGR escape sequences, leaving plain text for
// non-terminal outputs.
//
// Postcondition: Returns s with every \033[...m sequence removed.
func StripANSI(s string) string {
	return sgrSequence.ReplaceAllString(s, "")
}
