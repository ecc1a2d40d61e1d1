package command

import "strings"

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased, without a leading '/'.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command (dice expressions may contain spaces).
	RawArgs string
}

// Parse splits a text line into a command and arguments. A single leading
// slash is accepted, so "/r 2d6" and "r 2d6" are equivalent.
//
// Postcondition: Returns a ParseResult. If line is empty, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if line == "" {
		return ParseResult{}
	}

	cmd, rest, found := strings.Cut(line, " ")
	cmd = strings.ToLower(cmd)
	if !found {
		return ParseResult{Command: cmd}
	}

	rest = strings.TrimSpace(rest)
	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: cmd,
		Args:    args,
		RawArgs: rest,
	}
}
