// Package command provides the chat-command registry, the line parser, and
// argument parsers for the dice commands.
package command

// Categories for organizing commands.
const (
	CategoryDice   = "dice"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to session handlers.
const (
	HandlerRoll    = "roll"
	HandlerChance  = "chance"
	HandlerHP      = "hp"
	HandlerHistory = "history"
	HandlerHelp    = "help"
	HandlerQuit    = "quit"
)

// Command defines a user-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis shown by help, e.g. "[--sort] <expr>".
	Usage string
	// Help is the short help text displayed to users.
	Help string
	// Category groups the command (dice, system).
	Category string
	// Handler maps to the session handler that executes the command.
	Handler string
}

// BuiltinCommands returns all built-in dice commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "roll", Aliases: []string{"r"}, Usage: "[--sort] <expr>", Help: "Roll a dice expression, e.g. roll ((2d6+3)*2)", Category: CategoryDice, Handler: HandlerRoll},
		{Name: "chance", Aliases: []string{"mchance", "ch"}, Usage: "<expr> [cmp] <target> [samples]", Help: "Probability that an expression meets a target", Category: CategoryDice, Handler: HandlerChance},
		{Name: "hp", Aliases: nil, Usage: "<preset|formula> [name=value ...]", Help: "Roll hit points from a preset or a formula with {param} placeholders", Category: CategoryDice, Handler: HandlerHP},
		{Name: "history", Aliases: []string{"hist"}, Usage: "[count]", Help: "Show your most recent rolls and analyses", Category: CategoryDice, Handler: HandlerHistory},

		{Name: "help", Aliases: []string{"?"}, Usage: "", Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit"}, Usage: "", Help: "Disconnect", Category: CategorySystem, Handler: HandlerQuit},
	}
}
