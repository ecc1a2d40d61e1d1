// Package handlers provides the Telnet session handler that drives the dice
// commands.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/diceengine/internal/command"
	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/diceserver"
	"github.com/cory-johannsen/diceengine/internal/frontend/telnet"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
)

const welcomeBanner = "\n" + telnet.Bold + telnet.BrightCyan + "  Dice Roller" + telnet.Reset + "\n\n" +
	"  Roll dice expressions like " + telnet.Green + "roll ((2d6+3)*2)" + telnet.Reset + "\n" +
	"  or ask for odds with " + telnet.Green + "chance 3d6 >= 12" + telnet.Reset + ".\n"

const genericFailure = "Something went wrong. Please try again."

// namePattern restricts session names to what the history stores accept.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// DiceHandler implements telnet.SessionHandler for the dice commands.
type DiceHandler struct {
	svc      *diceserver.Service
	registry *command.Registry
	logger   *zap.Logger
}

// NewDiceHandler creates a DiceHandler.
//
// Precondition: svc, registry and logger must be non-nil.
// Postcondition: Returns a DiceHandler ready to handle sessions.
func NewDiceHandler(svc *diceserver.Service, registry *command.Registry, logger *zap.Logger) *DiceHandler {
	return &DiceHandler{
		svc:      svc,
		registry: registry,
		logger:   logger,
	}
}

// HandleSession implements telnet.SessionHandler. It greets the client,
// asks for a name, then runs commands until quit.
//
// Postcondition: Returns nil on quit, ctx.Err() on cancellation, or the I/O
// error that ended the session.
func (h *DiceHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	if err := conn.WriteLine(welcomeBanner); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	name, err := h.askName(ctx, conn)
	if err != nil {
		return err
	}
	h.logger.Info("session started",
		zap.String("remote_addr", addr),
		zap.String("actor", name),
	)
	_ = conn.WriteLine(telnet.Colorf(telnet.BrightWhite, "Welcome, %s. Type %s for commands.", name, telnet.Colorize(telnet.Green, "help")))

	for {
		if err := ctx.Err(); err != nil {
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return err
		}
		if err := conn.WritePrompt(telnet.Colorf(telnet.BrightCyan, "[%s]> ", name)); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		line, err := h.readLine(ctx, conn)
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That line is too long."))
			continue
		}
		if err != nil {
			return err
		}

		quit, err := h.dispatch(ctx, conn, name, line)
		if err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if quit {
			h.logger.Info("client quit",
				zap.String("remote_addr", addr),
				zap.String("actor", name),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil
		}
	}
}

// askName prompts until the client gives a valid name.
func (h *DiceHandler) askName(ctx context.Context, conn *telnet.Conn) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "What should we call you? ")); err != nil {
			return "", fmt.Errorf("writing prompt: %w", err)
		}
		line, err := h.readLine(ctx, conn)
		if errors.Is(err, telnet.ErrLineTooLong) {
			line = ""
		} else if err != nil {
			return "", err
		}
		name := strings.TrimSpace(line)
		if namePattern.MatchString(name) {
			return name, nil
		}
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Names are 1-32 letters, digits, '_' or '-'."))
	}
}

// readLine reads one line, reporting ctx.Err() when cancellation closed the connection.
func (h *DiceHandler) readLine(ctx context.Context, conn *telnet.Conn) (string, error) {
	line, err := conn.ReadLine()
	if err != nil && !errors.Is(err, telnet.ErrLineTooLong) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return line, err
}

// dispatch runs one command line.
//
// Postcondition: quit is true when the session should end; err is non-nil
// only when writing to the client failed.
func (h *DiceHandler) dispatch(ctx context.Context, conn *telnet.Conn, actor, line string) (quit bool, err error) {
	parsed := command.Parse(line)
	if parsed.Command == "" {
		return false, nil
	}
	cmd, ok := h.registry.Resolve(parsed.Command)
	if !ok {
		return false, conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown command %q. Type help for a list.", parsed.Command))
	}

	switch cmd.Handler {
	case command.HandlerQuit:
		return true, conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
	case command.HandlerHelp:
		return false, conn.WriteLine(RenderHelp(h.registry))
	}

	out, runErr := h.run(ctx, cmd, actor, parsed.Args)
	if runErr != nil {
		h.logFailure(cmd.Name, actor, runErr)
		return false, conn.WriteLine(RenderError(runErr))
	}
	return false, conn.WriteLine(out)
}

// run executes a dice command and renders its result.
func (h *DiceHandler) run(ctx context.Context, cmd *command.Command, actor string, args []string) (string, error) {
	switch cmd.Handler {
	case command.HandlerRoll:
		a, err := command.ParseRollArgs(args)
		if err != nil {
			return "", err
		}
		res, err := h.svc.Roll(ctx, diceserver.RollRequest{
			Actor:    actor,
			Frontend: diceserver.FrontendTelnet,
			Expr:     a.Expr,
			Sort:     a.Sort,
		})
		if err != nil {
			return "", err
		}
		return RenderRoll(res), nil

	case command.HandlerChance:
		a, err := command.ParseChanceArgs(args)
		if err != nil {
			return "", err
		}
		res, err := h.svc.Analyze(ctx, diceserver.AnalyzeRequest{
			Actor:      actor,
			Frontend:   diceserver.FrontendTelnet,
			Expr:       a.Expr,
			Target:     a.Target,
			Comparator: a.Comparator,
			Samples:    a.Samples,
		})
		if err != nil {
			return "", err
		}
		return RenderAnalysis(res), nil

	case command.HandlerHP:
		a, err := command.ParseHPArgs(args)
		if err != nil {
			return "", err
		}
		res, err := h.svc.ResolveHP(ctx, diceserver.HPRequest{
			Actor:    actor,
			Frontend: diceserver.FrontendTelnet,
			Subject:  a.Subject,
			Params:   a.Params,
		})
		if err != nil {
			return "", err
		}
		return RenderHP(res), nil

	case command.HandlerHistory:
		// Zero lets the service apply its configured default.
		n, err := command.ParseCount(args, 0)
		if err != nil {
			return "", err
		}
		entries, err := h.svc.History(ctx, actor, n)
		if err != nil {
			return "", err
		}
		return RenderHistory(entries), nil
	}
	return "", fmt.Errorf("no handler for command %q", cmd.Name)
}

// logFailure logs internal failures; user mistakes are only shown to the client.
func (h *DiceHandler) logFailure(name, actor string, err error) {
	if isUserError(err) {
		return
	}
	h.logger.Error("command failed",
		zap.String("command", name),
		zap.String("actor", actor),
		zap.Error(err),
	)
}

var argumentErrors = []error{
	command.ErrMissingExpression,
	command.ErrMissingTarget,
	command.ErrInvalidTarget,
	command.ErrInvalidSamples,
	command.ErrInvalidCount,
	command.ErrInvalidParam,
	hpformula.ErrEmptyParamName,
	hpformula.ErrMissingParam,
	hpformula.ErrParamNotNumber,
	hpformula.ErrResultNotFinite,
}

func isUserError(err error) bool {
	var exprErr *dice.ExpressionError
	if errors.As(err, &exprErr) {
		return true
	}
	for _, target := range argumentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// userMessage is the text shown to the client for err.
func userMessage(err error) string {
	var exprErr *dice.ExpressionError
	switch {
	case errors.As(err, &exprErr):
		return exprErr.Message
	case isUserError(err):
		return err.Error()
	}
	return genericFailure
}
