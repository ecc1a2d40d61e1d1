// Package main provides the dice command-line tool. It rolls and analyzes
// expressions locally, or against a dice server when -addr is given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/diceengine/internal/command"
	"github.com/cory-johannsen/diceengine/internal/config"
	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/diceserver"
	"github.com/cory-johannsen/diceengine/internal/frontend/handlers"
	"github.com/cory-johannsen/diceengine/internal/frontend/telnet"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
	"github.com/cory-johannsen/diceengine/internal/observability"
)

const usage = `usage: dice [-config file] [-addr host:port] [-color] <command> [args]

commands:
  roll [-sort] <expr>                          roll an expression
  chance [-cmp >=] [-samples N] <expr> <target> probability that expr meets target
  hp <preset|formula> [name=value ...]         roll hit points
  history [-actor name] [count]                recent server history (requires -addr)
`

// diceAPI is served by a local *diceserver.Service or a remote *diceserver.Client.
type diceAPI interface {
	Roll(ctx context.Context, req diceserver.RollRequest) (dice.RollResult, error)
	Analyze(ctx context.Context, req diceserver.AnalyzeRequest) (dice.TargetAnalysis, error)
	ResolveHP(ctx context.Context, req diceserver.HPRequest) (diceserver.HPResult, error)
	History(ctx context.Context, actor string, limit int) ([]history.Entry, error)
}

var (
	_ diceAPI = (*diceserver.Service)(nil)
	_ diceAPI = (*diceserver.Client)(nil)
)

var errUsage = errors.New("invalid usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one CLI invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dice", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to configuration file (defaults plus DICE_ environment when empty)")
	addr := fs.String("addr", "", "dice server gRPC address; empty rolls locally")
	color := fs.Bool("color", false, "keep ANSI colors in the output")
	timeout := fs.Duration("timeout", 30*time.Second, "overall time limit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "loading config: %v\n", err)
		return 1
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "initializing logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	var api diceAPI
	if *addr != "" {
		client, conn, err := diceserver.Dial(*addr)
		if err != nil {
			fmt.Fprintf(stderr, "connecting to %s: %v\n", *addr, err)
			return 1
		}
		defer conn.Close()
		api = client
	} else {
		svc, err := localService(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		api = svc
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := dispatch(ctx, api, fs.Args(), *addr != "")
	if errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "%v\n%s", err, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, cliMessage(err))
		return 1
	}
	if !*color {
		out = telnet.StripANSI(out)
	}
	fmt.Fprintln(stdout, out)
	return 0
}

// loadConfig reads path, or defaults when path is empty. The CLI only logs warnings.
func loadConfig(path string) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path == "" {
		cfg, err = config.LoadDefaults()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return config.Config{}, err
	}
	cfg.Logging.Level = "warn"
	cfg.Logging.Output = "stderr"
	return cfg, nil
}

// localService builds an in-process service without history or telemetry.
// A missing presets directory disables presets.
func localService(cfg config.Config, logger *zap.Logger) (*diceserver.Service, error) {
	var presets *hpformula.Catalog
	if cfg.Dice.PresetsDir != "" {
		if _, statErr := os.Stat(cfg.Dice.PresetsDir); statErr == nil {
			loaded, err := hpformula.LoadPresets(cfg.Dice.PresetsDir)
			if err != nil {
				return nil, fmt.Errorf("loading hp presets: %w", err)
			}
			if presets, err = hpformula.NewCatalog(loaded); err != nil {
				return nil, err
			}
		}
	}
	roller := dice.NewLoggedRoller(dice.NewEngine(cfg.Dice.Limits(), cfg.Dice.Source()), logger)
	return diceserver.NewService(roller, nil, presets, observability.NoopRecorder{},
		noop.NewTracerProvider().Tracer(observability.TracerName), logger,
		diceserver.Options{DefaultSamples: cfg.Dice.DefaultSamples}), nil
}

// dispatch runs the subcommand in args and renders its result.
func dispatch(ctx context.Context, api diceAPI, args []string, remote bool) (string, error) {
	name, rest := args[0], args[1:]
	switch name {
	case "roll":
		fs := flag.NewFlagSet("roll", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		sort := fs.Bool("sort", false, "list dice in descending order")
		if err := fs.Parse(rest); err != nil {
			return "", fmt.Errorf("%w: %v", errUsage, err)
		}
		a, err := command.ParseRollArgs(fs.Args())
		if err != nil {
			return "", err
		}
		res, err := api.Roll(ctx, diceserver.RollRequest{
			Frontend: diceserver.FrontendCLI,
			Expr:     a.Expr,
			Sort:     a.Sort || *sort,
		})
		if err != nil {
			return "", err
		}
		return handlers.RenderRoll(res), nil

	case "chance":
		fs := flag.NewFlagSet("chance", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		cmp := fs.String("cmp", ">=", "comparator: >=, >, <=, <, ==, !=")
		samples := fs.Int("samples", 0, "Monte Carlo samples (0 = server default)")
		if err := fs.Parse(rest); err != nil {
			return "", fmt.Errorf("%w: %v", errUsage, err)
		}
		pos := fs.Args()
		if len(pos) < 2 {
			return "", fmt.Errorf("%w: chance needs an expression and a target", errUsage)
		}
		target, err := strconv.ParseFloat(pos[len(pos)-1], 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q", command.ErrMissingTarget, pos[len(pos)-1])
		}
		res, err := api.Analyze(ctx, diceserver.AnalyzeRequest{
			Frontend:   diceserver.FrontendCLI,
			Expr:       strings.Join(pos[:len(pos)-1], " "),
			Target:     target,
			Comparator: dice.Comparator(*cmp),
			Samples:    *samples,
		})
		if err != nil {
			return "", err
		}
		return handlers.RenderAnalysis(res), nil

	case "hp":
		a, err := command.ParseHPArgs(rest)
		if err != nil {
			return "", err
		}
		res, err := api.ResolveHP(ctx, diceserver.HPRequest{
			Frontend: diceserver.FrontendCLI,
			Subject:  a.Subject,
			Params:   a.Params,
		})
		if err != nil {
			return "", err
		}
		return handlers.RenderHP(res), nil

	case "history":
		if !remote {
			return "", fmt.Errorf("%w: history requires -addr", errUsage)
		}
		fs := flag.NewFlagSet("history", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		actor := fs.String("actor", os.Getenv("USER"), "actor whose history to show")
		if err := fs.Parse(rest); err != nil {
			return "", fmt.Errorf("%w: %v", errUsage, err)
		}
		n, err := command.ParseCount(fs.Args(), 0)
		if err != nil {
			return "", err
		}
		entries, err := api.History(ctx, *actor, n)
		if err != nil {
			return "", err
		}
		return handlers.RenderHistory(entries), nil
	}
	return "", fmt.Errorf("%w: unknown command %q", errUsage, name)
}

// cliMessage prefers the user-facing message of expression and RPC errors.
func cliMessage(err error) string {
	var exprErr *dice.ExpressionError
	if errors.As(err, &exprErr) {
		return exprErr.Message
	}
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}
