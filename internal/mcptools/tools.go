// Package mcptools exposes the dice service as Model Context Protocol tools.
package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/diceengine/internal/config"
	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/diceserver"
)

// RollInput is the roll_expression tool input.
type RollInput struct {
	Expr  string `json:"expr" jsonschema:"dice expression, e.g. ((2d6+3)*2) or max(1d20,1d20)+5"`
	Sort  bool   `json:"sort,omitempty" jsonschema:"list the rolled dice in descending order"`
	Actor string `json:"actor,omitempty" jsonschema:"optional caller name recorded in roll history"`
}

// RollOutput is the roll_expression tool output.
type RollOutput struct {
	Input    string  `json:"input" jsonschema:"expression as given"`
	Expanded string  `json:"expanded" jsonschema:"expression with each dice term replaced by its rolled faces"`
	Dice     []int   `json:"dice" jsonschema:"every die face rolled"`
	Total    float64 `json:"total" jsonschema:"value of the expression"`
	Text     string  `json:"text" jsonschema:"one-line audit string"`
}

// AnalyzeInput is the analyze_target tool input.
type AnalyzeInput struct {
	Expr       string  `json:"expr" jsonschema:"dice expression to analyze"`
	Target     float64 `json:"target" jsonschema:"number the expression is compared with"`
	Comparator string  `json:"comparator,omitempty" jsonschema:"one of >=, >, <=, <, ==, != (default >=)"`
	Samples    int     `json:"samples,omitempty" jsonschema:"Monte Carlo sample count, clamped to 1000..1000000"`
	Actor      string  `json:"actor,omitempty" jsonschema:"optional caller name recorded in roll history"`
}

// IntervalOutput is a 95% confidence interval.
type IntervalOutput struct {
	Low      float64 `json:"low" jsonschema:"lower bound probability"`
	High     float64 `json:"high" jsonschema:"upper bound probability"`
	LowText  string  `json:"low_text" jsonschema:"lower bound as a percentage"`
	HighText string  `json:"high_text" jsonschema:"upper bound as a percentage"`
}

// TermOutput describes one dice term of an analyzed expression.
type TermOutput struct {
	Raw                      string `json:"raw" jsonschema:"dice term text, e.g. 2d6"`
	MinSum                   int    `json:"min_sum" jsonschema:"smallest face sum"`
	MaxSum                   int    `json:"max_sum" jsonschema:"largest face sum"`
	NeedAtLeastWhenOthersMin *int   `json:"need_at_least_when_others_min,omitempty" jsonschema:"face sum this term needs when the other terms roll their minimum"`
	NeedAtLeastWhenOthersMax *int   `json:"need_at_least_when_others_max,omitempty" jsonschema:"face sum this term needs when the other terms roll their maximum"`
}

// AnalyzeOutput is the analyze_target tool output.
type AnalyzeOutput struct {
	Input              string          `json:"input" jsonschema:"expression as given"`
	Target             float64         `json:"target" jsonschema:"comparison target"`
	Comparator         string          `json:"comparator" jsonschema:"comparator applied"`
	Method             string          `json:"method" jsonschema:"exact or montecarlo"`
	Probability        float64         `json:"probability" jsonschema:"probability between 0 and 1"`
	ProbabilityPercent string          `json:"probability_percent" jsonschema:"probability as a two-decimal percentage"`
	Samples            int             `json:"samples,omitempty" jsonschema:"Monte Carlo sample count"`
	CI95               *IntervalOutput `json:"ci95,omitempty" jsonschema:"95% confidence interval for Monte Carlo results"`
	Terms              []TermOutput    `json:"terms" jsonschema:"per-term ranges and threshold hints"`
}

// HPInput is the roll_hp tool input.
type HPInput struct {
	Subject string             `json:"subject" jsonschema:"preset ID or formula with {name} placeholders"`
	Params  map[string]float64 `json:"params,omitempty" jsonschema:"placeholder values"`
	Actor   string             `json:"actor,omitempty" jsonschema:"optional caller name recorded in roll history"`
}

// HPOutput is the roll_hp tool output.
type HPOutput struct {
	Preset     string     `json:"preset,omitempty" jsonschema:"preset ID used"`
	Resolved   bool       `json:"resolved" jsonschema:"false when the formula was empty"`
	Expression string     `json:"expression,omitempty" jsonschema:"expression after substitution"`
	Roll       RollOutput `json:"roll" jsonschema:"underlying roll"`
	HP         int        `json:"hp" jsonschema:"hit points after rounding and clamping"`
}

// RollTool defines the roll_expression tool.
func RollTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_expression",
		Description: "Rolls a dice expression and returns the dice drawn, an expanded audit string and the total",
	}
}

// AnalyzeTool defines the analyze_target tool.
func AnalyzeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "analyze_target",
		Description: "Computes the probability that a dice expression meets a target, exactly when feasible and by Monte Carlo otherwise",
	}
}

// HPTool defines the roll_hp tool.
func HPTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_hp",
		Description: "Rolls hit points from a named preset or an ad-hoc formula",
	}
}

func rollOutput(r dice.RollResult) RollOutput {
	out := RollOutput{Input: r.Input, Expanded: r.Expanded, Dice: r.Dice, Total: r.Total}
	if out.Dice == nil {
		out.Dice = []int{}
	}
	if r.Input != "" {
		out.Text = r.String()
	}
	return out
}

// RollHandler executes roll_expression.
func RollHandler(svc *diceserver.Service) mcp.ToolHandlerFor[RollInput, RollOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollInput) (*mcp.CallToolResult, RollOutput, error) {
		res, err := svc.Roll(ctx, diceserver.RollRequest{
			Actor:    input.Actor,
			Frontend: diceserver.FrontendMCP,
			Expr:     input.Expr,
			Sort:     input.Sort,
		})
		if err != nil {
			return nil, RollOutput{}, toolError("roll", err)
		}
		return nil, rollOutput(res), nil
	}
}

// AnalyzeHandler executes analyze_target.
func AnalyzeHandler(svc *diceserver.Service) mcp.ToolHandlerFor[AnalyzeInput, AnalyzeOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
		res, err := svc.Analyze(ctx, diceserver.AnalyzeRequest{
			Actor:      input.Actor,
			Frontend:   diceserver.FrontendMCP,
			Expr:       input.Expr,
			Target:     input.Target,
			Comparator: dice.Comparator(input.Comparator),
			Samples:    input.Samples,
		})
		if err != nil {
			return nil, AnalyzeOutput{}, toolError("analysis", err)
		}

		out := AnalyzeOutput{
			Input:              res.Input,
			Target:             res.Target,
			Comparator:         string(res.Comparator),
			Method:             string(res.Method),
			Probability:        res.Probability,
			ProbabilityPercent: res.ProbabilityPercent,
			Terms:              make([]TermOutput, 0, len(res.Terms)),
		}
		if res.Method == dice.MethodMonteCarlo {
			out.Samples = res.Samples
		}
		if res.CI95 != nil {
			out.CI95 = &IntervalOutput{
				Low:      res.CI95.Low,
				High:     res.CI95.High,
				LowText:  res.CI95.LowText,
				HighText: res.CI95.HighText,
			}
		}
		for _, t := range res.Terms {
			out.Terms = append(out.Terms, TermOutput{
				Raw:                      t.Raw,
				MinSum:                   t.MinSum,
				MaxSum:                   t.MaxSum,
				NeedAtLeastWhenOthersMin: t.NeedAtLeastWhenOthersMin,
				NeedAtLeastWhenOthersMax: t.NeedAtLeastWhenOthersMax,
			})
		}
		return nil, out, nil
	}
}

// HPHandler executes roll_hp.
func HPHandler(svc *diceserver.Service) mcp.ToolHandlerFor[HPInput, HPOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input HPInput) (*mcp.CallToolResult, HPOutput, error) {
		res, err := svc.ResolveHP(ctx, diceserver.HPRequest{
			Actor:    input.Actor,
			Frontend: diceserver.FrontendMCP,
			Subject:  input.Subject,
			Params:   input.Params,
		})
		if err != nil {
			return nil, HPOutput{}, toolError("hp roll", err)
		}
		return nil, HPOutput{
			Preset:     res.Preset,
			Resolved:   res.Resolved,
			Expression: res.Expression,
			Roll:       rollOutput(res.Roll),
			HP:         res.HP,
		}, nil
	}
}

// toolError keeps the user-facing message of expression errors and wraps
// everything else with the operation name.
func toolError(op string, err error) error {
	var exprErr *dice.ExpressionError
	if errors.As(err, &exprErr) {
		return errors.New(exprErr.Message)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// Register adds every dice tool to server.
func Register(server *mcp.Server, svc *diceserver.Service) {
	mcp.AddTool(server, RollTool(), RollHandler(svc))
	mcp.AddTool(server, AnalyzeTool(), AnalyzeHandler(svc))
	mcp.AddTool(server, HPTool(), HPHandler(svc))
}

// NewServer creates an MCP server advertising cfg and carrying the dice tools.
//
// Precondition: svc must be non-nil.
// Postcondition: Returns a server ready for Serve.
func NewServer(cfg config.MCPConfig, svc *diceserver.Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil)
	Register(server, svc)
	return server
}

// Serve runs server on transport until the client disconnects or ctx ends.
//
// Postcondition: Returns nil on cancellation or a clean disconnect.
func Serve(ctx context.Context, server *mcp.Server, transport mcp.Transport, logger *zap.Logger) error {
	logger.Info("mcp server starting")
	err := server.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	logger.Info("mcp server stopped")
	return nil
}
