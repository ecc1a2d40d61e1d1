package diceserver

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dice.v1.DiceService"

// DiceServiceServer is the server API of dice.v1.DiceService. Every method
// exchanges google.protobuf.Struct messages.
type DiceServiceServer interface {
	Roll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveHP(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(DiceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DiceServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DiceServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Roll", Handler: unaryHandler("Roll", DiceServiceServer.Roll)},
		{MethodName: "Analyze", Handler: unaryHandler("Analyze", DiceServiceServer.Analyze)},
		{MethodName: "ResolveHP", Handler: unaryHandler("ResolveHP", DiceServiceServer.ResolveHP)},
		{MethodName: "History", Handler: unaryHandler("History", DiceServiceServer.History)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dice/v1/dice.proto",
}

// RegisterDiceServiceServer registers srv on s.
func RegisterDiceServiceServer(s grpc.ServiceRegistrar, srv DiceServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// NewTransport builds an OTel-instrumented *grpc.Server with srv registered.
//
// Postcondition: the returned server is ready for Serve.
func NewTransport(srv DiceServiceServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := grpc.NewServer(opts...)
	RegisterDiceServiceServer(s, srv)
	return s
}

// GRPCServer adapts a Service to DiceServiceServer.
type GRPCServer struct {
	svc    *Service
	logger *zap.Logger
}

// NewGRPCServer creates a GRPCServer.
//
// Precondition: svc and logger must be non-nil.
func NewGRPCServer(svc *Service, logger *zap.Logger) *GRPCServer {
	return &GRPCServer{svc: svc, logger: logger}
}

// Roll handles dice.v1.DiceService/Roll.
func (g *GRPCServer) Roll(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := decodeRollRequest(in)
	if strings.TrimSpace(req.Expr) == "" {
		return nil, status.Error(codes.InvalidArgument, "expr is required")
	}
	res, err := g.svc.Roll(ctx, req)
	if err != nil {
		return nil, g.toStatus("roll", err)
	}
	return encodeRoll(res), nil
}

// Analyze handles dice.v1.DiceService/Analyze.
func (g *GRPCServer) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := decodeAnalyzeRequest(in)
	if strings.TrimSpace(req.Expr) == "" {
		return nil, status.Error(codes.InvalidArgument, "expr is required")
	}
	if !has(in, "target") {
		return nil, status.Error(codes.InvalidArgument, "target is required")
	}
	res, err := g.svc.Analyze(ctx, req)
	if err != nil {
		return nil, g.toStatus("analyze", err)
	}
	return encodeAnalysis(res), nil
}

// ResolveHP handles dice.v1.DiceService/ResolveHP.
func (g *GRPCServer) ResolveHP(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	res, err := g.svc.ResolveHP(ctx, decodeHPRequest(in))
	if err != nil {
		return nil, g.toStatus("hp", err)
	}
	return encodeHP(res), nil
}

// History handles dice.v1.DiceService/History.
func (g *GRPCServer) History(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor := getString(in, "actor")
	if actor == "" {
		return nil, status.Error(codes.InvalidArgument, "actor is required")
	}
	entries, err := g.svc.History(ctx, actor, int(getNumber(in, "limit")))
	if err != nil {
		return nil, g.toStatus("history", err)
	}
	return encodeHistory(entries), nil
}

// toStatus maps user errors to InvalidArgument and everything else to Internal.
func (g *GRPCServer) toStatus(op string, err error) error {
	var exprErr *dice.ExpressionError
	switch {
	case errors.As(err, &exprErr):
		return status.Error(codes.InvalidArgument, exprErr.Message)
	case errors.Is(err, hpformula.ErrEmptyParamName),
		errors.Is(err, hpformula.ErrMissingParam),
		errors.Is(err, hpformula.ErrParamNotNumber),
		errors.Is(err, hpformula.ErrResultNotFinite):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	g.logger.Error("dice rpc failed", zap.String("operation", op), zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

// Client calls a remote dice.v1.DiceService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a Client on an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to a DiceService at addr without transport security.
//
// Postcondition: Returns a Client and the connection to close when done.
func Dial(addr string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Roll rolls req.Expr remotely. req.Frontend is ignored; the server records grpc.
func (c *Client) Roll(ctx context.Context, req RollRequest) (dice.RollResult, error) {
	out, err := c.invoke(ctx, "Roll", encodeRollRequest(req))
	if err != nil {
		return dice.RollResult{}, err
	}
	return decodeRoll(out), nil
}

// Analyze runs a target analysis remotely.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (dice.TargetAnalysis, error) {
	out, err := c.invoke(ctx, "Analyze", encodeAnalyzeRequest(req))
	if err != nil {
		return dice.TargetAnalysis{}, err
	}
	return decodeAnalysis(out), nil
}

// ResolveHP rolls hit points remotely.
func (c *Client) ResolveHP(ctx context.Context, req HPRequest) (HPResult, error) {
	out, err := c.invoke(ctx, "ResolveHP", encodeHPRequest(req))
	if err != nil {
		return HPResult{}, err
	}
	return decodeHP(out), nil
}

// History lists actor's recent entries remotely.
func (c *Client) History(ctx context.Context, actor string, limit int) ([]history.Entry, error) {
	out, err := c.invoke(ctx, "History", encodeHistoryRequest(actor, limit))
	if err != nil {
		return nil, err
	}
	return decodeHistory(out), nil
}
