package diceserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/history"
)

// testGRPCClient serves f.svc over an in-memory listener and returns a connected client.
func testGRPCClient(t *testing.T, f *fixture) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	grpcServer := NewTransport(NewGRPCServer(f.svc, zap.NewNop()))
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func rpcContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPC_Roll(t *testing.T) {
	client := testGRPCClient(t, newFixture(t, history.NewMemoryStore(10), 4))

	res, err := client.Roll(rpcContext(t), RollRequest{Actor: "alice", Expr: "2d6+3"})
	require.NoError(t, err)
	assert.Equal(t, "2d6+3", res.Input)
	assert.Equal(t, "(4 + 4) + 3", res.Expanded)
	assert.Equal(t, []int{4, 4}, res.Dice)
	assert.Equal(t, [][]int{{4, 4}}, res.Faces)
	assert.Equal(t, 11.0, res.Total)
}

func TestGRPC_Roll_InvalidExpression(t *testing.T) {
	client := testGRPCClient(t, newFixture(t, nil, 4))

	_, err := client.Roll(rpcContext(t), RollRequest{Expr: "(1+2"})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.NotEmpty(t, st.Message())

	_, err = client.Roll(rpcContext(t), RollRequest{Expr: "   "})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_Analyze(t *testing.T) {
	client := testGRPCClient(t, newFixture(t, nil, 1))

	res, err := client.Analyze(rpcContext(t), AnalyzeRequest{Expr: "2d6", Target: 7, Comparator: dice.CmpGE})
	require.NoError(t, err)
	assert.Equal(t, dice.MethodExact, res.Method)
	assert.Equal(t, "58.33%", res.ProbabilityPercent)
	assert.Nil(t, res.CI95)
	require.Len(t, res.Terms, 1)
	assert.Equal(t, "2d6", res.Terms[0].Raw)
	assert.Equal(t, 2, res.Terms[0].MinSum)
	assert.Equal(t, 12, res.Terms[0].MaxSum)
	require.NotNil(t, res.Terms[0].NeedAtLeastWhenOthersMin)
	assert.Equal(t, 7, *res.Terms[0].NeedAtLeastWhenOthersMin)
}

func TestGRPC_Analyze_MonteCarloCarriesInterval(t *testing.T) {
	client := testGRPCClient(t, newFixture(t, nil, 1))

	res, err := client.Analyze(rpcContext(t), AnalyzeRequest{Expr: "300d1000", Target: 150000, Samples: 1000})
	require.NoError(t, err)
	assert.Equal(t, dice.MethodMonteCarlo, res.Method)
	assert.Equal(t, 1000, res.Samples)
	require.NotNil(t, res.CI95)
	assert.LessOrEqual(t, res.CI95.Low, res.CI95.High)
	assert.Nil(t, res.Terms[0].NeedAtLeastWhenOthersMin)
}

func TestGRPC_Analyze_MissingTarget(t *testing.T) {
	f := newFixture(t, nil, 1)
	srv := NewGRPCServer(f.svc, zap.NewNop())

	in := &structpb.Struct{Fields: map[string]*structpb.Value{"expr": structpb.NewStringValue("1d6")}}
	_, err := srv.Analyze(context.Background(), in)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_ResolveHPAndHistory(t *testing.T) {
	client := testGRPCClient(t, newFixture(t, history.NewMemoryStore(10), 5))
	ctx := rpcContext(t)

	hp, err := client.ResolveHP(ctx, HPRequest{Actor: "gm", Subject: "goblin"})
	require.NoError(t, err)
	assert.True(t, hp.Resolved)
	assert.Equal(t, "goblin", hp.Preset)
	assert.Equal(t, "1d6+2", hp.Expression)
	assert.Equal(t, 7, hp.HP)

	_, err = client.ResolveHP(ctx, HPRequest{Actor: "gm", Subject: "{x}d6"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	entries, err := client.History(ctx, "gm", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.KindRoll, entries[0].Kind)
	assert.Equal(t, "gm", entries[0].Actor)
	assert.False(t, entries[0].CreatedAt.IsZero())

	_, err = client.History(ctx, "", 5)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_HistoryStoreFailureIsInternal(t *testing.T) {
	client := testGRPCClient(t, newFixture(t, failingStore{}, 1))
	_, err := client.History(rpcContext(t), "alice", 1)
	assert.Equal(t, codes.Internal, status.Code(err))
}
