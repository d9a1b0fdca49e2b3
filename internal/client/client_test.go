package client

import (
	"context"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/logging"
	"github.com/bcrosbie/noose/internal/service"
	"github.com/bcrosbie/noose/internal/store"
	grpcx "github.com/bcrosbie/noose/internal/transport/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func startServer(t *testing.T, handler grpcx.NooseRPCServer, retries int) *Client {
	t.Helper()
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpcx.ServerOptions(logging.Nop())...)
	grpcx.RegisterNooseServer(server, handler)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	c := NewFromConn(conn, 2*time.Second, retries)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newService(t *testing.T) *service.NooseService {
	t.Helper()
	records := store.NewFileStore(filepath.Join(t.TempDir(), "noose.db.json"))
	require.NoError(t, records.Load(context.Background()))
	require.NoError(t, records.SeedReferenceData(context.Background(), domain.ReferenceData{
		Profile: &domain.ColleagueProfile{Name: "Jean", Surname: "Dupont"},
		Quotes:  []domain.DailyQuote{{Content: "Prudence est mère de sûreté.", IsActive: true}},
	}))
	return service.NewNooseService(records, service.Options{Driver: store.DriverFile, Logger: logging.Nop()})
}

func TestRoundTripOverGRPC(t *testing.T) {
	ctx := context.Background()
	c := startServer(t, grpcx.NewNooseHandler(newService(t)), 1)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health["status"])

	agent, err := c.CreateAgent(ctx, service.CreateAgentRequest{Name: "Bond"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), agent.AgentNumber)

	accident, err := c.CreateAccident(ctx, service.CreateAccidentRequest{
		Date:        "2024-03-01",
		Description: "Drove into the Thames",
		Cost:        domain.ParseAmount("1999.99"),
		AddedBy:     "M",
		AgentID:     agent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "1999.99", accident.Cost.String())

	_, err = c.CreateAccident(ctx, service.CreateAccidentRequest{Description: "Unassigned mess", AddedBy: "Q"})
	require.NoError(t, err)

	agents, err := c.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, int64(1), agents[0].TotalAccidents)

	detail, err := c.AgentDetail(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "1999.99", detail.CombinedScore.String())
	require.Len(t, detail.Accidents, 1)

	journal, err := c.ListAccidents(ctx, service.ListAccidentsRequest{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, journal, 2)

	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jean", profile.Profile.Name)
	assert.Equal(t, int64(1), profile.Profile.TotalAccidents)
	assert.NotEmpty(t, profile.Tagline)

	quote, err := c.DailyQuote(ctx)
	require.NoError(t, err)
	require.NotNil(t, quote)

	popup, err := c.ActivePopup(ctx)
	require.NoError(t, err)
	assert.Nil(t, popup)

	board, err := c.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board.ByCost, 1)
	assert.Equal(t, "gold", string(board.ByCost[0].Tier))

	dashboard, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, dashboard.Accidents, 2)
	assert.NotNil(t, dashboard.Profile)

	snapshot, err := c.ExportSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Accidents, 2)
}

func TestErrorsMapToStatusCodes(t *testing.T) {
	ctx := context.Background()
	c := startServer(t, grpcx.NewNooseHandler(newService(t)), 1)

	_, err := c.CreateAccident(ctx, service.CreateAccidentRequest{Description: "", AddedBy: "Q"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "description is required", Message(err))

	_, err = c.AgentDetail(ctx, "ghost")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

// flakyHandler fails reads and writes with Unavailable and counts calls.
type flakyHandler struct {
	*grpcx.NooseHandler
	reads  atomic.Int32
	writes atomic.Int32
}

func (f *flakyHandler) ListAgents(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	f.reads.Add(1)
	return nil, status.Error(codes.Unavailable, "failed to list agents")
}

func (f *flakyHandler) CreateAccident(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	f.writes.Add(1)
	return nil, status.Error(codes.Unavailable, "failed to insert accident")
}

func TestRetriesReadsButNotWrites(t *testing.T) {
	ctx := context.Background()
	handler := &flakyHandler{NooseHandler: grpcx.NewNooseHandler(newService(t))}
	c := startServer(t, handler, 3)

	_, err := c.ListAgents(ctx)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, int32(3), handler.reads.Load())

	_, err = c.CreateAccident(ctx, service.CreateAccidentRequest{Description: "x", AddedBy: "y"})
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, int32(1), handler.writes.Load())
}
