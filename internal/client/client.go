// Package client is the typed gRPC client used by noose-cli and the terminal
// UI.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/bcrosbie/noose/internal/config"
	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/export"
	"github.com/bcrosbie/noose/internal/ranking"
	"github.com/bcrosbie/noose/internal/rpccontract"
	"github.com/bcrosbie/noose/internal/service"
	json "github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const retryBackoff = 250 * time.Millisecond

type Client struct {
	conn          *grpc.ClientConn
	requestTO     time.Duration
	retryAttempts int
}

func New(cfg config.ClientConfig) (*Client, error) {
	cred := grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
	if cfg.GRPCInsecure || strings.HasPrefix(cfg.GRPCAddr, "127.0.0.1:") || strings.HasPrefix(cfg.GRPCAddr, "localhost:") {
		cred = grpc.WithTransportCredentials(insecure.NewCredentials())
	}

	conn, err := grpc.NewClient(
		cfg.GRPCAddr,
		cred,
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                25 * time.Second,
			Timeout:             6 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.GRPCAddr, err)
	}

	// Trigger initial connect attempt on startup.
	conn.Connect()

	return NewFromConn(conn, cfg.RequestTimeout, cfg.RetryAttempts), nil
}

// NewFromConn wraps an existing connection. The client takes ownership and
// closes it on Close.
func NewFromConn(conn *grpc.ClientConn, requestTimeout time.Duration, retryAttempts int) *Client {
	if requestTimeout <= 0 {
		requestTimeout = config.DefaultClient().RequestTimeout
	}
	return &Client{
		conn:          conn,
		requestTO:     requestTimeout,
		retryAttempts: retryAttempts,
	}
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	response := &structpb.Struct{}
	if err := c.invoke(ctx, rpccontract.MethodGetHealth, &emptypb.Empty{}, response); err != nil {
		return nil, err
	}
	return response.AsMap(), nil
}

func (c *Client) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	var agents []domain.Agent
	err := c.callList(ctx, rpccontract.MethodListAgents, nil, &agents)
	return agents, err
}

func (c *Client) AgentDetail(ctx context.Context, id string) (service.AgentDetail, error) {
	var detail service.AgentDetail
	err := c.callStruct(ctx, rpccontract.MethodGetAgent, map[string]any{"id": strings.TrimSpace(id)}, &detail)
	return detail, err
}

func (c *Client) CreateAgent(ctx context.Context, request service.CreateAgentRequest) (domain.Agent, error) {
	var agent domain.Agent
	err := c.callStruct(ctx, rpccontract.MethodCreateAgent, request, &agent)
	return agent, err
}

func (c *Client) ListAccidents(ctx context.Context, request service.ListAccidentsRequest) ([]domain.Accident, error) {
	var accidents []domain.Accident
	err := c.callList(ctx, rpccontract.MethodListAccidents, request, &accidents)
	return accidents, err
}

func (c *Client) CreateAccident(ctx context.Context, request service.CreateAccidentRequest) (domain.Accident, error) {
	var accident domain.Accident
	err := c.callStruct(ctx, rpccontract.MethodCreateAccident, request, &accident)
	return accident, err
}

func (c *Client) Profile(ctx context.Context) (service.ProfileView, error) {
	var view service.ProfileView
	err := c.callStruct(ctx, rpccontract.MethodGetProfile, nil, &view)
	return view, err
}

func (c *Client) DailyQuote(ctx context.Context) (*domain.DailyQuote, error) {
	var envelope struct {
		Quote *domain.DailyQuote `json:"quote"`
	}
	err := c.callStruct(ctx, rpccontract.MethodGetDailyQuote, nil, &envelope)
	return envelope.Quote, err
}

func (c *Client) ActivePopup(ctx context.Context) (*domain.Popup, error) {
	var envelope struct {
		Popup *domain.Popup `json:"popup"`
	}
	err := c.callStruct(ctx, rpccontract.MethodGetActivePopup, nil, &envelope)
	return envelope.Popup, err
}

// Leaderboard fetches the palmares; limit 0 asks for the server default.
func (c *Client) Leaderboard(ctx context.Context, limit int) (ranking.Leaderboard, error) {
	var board ranking.Leaderboard
	err := c.callStruct(ctx, rpccontract.MethodGetLeaderboard, map[string]any{"limit": limit}, &board)
	return board, err
}

func (c *Client) Dashboard(ctx context.Context) (service.Dashboard, error) {
	var dashboard service.Dashboard
	err := c.callStruct(ctx, rpccontract.MethodGetDashboard, nil, &dashboard)
	return dashboard, err
}

// ExportSnapshot assembles a workbook snapshot from three reads.
func (c *Client) ExportSnapshot(ctx context.Context) (export.Snapshot, error) {
	agents, err := c.ListAgents(ctx)
	if err != nil {
		return export.Snapshot{}, err
	}
	accidents, err := c.ListAccidents(ctx, service.ListAccidentsRequest{})
	if err != nil {
		return export.Snapshot{}, err
	}
	board, err := c.Leaderboard(ctx, 0)
	if err != nil {
		return export.Snapshot{}, err
	}
	return export.Snapshot{
		GeneratedAt: time.Now(),
		Agents:      agents,
		Accidents:   accidents,
		Leaderboard: board,
	}, nil
}

// callStruct sends payload (nil for methods taking Empty) and decodes the
// Struct response into out.
func (c *Client) callStruct(ctx context.Context, method string, payload any, out any) error {
	request, err := requestFor(payload)
	if err != nil {
		return err
	}
	response := &structpb.Struct{}
	if err := c.invoke(ctx, method, request, response); err != nil {
		return err
	}
	return reshape(response.AsMap(), out)
}

func (c *Client) callList(ctx context.Context, method string, payload any, out any) error {
	request, err := requestFor(payload)
	if err != nil {
		return err
	}
	response := &structpb.ListValue{}
	if err := c.invoke(ctx, method, request, response); err != nil {
		return err
	}
	return reshape(response.AsSlice(), out)
}

func (c *Client) invoke(ctx context.Context, method string, request, response proto.Message) error {
	attempts := c.retryAttempts
	if attempts < 1 || rpccontract.IsWrite(method) {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.requestTO)
		invokeErr := c.conn.Invoke(callCtx, method, request, response)
		cancel()
		if invokeErr == nil {
			return nil
		}
		lastErr = invokeErr
		if !isRetryable(invokeErr) || attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return lastErr
}

func requestFor(payload any) (proto.Message, error) {
	if payload == nil {
		return &emptypb.Empty{}, nil
	}
	fields := map[string]any{}
	if err := reshape(payload, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func reshape(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	code := status.Code(err)
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// Message returns the server-side message of a gRPC error, or err.Error().
func Message(err error) string {
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}
