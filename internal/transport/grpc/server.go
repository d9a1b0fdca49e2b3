package grpcx

import (
	"context"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/rpccontract"
	"github.com/bcrosbie/noose/internal/service"
	json "github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type NooseRPCServer interface {
	GetHealth(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListAgents(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	GetAgent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAgent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAccidents(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	CreateAccident(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetDailyQuote(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetActivePopup(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetLeaderboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDashboard(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type NooseHandler struct {
	noose *service.NooseService
}

func NewNooseHandler(noose *service.NooseService) *NooseHandler {
	return &NooseHandler{noose: noose}
}

func RegisterNooseServer(server *grpc.Server, handler NooseRPCServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: rpccontract.ServiceName,
		HandlerType: (*NooseRPCServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetHealth", Handler: unaryHandler(rpccontract.MethodGetHealth, NooseRPCServer.GetHealth)},
			{MethodName: "ListAgents", Handler: unaryHandler(rpccontract.MethodListAgents, NooseRPCServer.ListAgents)},
			{MethodName: "GetAgent", Handler: unaryHandler(rpccontract.MethodGetAgent, NooseRPCServer.GetAgent)},
			{MethodName: "CreateAgent", Handler: unaryHandler(rpccontract.MethodCreateAgent, NooseRPCServer.CreateAgent)},
			{MethodName: "ListAccidents", Handler: unaryHandler(rpccontract.MethodListAccidents, NooseRPCServer.ListAccidents)},
			{MethodName: "CreateAccident", Handler: unaryHandler(rpccontract.MethodCreateAccident, NooseRPCServer.CreateAccident)},
			{MethodName: "GetProfile", Handler: unaryHandler(rpccontract.MethodGetProfile, NooseRPCServer.GetProfile)},
			{MethodName: "GetDailyQuote", Handler: unaryHandler(rpccontract.MethodGetDailyQuote, NooseRPCServer.GetDailyQuote)},
			{MethodName: "GetActivePopup", Handler: unaryHandler(rpccontract.MethodGetActivePopup, NooseRPCServer.GetActivePopup)},
			{MethodName: "GetLeaderboard", Handler: unaryHandler(rpccontract.MethodGetLeaderboard, NooseRPCServer.GetLeaderboard)},
			{MethodName: "GetDashboard", Handler: unaryHandler(rpccontract.MethodGetDashboard, NooseRPCServer.GetDashboard)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "proto/noose/v1/noose.proto",
	}, handler)
}

type getAgentRequest struct {
	ID string `json:"id"`
}

type leaderboardRequest struct {
	Limit int `json:"limit"`
}

func (h *NooseHandler) GetHealth(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(h.noose.Health())
}

func (h *NooseHandler) ListAgents(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	agents, err := h.noose.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	return toList(agents)
}

func (h *NooseHandler) GetAgent(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	decoded, err := decodeStruct[getAgentRequest](request)
	if err != nil {
		return nil, err
	}
	detail, err := h.noose.AgentDetail(ctx, decoded.ID)
	if err != nil {
		return nil, err
	}
	return toStruct(detail)
}

func (h *NooseHandler) CreateAgent(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	decoded, err := decodeStruct[service.CreateAgentRequest](request)
	if err != nil {
		return nil, err
	}
	created, err := h.noose.CreateAgent(ctx, decoded)
	if err != nil {
		return nil, err
	}
	return toStruct(created)
}

func (h *NooseHandler) ListAccidents(ctx context.Context, request *structpb.Struct) (*structpb.ListValue, error) {
	decoded, err := decodeStruct[service.ListAccidentsRequest](request)
	if err != nil {
		return nil, err
	}
	accidents, err := h.noose.ListAccidents(ctx, decoded)
	if err != nil {
		return nil, err
	}
	return toList(accidents)
}

func (h *NooseHandler) CreateAccident(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	decoded, err := decodeStruct[service.CreateAccidentRequest](request)
	if err != nil {
		return nil, err
	}
	created, err := h.noose.CreateAccident(ctx, decoded)
	if err != nil {
		return nil, err
	}
	return toStruct(created)
}

func (h *NooseHandler) GetProfile(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	profile, err := h.noose.Profile(ctx)
	if err != nil {
		return nil, err
	}
	return toStruct(profile)
}

func (h *NooseHandler) GetDailyQuote(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	quote, err := h.noose.DailyQuote(ctx)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"quote": quote})
}

func (h *NooseHandler) GetActivePopup(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	popup, err := h.noose.ActivePopup(ctx)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"popup": popup})
}

func (h *NooseHandler) GetLeaderboard(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	decoded, err := decodeStruct[leaderboardRequest](request)
	if err != nil {
		return nil, err
	}
	board, err := h.noose.Leaderboard(ctx, decoded.Limit)
	if err != nil {
		return nil, err
	}
	return toStruct(board)
}

func (h *NooseHandler) GetDashboard(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	dashboard, err := h.noose.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return toStruct(dashboard)
}

func toStruct(value any) (*structpb.Struct, error) {
	serialized, err := json.Marshal(value)
	if err != nil {
		return nil, domain.Internal("failed to encode response", err)
	}

	decoded := map[string]any{}
	if err := json.Unmarshal(serialized, &decoded); err != nil {
		return nil, domain.Internal("failed to shape response object", err)
	}
	result, err := structpb.NewStruct(decoded)
	if err != nil {
		return nil, domain.Internal("failed to convert response to protobuf struct", err)
	}
	return result, nil
}

func toList(value any) (*structpb.ListValue, error) {
	serialized, err := json.Marshal(value)
	if err != nil {
		return nil, domain.Internal("failed to encode response list", err)
	}

	decoded := []any{}
	if err := json.Unmarshal(serialized, &decoded); err != nil {
		return nil, domain.Internal("failed to shape response list", err)
	}
	result, err := structpb.NewList(decoded)
	if err != nil {
		return nil, domain.Internal("failed to convert response to protobuf list", err)
	}
	return result, nil
}

func decodeStruct[T any](input *structpb.Struct) (T, error) {
	var out T
	if input == nil {
		return out, nil
	}
	serialized, err := json.Marshal(input.AsMap())
	if err != nil {
		return out, domain.InvalidArgument("request payload could not be encoded")
	}
	if err := json.Unmarshal(serialized, &out); err != nil {
		return out, domain.InvalidArgument("request payload shape is invalid")
	}
	return out, nil
}

// unaryHandler adapts one NooseRPCServer method to grpc.MethodHandler.
func unaryHandler[Req any, PReq interface {
	*Req
	Reset()
}, Resp any](fullMethod string, call func(NooseRPCServer, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		request := PReq(new(Req))
		if err := decoder(request); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NooseRPCServer), ctx, request)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NooseRPCServer), ctx, req.(PReq))
		}
		return interceptor(ctx, request, info, handler)
	}
}
