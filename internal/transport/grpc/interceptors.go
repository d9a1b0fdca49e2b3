package grpcx

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func RecoveryUnaryInterceptor(log *logging.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (response any, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error().
					Str("method", info.FullMethod).
					Interface("panic", recovered).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func LoggingUnaryInterceptor(log *logging.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		started := time.Now()
		response, err := handler(ctx, req)
		code := status.Code(err)
		event := log.Debug()
		if code != codes.OK {
			event = log.Warn().Err(err)
		}
		event.Str("method", info.FullMethod).
			Dur("duration", time.Since(started)).
			Str("code", code.String()).
			Msg("grpc request")
		return response, err
	}
}

func ErrorUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		response, err := handler(ctx, req)
		if err == nil {
			return response, nil
		}

		if status.Code(err) != codes.Unknown {
			return nil, err
		}

		return nil, mapError(err)
	}
}

func mapError(err error) error {
	var appError *domain.AppError
	if errors.As(err, &appError) {
		switch appError.Code {
		case domain.CodeInvalidArgument:
			return status.Error(codes.InvalidArgument, appError.Message)
		case domain.CodeNotFound:
			return status.Error(codes.NotFound, appError.Message)
		case domain.CodeStore:
			return status.Error(codes.Unavailable, appError.Message)
		default:
			return status.Error(codes.Internal, appError.Message)
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal server error")
}

// ServerOptions chains the interceptors in the order the server installs them:
// recovery outermost, then logging, then error mapping.
func ServerOptions(log *logging.Logger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoveryUnaryInterceptor(log),
			LoggingUnaryInterceptor(log),
			ErrorUnaryInterceptor(),
		),
	}
}
