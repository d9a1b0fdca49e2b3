package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bcrosbie/noose/internal/config"
	"github.com/bcrosbie/noose/internal/logging"
	"github.com/bcrosbie/noose/internal/redact"
	"github.com/bcrosbie/noose/internal/service"
	"github.com/bcrosbie/noose/internal/store"
	grpcx "github.com/bcrosbie/noose/internal/transport/grpc"
	httpx "github.com/bcrosbie/noose/internal/transport/http"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log := logging.NewForFormat(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logging.Logger) error {
	records, err := buildStore(cfg, log)
	if err != nil {
		return fmt.Errorf("store setup failed: %s", redact.String(err.Error()))
	}
	log.Info().Str("store_driver", cfg.StoreDriver).Str("store_source", storeSource(cfg)).Msg("store opened")
	defer func() {
		if err := records.Close(); err != nil {
			log.Warn().Err(err).Msg("store close warning")
		}
	}()

	if err := records.Load(ctx); err != nil {
		return fmt.Errorf("store initialization failed: %w", err)
	}
	if err := seedStore(ctx, cfg, records, log); err != nil {
		return err
	}

	noose := service.NewNooseService(records, service.Options{
		Driver:          cfg.StoreDriver,
		LeaderboardSize: cfg.LeaderboardSize,
		Logger:          log,
	})

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	server := grpc.NewServer(grpcx.ServerOptions(log.Sub("grpc"))...)
	grpcx.RegisterNooseServer(server, grpcx.NewNooseHandler(noose))

	healthService := health.NewServer()
	healthService.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthService)
	if cfg.EnableReflection {
		reflection.Register(server)
	}

	var httpServer *http.Server
	if strings.TrimSpace(cfg.HTTPAddr) != "" {
		httpServer = httpx.NewServer(cfg.HTTPAddr, noose, log)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Str("store_driver", cfg.StoreDriver).Msg("gRPC server listening")
		if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve failed: %w", err)
		}
		return nil
	})
	if httpServer != nil {
		eg.Go(func() error {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP dashboard listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http serve failed: %w", err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-egCtx.Done()
		healthService.Shutdown()
		shutdown(server, httpServer, log)
		return nil
	})
	return eg.Wait()
}

func shutdown(server *grpc.Server, httpServer *http.Server, log *logging.Logger) {
	log.Info().Msg("shutdown signal received; draining gRPC server")
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("gRPC server stopped gracefully")
	case <-time.After(shutdownGrace):
		log.Warn().Msg("graceful timeout reached; forcing stop")
		server.Stop()
	}
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown warning")
		}
	}
}

func buildStore(cfg config.Config, log *logging.Logger) (store.RecordStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreDriver)) {
	case store.DriverPostgres:
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL, cfg.AutoMigrate, log.Sub("store"))
		if err != nil {
			return nil, err
		}
		return pgStore, nil
	case store.DriverSQLite:
		sqliteStore, err := store.NewSQLiteStore(cfg.SQLitePath, log.Sub("store"))
		if err != nil {
			return nil, err
		}
		return sqliteStore, nil
	case "", store.DriverFile:
		return store.NewFileStore(cfg.DataFile), nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q; expected file|sqlite|postgres", cfg.StoreDriver)
	}
}

// storeSource names where records live, with credentials masked.
func storeSource(cfg config.Config) string {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreDriver)) {
	case store.DriverPostgres:
		return redact.DSN(cfg.DatabaseURL)
	case store.DriverSQLite:
		return cfg.SQLitePath
	default:
		return cfg.DataFile
	}
}

// seedStore loads SEED_FILE into an empty store. Parts already present are
// left alone.
func seedStore(ctx context.Context, cfg config.Config, records store.RecordStore, log *logging.Logger) error {
	if strings.TrimSpace(cfg.SeedFile) == "" {
		return nil
	}
	seeder, ok := records.(store.ReferenceSeeder)
	if !ok {
		log.Warn().Str("store_driver", cfg.StoreDriver).Msg("store does not support seeding; SEED_FILE ignored")
		return nil
	}
	data, err := config.LoadReferenceData(cfg.SeedFile)
	if err != nil {
		return err
	}
	if err := seeder.SeedReferenceData(ctx, data); err != nil {
		return fmt.Errorf("seed reference data: %w", err)
	}
	log.Info().Str("seed_file", cfg.SeedFile).Int("quotes", len(data.Quotes)).Int("popups", len(data.Popups)).Msg("reference data seeded")
	return nil
}
