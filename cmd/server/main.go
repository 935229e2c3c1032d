// Command pet-server starts the pet care gRPC server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/pet-keeper/internal/config"
	"github.com/and161185/pet-keeper/internal/hooks"
	"github.com/and161185/pet-keeper/internal/lifecycle"
	"github.com/and161185/pet-keeper/internal/locker"
	"github.com/and161185/pet-keeper/internal/metrics"
	"github.com/and161185/pet-keeper/internal/migrate"
	"github.com/and161185/pet-keeper/internal/repository"
	"github.com/and161185/pet-keeper/internal/repository/memory"
	"github.com/and161185/pet-keeper/internal/repository/postgres"
	grpcserver "github.com/and161185/pet-keeper/internal/server/grpc"
	"github.com/and161185/pet-keeper/internal/server/ops"
	"github.com/and161185/pet-keeper/internal/service"
	"github.com/and161185/pet-keeper/internal/sweep"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, prepares storage and serves gRPC plus the ops endpoints.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.Bool("postgres", cfg.DSN != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var creds credentials.TransportCredentials
	if !cfg.Insecure {
		c, err := credentials.NewServerTLSFromFile(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		creds = c
	}

	// Storage
	var (
		repo repository.PetRepository
		db   ops.Pinger
	)
	if cfg.DSN != "" {
		if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
			return err
		}
		pg, err := postgres.New(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()
		repo, db = postgres.NewPetRepo(pg), pg
	} else {
		logger.Warn("no -dsn given, pets live in memory only")
		repo = memory.NewPetRepo()
	}

	// Core
	engine := lifecycle.New(cfg.Tuning)
	locks := locker.New()
	rec := metrics.NewRecorder()
	journal := hooks.HookFunc{ID: "journal", Fn: func(_ context.Context, ev hooks.Event) error {
		logger.Debug("progress",
			zap.Stringer("pet_id", ev.PetID),
			zap.String("action", ev.Action),
			zap.String("tier", ev.Tier),
		)
		return nil
	}}
	pets := service.NewPetService(repo, engine, locks, service.Options{
		StoreTimeout: cfg.StoreTimeout,
		LockTimeout:  cfg.LockTimeout,
		Hooks:        hooks.NewDispatcher(logger, time.Second, rec, journal),
		Metrics:      rec,
	})

	// Sweep
	if cfg.SweepInterval > 0 {
		sw := sweep.New(repo, engine, locks, logger.Named("sweep"), sweep.Config{
			Interval:     cfg.SweepInterval,
			IdleFor:      cfg.SweepIdle,
			Batch:        cfg.SweepBatch,
			Workers:      cfg.SweepWorkers,
			StoreTimeout: cfg.StoreTimeout,
		})
		go func() { _ = sw.Run(ctx) }()
	}

	// gRPC server with interceptors
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary([]byte(cfg.JWTKey)),
		),
	}
	if creds != nil {
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)
	grpcserver.RegisterPetCareServer(s, grpcserver.New(pets, time.Now))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", creds != nil))
		errCh <- s.Serve(lis)
	}()

	var opsSrv *http.Server
	if cfg.OpsAddr != "" {
		opsSrv = &http.Server{
			Addr:              cfg.OpsAddr,
			Handler:           ops.NewRouter(ops.Options{Log: logger.Named("ops"), DB: db, Metrics: rec}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops listening", zap.String("addr", cfg.OpsAddr))
			if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("ops: %w", err)
			}
		}()
	}

	// Wait for stop
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	hs.Shutdown()

	if opsSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = opsSrv.Shutdown(sctx)
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.Stop()
	}
	return runErr
}
