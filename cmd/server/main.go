package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/lotwise-backend/internal/adapter/grpc"
	"github.com/simaogato/lotwise-backend/internal/adapter/repository"
	"github.com/simaogato/lotwise-backend/internal/config"
	"github.com/simaogato/lotwise-backend/internal/logger"
	"github.com/simaogato/lotwise-backend/internal/usecase/report"
	"github.com/simaogato/lotwise-backend/internal/usecase/submission"
)

func main() {
	// 1. Load configuration and logger
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	l := logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 2. Setup Database
	store, err := repository.Open(ctx, cfg, l)
	if err != nil {
		log.Fatalf("Failed to open transaction store: %v", err)
	}
	defer store.Close()

	// 3. Initialize Services (Use Cases)
	generator := report.NewTaxReportGenerator(store.Transactions, l)
	submitter := submission.NewTaxReportSubmitter(store.Transactions,
		submission.WithLogger(l),
		submission.WithShutdownGrace(cfg.SubmissionShutdownGrace),
		submission.WithStatusRetention(cfg.SubmissionStatusTTL),
	)

	// 4. Start gRPC Server
	grpcServer := grpcadapter.NewGRPCServer(cfg.APIToken, l)
	grpcadapter.RegisterTaxReportServiceServer(grpcServer, grpcadapter.NewServer(generator, submitter, l))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.GRPCPort, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info("gRPC server listening", "addr", cfg.GRPCPort)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdown(grpcServer, submitter, cfg.SubmissionShutdownGrace, l)
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Error("Server exited with error", "error", err)
		store.Close()
		log.Fatalf("Server exited with error: %v", err)
	}
}

// shutdown drains the submitter before stopping the gRPC server.
// Once the submitter is down every submission is terminal, so open
// WatchSubmission streams finish and GracefulStop can return. If a call
// still holds the server past the grace period it is stopped hard.
func shutdown(srv *grpc.Server, submitter *submission.TaxReportSubmitter, grace time.Duration, l *slog.Logger) {
	l.Info("Shutting down gracefully...")

	// 1. Drain the submitter within its grace period
	if err := submitter.Shutdown(context.Background()); err != nil {
		l.Warn("Submitter did not drain cleanly", "error", err)
	}

	// 2. Stop taking calls
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	if grace <= 0 {
		<-stopped
		l.Info("gRPC server stopped")
		return
	}

	select {
	case <-stopped:
	case <-time.After(grace):
		l.Warn("gRPC server did not stop within grace period, closing open calls", "grace", grace)
		srv.Stop()
		<-stopped
	}
	l.Info("gRPC server stopped")
}
