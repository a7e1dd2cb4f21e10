// Command eprofiler-tui is the interactive terminal viewer described by
// spec.md: it serves the OTLP Profiles Export RPC, aggregates samples into a
// flame graph and flamescope heat map, and lets the operator load native
// symbols against unresolved addresses.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/rogercoll/eprofiler-tui/internal/config"
	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/ingest"
	"github.com/rogercoll/eprofiler-tui/internal/otlpcollector"
	"github.com/rogercoll/eprofiler-tui/internal/otlpwire"
	"github.com/rogercoll/eprofiler-tui/internal/symbols/loader"
	"github.com/rogercoll/eprofiler-tui/internal/symbols/store"
	"github.com/rogercoll/eprofiler-tui/internal/tuiapp"
	"github.com/rogercoll/eprofiler-tui/internal/tuistate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "eprofiler-tui:", err)
		os.Exit(1)
	}
}

func run() error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{})

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.DataDir, log)
	if err != nil {
		return fmt.Errorf("open symbol store: %w", err)
	}
	defer st.Close()

	known, err := st.ListFiles()
	if err != nil {
		return fmt.Errorf("list known executables: %w", err)
	}

	otlpwire.Register()

	bus := eventbus.New(256)
	ingestSvc := ingest.New(st, bus, log)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	otlpcollector.RegisterProfilesServiceServer(grpcServer, ingestSvc)

	go func() {
		defer recoverAndLog(log, "grpc server")
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Error("grpc server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ld, err := loader.New(st, bus, log, 256)
	if err != nil {
		return fmt.Errorf("init symbol loader: %w", err)
	}

	state := tuistate.New(addr, known)
	model := tuiapp.New(ctx, state, bus, ld)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		grpcServer.GracefulStop()
		return fmt.Errorf("run tui: %w", err)
	}

	grpcServer.GracefulStop()
	if err := ingestSvc.Wait(); err != nil {
		log.WithError(err).Warn("ingestion drain")
	}
	return nil
}

// recoverAndLog recovers and logs a panic in the goroutine that runs the
// gRPC Serve loop, which lies outside bubbletea's own recover-and-restore
// wrapper. Panics in the goroutines that serve individual requests, or in
// the ingestion service's processing tasks, are not recovered by it.
func recoverAndLog(log *logrus.Logger, component string) {
	if r := recover(); r != nil {
		log.WithField("component", component).WithField("panic", r).Error("recovered from panic")
	}
}
