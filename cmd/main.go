package main

import (
	"contact-relay/errors"
	grpcinfra "contact-relay/infrastructure/grpc"
	"contact-relay/infrastructure/rest"
	"contact-relay/infrastructure/ws"
	"contact-relay/internal"
	"contact-relay/observability"
	"contact-relay/runtime"
	"contact-relay/runtime/workers"
	"contact-relay/services"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the relay, serves HTTP until a signal arrives and shuts everything down.
// Returning instead of exiting lets every defer run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	censor, err := runtime.PrepareCensor(logger, config.CensoredWords, charReplacement)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
	}

	// 2. Relay engine & supervision
	monitoring := observability.NewMonitoring(logger)
	health := grpcinfra.NewHealthServer(logger, config.HealthAddress())
	sup := workers.NewSupervisor(logger, config.RestartInterval).OnRestart(func(name string, err error) {
		logger.Error("Worker restarted after failure", "name", name, "error", err)
	})
	engine := runtime.NewRelayEngine(logger, monitoring, censor, config.CommandBufferSize)
	orchestrator := runtime.NewOrchestrator(logger, sup, engine).Add(
		workers.NewHeartbeatWorker(logger, monitoring, config.MetricInterval),
		workers.NewReporterWorker(logger, monitoring, config.MetricInterval, engine.QueueDepth),
		health,
	)

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)
	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 4. HTTP API & websocket
	service := services.NewRelayService(logger, orchestrator.Relay(), monitoring)
	wsServer := ws.NewServer(logger, service, monitoring, ws.Options{
		BufferSize:    config.ConnectionBufferSize,
		WriteTimeout:  config.WriteTimeout,
		PongWait:      config.PongWait,
		CallTimeout:   config.CallTimeout,
		AllowedOrigin: config.AllowedOrigin,
	})
	api := rest.NewAPI(logger, service, rest.Options{
		CallTimeout:   config.CallTimeout,
		AllowedOrigin: config.AllowedOrigin,
		StaticDir:     config.StaticDir,
	})
	server := &http.Server{
		Addr:              config.Address(),
		Handler:           api.Handler(wsServer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Starting relay", "address", config.Address(), "health", config.HealthAddress(), "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 6. Graceful shutdown: stop accepting requests, then stop the engine
	logger.Info("Shutting down gracefully...")
	health.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.CallTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	stop()
	orchestrator.Stop()
	<-orchestratorDone
	logger.Info("Program stopped cleanly")

	return code, runErr
}
