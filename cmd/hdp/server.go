package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HerodotusDev/hdp-sub002/hdp"
	"github.com/HerodotusDev/hdp-sub002/hdpconfig"
	"github.com/HerodotusDev/hdp-sub002/log"
	"github.com/HerodotusDev/hdp-sub002/metrics"
	"gopkg.in/natefinch/lumberjack.v2"
)

// startServer runs a long-lived HTTP server accepting batches over
// POST /run, grounded on the teacher's node-lifecycle pattern (start,
// serve, wait for SIGINT/SIGTERM, graceful stop) adapted from RPC-node
// serving to HDP-batch serving.
func startServer(ctx context.Context, args []string) error {
	env, err := hdpconfig.Load(nil)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "HTTP listen address")
	logFile := fs.String("log-file", "", "rotate structured logs to this file instead of stderr")
	pf := registerPipelineFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		level := slogLevel(env.LogLevel)
		log.SetDefault(log.NewWithHandler(slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level})))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		handleRun(w, r, pf, env)
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	serverLog := log.Default().Module("cmd/hdp")

	errCh := make(chan error, 1)
	go func() {
		serverLog.Info("listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		serverLog.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("cmd/hdp: graceful shutdown: %w", err)
	}
	serverLog.Info("shutdown complete")
	return nil
}

// handleRun accepts the same Request JSON document as the run subcommand's
// --request-file and returns the resulting ProcessorOutput as JSON.
func handleRun(w http.ResponseWriter, r *http.Request, pf *pipelineFlags, env *hdpconfig.Config) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tasks, err := parseRequestFile(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := buildOrchestratorConfig(pf, env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out, err := hdp.Run(r.Context(), tasks, cfg)
	if err != nil {
		metrics.IncProviderRequest("http_run", "error")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.IncProviderRequest("http_run", "ok")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
