// Command piratepoll runs the live-score watcher: it seeds one poll job
// per configured match onto the worker queue, serves an operational HTTP
// surface, and exits once every match has reached full time or a shutdown
// signal arrives.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/primaltree/piratenation/internal/app"
	"github.com/primaltree/piratenation/internal/common"
	"github.com/primaltree/piratenation/internal/httpapi"
)

func main() {
	configPath := os.Getenv("PIRATE_CONFIG")

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	a.Start()

	mux := httpapi.BuildMux(a.Store, a.Queue, a.Hub, a.Orchestrator)

	host := a.Config.Server.Host
	port := a.Config.Server.Port
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		a.Logger.Info().Int("port", port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	common.PrintBanner(a.Config, a.Logger, len(a.Config.Matches))

	finished := make(chan struct{})
	go func() {
		a.Orchestrator.RunUntilFinished(context.Background(), a.Config.Matches, 500*time.Millisecond)
		close(finished)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		a.Logger.Info().Msg("shutdown signal received")
	case <-finished:
		a.Logger.Info().Msg("all matches reached full time")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	a.Close()
	common.PrintShutdownBanner(a.Logger)
}
