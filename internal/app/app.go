// Package app wires configuration, the store, the provider, the worker
// queue, the event hub, and the orchestrator into a single initialized
// unit, adapted from the teacher's App (internal/app/app.go): one
// constructor that resolves configuration and builds every dependency in
// order, one Close that stops the queue and then the event hub.
package app

import (
	"os"
	"time"

	"github.com/primaltree/piratenation/internal/common"
	"github.com/primaltree/piratenation/internal/events"
	"github.com/primaltree/piratenation/internal/orchestrator"
	"github.com/primaltree/piratenation/internal/provider"
	"github.com/primaltree/piratenation/internal/provider/httpprovider"
	"github.com/primaltree/piratenation/internal/provider/mock"
	"github.com/primaltree/piratenation/internal/queue"
	"github.com/primaltree/piratenation/internal/store"
)

// App holds all initialized components. It is the shared core used by
// cmd/piratepoll.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Store        store.Store
	Provider     provider.Provider
	Queue        *queue.Queue
	Hub          *events.Hub
	Orchestrator *orchestrator.Orchestrator
	StartupTime  time.Time
}

// NewApp loads configuration (configPath may be empty, in which case the
// file named by PIRATE_CONFIG is used if set; with neither, only PIRATE_*
// environment overrides and built-in defaults apply) and
// constructs every component. The provider is chosen by the
// PIRATE_LIVE_SCORE_URL environment variable: set, it builds an
// httpprovider.Client against that base URL; unset, it falls back to the
// deterministic mock.Provider so the binary runs standalone out of the box.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	if configPath == "" {
		configPath = os.Getenv("PIRATE_CONFIG")
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := common.NewLogger(config.Logging.Level)

	st := store.NewMemory()

	var p provider.Provider
	if baseURL := os.Getenv("PIRATE_LIVE_SCORE_URL"); baseURL != "" {
		p = httpprovider.New(baseURL, httpprovider.WithLogger(logger))
	} else {
		p = mock.New(50 * time.Millisecond)
	}

	retry := config.Queue.Retry
	q := queue.New(queue.Options{
		Concurrency:        config.Queue.GetConcurrency(),
		PollInterval:       config.Queue.GetPollInterval(),
		DefaultMaxRetries:  retry.GetMaxRetries(),
		DefaultBackoffBase: retry.GetBackoffBase(),
		DefaultBackoffMin:  retry.GetBackoffMin(),
		DefaultBackoffMax:  retry.GetBackoffMax(),
		DefaultJitter:      retry.GetJitter(),
		Logger:             logger,
	})

	hub := events.NewHub(logger)

	orch := orchestrator.New(p, st, q, hub, logger)

	return &App{
		Config:       config,
		Logger:       logger,
		Store:        st,
		Provider:     p,
		Queue:        q,
		Hub:          hub,
		Orchestrator: orch,
		StartupTime:  startupStart,
	}, nil
}

// Start starts the hub's dispatch loop, seeds the configured matches, then
// starts the queue's dispatcher (spec §4.7).
func (a *App) Start() {
	go a.Hub.Run()
	a.Orchestrator.Seed(a.Config.Matches)
	a.Queue.Start()
}

// Close stops the queue (draining inflight jobs) and then the event hub.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Stop()
		a.Queue.WaitStopped()
	}
	if a.Hub != nil {
		a.Hub.Stop()
	}
}
