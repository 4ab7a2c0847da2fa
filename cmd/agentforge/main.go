package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/AgentForge/internal/adapter/claude"
	"github.com/Strob0t/AgentForge/internal/adapter/codex"
	"github.com/Strob0t/AgentForge/internal/adapter/gemini"
	afhttp "github.com/Strob0t/AgentForge/internal/adapter/http"
	"github.com/Strob0t/AgentForge/internal/adapter/jsonstore"
	"github.com/Strob0t/AgentForge/internal/adapter/mcp"
	"github.com/Strob0t/AgentForge/internal/adapter/membus"
	afnats "github.com/Strob0t/AgentForge/internal/adapter/nats"
	"github.com/Strob0t/AgentForge/internal/adapter/otel"
	"github.com/Strob0t/AgentForge/internal/adapter/postgres"
	"github.com/Strob0t/AgentForge/internal/adapter/ristretto"
	"github.com/Strob0t/AgentForge/internal/adapter/teamhttp"
	"github.com/Strob0t/AgentForge/internal/adapter/ws"
	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/logger"
	"github.com/Strob0t/AgentForge/internal/middleware"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
	"github.com/Strob0t/AgentForge/internal/port/runtime"
	"github.com/Strob0t/AgentForge/internal/port/statsstore"
	"github.com/Strob0t/AgentForge/internal/port/taskstore"
	"github.com/Strob0t/AgentForge/internal/resilience"
	"github.com/Strob0t/AgentForge/internal/sandbox"
	"github.com/Strob0t/AgentForge/internal/service"
	"github.com/Strob0t/AgentForge/internal/session"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"storage_driver", cfg.Storage.Driver,
		"bus_driver", cfg.Bus.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	otelShutdown, err := otel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// --- Stores ---
	stores, err := jsonstore.Open(cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("stores: %w", err)
	}
	defer stores.Close()

	// Relationships, schedules, profiles and channel logs always live on
	// disk; Postgres optionally takes over the task and stats stores.
	var tasks taskstore.Store = stores.Tasks
	var stats statsstore.Store = stores.Stats
	if cfg.Storage.Driver == "postgres" {
		pool, perr := postgres.NewPool(ctx, cfg.Storage.Postgres)
		if perr != nil {
			return fmt.Errorf("postgres: %w", perr)
		}
		defer pool.Close()
		if merr := postgres.RunMigrations(ctx, cfg.Storage.Postgres.DSN); merr != nil {
			return fmt.Errorf("migrations: %w", merr)
		}
		tasks = postgres.NewTaskStore(pool)
		stats = postgres.NewStatsStore(pool)
		slog.Info("postgres task/stats store ready")
	}

	// --- Event bus ---
	var bus eventbus.Bus
	if cfg.Bus.Driver == "nats" {
		bus, err = afnats.Connect(ctx, cfg.Bus.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
	} else {
		bus = membus.New(log)
	}
	defer func() { _ = bus.Close() }()

	// --- Cache ---
	cache, err := ristretto.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	// --- Runtime adapters ---
	claude.Register()
	codex.Register()
	gemini.Register()
	adapters := func(name string) (runtime.Adapter, error) {
		return runtime.New(name, nil)
	}

	// --- Sessions, sandbox ---
	wsHub := ws.NewHub(nil)
	sessions := service.NewSessions(stores.Profiles, adapters, bus, wsHub)
	wsHub.SetController(sessions)

	sbox := sandbox.NewManager(cfg.Sandbox, func(agentID string) (*agent.Profile, error) {
		return stores.Profiles.Get(ctx, agentID)
	})
	if err := sbox.Reclaim(ctx); err != nil {
		slog.Warn("container reclaim failed", "error", err)
	}

	direct := session.NewDirectManager(cfg.Session, sessions)
	sandboxed := session.NewSandboxedManager(cfg.Session, cfg.Sandbox, sbox, sessions)
	sessions.Attach(direct, sandboxed)

	// --- Team executor ---
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	backend := teamhttp.New(cfg.Executor)
	executor := service.NewExecutor(cfg.Executor, backend, breaker)
	executor.Start()
	defer executor.Close()

	// --- Coordination services ---
	runner := service.NewRunner(tasks, stores.Profiles, executor, bus, adapters)
	cancelRunner, err := runner.Start(ctx)
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	defer cancelRunner()

	assigner := service.NewAssigner(stores.Profiles, stats, stores.Relationships, runner, cache, cfg.Cache.TTL, cfg.Session.MaxConcurrency)

	inbox, err := service.NewInbox(cfg.Inbox, tasks, bus)
	if err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	go func() {
		if err := inbox.Run(ctx); err != nil {
			slog.Error("inbox watcher stopped", "error", err)
		}
	}()

	teamEvents := service.NewTeamEvents(tasks, stats, stores.Relationships, stores.Hub, assigner, inbox, bus, wsHub)
	cancelEvents, err := teamEvents.Start(ctx)
	if err != nil {
		return fmt.Errorf("team events: %w", err)
	}
	defer cancelEvents()

	scheduler := service.NewScheduler(cfg.Scheduler, stores.Schedules, tasks, bus)
	if err := scheduler.Reconcile(ctx); err != nil {
		return fmt.Errorf("schedule reconcile: %w", err)
	}
	go func() {
		if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("scheduler stopped", "error", err)
		}
	}()

	// --- Telemetry observer ---
	if cfg.Telemetry.Enabled {
		metrics, merr := otel.NewMetrics()
		if merr != nil {
			return fmt.Errorf("metrics: %w", merr)
		}
		cancelObs, oerr := otel.NewObserver(metrics).Start(ctx, bus)
		if oerr != nil {
			return fmt.Errorf("metrics observer: %w", oerr)
		}
		defer cancelObs()
	}

	// --- MCP server ---
	var mcpHTTP *http.Server
	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Name:    "agentforge",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, mcp.Deps{
			Tasks:     tasks,
			Profiles:  stores.Profiles,
			Hub:       stores.Hub,
			Delegator: &inboxDelegator{inbox: inbox},
		})
		mcpHTTP = &http.Server{
			Addr:              ":" + cfg.MCP.Port,
			Handler:           mcpSrv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("starting MCP server", "addr", mcpHTTP.Addr)
			if err := mcpHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("mcp server failed", "error", err)
			}
		}()
	}

	// --- Control API ---
	handlers := &afhttp.Handlers{
		Tasks:         tasks,
		Schedules:     stores.Schedules,
		Profiles:      stores.Profiles,
		Stats:         stats,
		Relationships: stores.Relationships,
		Hub:           stores.Hub,
		Sessions:      sessions,
		Canceler:      runner,
		Bus:           bus,
		Version:       version,
	}

	r := chi.NewRouter()
	r.Use(afhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(afhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(afhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(middleware.Auth(cfg.Server.APIKey))

	afhttp.MountRoutes(r, handlers, wsHub.HandleWS)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting control API", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if mcpHTTP != nil {
		if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
			slog.Error("mcp shutdown failed", "error", err)
		}
	}
	if err := sessions.KillAll(shutdownCtx); err != nil {
		slog.Error("session shutdown failed", "error", err)
	}
	runner.Wait()

	slog.Info("shutdown complete")
	return nil
}

// inboxDelegator adapts the inbox service to the MCP delegation interface.
type inboxDelegator struct {
	inbox *service.Inbox
}

func (d *inboxDelegator) Append(agentID string, req mcp.DelegationRequest) error {
	return d.inbox.Append(agentID, service.DelegationRequest{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		From:        req.From,
		Tags:        req.Tags,
	})
}
