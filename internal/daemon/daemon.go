// Package daemon assembles the concierge service: mock backends, tool
// registry and executor, LLM provider, understanding loop, memory,
// guardrails, per-conversation queue, orchestrator, HTTP gateway, config
// watcher, and housekeeping jobs.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maisonlane/concierge/internal/config"
	"github.com/maisonlane/concierge/internal/gateway"
	"github.com/maisonlane/concierge/internal/logger"
	"github.com/maisonlane/concierge/internal/observability"
	"github.com/maisonlane/concierge/internal/tracing"
	"github.com/maisonlane/concierge/pkg/agent"
	"github.com/maisonlane/concierge/pkg/commandqueue"
	"github.com/maisonlane/concierge/pkg/cron"
	"github.com/maisonlane/concierge/pkg/externalsystems"
	"github.com/maisonlane/concierge/pkg/guardrails"
	"github.com/maisonlane/concierge/pkg/memory"
	"github.com/maisonlane/concierge/pkg/orchestrator"
	"github.com/maisonlane/concierge/pkg/tools"
)

const defaultSystemPrompt = `You are the concierge for Maison Lane, a premium apparel retailer.
You help customers with four things: finding products, managing orders,
booking and changing appointments, and answering questions about store
policies. Use the available tools to look up real data before answering;
never invent products, orders, appointments, or policy details. If a tool
reports that something cannot be done, relay that outcome honestly and
suggest what the customer can do instead. Keep replies warm, concise, and
focused on the customer's request.`

// Daemon is the running concierge service.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	backends  *externalsystems.Backends
	registry  *tools.Registry
	executor  *tools.Executor
	provider  agent.LLMProvider
	loop      *agent.Loop
	store     *memory.Store
	evaluator *guardrails.Evaluator
	queue     *commandqueue.Queue
	orch      *orchestrator.Orchestrator

	gatewayServer *gateway.Server
	cronService   *cron.Service
	configWatcher *config.Watcher
	configLoader  *config.Loader

	tracingEnabled bool
}

// New wires a daemon from validated configuration. The config loader is
// optional; without it the config file watcher is disabled.
func New(cfg *config.Config, log *logger.Logger, loader *config.Loader) (*Daemon, error) {
	observability.EnsureRegistered()

	d := &Daemon{
		config:       cfg,
		logger:       log,
		configLoader: loader,
	}

	if err := tracing.InitOpenTelemetry("concierge"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	} else {
		d.tracingEnabled = true
	}

	if err := d.initComponents(); err != nil {
		if d.tracingEnabled {
			_ = tracing.ShutdownOpenTelemetry(context.Background())
		}
		return nil, err
	}
	return d, nil
}

func (d *Daemon) initComponents() error {
	// Domain backends and their tools.
	d.backends = externalsystems.NewBackends()
	d.registry = tools.NewRegistry()
	if err := d.backends.RegisterAll(d.registry); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}
	d.executor = tools.NewExecutor(d.registry, time.Duration(d.config.Agent.ToolTimeoutSec)*time.Second)
	d.logger.Info().Int("tools", d.registry.Count()).Msg("Tool registry initialized")

	// Model provider: profiles are tried in priority order so a bad key
	// in one profile does not take the daemon down.
	provider, err := d.selectProvider()
	if err != nil {
		return err
	}
	d.provider = provider

	systemPrompt := d.config.Agent.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	d.loop, err = agent.NewLoop(d.provider, d.executor, d.registry, agent.LoopConfig{
		Model:        d.config.Agent.Model,
		SystemPrompt: systemPrompt,
		Temperature:  d.config.Agent.Temperature,
		MaxTokens:    d.config.Agent.MaxTokens,
		MaxTurns:     d.config.Agent.MaxTurns,
		MaxRetries:   d.config.Agent.MaxRetries,
		LLMTimeout:   time.Duration(d.config.Agent.LLMTimeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create understanding loop: %w", err)
	}

	// Memory, optionally with the write-only transcript archive.
	storeOpts := []memory.Option{}
	if d.config.Transcript.Enabled {
		archiver, err := memory.NewArchiver(d.config.Transcript.Dir)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Transcript archiver disabled")
		} else {
			storeOpts = append(storeOpts, memory.WithArchiver(archiver))
		}
	}
	d.store = memory.NewStore(storeOpts...)

	d.evaluator, err = guardrails.New(d.config.Guardrails)
	if err != nil {
		return fmt.Errorf("failed to create guardrail evaluator: %w", err)
	}

	d.queue = commandqueue.New()

	d.orch, err = orchestrator.New(d.evaluator, d.store, d.loop, d.queue)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	d.gatewayServer, err = gateway.NewServer(gateway.Config{
		Host:         d.config.Gateway.Host,
		Port:         d.config.Gateway.Port,
		Orchestrator: d.orch,
		Logger:       d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway server: %w", err)
	}

	d.cronService = cron.NewService()
	return nil
}

func (d *Daemon) selectProvider() (agent.LLMProvider, error) {
	profiles := make([]config.AIProfile, len(d.config.AI.Profiles))
	copy(profiles, d.config.AI.Profiles)
	agent.SortProfilesByPriority(profiles)

	factory := &agent.ProviderFactory{}
	var lastErr error
	for _, profile := range profiles {
		provider, err := factory.NewProvider(profile)
		if err != nil {
			d.logger.Warn().
				Err(err).
				Str("profile", profile.ID).
				Msg("Skipping AI profile")
			lastErr = err
			continue
		}
		d.logger.Info().
			Str("profile", profile.ID).
			Str("provider", provider.Provider()).
			Msg("Using AI profile")
		return provider, nil
	}
	return nil, fmt.Errorf("no usable AI profile: %w", lastErr)
}

// Start brings up the gateway, the config watcher, and housekeeping jobs.
func (d *Daemon) Start() error {
	if err := d.gatewayServer.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	if _, err := d.cronService.AddJob("metrics-summary", cron.CronSchedule(d.config.MetricsSummarySchedule), d.logMetricsSummary); err != nil {
		d.logger.Warn().Err(err).Msg("Metrics summary job not scheduled")
	}

	if d.configLoader != nil {
		watcher, err := config.NewWatcher(d.configLoader, d.logger.GetZerolog(), d.onConfigReload)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Config watcher disabled")
		} else {
			d.configWatcher = watcher
		}
	}

	d.logger.Info().
		Str("host", d.config.Gateway.Host).
		Int("port", d.config.Gateway.Port).
		Msg("Concierge daemon started")
	return nil
}

// Run starts the daemon and blocks until the context is cancelled or a
// termination signal arrives.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		d.logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case <-ctx.Done():
		d.logger.Info().Msg("Context cancelled")
	}

	return d.Stop()
}

// Stop shuts components down in reverse dependency order.
func (d *Daemon) Stop() error {
	d.logger.Info().Msg("Stopping concierge daemon")

	if d.configWatcher != nil {
		_ = d.configWatcher.Stop()
	}
	d.cronService.Stop()

	if err := d.gatewayServer.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Gateway shutdown error")
	}

	// Let in-flight turns finish before tearing the queue down.
	if !d.queue.WaitForActive(30 * time.Second) {
		d.logger.Warn().Msg("Active turns did not drain before shutdown")
	}
	_ = d.queue.Close()

	if d.tracingEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.ShutdownOpenTelemetry(ctx)
	}

	d.logger.Info().Msg("Concierge daemon stopped")
	return nil
}

// Orchestrator exposes the turn entry point, mainly for tests and
// embedded use.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.orch
}

func (d *Daemon) logMetricsSummary(ctx context.Context) error {
	metrics := d.store.GlobalMetrics()
	d.logger.Info().
		Int("conversations", metrics.ConversationCount).
		Int("messages", metrics.MessageCount).
		Int("turns", metrics.TurnCount).
		Dur("avgLatency", metrics.AverageLatency).
		Int("guardrailBlocks", metrics.GuardrailBlocks).
		Msg("Global metrics summary")
	return nil
}

// onConfigReload applies the hot-reloadable subset of the configuration:
// log level and guardrail default policy. Everything else requires a
// restart.
func (d *Daemon) onConfigReload(cfg *config.Config) {
	d.logger.SetLevel(cfg.Logging.Level)
	d.evaluator.SetDefaultPolicy(cfg.Guardrails.DefaultPolicy)
	d.config.Logging.Level = cfg.Logging.Level
	d.config.Guardrails.DefaultPolicy = cfg.Guardrails.DefaultPolicy
	d.logger.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("guardrailPolicy", cfg.Guardrails.DefaultPolicy).
		Msg("Configuration reloaded")
}
