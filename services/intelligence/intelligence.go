// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package intelligence provides the drug intelligence service for
// MedInsight Hub.
//
// This package contains the main Service type that coordinates all
// components: the namespaced cache layer, the source collector, the
// reasoning-backed analyzer, the job orchestrator, HTTP routing, and
// observability infrastructure.
//
// # Usage
//
//	cfg := intelligence.Config{Port: 12220, RedisURL: "redis://localhost:6379/0"}
//	svc, err := intelligence.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package intelligence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/analyze"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/handlers"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/jobs"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/observability"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/routes"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/sources"
	"github.com/MedInsightAI/MedInsightHub/services/reasoning"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the intelligence service.
//
// # Description
//
// Service abstracts the service lifecycle, enabling testing and
// alternative implementations. Run() blocks and should only be called
// once per instance.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing. Callers must
	// not modify routes after construction.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds intelligence service configuration options.
//
// All fields are optional; New applies defaults for zero values. Values
// are populated from environment variables in cmd/intelligence, or
// programmatically for testing.
type Config struct {
	// Port is the HTTP server port. Default: 12220
	Port int

	// RedisURL is the cache backend URL (redis://host:port/db). Empty
	// runs the service on the in-memory store, which is intended for
	// tests and single-process deployments.
	RedisURL string

	// RedisPoolSize overrides the client connection pool size.
	RedisPoolSize int

	// ReasoningBackends is the ordered, comma-separated tier list.
	// Valid entries: "openai", "anthropic". Default: "openai,anthropic"
	ReasoningBackends string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "medinsight-otel-collector:4317"
	OTelEndpoint string

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// ResultFreshness is how recent a cached analysis must be to satisfy
	// a submission without re-running the pipeline. Default: 6h
	ResultFreshness time.Duration

	// JobTimeout bounds one pipeline run. Default: 3m
	JobTimeout time.Duration

	// JobRetention is how long terminal job records are kept for status
	// and stream replay. Default: 24h
	JobRetention time.Duration

	// SourceTimeout bounds each upstream source fetch. Default: 20s
	SourceTimeout time.Duration

	// MaxConcurrentSources bounds the gathering fan-out. Default: 3
	MaxConcurrentSources int64

	// WarmMedications lists medication names to prefetch into the
	// medication_info cache category at startup. Empty disables warming.
	WarmMedications []string
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	store         cache.Store
	registry      *jobs.Registry
	runner        *jobs.Runner
	analyzer      *analyze.Analyzer
	directory     handlers.DrugDirectory
	reasoner      *reasoning.TieredClient
	tracerCleanup func(context.Context)
	sweepCancel   context.CancelFunc
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new intelligence Service with the given configuration.
//
// # Description
//
// New initializes all components in dependency order:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Connects the cache store (degrading to in-memory if unconfigured)
//  5. Builds the tiered reasoning client
//  6. Wires the source collector, analyzer, job registry, and runner
//  7. Starts the job retention sweeper
//  8. Sets up HTTP routes
//
// A Redis outage at startup is not fatal: the store runs degraded and
// reconnects per operation. A missing reasoning API key is not fatal
// either; affected tiers are skipped and the analyzer falls back.
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	observability.InitMetrics()
	slog.Info("Initialized Prometheus metrics")

	s.initStore()

	if err := s.initReasoning(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize reasoning tiers: %w", err)
	}

	if err := s.initPipeline(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize analysis pipeline: %w", err)
	}

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting intelligence server", "port", s.config.Port, "version", Version)

	return s.router.Run(addr)
}

func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12220
	}
	if cfg.ReasoningBackends == "" {
		cfg.ReasoningBackends = "openai,anthropic"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "medinsight-otel-collector:4317"
	}
	if cfg.ResultFreshness == 0 {
		cfg.ResultFreshness = 6 * time.Hour
	}
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 3 * time.Minute
	}
	if cfg.JobRetention == 0 {
		cfg.JobRetention = 24 * time.Hour
	}
	if cfg.SourceTimeout == 0 {
		cfg.SourceTimeout = 20 * time.Second
	}
	if cfg.MaxConcurrentSources == 0 {
		cfg.MaxConcurrentSources = 3
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
// The connection is lazy, so an absent collector does not fail startup;
// spans are dropped until it appears.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("intelligence-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initStore connects the cache backend.
//
// No Redis URL means the in-memory store; a configured but unreachable
// Redis still yields a Redis store, which runs degraded (fail-open) and
// reconnects per operation.
func (s *service) initStore() {
	if s.config.RedisURL == "" {
		slog.Warn("Redis URL not configured, using in-memory cache store")
		s.store = cache.NewMemoryStore()
		return
	}

	store, err := cache.NewRedisStore(cache.RedisConfig{
		URL:      s.config.RedisURL,
		PoolSize: s.config.RedisPoolSize,
	})
	if err != nil {
		slog.Warn("Invalid Redis configuration, using in-memory cache store",
			"error", err)
		s.store = cache.NewMemoryStore()
		return
	}
	s.store = store
	slog.Info("Cache store initialized", "backend", "redis")
}

// initReasoning builds the tiered reasoning client from the ordered
// backend list. Backends that fail to construct (missing key) are
// skipped with a warning; an empty tier list is allowed and means every
// analysis uses the deterministic fallback.
func (s *service) initReasoning() error {
	var tiers []reasoning.Tier

	for _, backend := range strings.Split(s.config.ReasoningBackends, ",") {
		backend = strings.TrimSpace(strings.ToLower(backend))
		switch backend {
		case "":
			continue
		case "openai":
			client, err := reasoning.NewOpenAIClient()
			if err != nil {
				slog.Warn("Skipping OpenAI reasoning tier", "error", err)
				continue
			}
			tiers = append(tiers, reasoning.Tier{Name: "openai", Client: client})
		case "anthropic", "claude":
			client, err := reasoning.NewAnthropicClient()
			if err != nil {
				slog.Warn("Skipping Anthropic reasoning tier", "error", err)
				continue
			}
			tiers = append(tiers, reasoning.Tier{Name: "anthropic", Client: client})
		default:
			return fmt.Errorf("unknown reasoning backend %q", backend)
		}
	}

	if len(tiers) == 0 {
		slog.Warn("No reasoning tiers available, analyses will use fallback output")
		s.reasoner = nil
		return nil
	}

	reasoner, err := reasoning.NewTieredClient(tiers...)
	if err != nil {
		return err
	}
	s.reasoner = reasoner

	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = t.Name
	}
	slog.Info("Reasoning tiers initialized", "tiers", strings.Join(names, ","))
	return nil
}

// initPipeline wires the collector, analyzer, job registry, and runner,
// and starts the retention sweeper.
func (s *service) initPipeline() error {
	var marketClient reasoning.Client
	if s.reasoner != nil {
		marketClient = s.reasoner
	}

	collectorCfg := sources.Config{
		FDA:           sources.NewFDAFetch(s.config.SourceTimeout),
		PubMed:        sources.NewPubMedFetch(s.config.SourceTimeout),
		Trials:        sources.NewTrialsFetch(s.config.SourceTimeout),
		MaxConcurrent: s.config.MaxConcurrentSources,
		SlotTimeout:   s.config.SourceTimeout,
	}
	if marketClient != nil {
		collectorCfg.Market = sources.NewMarketFetch(marketClient)
		collectorCfg.Competitors = sources.NewCompetitorsFetch(marketClient)
	}
	collector := sources.NewCollector(collectorCfg)

	s.analyzer = analyze.NewAnalyzer(tierReasonerOrNil(s.reasoner), s.store)
	s.registry = jobs.NewRegistry(s.config.JobRetention)
	s.directory = handlers.DrugDirectory{
		Store:  s.store,
		Fetch:  collectorCfg.FDA,
		Search: sources.NewDrugSearch(s.config.SourceTimeout),
	}

	runner, err := jobs.NewRunner(s.registry, collector, s.analyzer, s.store, jobs.RunnerConfig{
		Freshness:  s.config.ResultFreshness,
		JobTimeout: s.config.JobTimeout,
	})
	if err != nil {
		return err
	}
	s.runner = runner

	sweepCtx, cancel := context.WithCancel(context.Background())
	s.sweepCancel = cancel
	go s.registry.RunSweeper(sweepCtx, time.Hour)

	if len(s.config.WarmMedications) > 0 {
		meds := s.config.WarmMedications
		budget := time.Duration(len(meds)) * s.config.SourceTimeout
		go func() {
			warmCtx, warmCancel := context.WithTimeout(context.Background(), budget)
			defer warmCancel()
			sources.WarmMedicationInfo(warmCtx, s.store, collectorCfg.FDA, meds)
		}()
	}

	return nil
}

// tierReasonerOrNil keeps a typed-nil *TieredClient from leaking into
// the analyzer's interface field.
func tierReasonerOrNil(r *reasoning.TieredClient) analyze.TierReasoner {
	if r == nil {
		return nil
	}
	return r
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("intelligence-service"))

	routes.SetupRoutes(s.router, s.store, s.registry, s.runner, s.analyzer, s.directory, Version)
}

// cleanup releases all resources held by the service. Called when Run()
// exits or on initialization failure.
func (s *service) cleanup() {
	if s.sweepCancel != nil {
		s.sweepCancel()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Cache store close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
