// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command intelligence starts the MedInsight Hub intelligence HTTP server.
//
// This is the main entry point for the containerized intelligence service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - INTELLIGENCE_PORT: HTTP server port (default: 12220)
//   - REDIS_URL: cache backend URL, e.g. redis://localhost:6379/0 (optional;
//     unset runs on the in-memory store)
//   - REDIS_POOL_SIZE: connection pool size (default: library default)
//   - REASONING_BACKENDS: ordered tier list, e.g. "openai,anthropic"
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector
//     (default: medinsight-otel-collector:4317)
//   - RESULT_FRESHNESS_HOURS: cached-result freshness window (default: 6)
//   - JOB_TIMEOUT_MINUTES: pipeline run bound (default: 3)
//   - WARM_MEDICATIONS: comma-separated medication names to prefetch into
//     the medication info cache at startup (optional)
//
// # Usage
//
//	# Build
//	go build -o intelligence ./cmd/intelligence
//
//	# Run
//	./intelligence
//
//	# Or via container
//	podman-compose up intelligence
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := intelligence.Config{
		Port:              getEnvInt("INTELLIGENCE_PORT", 12220),
		RedisURL:          os.Getenv("REDIS_URL"),
		RedisPoolSize:     getEnvInt("REDIS_POOL_SIZE", 0),
		ReasoningBackends: getEnvString("REASONING_BACKENDS", "openai,anthropic"),
		OTelEndpoint:      getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "medinsight-otel-collector:4317"),
		ResultFreshness:   time.Duration(getEnvInt("RESULT_FRESHNESS_HOURS", 6)) * time.Hour,
		JobTimeout:        time.Duration(getEnvInt("JOB_TIMEOUT_MINUTES", 3)) * time.Minute,
		WarmMedications:   getEnvList("WARM_MEDICATIONS"),
	}

	slog.Info("Starting intelligence service",
		"port", cfg.Port,
		"redis_configured", cfg.RedisURL != "",
		"reasoning_backends", cfg.ReasoningBackends,
	)

	svc, err := intelligence.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create intelligence service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Intelligence service error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated environment variable, dropping
// empty entries. Returns nil when the variable is unset.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
