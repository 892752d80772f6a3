// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sources gathers drug intelligence from upstream providers.
//
// One Collect pass fans out over five fixed slots (openFDA, PubMed,
// ClinicalTrials.gov, market intelligence, competitive landscape) with
// bounded concurrency. A slot that fails is reported in the aggregate's
// Failed list and left at its zero value; it never fails the pass or its
// sibling slots. Retrying upstreams is left to callers that want it; a
// gathering pass itself runs each source exactly once.
package sources

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/observability"
)

// Fetch functions for each slot. They are plain function types so tests
// and degraded deployments can swap any slot without touching the rest.
type (
	FDAFetch         func(ctx context.Context, subject string) (*datatypes.FDAInfo, error)
	PubMedFetch      func(ctx context.Context, subject string) ([]datatypes.PubMedArticle, error)
	TrialsFetch      func(ctx context.Context, subject string) ([]datatypes.ClinicalTrial, error)
	MarketFetch      func(ctx context.Context, subject string) (*datatypes.MarketData, error)
	CompetitorsFetch func(ctx context.Context, subject string) ([]datatypes.CompetitorProfile, error)
)

// Config wires a Collector. Nil fetchers disable their slot, which then
// always reports as failed.
type Config struct {
	FDA         FDAFetch
	PubMed      PubMedFetch
	Trials      TrialsFetch
	Market      MarketFetch
	Competitors CompetitorsFetch

	// MaxConcurrent bounds the fan-out. Default: 3
	MaxConcurrent int64

	// SlotTimeout bounds each individual slot. Default: 20s
	SlotTimeout time.Duration
}

// Collector runs gathering passes.
type Collector struct {
	cfg Config
	sem *semaphore.Weighted
}

// NewCollector builds a Collector from the config, applying defaults.
func NewCollector(cfg Config) *Collector {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.SlotTimeout <= 0 {
		cfg.SlotTimeout = 20 * time.Second
	}
	return &Collector{
		cfg: cfg,
		sem: semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// Collect runs one gathering pass for subject.
//
// All five slots run concurrently, gated by the semaphore, and the pass
// waits for every slot to finish. Collect never returns an error: the
// worst outcome is an aggregate with all five slots in Failed.
func (c *Collector) Collect(ctx context.Context, subject string) datatypes.AggregatedSources {
	var (
		agg datatypes.AggregatedSources
		mu  sync.Mutex
		wg  sync.WaitGroup
	)

	fail := func(slot string, err error) {
		mu.Lock()
		agg.Failed = append(agg.Failed, slot)
		mu.Unlock()
		observability.RecordSourceFailure(slot)
		slog.Warn("Source slot failed, continuing with partial data",
			"slot", slot,
			"subject", subject,
			"error", err)
	}

	run := func(slot string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.sem.Acquire(ctx, 1); err != nil {
				fail(slot, err)
				return
			}
			defer c.sem.Release(1)

			slotCtx, cancel := context.WithTimeout(ctx, c.cfg.SlotTimeout)
			defer cancel()
			if err := fn(slotCtx); err != nil {
				fail(slot, err)
			}
		}()
	}

	run(datatypes.SourceFDA, func(ctx context.Context) error {
		if c.cfg.FDA == nil {
			return errSlotDisabled
		}
		info, err := c.cfg.FDA(ctx, subject)
		if err != nil {
			return err
		}
		mu.Lock()
		agg.FDA = info
		mu.Unlock()
		return nil
	})

	run(datatypes.SourcePubMed, func(ctx context.Context) error {
		if c.cfg.PubMed == nil {
			return errSlotDisabled
		}
		articles, err := c.cfg.PubMed(ctx, subject)
		if err != nil {
			return err
		}
		mu.Lock()
		agg.PubMed = articles
		mu.Unlock()
		return nil
	})

	run(datatypes.SourceClinicalTrials, func(ctx context.Context) error {
		if c.cfg.Trials == nil {
			return errSlotDisabled
		}
		trials, err := c.cfg.Trials(ctx, subject)
		if err != nil {
			return err
		}
		mu.Lock()
		agg.ClinicalTrials = trials
		mu.Unlock()
		return nil
	})

	run(datatypes.SourceMarket, func(ctx context.Context) error {
		if c.cfg.Market == nil {
			return errSlotDisabled
		}
		market, err := c.cfg.Market(ctx, subject)
		if err != nil {
			return err
		}
		mu.Lock()
		agg.Market = market
		mu.Unlock()
		return nil
	})

	run(datatypes.SourceCompetitors, func(ctx context.Context) error {
		if c.cfg.Competitors == nil {
			return errSlotDisabled
		}
		competitors, err := c.cfg.Competitors(ctx, subject)
		if err != nil {
			return err
		}
		mu.Lock()
		agg.Competitors = competitors
		mu.Unlock()
		return nil
	})

	wg.Wait()
	return agg
}

// errSlotDisabled marks slots with no fetcher wired.
var errSlotDisabled = errDisabled{}

type errDisabled struct{}

func (errDisabled) Error() string { return "slot disabled: no fetcher configured" }
