// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/jobs"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/observability"
)

const (
	// heartbeatInterval keeps the connection alive through load balancer
	// idle timeouts (60s for ALB/Nginx defaults).
	heartbeatInterval = 15 * time.Second

	// progressThrottle is the minimum spacing between progress events on
	// the wire. Terminal events are never throttled.
	progressThrottle = 500 * time.Millisecond
)

// HandleAnalysisStream streams job progress as Server-Sent Events.
//
// Every progress event reaches the wire in emission order; the throttle
// only spaces deliveries, holding queued events back until the window
// reopens. The stream always ends with a terminal done or error event,
// preceded by any progress still queued, and closes afterward.
// Subscribing to an already-finished job yields its terminal event
// immediately. An unknown job id produces a single error event rather
// than a broken stream so EventSource clients see a clean close.
func HandleAnalysisStream(registry *jobs.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		events, cancel, ok := registry.Subscribe(id)
		if !ok {
			writer.WriteError(id, "unknown job id")
			observability.RecordStreamEvent(datatypes.EventError)
			return
		}
		defer cancel()

		observability.AddActiveStream(1)
		defer observability.AddActiveStream(-1)
		slog.Info("Analysis stream opened", "job_id", id)

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		var (
			lastSent time.Time
			queued   []datatypes.ProgressEvent
			throttle *time.Timer
		)
		// Inactive until a progress event gets held back.
		throttle = time.NewTimer(time.Hour)
		throttle.Stop()
		defer throttle.Stop()

		send := func(ev datatypes.ProgressEvent) bool {
			if err := writer.WriteEvent(ev); err != nil {
				slog.Warn("Analysis stream write failed", "job_id", id, "error", err)
				return false
			}
			observability.RecordStreamEvent(ev.Type)
			lastSent = time.Now()
			return true
		}

		// drain delivers everything still queued, in order, ignoring the
		// throttle. Used when the stream is ending: the throttle spaces
		// events, it never drops them.
		drain := func() bool {
			for _, ev := range queued {
				if !send(ev) {
					return false
				}
			}
			queued = nil
			return true
		}

		for {
			select {
			case ev, open := <-events:
				if !open {
					drain()
					slog.Info("Analysis stream closed", "job_id", id)
					return
				}

				if ev.Type != datatypes.EventProgress {
					// Terminal event ends the stream; queued progress
					// goes out first so no checkpoint is lost.
					if drain() {
						send(ev)
					}
					slog.Info("Analysis stream finished", "job_id", id, "type", ev.Type)
					return
				}

				if len(queued) == 0 && time.Since(lastSent) >= progressThrottle {
					if !send(ev) {
						return
					}
					continue
				}
				queued = append(queued, ev)
				if len(queued) == 1 {
					delay := progressThrottle - time.Since(lastSent)
					if delay < 0 {
						delay = 0
					}
					throttle.Reset(delay)
				}

			case <-throttle.C:
				if len(queued) == 0 {
					continue
				}
				next := queued[0]
				queued = queued[1:]
				if !send(next) {
					return
				}
				if len(queued) > 0 {
					throttle.Reset(progressThrottle)
				}

			case <-heartbeat.C:
				if err := writer.WriteKeepAlive(); err != nil {
					slog.Info("Analysis stream client disconnected", "job_id", id)
					return
				}

			case <-c.Request.Context().Done():
				slog.Info("Analysis stream client disconnected", "job_id", id)
				return
			}
		}
	}
}
