// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SSEWriter defines the contract for writing Server-Sent Events to HTTP
// responses.
//
// # Description
//
// SSEWriter abstracts SSE serialization and flushing so the stream
// handler can be tested without real HTTP plumbing. Implementations
// handle the wire format (event: type\ndata: json\n\n) internally.
//
// Each event is automatically assigned:
//   - Id: UUID v4 for ordering and deduplication
//   - CreatedAt: Unix timestamp in milliseconds
//   - Hash: SHA-256 hash of event content for integrity
//   - PrevHash: Hash of previous event for chain verification
//
// # Thread Safety
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Assumptions
//
//   - Caller has set Content-Type: text/event-stream before writing
//   - Caller has disabled buffering (X-Accel-Buffering: no)
type SSEWriter interface {
	// WriteEvent writes a single SSE event to the response.
	//
	// Populates event metadata (Id, CreatedAt, Hash, PrevHash), serializes
	// to JSON, and writes in SSE format. Flushes immediately after writing.
	WriteEvent(event datatypes.ProgressEvent) error

	// WriteError writes an error event. The message must already be
	// sanitized for client display; the stream closes after it.
	WriteError(jobID, errMsg string) error

	// WriteKeepAlive sends a comment line to prevent connection timeouts.
	// Comments are ignored by SSE clients but reset load balancer timeout
	// counters. Does not update the hash chain.
	WriteKeepAlive() error
}

// =============================================================================
// Struct Definition
// =============================================================================

// sseWriter implements SSEWriter for HTTP SSE responses.
//
// # Description
//
// sseWriter wraps an http.ResponseWriter to emit SSE-formatted progress
// events. Each event is written as:
//
//	event: {type}
//	data: {json}
//
// The writer maintains a hash chain for integrity verification: each
// event's Hash is SHA-256 of its content and each PrevHash links to the
// previous event, giving a chain of custody for progress and results.
//
// # Thread Safety
//
// Thread-safe via mutex. Hash chain integrity is maintained across
// concurrent writes.
//
// # Limitations
//
//   - Cannot be reused across requests
type sseWriter struct {
	writer   http.ResponseWriter
	flusher  http.Flusher
	prevHash string
	mu       sync.Mutex
}

// =============================================================================
// Constructor
// =============================================================================

// NewSSEWriter creates a new SSEWriter for the given ResponseWriter.
// The ResponseWriter must implement http.Flusher, and the caller must
// set SSE headers via SetSSEHeaders before writing.
func NewSSEWriter(w http.ResponseWriter) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}

	return &sseWriter{
		writer:   w,
		flusher:  flusher,
		prevHash: "",
	}, nil
}

// =============================================================================
// Methods
// =============================================================================

func (w *sseWriter) WriteEvent(event datatypes.ProgressEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Populate metadata
	event.Id = uuid.New().String()
	event.CreatedAt = time.Now().UnixMilli()
	event.PrevHash = w.prevHash

	// Compute hash of event content (before setting Hash field)
	event.Hash = w.computeEventHash(event)

	// Update chain for next event
	w.prevHash = event.Hash

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Write SSE format: event: type\ndata: json\n\n
	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// computeEventHash computes the SHA-256 hash of event content.
//
// Hashes metadata (Id, Type, CreatedAt, PrevHash) plus the content
// fields, with the result payload JSON-serialized so the hash is stable
// regardless of in-memory representation. Called before event.Hash is set.
func (w *sseWriter) computeEventHash(event datatypes.ProgressEvent) string {
	resultJSON := ""
	if event.Result != nil {
		if data, err := json.Marshal(event.Result); err == nil {
			resultJSON = string(data)
		}
	}

	hashInput := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%d|%s|%s|%s",
		event.Id,
		event.Type,
		event.CreatedAt,
		event.PrevHash,
		event.JobID,
		event.Status,
		event.Progress,
		event.Step,
		event.Error,
		resultJSON,
	)

	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

func (w *sseWriter) WriteError(jobID, errMsg string) error {
	return w.WriteEvent(datatypes.ProgressEvent{
		Type:  datatypes.EventError,
		JobID: jobID,
		Error: errMsg,
	})
}

func (w *sseWriter) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// SSE comment format: colon followed by text, then double newline
	if _, err := fmt.Fprintf(w.writer, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// SetSSEHeaders configures HTTP response headers for SSE streaming.
// Must be called before writing any response body.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ SSEWriter = (*sseWriter)(nil)
