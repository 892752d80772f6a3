// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

func TestSSEWriterWireFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	writer, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter: %v", err)
	}

	if err := writer.WriteEvent(datatypes.ProgressEvent{
		Type:     datatypes.EventProgress,
		JobID:    "job-1",
		Progress: 40,
		Step:     "analyzing",
	}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "event: progress\ndata: ") {
		t.Errorf("unexpected frame prefix: %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("frame not terminated by blank line: %q", body)
	}

	payload := strings.TrimPrefix(body, "event: progress\ndata: ")
	var ev datatypes.ProgressEvent
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &ev); err != nil {
		t.Fatalf("data is not valid JSON: %v", err)
	}
	if ev.Id == "" || ev.CreatedAt == 0 || ev.Hash == "" {
		t.Errorf("event metadata not populated: %+v", ev)
	}
	if ev.Progress != 40 || ev.JobID != "job-1" {
		t.Errorf("content fields lost: %+v", ev)
	}
}

func TestSSEWriterHashChainLinks(t *testing.T) {
	rec := httptest.NewRecorder()
	writer, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter: %v", err)
	}

	writer.WriteEvent(datatypes.ProgressEvent{Type: datatypes.EventProgress, Progress: 10})
	writer.WriteEvent(datatypes.ProgressEvent{Type: datatypes.EventProgress, Progress: 40})

	var events []datatypes.ProgressEvent
	for _, frame := range strings.Split(rec.Body.String(), "\n\n") {
		if frame == "" {
			continue
		}
		_, data, ok := strings.Cut(frame, "data: ")
		if !ok {
			t.Fatalf("frame missing data line: %q", frame)
		}
		var ev datatypes.ProgressEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("parsed %d events, want 2", len(events))
	}
	if events[0].PrevHash != "" {
		t.Errorf("first event prev_hash = %q, want empty", events[0].PrevHash)
	}
	if events[1].PrevHash != events[0].Hash {
		t.Errorf("chain broken: second prev_hash %q != first hash %q",
			events[1].PrevHash, events[0].Hash)
	}
}

func TestSSEWriterKeepAliveComment(t *testing.T) {
	rec := httptest.NewRecorder()
	writer, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter: %v", err)
	}

	if err := writer.WriteKeepAlive(); err != nil {
		t.Fatalf("WriteKeepAlive: %v", err)
	}
	if got := rec.Body.String(); got != ": ping\n\n" {
		t.Errorf("keepalive = %q", got)
	}
}

func TestSetSSEHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSSEHeaders(rec)

	want := map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}
