// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jobs

import (
	"log/slog"
	"sync"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
)

// subscriberBuffer is the per-subscriber channel depth. A full pipeline
// emits a handful of events, so the buffer only fills when a consumer
// has stopped reading entirely.
const subscriberBuffer = 32

// broadcaster fans one job's ordered event stream out to its
// subscribers. Subscribers only see events published after they joined;
// the terminal event closes every channel.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan datatypes.ProgressEvent
	nextID int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan datatypes.ProgressEvent)}
}

// subscribe registers a new subscriber. The cancel function is safe to
// call more than once and after the broadcaster closed.
func (b *broadcaster) subscribe() (<-chan datatypes.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan datatypes.ProgressEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish delivers an event to every current subscriber, closing the
// stream after a terminal event.
func (b *broadcaster) publish(event datatypes.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// The subscriber stopped draining; dropping beats stalling
			// the pipeline for everyone else.
			slog.Warn("Dropping progress event for slow subscriber",
				"job_id", event.JobID,
				"subscriber", id)
		}
	}

	if event.Type == datatypes.EventDone || event.Type == datatypes.EventError {
		b.closed = true
		for id, ch := range b.subs {
			delete(b.subs, id)
			close(ch)
		}
	}
}
