package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/pkg/domain"
)

// StreamManager fans lifecycle events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe() (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	sm.subscribers[ch] = struct{}{}
	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast sends msg to every subscriber, dropping it for slow ones.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message")
		}
	}
}

// Hooks returns lifecycle hooks broadcasting every event to the server streams.
func (s *Server) Hooks() domain.LifecycleHooks {
	return StreamHooks(s.Streams)
}

// StreamHooks returns lifecycle hooks broadcasting every event as JSON to sm.
// Use it with WithStreams when the environment is built before the Server.
func StreamHooks(sm *StreamManager) domain.LifecycleHooks {
	episode := func(_ context.Context, e *domain.EpisodeEvent) { sm.publish(e) }
	return domain.LifecycleHooks{
		OnReset:    episode,
		OnStep:     episode,
		OnTerminal: episode,
		OnRebuild:  func(_ context.Context, e *domain.RebuildEvent) { sm.publish(e) },
	}
}

func (sm *StreamManager) publish(ev any) {
	data, err := json.Marshal(ev)
	if err != nil {
		sm.logger.Warn("SSE: event encode failed", "err", err)
		return
	}
	sm.Broadcast(string(data))
}

// SubscribeEvents handles GET /events (SSE). The optional "type" query parameter
// is a comma separated list of event types to keep.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var types []string
	if q := r.URL.Query().Get("type"); q != "" {
		for _, t := range strings.Split(q, ",") {
			types = append(types, strings.TrimSpace(t))
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(types) > 0 {
				var head domain.EventBase
				if err := json.Unmarshal([]byte(msg), &head); err == nil && !slices.Contains(types, string(head.Type)) {
					continue
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
