// Package status maintains the last-known externally visible state of every
// title and fans state transitions out to subscribers. It bridges task
// progress from the registry into GameState updates.
package status

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"launcherd/internal/model"
)

// subscriberBufferSize is the channel buffer for each subscriber. Updates
// are dropped for a subscriber that falls this far behind, so one slow
// listener can never block delivery to the others.
const subscriberBufferSize = 64

// Listener receives status updates. OnStatusUpdate is always invoked from
// the subscriber's own delivery goroutine, never from the publisher's.
type Listener interface {
	OnStatusUpdate(update model.StatusUpdate)
}

type subscriber struct {
	listener Listener
	ch       chan model.StatusUpdate
}

// Hub holds the per-title last-known state map and the subscriber list.
// Both are guarded by a single mutex that is never held while subscriber
// code runs: delivery goes through per-subscriber buffered channels.
type Hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]model.StatusUpdate
	subs   []*subscriber

	wg sync.WaitGroup
}

// NewHub creates a hub with no titles and no subscribers.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		states: make(map[string]model.StatusUpdate),
	}
}

// Subscribe registers a listener and enqueues a replay of every known
// title's current state before returning, so a late subscriber never misses
// the current picture. The replay and all later updates arrive in order on
// the listener's delivery goroutine. Subscribing the same listener twice is
// a no-op.
func (h *Hub) Subscribe(listener Listener) {
	if listener == nil {
		h.logger.Warn("ignoring nil listener subscription")
		return
	}

	h.mu.Lock()
	for _, s := range h.subs {
		if s.listener == listener {
			h.mu.Unlock()
			return
		}
	}

	// The buffer must hold the full replay; it is enqueued under the lock.
	buffer := subscriberBufferSize
	if n := len(h.states); n > buffer {
		buffer = n
	}
	s := &subscriber{
		listener: listener,
		ch:       make(chan model.StatusUpdate, buffer),
	}
	h.subs = append(h.subs, s)

	// Replay the full current picture, ordered by title for determinism.
	ids := make([]string, 0, len(h.states))
	for id := range h.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s.ch <- h.states[id]
	}
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for update := range s.ch {
			s.listener.OnStatusUpdate(update)
		}
	}()
}

// Unsubscribe removes a listener and stops its delivery goroutine once the
// buffered updates drain. Removing an unknown listener is a no-op.
func (h *Hub) Unsubscribe(listener Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s.listener == listener {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Publish records the update as the title's last-known state and fans it out
// to every current subscriber in registration order. The update is stamped
// with an event ID and timestamp if the caller left them empty.
func (h *Hub) Publish(update model.StatusUpdate) {
	if update.EventID == "" {
		update.EventID = model.NewEventID()
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.states[update.TitleID] = update

	for _, s := range h.subs {
		select {
		case s.ch <- update:
		default:
			// Drop for subscribers whose buffers are full.
			h.logger.Warn("dropping status update for slow subscriber",
				"title_id", update.TitleID, "state", update.State)
		}
	}
}

// State returns the last-known state for a title.
func (h *Hub) State(titleID string) (model.StatusUpdate, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, ok := h.states[titleID]
	return u, ok
}

// Snapshot returns the current state of every known title, sorted by title ID.
func (h *Hub) Snapshot() []model.StatusUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.StatusUpdate, 0, len(h.states))
	for _, u := range h.states {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TitleID < out[j].TitleID })
	return out
}

// Wait blocks until all delivery and monitor goroutines have exited. Every
// subscriber must be unsubscribed first or Wait blocks forever.
func (h *Hub) Wait() {
	h.wg.Wait()
}
