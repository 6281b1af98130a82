package transition

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is published whenever a queue item changes status. Failed events are
// emitted for attempts that will be retried.
type Event struct {
	TransitionID primitive.ObjectID `json:"transition_id"`
	WorkflowID   primitive.ObjectID `json:"workflow_id"`
	EntityType   string             `json:"entity_type"`
	EntityID     string             `json:"entity_id"`
	Status       Status             `json:"status"`
	AttemptCount int                `json:"attempt_count"`
	ErrorMessage string             `json:"error_message,omitempty"`
	At           time.Time          `json:"at"`
}

// NewEvent builds an event from the current state of t.
func NewEvent(t *Transition, status Status, at time.Time) Event {
	return Event{
		TransitionID: t.ID,
		WorkflowID:   t.WorkflowID,
		EntityType:   t.EntityType,
		EntityID:     t.EntityID,
		Status:       status,
		AttemptCount: t.AttemptCount,
		ErrorMessage: t.ErrorMessage,
		At:           at,
	}
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event), buffer: 64}
}

// Subscribe returns a channel of events and a function that closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
