package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()
	require.Equal(t, 2, hub.Subscribers())

	item := &Transition{ID: primitive.NewObjectID(), EntityType: "lead", EntityID: "L-1", AttemptCount: 2}
	hub.Publish(NewEvent(item, StatusDead, time.Now()))

	for _, ch := range []<-chan Event{a, b} {
		select {
		case e := <-ch:
			assert.Equal(t, item.ID, e.TransitionID)
			assert.Equal(t, StatusDead, e.Status)
			assert.Equal(t, 2, e.AttemptCount)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	cancelA()
	cancelA()
	assert.Equal(t, 1, hub.Subscribers())
	_, open := <-a
	assert.False(t, open)
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < hub.buffer*3; i++ {
			hub.Publish(Event{Status: StatusPending})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
