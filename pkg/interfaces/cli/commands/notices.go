package commands

import (
	"fmt"
	"io"
	"sync"

	"github.com/vsinha/foodplan/pkg/infrastructure/events"
)

// eventNotices is an event handler that turns received events into one-line notices.
// Handlers run on their own goroutines; callers wait on the store and then flush.
type eventNotices struct {
	mutex sync.Mutex
	types map[string]bool
	lines []string
}

func newEventNotices(eventTypes ...string) *eventNotices {
	types := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		types[eventType] = true
	}
	return &eventNotices{types: types}
}

// subscribe registers the notices on store for every event type they handle
func (n *eventNotices) subscribe(store events.EventStore) error {
	eventTypes := make([]string, 0, len(n.types))
	for eventType := range n.types {
		eventTypes = append(eventTypes, eventType)
	}
	if err := store.Subscribe(eventTypes, n); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	return nil
}

func (n *eventNotices) CanHandle(eventType string) bool {
	return n.types[eventType]
}

func (n *eventNotices) Handle(event events.Event) error {
	line := describeEvent(event)

	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.lines = append(n.lines, line)
	return nil
}

// flush writes and forgets the collected notices
func (n *eventNotices) flush(w io.Writer) {
	n.mutex.Lock()
	lines := n.lines
	n.lines = nil
	n.mutex.Unlock()

	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func describeEvent(event events.Event) string {
	switch data := event.Data().(type) {
	case events.EdgeCreated:
		return fmt.Sprintf("📣 edge %s created: %s -> %s", data.Edge.ID, data.Edge.ParentItemID, data.Edge.ComponentItemID)
	case events.EdgeUpdated:
		return fmt.Sprintf("📣 edge %s updated: %s -> %s x %s", data.NewEdge.ID,
			data.NewEdge.ParentItemID, data.NewEdge.ComponentItemID, data.NewEdge.QuantityPerParentUnit)
	case events.EdgeRemoved:
		return fmt.Sprintf("📣 edge %s removed", data.Edge.ID)
	case events.RecipeMissing:
		return fmt.Sprintf("⚠️  No recipe for %s", data.Product)
	case events.PlanProcessed:
		return fmt.Sprintf("📣 plan %s processed: %d units, %d materials", data.PlanID, data.GrandTotal, data.Materials)
	default:
		return fmt.Sprintf("📣 %s on %s", event.Type(), event.StreamID())
	}
}
