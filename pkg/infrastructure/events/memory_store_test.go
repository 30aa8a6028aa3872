package events

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

type recordingHandler struct {
	mutex  sync.Mutex
	events []Event
}

func (h *recordingHandler) Handle(event Event) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	return eventType == EdgeCreatedEvent
}

func (h *recordingHandler) count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.events)
}

func TestInMemoryEventStore_StreamVersions(t *testing.T) {
	store := NewInMemoryEventStore(zaptest.NewLogger(t))

	edge := entities.CompositionEdge{ID: "E1", ParentItemID: "FG1", ComponentItemID: "RM1", QuantityPerParentUnit: decimal.NewFromInt(1), Active: true}
	if err := store.AppendEvent("FG1", NewEdgeCreatedEvent(edge)); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if err := store.AppendEvent("FG1", NewEdgeRemovedEvent(edge)); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if err := store.AppendEvent("PLAN-1", NewPlanSubmittedEvent("PLAN-1", 3)); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	stream, err := store.ReadEvents("FG1", 1)
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(stream) != 2 {
		t.Fatalf("Expected 2 events in stream, got %d", len(stream))
	}
	if stream[0].Version() != 1 || stream[1].Version() != 2 {
		t.Errorf("Expected versions 1 and 2, got %d and %d", stream[0].Version(), stream[1].Version())
	}
	if stream[0].ID() == "" || stream[0].ID() == stream[1].ID() {
		t.Errorf("Expected distinct event ids")
	}

	later, _ := store.ReadEvents("FG1", 2)
	if len(later) != 1 || later[0].Type() != EdgeRemovedEvent {
		t.Errorf("Expected only the removal from version 2, got %v", later)
	}

	all, _ := store.ReadAllEvents(0)
	if len(all) != 3 {
		t.Errorf("Expected 3 events overall, got %d", len(all))
	}
	if none, _ := store.ReadEvents("UNKNOWN", 1); len(none) != 0 {
		t.Errorf("Expected empty unknown stream")
	}
}

func TestInMemoryEventStore_NotifiesSubscribers(t *testing.T) {
	store := NewInMemoryEventStore(zaptest.NewLogger(t))
	handler := &recordingHandler{}

	if err := store.Subscribe([]string{EdgeCreatedEvent, EdgeRemovedEvent}, handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	edge := entities.CompositionEdge{ID: "E1", ParentItemID: "FG1", ComponentItemID: "RM1"}
	_ = store.AppendEvent("FG1", NewEdgeCreatedEvent(edge))
	_ = store.AppendEvent("FG1", NewEdgeRemovedEvent(edge))
	store.Wait()

	if handler.count() != 1 {
		t.Errorf("Expected handler to receive only the event it can handle, got %d", handler.count())
	}
}
