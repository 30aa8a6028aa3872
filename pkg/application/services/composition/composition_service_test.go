package composition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/services"
	"github.com/vsinha/foodplan/pkg/infrastructure/events"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/memory"
)

type fixture struct {
	service *CompositionService
	edges   *memory.CompositionRepository
	store   *events.InMemoryEventStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	items := testCatalog(t)
	edges := memory.NewCompositionRepository(8)
	store := events.NewInMemoryEventStore(logger)

	seq := 0
	var mu sync.Mutex
	service := NewCompositionService(items, items, edges, store, logger).WithIDGenerator(func() entities.EdgeID {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return entities.EdgeID(fmt.Sprintf("E%d", seq))
	})

	return &fixture{service: service, edges: edges, store: store}
}

func testCatalog(t *testing.T) *memory.ItemRepository {
	t.Helper()
	items := memory.NewItemRepository(8)
	catalog := []*entities.Item{
		{ID: "FG1", Name: "Cheese Bun", Class: entities.FinishedGood, BaseUnit: "pcs", IsProducible: true},
		{ID: "SFG1", Name: "Dough", Class: entities.SemiFinished, BaseUnit: "g", IsProducible: true},
		{ID: "RM1", Name: "Flour", Class: entities.RawMaterial, BaseUnit: "g"},
		{ID: "RM2", Name: "Cheese", Class: entities.RawMaterial, BaseUnit: "g"},
		{ID: "RM3", Name: "Sesame", Class: entities.RawMaterial, BaseUnit: "g"},
	}
	if err := items.LoadItems(catalog); err != nil {
		t.Fatalf("Failed to load items: %v", err)
	}
	if err := items.LoadMeasurements([]*entities.MeasurementUnit{
		{ID: "flour-kg", ItemID: "RM1", Unit: "kg", FactorToBase: decimal.NewFromInt(1000)},
	}); err != nil {
		t.Fatalf("Failed to load measurements: %v", err)
	}
	return items
}

func (f *fixture) add(t *testing.T, parent, component string, qty int64) entities.CompositionEdge {
	t.Helper()
	edge, err := f.service.SaveEdge(context.Background(), services.EdgeCommand{
		ParentID:    entities.ItemID(parent),
		ComponentID: entities.ItemID(component),
		Quantity:    decimal.NewFromInt(qty),
	})
	if err != nil {
		t.Fatalf("Failed to add %s -> %s: %v", parent, component, err)
	}
	return edge
}

func TestCompositionService_SaveEdge_RejectsCycle(t *testing.T) {
	f := newFixture(t)
	f.add(t, "FG1", "SFG1", 1)
	f.add(t, "SFG1", "RM1", 500)

	_, err := f.service.SaveEdge(context.Background(), services.EdgeCommand{
		ParentID:    "RM1",
		ComponentID: "FG1",
		Quantity:    decimal.NewFromInt(1),
	})

	var cycleErr *entities.CycleDetectedError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected CycleDetectedError, got %v", err)
	}
	want := []entities.ItemID{"RM1", "FG1", "SFG1", "RM1"}
	if fmt.Sprint(cycleErr.Path) != fmt.Sprint(want) {
		t.Errorf("Expected path %v, got %v", want, cycleErr.Path)
	}

	active, _ := f.edges.GetActiveEdges()
	if len(active) != 2 {
		t.Errorf("Expected rejected edge not to be persisted, got %d edges", len(active))
	}
}

func TestCompositionService_SaveEdge_Validation(t *testing.T) {
	f := newFixture(t)
	f.add(t, "FG1", "RM2", 30)

	tests := []struct {
		name   string
		cmd    services.EdgeCommand
		target interface{}
	}{
		{"self_reference", services.EdgeCommand{ParentID: "FG1", ComponentID: "FG1", Quantity: decimal.NewFromInt(1)}, new(*entities.SelfReferenceError)},
		{"duplicate", services.EdgeCommand{ParentID: "FG1", ComponentID: "RM2", Quantity: decimal.NewFromInt(5)}, new(*entities.DuplicateComponentError)},
		{"unknown_item", services.EdgeCommand{ParentID: "FG1", ComponentID: "RM9", Quantity: decimal.NewFromInt(1)}, new(*entities.ValidationError)},
		{"zero_quantity", services.EdgeCommand{ParentID: "FG1", ComponentID: "RM1", Quantity: decimal.Zero}, new(*entities.ValidationError)},
		{"foreign_unit", services.EdgeCommand{ParentID: "FG1", ComponentID: "RM3", Quantity: decimal.NewFromInt(1), UnitID: "flour-kg"}, new(*entities.InvalidMeasurementError)},
		{"unknown_edge", services.EdgeCommand{EdgeID: "E99", ParentID: "FG1", ComponentID: "RM1", Quantity: decimal.NewFromInt(1)}, new(*entities.ValidationError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SaveEdge(context.Background(), tt.cmd)
			if err == nil {
				t.Fatalf("Expected error for %s", tt.name)
			}
			if !errors.As(err, tt.target) {
				t.Errorf("Expected %T, got %v", tt.target, err)
			}
		})
	}
}

func TestCompositionService_SaveEdge_EditAndEvents(t *testing.T) {
	f := newFixture(t)
	created := f.add(t, "SFG1", "RM1", 500)

	updated, err := f.service.SaveEdge(context.Background(), services.EdgeCommand{
		EdgeID:      created.ID,
		ParentID:    "SFG1",
		ComponentID: "RM1",
		Quantity:    decimal.RequireFromString("0.5"),
		UnitID:      "flour-kg",
	})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if updated.ID != created.ID || updated.UnitID != "flour-kg" {
		t.Errorf("Expected edit in place with kg unit, got %+v", updated)
	}

	stored, err := f.edges.GetEdge(created.ID)
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if !stored.QuantityPerParentUnit.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Expected persisted quantity 0.5, got %s", stored.QuantityPerParentUnit)
	}

	recorded, _ := f.store.ReadEvents("SFG1", 1)
	if len(recorded) != 2 {
		t.Fatalf("Expected 2 events on the parent stream, got %d", len(recorded))
	}
	if recorded[0].Type() != events.EdgeCreatedEvent || recorded[1].Type() != events.EdgeUpdatedEvent {
		t.Errorf("Unexpected event types: %s, %s", recorded[0].Type(), recorded[1].Type())
	}
}

func TestCompositionService_RemoveEdge(t *testing.T) {
	f := newFixture(t)
	edge := f.add(t, "FG1", "SFG1", 1)
	f.add(t, "SFG1", "RM1", 500)

	removed, err := f.service.RemoveEdge(context.Background(), edge.ID)
	if err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}
	if removed.Active {
		t.Error("Expected removed edge to be inactive")
	}

	// FG1 no longer reaches RM1 once FG1 -> SFG1 is gone
	if _, err := f.service.SaveEdge(context.Background(), services.EdgeCommand{
		ParentID:    "RM1",
		ComponentID: "FG1",
		Quantity:    decimal.NewFromInt(1),
	}); err != nil {
		t.Errorf("Expected edge to be accepted after removal, got %v", err)
	}

	if _, err := f.service.RemoveEdge(context.Background(), "missing"); err == nil {
		t.Error("Expected error removing unknown edge")
	}
}

func TestCompositionService_ConcurrentOppositeEdges(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	pairs := [][2]entities.ItemID{{"SFG1", "RM1"}, {"RM1", "SFG1"}}
	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, parent, component entities.ItemID) {
			defer wg.Done()
			_, errs[i] = f.service.SaveEdge(context.Background(), services.EdgeCommand{
				ParentID:    parent,
				ComponentID: component,
				Quantity:    decimal.NewFromInt(1),
			})
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("Expected exactly one of the opposite edges to be rejected, got errors %v", errs)
	}

	result, err := f.service.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.HasCycles {
		t.Errorf("Expected no cycles, got %v", result.CyclePaths)
	}
}

func TestCompositionService_ImportEdges(t *testing.T) {
	f := newFixture(t)
	f.add(t, "FG1", "SFG1", 1)

	cyclic := []entities.CompositionEdge{
		{ID: "I1", ParentItemID: "SFG1", ComponentItemID: "RM1", QuantityPerParentUnit: decimal.NewFromInt(500), Active: true},
		{ID: "I2", ParentItemID: "RM1", ComponentItemID: "FG1", QuantityPerParentUnit: decimal.NewFromInt(1), Active: true},
	}
	result, err := f.service.ImportEdges(context.Background(), cyclic)
	if err != nil {
		t.Fatalf("ImportEdges failed: %v", err)
	}
	if result.IsValid() || !result.HasCycles {
		t.Fatalf("Expected cyclic import to be rejected, got %+v", result)
	}
	if _, err := f.edges.GetEdge("I1"); err == nil {
		t.Error("Expected rejected import to leave the repository unchanged")
	}

	unknown := []entities.CompositionEdge{
		{ID: "I3", ParentItemID: "SFG1", ComponentItemID: "RM9", QuantityPerParentUnit: decimal.NewFromInt(1), Active: true},
	}
	result, err = f.service.ImportEdges(context.Background(), unknown)
	if err != nil {
		t.Fatalf("ImportEdges failed: %v", err)
	}
	if len(result.UnknownItems) != 1 || result.UnknownItems[0] != "RM9" {
		t.Errorf("Expected RM9 to be reported unknown, got %v", result.UnknownItems)
	}

	result, err = f.service.ImportEdges(context.Background(), cyclic[:1])
	if err != nil {
		t.Fatalf("ImportEdges failed: %v", err)
	}
	if !result.IsValid() {
		t.Fatalf("Expected valid import, got %v", result.Errors)
	}
	if _, err := f.edges.GetEdge("I1"); err != nil {
		t.Errorf("Expected imported edge to be stored: %v", err)
	}
}

func TestCompositionService_Explode(t *testing.T) {
	f := newFixture(t)
	f.add(t, "FG1", "SFG1", 60)
	f.add(t, "FG1", "RM2", 15)
	if _, err := f.service.SaveEdge(context.Background(), services.EdgeCommand{
		ParentID:    "SFG1",
		ComponentID: "RM1",
		Quantity:    decimal.RequireFromString("0.0005"),
		UnitID:      "flour-kg",
	}); err != nil {
		t.Fatalf("Failed to add kg edge: %v", err)
	}
	if _, err := f.service.SaveEdge(context.Background(), services.EdgeCommand{
		ParentID:    "FG1",
		ComponentID: "RM3",
		Quantity:    decimal.NewFromInt(2),
		Optional:    true,
	}); err != nil {
		t.Fatalf("Failed to add optional edge: %v", err)
	}

	lines, err := f.service.Explode(context.Background(), "FG1", decimal.NewFromInt(100), false)
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected RM1 and RM2, got %+v", lines)
	}
	// 100 buns * 60 g dough * 0.5 g flour per g of dough
	if lines[0].ItemID != "RM1" || !lines[0].Quantity.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected 3000 g of RM1, got %+v", lines[0])
	}
	if lines[0].Display != "3 kg" {
		t.Errorf("Expected display 3 kg, got %q", lines[0].Display)
	}
	if lines[1].ItemID != "RM2" || !lines[1].Quantity.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected 1500 g of RM2, got %+v", lines[1])
	}

	withOptional, err := f.service.Explode(context.Background(), "FG1", decimal.NewFromInt(100), true)
	if err != nil {
		t.Fatalf("Explode with optional failed: %v", err)
	}
	if len(withOptional) != 3 {
		t.Errorf("Expected optional RM3 to be included, got %+v", withOptional)
	}

	if _, err := f.service.Explode(context.Background(), "NOPE", decimal.NewFromInt(1), false); err == nil {
		t.Error("Expected error for unknown item")
	}
}

func TestCompositionService_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.service.SaveEdge(ctx, services.EdgeCommand{ParentID: "FG1", ComponentID: "RM1", Quantity: decimal.NewFromInt(1)}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if _, err := f.service.Validate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// steppedEdges holds the first GetEdge after its read and, once loads are gated,
// every GetActiveEdges, so a test can line up concurrent edits
type steppedEdges struct {
	*memory.CompositionRepository

	firstRead  sync.Once
	edgeRead   chan struct{}
	resumeEdit chan struct{}

	gateLoads   atomic.Bool
	firstLoad   sync.Once
	loading     chan struct{}
	resumeLoads chan struct{}
}

func newSteppedEdges() *steppedEdges {
	return &steppedEdges{
		CompositionRepository: memory.NewCompositionRepository(8),
		edgeRead:              make(chan struct{}),
		resumeEdit:            make(chan struct{}),
		loading:               make(chan struct{}),
		resumeLoads:           make(chan struct{}),
	}
}

func (r *steppedEdges) GetEdge(id entities.EdgeID) (*entities.CompositionEdge, error) {
	edge, err := r.CompositionRepository.GetEdge(id)
	first := false
	r.firstRead.Do(func() { first = true })
	if first {
		close(r.edgeRead)
		<-r.resumeEdit
	}
	return edge, err
}

func (r *steppedEdges) GetActiveEdges() ([]entities.CompositionEdge, error) {
	if r.gateLoads.Load() {
		r.firstLoad.Do(func() { close(r.loading) })
		<-r.resumeLoads
	}
	return r.CompositionRepository.GetActiveEdges()
}

func TestCompositionService_QuantityEditOfRelinkedEdgeIsCycleChecked(t *testing.T) {
	ctx := context.Background()
	items := testCatalog(t)
	edges := newSteppedEdges()
	if err := edges.LoadEdges([]entities.CompositionEdge{
		{ID: "E1", ParentItemID: "SFG1", ComponentItemID: "RM1", QuantityPerParentUnit: decimal.NewFromInt(1), Active: true},
	}); err != nil {
		t.Fatalf("Failed to load edges: %v", err)
	}
	service := NewCompositionService(items, items, edges, nil, zaptest.NewLogger(t)).
		WithIDGenerator(func() entities.EdgeID { return "E2" })

	// quantity edit of E1 as SFG1 -> RM1; it stops right after reading the edge
	editErr := make(chan error, 1)
	go func() {
		_, err := service.SaveEdge(ctx, services.EdgeCommand{
			EdgeID:      "E1",
			ParentID:    "SFG1",
			ComponentID: "RM1",
			Quantity:    decimal.NewFromInt(2),
		})
		editErr <- err
	}()
	<-edges.edgeRead

	if _, err := service.SaveEdge(ctx, services.EdgeCommand{
		EdgeID:      "E1",
		ParentID:    "SFG1",
		ComponentID: "RM2",
		Quantity:    decimal.NewFromInt(1),
	}); err != nil {
		t.Fatalf("Failed to relink E1: %v", err)
	}

	// RM1 -> SFG1 is fine while E1 points at RM2; it stops while loading the graph
	edges.gateLoads.Store(true)
	insertErr := make(chan error, 1)
	go func() {
		_, err := service.SaveEdge(ctx, services.EdgeCommand{
			ParentID:    "RM1",
			ComponentID: "SFG1",
			Quantity:    decimal.NewFromInt(1),
		})
		insertErr <- err
	}()
	<-edges.loading

	close(edges.resumeEdit)
	close(edges.resumeLoads)

	if err := <-insertErr; err != nil {
		t.Fatalf("Expected RM1 -> SFG1 to be accepted, got %v", err)
	}
	var cycleErr *entities.CycleDetectedError
	if err := <-editErr; !errors.As(err, &cycleErr) {
		t.Fatalf("Expected the edit relinking E1 back to RM1 to be rejected as a cycle, got %v", err)
	}

	result, err := service.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.HasCycles {
		t.Errorf("Expected no cycles, got %v", result.CyclePaths)
	}
}
