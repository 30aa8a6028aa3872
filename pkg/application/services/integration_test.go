package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/foodplan/pkg/application/dto"
	"github.com/vsinha/foodplan/pkg/application/services/composition"
	"github.com/vsinha/foodplan/pkg/application/services/planning"
	"github.com/vsinha/foodplan/pkg/application/services/stock"
	"github.com/vsinha/foodplan/pkg/domain/entities"
	domainservices "github.com/vsinha/foodplan/pkg/domain/services"
	"github.com/vsinha/foodplan/pkg/infrastructure/events"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/foodplan/pkg/infrastructure/testing"
)

func linesByItem(lines []dto.ExplosionLine) map[string]dto.ExplosionLine {
	byItem := make(map[string]dto.ExplosionLine, len(lines))
	for _, line := range lines {
		byItem[line.ItemID] = line
	}
	return byItem
}

func TestIntegration_BakeryPlanning(t *testing.T) {
	ctx := context.Background()
	data := testhelpers.BuildBakeryTestData()
	store := events.NewInMemoryEventStore(zaptest.NewLogger(t))

	service := planning.NewPlanningService(data.Recipes, memory.NewPlanArchive(), store, zaptest.NewLogger(t), planning.Options{})

	report, err := service.Plan(ctx, data.Targets)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if report.GrandTotal != 22 {
		t.Errorf("Expected grand total 22, got %d", report.GrandTotal)
	}
	if report.PerLocation["Kitchen_A"] != 14 || report.PerLocation["Kitchen_B"] != 8 {
		t.Errorf("Expected Kitchen_A 14 and Kitchen_B 8, got %v", report.PerLocation)
	}
	if len(report.MissingProducts) != 1 || report.MissingProducts[0] != "Calzone" {
		t.Errorf("Expected Calzone to be reported missing, got %v", report.MissingProducts)
	}

	expected := map[string]string{
		"Flour":      "3200",
		"Water":      "2080",
		"Olive Oil":  "40",
		"Mozzarella": "2000",
		"Tomato":     "1600",
		"Pizza Box":  "16",
	}
	if len(report.Materials) != len(expected) {
		t.Errorf("Expected %d material lines, got %d", len(expected), len(report.Materials))
	}
	for _, material := range report.Materials {
		want, ok := expected[material.Name]
		if !ok {
			t.Errorf("Unexpected material %s", material.Name)
			continue
		}
		if !material.Quantity.Equal(decimal.RequireFromString(want)) {
			t.Errorf("Expected %s %s, got %s", material.Name, want, material.Quantity)
		}
	}

	store.Wait()
	allEvents, err := store.ReadAllEvents(0)
	if err != nil {
		t.Fatalf("ReadAllEvents failed: %v", err)
	}
	counts := make(map[string]int)
	for _, event := range allEvents {
		counts[event.Type()]++
	}
	if counts[events.PlanSubmittedEvent] != 1 || counts[events.PlanProcessedEvent] != 1 {
		t.Errorf("Expected one submitted and one processed event, got %v", counts)
	}
}

func TestIntegration_ExplodeProduct(t *testing.T) {
	ctx := context.Background()
	data := testhelpers.BuildBakeryTestData()
	service := composition.NewCompositionService(data.Items, data.Items, data.Edges, nil, zaptest.NewLogger(t))

	lines, err := service.Explode(ctx, "PIZZA_MARGHERITA", decimal.NewFromInt(100), false)
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	tests := []struct {
		item     string
		quantity string
		display  string
	}{
		{"FLOUR", "15000", "15 kg"},
		{"WATER", "10000", "10 l"},
		{"TOMATO", "10000", "10 kg"},
		{"MOZZARELLA", "12500", "12 kg 500 g"},
		{"PIZZA_BOX", "100", "2 case"},
	}

	byItem := linesByItem(lines)
	if len(byItem) != len(tests) {
		t.Errorf("Expected %d leaf requirements, got %d", len(tests), len(byItem))
	}
	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			line, ok := byItem[tt.item]
			if !ok {
				t.Fatalf("Expected requirement for %s", tt.item)
			}
			if !line.Quantity.Equal(decimal.RequireFromString(tt.quantity)) {
				t.Errorf("Expected quantity %s, got %s", tt.quantity, line.Quantity)
			}
			if line.Display != tt.display {
				t.Errorf("Expected display %q, got %q", tt.display, line.Display)
			}
		})
	}

	withOptional, err := service.Explode(ctx, "PIZZA_MARGHERITA", decimal.NewFromInt(100), true)
	if err != nil {
		t.Fatalf("Explode with optional failed: %v", err)
	}
	basil, ok := linesByItem(withOptional)["BASIL"]
	if !ok || !basil.Quantity.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected 200 g basil when optional edges are followed, got %+v", basil)
	}
}

func TestIntegration_EditGraphThenExplode(t *testing.T) {
	ctx := context.Background()
	data := testhelpers.BuildBakeryTestData()
	store := events.NewInMemoryEventStore(zaptest.NewLogger(t))
	service := composition.NewCompositionService(data.Items, data.Items, data.Edges, store, zaptest.NewLogger(t)).
		WithIDGenerator(func() entities.EdgeID { return "E_DOUGH_SALT" })

	_, err := service.SaveEdge(ctx, domainservices.EdgeCommand{
		ParentID:    "FLOUR",
		ComponentID: "PIZZA_MARGHERITA",
		Quantity:    decimal.NewFromInt(1),
	})
	var cycleErr *entities.CycleDetectedError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected CycleDetectedError, got %v", err)
	}

	if _, err := service.SaveEdge(ctx, domainservices.EdgeCommand{
		ParentID:    "DOUGH_BALL",
		ComponentID: "SALT",
		Quantity:    decimal.RequireFromString("0.02"),
	}); err != nil {
		t.Fatalf("SaveEdge failed: %v", err)
	}

	if _, err := service.RemoveEdge(ctx, "E_PM_BOX"); err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}

	result, err := service.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.IsValid() {
		t.Errorf("Expected edited graph to stay valid, got %v", result.Errors)
	}

	lines, err := service.Explode(ctx, "PIZZA_MARGHERITA", decimal.NewFromInt(10), false)
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	byItem := linesByItem(lines)
	if salt, ok := byItem["SALT"]; !ok || !salt.Quantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected 50 g salt for 10 pizzas, got %+v", salt)
	}
	if _, ok := byItem["PIZZA_BOX"]; ok {
		t.Errorf("Expected removed box edge to be skipped")
	}

	store.Wait()
	allEvents, _ := store.ReadAllEvents(0)
	if len(allEvents) != 2 {
		t.Errorf("Expected 2 events for one create and one remove, got %d", len(allEvents))
	}
}

func TestIntegration_ReceiveAndDistributeFlour(t *testing.T) {
	ctx := context.Background()
	data := testhelpers.BuildBakeryTestData()
	ledger := memory.NewInventoryRepository()
	service := stock.NewStockService(data.Items, data.Items, ledger, nil, zaptest.NewLogger(t))

	if _, err := service.Move(ctx, stock.MoveRequest{
		ItemID:   "FLOUR",
		Location: "CENTRAL",
		Type:     entities.MovementIn,
		Entries:  []entities.MeasurementEntry{{MeasurementID: "FLOUR_BAG", Count: 2}},
		Note:     "weekly delivery",
	}); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	// flour needed by Kitchen_A: 150 g x 10 pizzas + 200 g x 4 focaccia
	if _, err := service.Transfer(ctx, stock.TransferRequest{
		ItemID:        "FLOUR",
		From:          "CENTRAL",
		To:            "Kitchen_A",
		PlainQuantity: decimal.NewFromInt(2300),
	}); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	tests := []struct {
		location string
		quantity string
		display  string
	}{
		{"CENTRAL", "47700", "1 bag 22 kg 700 g"},
		{"Kitchen_A", "2300", "2 kg 300 g"},
		{"Kitchen_B", "0", "0 g"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			balance, err := service.Balance(ctx, "FLOUR", tt.location)
			if err != nil {
				t.Fatalf("Balance failed: %v", err)
			}
			if !balance.Quantity.Equal(decimal.RequireFromString(tt.quantity)) {
				t.Errorf("Expected %s g, got %s", tt.quantity, balance.Quantity)
			}
			if balance.Display != tt.display {
				t.Errorf("Expected display %q, got %q", tt.display, balance.Display)
			}
		})
	}

	_, err := service.Move(ctx, stock.MoveRequest{
		ItemID:        "FLOUR",
		Location:      "Kitchen_A",
		Type:          entities.MovementOut,
		PlainQuantity: decimal.NewFromInt(2400),
	})
	var insufficient *entities.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Errorf("Expected InsufficientStockError, got %v", err)
	}
}
