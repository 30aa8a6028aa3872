package memory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

func TestItemRepository_LoadAndGetItem(t *testing.T) {
	repo := NewItemRepository(10)

	item := &entities.Item{
		ID:           "FG1",
		Code:         "BUN-CHS",
		Name:         "Cheese Bun",
		Class:        entities.FinishedGood,
		BaseUnit:     "pcs",
		IsProducible: true,
	}

	if err := repo.LoadItems([]*entities.Item{item}); err != nil {
		t.Fatalf("Failed to load items: %v", err)
	}

	retrieved, err := repo.GetItem("FG1")
	if err != nil {
		t.Fatalf("Failed to get item: %v", err)
	}
	if retrieved.Name != item.Name {
		t.Errorf("Expected name %s, got %s", item.Name, retrieved.Name)
	}
	if retrieved.Class != entities.FinishedGood {
		t.Errorf("Expected class FinishedGood, got %v", retrieved.Class)
	}

	// Returned items are copies
	retrieved.Name = "Changed"
	again, _ := repo.GetItem("FG1")
	if again.Name != "Cheese Bun" {
		t.Errorf("Repository item mutated through returned pointer")
	}
}

func TestItemRepository_AddItem_Replaces(t *testing.T) {
	repo := NewItemRepository(2)

	repo.AddItem(entities.Item{ID: "RM1", Name: "Flour", BaseUnit: "g"})
	repo.AddItem(entities.Item{ID: "RM1", Name: "Bread Flour", BaseUnit: "g"})

	items, err := repo.GetAllItems()
	if err != nil {
		t.Fatalf("GetAllItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Name != "Bread Flour" {
		t.Errorf("Expected replaced name, got %s", items[0].Name)
	}
}

func TestItemRepository_GetItem_NotFound(t *testing.T) {
	repo := NewItemRepository(10)

	_, err := repo.GetItem("NONEXISTENT")
	if err == nil {
		t.Fatal("Expected error for non-existent item")
	}
}

func TestItemRepository_Measurements(t *testing.T) {
	repo := NewItemRepository(2)

	err := repo.LoadMeasurements([]*entities.MeasurementUnit{
		{ID: "pcs", ItemID: "RM1", Unit: "pcs", FactorToBase: decimal.NewFromInt(1)},
		{ID: "box", ItemID: "RM1", Unit: "box", FactorToBase: decimal.NewFromInt(12)},
		{ID: "tray", ItemID: "RM2", Unit: "tray", FactorToBase: decimal.NewFromInt(30)},
	})
	if err != nil {
		t.Fatalf("Failed to load measurements: %v", err)
	}

	measurements, err := repo.GetMeasurements("RM1")
	if err != nil {
		t.Fatalf("GetMeasurements failed: %v", err)
	}
	if len(measurements) != 2 {
		t.Fatalf("Expected 2 measurements, got %d", len(measurements))
	}
	if measurements[0].ID != "box" {
		t.Errorf("Expected largest factor first, got %s", measurements[0].ID)
	}

	all, _ := repo.GetAllMeasurements()
	if len(all) != 3 {
		t.Errorf("Expected 3 measurements in total, got %d", len(all))
	}

	none, _ := repo.GetMeasurements("RM9")
	if len(none) != 0 {
		t.Errorf("Expected no measurements for unknown item, got %d", len(none))
	}
}

func TestItemRepository_RejectsNonPositiveFactor(t *testing.T) {
	repo := NewItemRepository(1)

	err := repo.LoadMeasurements([]*entities.MeasurementUnit{
		{ID: "bad", ItemID: "RM1", Unit: "bad", FactorToBase: decimal.Zero},
	})
	var invalid *entities.InvalidMeasurementError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidMeasurementError, got %v", err)
	}
}
