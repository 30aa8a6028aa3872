package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func measurement(id, itemID, unit string, factor int64) *entities.MeasurementUnit {
	return &entities.MeasurementUnit{
		ID:           entities.MeasurementID(id),
		ItemID:       entities.ItemID(itemID),
		Unit:         unit,
		FactorToBase: dec(factor),
	}
}

func edge(id, parent, component string, qty int64) entities.CompositionEdge {
	return entities.CompositionEdge{
		ID:                    entities.EdgeID(id),
		ParentItemID:          entities.ItemID(parent),
		ComponentItemID:       entities.ItemID(component),
		QuantityPerParentUnit: dec(qty),
		Active:                true,
	}
}

func newTestGraph(t *testing.T, edges ...entities.CompositionEdge) *CompositionGraph {
	t.Helper()
	graph, err := NewCompositionGraph(edges)
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	counter := 0
	return graph.WithIDGenerator(func() entities.EdgeID {
		counter++
		return entities.EdgeID(fmt.Sprintf("NEW%d", counter))
	})
}

func newTestConverter(t *testing.T, items []*entities.Item, measurements ...*entities.MeasurementUnit) *QuantityConverter {
	t.Helper()
	registry, err := NewMeasurementRegistry(items, measurements)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	return NewQuantityConverter(registry)
}
