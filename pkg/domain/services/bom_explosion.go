package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// Requirement is the aggregated base-unit need of one leaf item
type Requirement struct {
	ItemID   entities.ItemID
	Quantity decimal.Decimal
	Unit     string
}

// BOMExplosion expands an item quantity through the composition graph down to its leaves
type BOMExplosion struct {
	graph     *CompositionGraph
	converter *QuantityConverter
}

// NewBOMExplosion creates an explosion over a graph snapshot
func NewBOMExplosion(graph *CompositionGraph, converter *QuantityConverter) *BOMExplosion {
	return &BOMExplosion{graph: graph, converter: converter}
}

// Explode returns the leaf requirements to build qty base units of itemID, sorted by item id.
// Optional components are skipped unless includeOptional is set; an item left without
// components is then a leaf itself.
func (e *BOMExplosion) Explode(itemID entities.ItemID, qty decimal.Decimal, includeOptional bool) ([]Requirement, error) {
	if qty.IsNegative() {
		return nil, &entities.ValidationError{Field: "quantity", Value: qty.String(), Reason: "cannot be negative"}
	}

	totals := make(map[entities.ItemID]decimal.Decimal)
	if err := e.explode(itemID, qty, includeOptional, map[entities.ItemID]bool{}, totals); err != nil {
		return nil, err
	}

	requirements := make([]Requirement, 0, len(totals))
	for id, total := range totals {
		requirements = append(requirements, Requirement{
			ItemID:   id,
			Quantity: total,
			Unit:     e.converter.Registry().BaseUnitLabel(id),
		})
	}
	sort.Slice(requirements, func(i, j int) bool {
		return requirements[i].ItemID < requirements[j].ItemID
	})
	return requirements, nil
}

func (e *BOMExplosion) explode(
	itemID entities.ItemID,
	qty decimal.Decimal,
	includeOptional bool,
	onPath map[entities.ItemID]bool,
	totals map[entities.ItemID]decimal.Decimal,
) error {
	if onPath[itemID] {
		return &entities.CycleDetectedError{ParentID: itemID, ComponentID: itemID, Path: []entities.ItemID{itemID, itemID}}
	}

	var followed []entities.CompositionEdge
	for _, edge := range e.graph.Components(itemID) {
		if edge.Optional && !includeOptional {
			continue
		}
		followed = append(followed, edge)
	}
	// an item whose components are all skipped is needed as itself
	if len(followed) == 0 {
		totals[itemID] = totals[itemID].Add(qty)
		return nil
	}

	onPath[itemID] = true
	defer delete(onPath, itemID)

	for _, edge := range followed {
		perParent, err := e.converter.ToBase(edge.ComponentItemID, edge.UnitID, edge.QuantityPerParentUnit)
		if err != nil {
			return fmt.Errorf("failed to convert edge %s: %w", edge.ID, err)
		}
		if err := e.explode(edge.ComponentItemID, qty.Mul(perParent), includeOptional, onPath, totals); err != nil {
			return err
		}
	}

	return nil
}
