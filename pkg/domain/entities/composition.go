package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EdgeID identifies a composition edge
type EdgeID string

// CompositionEdge links a parent item to one of its components
type CompositionEdge struct {
	ID                    EdgeID
	ParentItemID          ItemID
	ComponentItemID       ItemID
	QuantityPerParentUnit decimal.Decimal
	UnitID                MeasurementID // empty = component base unit
	Optional              bool
	Active                bool
}

// NewCompositionEdge creates a validated, active CompositionEdge
func NewCompositionEdge(id EdgeID, parentID, componentID ItemID, qty decimal.Decimal, unitID MeasurementID, optional bool) (*CompositionEdge, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("edge id cannot be empty")
	}
	if string(parentID) == "" {
		return nil, fmt.Errorf("parent item id cannot be empty")
	}
	if string(componentID) == "" {
		return nil, fmt.Errorf("component item id cannot be empty")
	}
	if parentID == componentID {
		return nil, &SelfReferenceError{ItemID: parentID}
	}
	if !qty.IsPositive() {
		return nil, &ValidationError{Field: "quantity per parent unit", Value: qty.String(), Reason: "must be positive"}
	}

	return &CompositionEdge{
		ID:                    id,
		ParentItemID:          parentID,
		ComponentItemID:       componentID,
		QuantityPerParentUnit: qty,
		UnitID:                unitID,
		Optional:              optional,
		Active:                true,
	}, nil
}

// SameLink reports whether two edges connect the same parent and component
func (e CompositionEdge) SameLink(other CompositionEdge) bool {
	return e.ParentItemID == other.ParentItemID && e.ComponentItemID == other.ComponentItemID
}
