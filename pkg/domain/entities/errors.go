package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed or out-of-range input
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// SelfReferenceError reports an edge whose parent and component are the same item
type SelfReferenceError struct {
	ItemID ItemID
}

func (e *SelfReferenceError) Error() string {
	return fmt.Sprintf("item %s cannot be a component of itself", e.ItemID)
}

// DuplicateComponentError reports a second active edge between the same pair
type DuplicateComponentError struct {
	ParentID       ItemID
	ComponentID    ItemID
	ExistingEdgeID EdgeID
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("item %s already has component %s (edge %s)", e.ParentID, e.ComponentID, e.ExistingEdgeID)
}

// CycleDetectedError reports that an edge would close a loop in the composition graph.
// Path starts and ends at ParentID.
type CycleDetectedError struct {
	ParentID    ItemID
	ComponentID ItemID
	Path        []ItemID
}

func (e *CycleDetectedError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return fmt.Sprintf("adding %s -> %s creates a cycle: %s", e.ParentID, e.ComponentID, strings.Join(parts, " -> "))
}

// InsufficientStockError reports an outbound movement larger than the stock on hand
type InsufficientStockError struct {
	ItemID    ItemID
	Location  string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s at %s: requested %s, available %s",
		e.ItemID, e.Location, e.Requested.String(), e.Available.String())
}

// InvalidMeasurementError reports an unknown measurement or a bad factor or count
type InvalidMeasurementError struct {
	MeasurementID MeasurementID
	ItemID        ItemID
	Reason        string
}

func (e *InvalidMeasurementError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("invalid measurement %s: %s", e.MeasurementID, e.Reason)
	}
	return fmt.Sprintf("invalid measurement %s for item %s: %s", e.MeasurementID, e.ItemID, e.Reason)
}

// MissingRecipeError is a soft error: the product contributes no ingredient usage
type MissingRecipeError struct {
	Product string
}

func (e *MissingRecipeError) Error() string {
	return fmt.Sprintf("no recipe found for product %s", e.Product)
}
